package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestProcessProducesBothArtifacts(t *testing.T) {
	artifacts, err := Process(sampleJPEG(t, 640, 480))
	require.NoError(t, err)
	require.NotEmpty(t, artifacts.Photo)
	require.NotEmpty(t, artifacts.Thumb)

	photo, err := jpeg.Decode(bytes.NewReader(artifacts.Photo))
	require.NoError(t, err)
	require.Equal(t, 640, photo.Bounds().Dx())
	require.Equal(t, 480, photo.Bounds().Dy())

	thumb, err := jpeg.Decode(bytes.NewReader(artifacts.Thumb))
	require.NoError(t, err)
	require.Equal(t, 300, thumb.Bounds().Dx())
	require.Equal(t, 300, thumb.Bounds().Dy())
}

func TestProcessAcceptsPNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 400))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	artifacts, err := Process(buf.Bytes())
	require.NoError(t, err)
	require.NotEmpty(t, artifacts.Photo)
}

func TestProcessRejectsNonImage(t *testing.T) {
	_, err := Process([]byte("definitely not an image payload"))
	require.ErrorIs(t, err, ErrNotAnImage)

	_, err = Process(nil)
	require.ErrorIs(t, err, ErrNotAnImage)
}

func TestDetectHead(t *testing.T) {
	typ, err := DetectHead(sampleJPEG(t, 10, 10))
	require.NoError(t, err)
	require.Equal(t, TypeJPEG, typ)

	_, err = DetectHead([]byte("GIF89a......"))
	require.NoError(t, err)

	_, err = DetectHead([]byte("plain text"))
	require.ErrorIs(t, err, ErrUnknownType)
}
