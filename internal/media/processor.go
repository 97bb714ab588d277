// Package media turns a raw camera upload into the two stored artifacts: a
// re-encoded full-size JPEG and a square thumbnail, both derived from the
// same decoded frame so they always show the same picture.
package media

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
)

var ErrNotAnImage = errors.New("payload is not an image")

const (
	photoQuality = 85
	thumbQuality = 70
	thumbSize    = 300
)

type Artifacts struct {
	Photo []byte
	Thumb []byte
}

func Process(data []byte) (Artifacts, error) {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if _, err := DetectHead(head); err != nil {
		return Artifacts{}, ErrNotAnImage
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Artifacts{}, ErrNotAnImage
	}

	var photo bytes.Buffer
	if err := imaging.Encode(&photo, src, imaging.JPEG, imaging.JPEGQuality(photoQuality)); err != nil {
		return Artifacts{}, fmt.Errorf("encode photo: %w", err)
	}

	cropped := imaging.Fill(src, thumbSize, thumbSize, imaging.Center, imaging.Lanczos)
	var thumb bytes.Buffer
	if err := imaging.Encode(&thumb, cropped, imaging.JPEG, imaging.JPEGQuality(thumbQuality)); err != nil {
		return Artifacts{}, fmt.Errorf("encode thumbnail: %w", err)
	}

	return Artifacts{
		Photo: photo.Bytes(),
		Thumb: thumb.Bytes(),
	}, nil
}
