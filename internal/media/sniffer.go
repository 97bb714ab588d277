package media

import (
	"bytes"
	"errors"
)

type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeGIF  MediaType = "gif"
	TypeWEBP MediaType = "webp"
)

var ErrUnknownType = errors.New("unknown media type")

// DetectHead sniffs the magic bytes of the formats the camera firmware can
// produce. Anything else is rejected before decoding.
func DetectHead(head []byte) (MediaType, error) {
	if len(head) == 0 {
		return "", ErrUnknownType
	}

	if isJPEG(head) {
		return TypeJPEG, nil
	}
	if isPNG(head) {
		return TypePNG, nil
	}
	if isGIF(head) {
		return TypeGIF, nil
	}
	if isWEBP(head) {
		return TypeWEBP, nil
	}

	return "", ErrUnknownType
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isGIF(head []byte) bool {
	return len(head) >= 6 && (bytes.Equal(head[:6], []byte("GIF87a")) || bytes.Equal(head[:6], []byte("GIF89a")))
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("WEBP"))
}
