// Package thumbnail derives bounded-dimension JPEG previews from uploaded
// images.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
)

// ErrDecode is returned when the input bytes are not a recognizable image.
var ErrDecode = errors.New("not a decodable image")

const (
	// DefaultMaxWidth and DefaultMaxHeight bound thumbnail dimensions.
	DefaultMaxWidth  = 250
	DefaultMaxHeight = 250

	jpegQuality = 85
)

// Make decodes original, scales it down so neither dimension exceeds
// maxWidth x maxHeight (never upscaling), and re-encodes as JPEG
// regardless of the source format.
func Make(original []byte, maxWidth, maxHeight int) ([]byte, error) {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if maxHeight <= 0 {
		maxHeight = DefaultMaxHeight
	}

	img, err := imaging.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	// Fit preserves aspect ratio and leaves images already within bounds
	// unscaled.
	fitted := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
