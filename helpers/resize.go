package helpers

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
)

// ScaleImage scales an image down so that neither side exceeds maxSize pixels.
// Source has to be a JPEG, PNG or GIF. Result will be a PNG.
func ScaleImage(data []byte, maxSize int) (result []byte, err error) {
	sourceImage, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	sourceImage = resize.Thumbnail(uint(maxSize), uint(maxSize), sourceImage, resize.Bilinear)

	var buff bytes.Buffer
	err = png.Encode(&buff, sourceImage)
	if err != nil {
		return nil, err
	}

	return buff.Bytes(), nil
}
