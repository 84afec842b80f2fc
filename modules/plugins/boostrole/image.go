package boostrole

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/boostrole/boostrole/helpers"
)

// discord rejects role icons above 256 KiB
const roleIconMaxBytes = 256 * 1024

// icons get downscaled to this edge length when the source is too large
const roleIconScaleSize = 256

// UnsupportedFormatError is returned for images that are not JPEG, PNG or GIF
type UnsupportedFormatError struct {
	Name string
}

func (e *UnsupportedFormatError) Error() string {
	return "unsupported image format: " + e.Name
}

// UnreachableImageError is returned when the url cannot be fetched or does not hold an image
type UnreachableImageError struct {
	URL string
	Err error
}

func (e *UnreachableImageError) Error() string {
	message := "image unreachable or invalid: " + e.URL
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}

	return message
}

func (e *UnreachableImageError) Unwrap() error {
	return e.Err
}

// IngestIcon fetches the image behind url and turns it into the base64 data
// payload the discord API expects for role icons. It also returns the sha256
// of the fetched bytes so callers can detect whether an image changed.
func IngestIcon(ctx context.Context, url string) (payload string, hash string, err error) {
	trimmed := strings.TrimSpace(url)

	// the input has to be a fetchable url, not an already encoded payload
	if strings.HasPrefix(strings.ToLower(trimmed), "data:") {
		return "", "", &UnreachableImageError{URL: trimmed}
	}

	data, err := helpers.NetGet(ctx, trimmed)
	if err != nil {
		return "", "", &UnreachableImageError{URL: trimmed, Err: err}
	}

	mime, err := sniffImage(trimmed, data)
	if err != nil {
		return "", "", err
	}

	if len(data) > roleIconMaxBytes {
		data, err = helpers.ScaleImage(data, roleIconScaleSize)
		if err != nil {
			return "", "", &UnreachableImageError{URL: trimmed, Err: err}
		}
		mime = "image/png"
	}

	sum := sha256.Sum256(data)

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
		hex.EncodeToString(sum[:]), nil
}

// sniffImage detects the content type and enforces the JPEG/PNG/GIF allow-list
func sniffImage(url string, data []byte) (mime string, err error) {
	mime = http.DetectContentType(data)

	switch mime {
	case "image/jpeg", "image/png", "image/gif":
		return mime, nil
	}

	if strings.HasPrefix(mime, "image/") {
		return "", &UnsupportedFormatError{Name: formatName(mime)}
	}

	// not an image at all
	return "", &UnreachableImageError{URL: url}
}

// formatName turns "image/webp" into "Webp"
func formatName(mime string) string {
	name := strings.TrimPrefix(mime, "image/")
	name = strings.TrimPrefix(name, "x-")
	if name == "" {
		return name
	}

	return strings.ToUpper(name[:1]) + name[1:]
}
