package api

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// maxImageBytes bounds a single alert photo before encoding.
const maxImageBytes = 5 << 20

// EncodeImage returns data as a data URI with its detected MIME type.
func EncodeImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("encoding image: empty data")
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("encoding image: %d bytes exceeds %d", len(data), maxImageBytes)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("encoding image: unsupported type %s", mt.String())
	}

	// Strip parameters such as "; charset=binary".
	mime, _, _ := strings.Cut(mt.String(), ";")
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// EncodeImageFile reads path and encodes it with EncodeImage.
func EncodeImageFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening image %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading image %s: %w", path, err)
	}
	return EncodeImage(data)
}
