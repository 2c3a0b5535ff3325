package api

import (
	"strings"
	"testing"
)

func TestEncodeImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

	uri, err := EncodeImage(png)
	if err != nil {
		t.Fatalf("EncodeImage: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Errorf("uri = %q, want image/png data URI", uri)
	}
}

func TestEncodeImageRejectsNonImage(t *testing.T) {
	if _, err := EncodeImage([]byte("hello world")); err == nil {
		t.Error("EncodeImage(text) succeeded, want error")
	}
	if _, err := EncodeImage(nil); err == nil {
		t.Error("EncodeImage(nil) succeeded, want error")
	}
}
