//go:build !tesseract

package ocr

import "image"

// Available reports whether Tesseract is compiled in.
const Available = false

func recognize(image.Image, string) (string, error) {
	return "", ErrOCRUnavailable
}

// Version returns the Tesseract library version, empty without Tesseract.
func Version() string {
	return ""
}
