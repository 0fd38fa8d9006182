// Package ocr reads the recording settings printed on an ECG strip.
//
// Most printouts label the paper speed and gain in a margin, for example
// "25 mm/s  10 mm/mV". Those labels decide how millimetres convert to
// seconds and millivolts, so reading them lets the digitizer check or set
// its calibration.
//
// # Build Tags
//
// Text recognition uses Tesseract through gosseract and needs cgo plus the
// Tesseract libraries. It is compiled only with the "tesseract" build tag:
//
//	go build -tags tesseract ./...
//
// Without the tag, ParseAnnotations and LocateAnnotations still work and
// ReadAnnotations returns ErrOCRUnavailable.
//
// # Prerequisites (tesseract tag)
//
//   - Ubuntu/Debian: apt-get install libtesseract-dev tesseract-ocr-eng
//   - macOS: brew install tesseract
package ocr
