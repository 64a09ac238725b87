// Package qrcode renders verification URIs as scannable QR codes.
//
// RFC 8628 section 3.3.1 recommends QR codes for non-textual transmission of
// verification_uri_complete. The user still confirms the displayed user code.
package qrcode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	qr "github.com/skip2/go-qrcode"
)

const (
	// DefaultSize is the PNG edge length in pixels
	DefaultSize = 256

	// Error correction level L (7%) as recommended for short URIs
	recoveryLevel = qr.Low
)

// ErrEmptyContent indicates there was nothing to encode
var ErrEmptyContent = errors.New("empty verification URI")

// Writer writes one PNG per session key into a directory
type Writer struct {
	dir  string
	size int
}

// NewWriter creates the output directory if needed and returns a Writer
func NewWriter(dir string, size int) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if size <= 0 {
		size = DefaultSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{dir: dir, size: size}, nil
}

// WriteCode encodes content as a PNG stored under the session key
func (w *Writer) WriteCode(key, content string) error {
	png, err := Encode(content, w.size)
	if err != nil {
		return err
	}

	path, err := w.Path(key)
	if err != nil {
		return err
	}

	// Write to a temp file first so readers never see a partial image
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, png, 0o644); err != nil {
		return fmt.Errorf("writing QR code: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming QR code: %w", err)
	}
	return nil
}

// Path returns the image location for a session key
func (w *Writer) Path(key string) (string, error) {
	// Keys are hex; anything with a separator is not one of ours
	if key == "" || filepath.Base(key) != key {
		return "", fmt.Errorf("invalid session key %q", key)
	}
	return filepath.Join(w.dir, key+".png"), nil
}

// Encode returns a PNG QR code for content
func Encode(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	png, err := qr.Encode(content, recoveryLevel, size)
	if err != nil {
		return nil, fmt.Errorf("encoding QR code: %w", err)
	}
	return png, nil
}

// Terminal returns content as a QR code drawn with block characters
func Terminal(content string) (string, error) {
	if content == "" {
		return "", ErrEmptyContent
	}
	code, err := qr.New(content, recoveryLevel)
	if err != nil {
		return "", fmt.Errorf("encoding QR code: %w", err)
	}
	return code.ToSmallString(false), nil
}
