// Package snapshot converts engine images to and from the text form kept in
// the durable blob store.
//
// The encoding is standard padded base64. Decode(Encode(b)) == b for every b;
// every persisted table depends on it.
package snapshot

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrDecode is returned when stored text is not a valid encoding.
var ErrDecode = errors.New("snapshot decode failed")

// Encode returns the text form of an image.
func Encode(image []byte) string {
	return base64.StdEncoding.EncodeToString(image)
}

// Decode returns the image held by text. Surrounding whitespace, which
// some storage media append, is ignored.
func Decode(text string) ([]byte, error) {
	image, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return image, nil
}
