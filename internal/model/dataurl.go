package model

import (
	"encoding/base64"
	"errors"
	"strings"
)

// JPEGDataURLPrefix prefixes every encoded frame.
const JPEGDataURLPrefix = "data:image/jpeg;base64,"

var ErrNotDataURL = errors.New("not a base64 data URL")

// JPEGDataURL wraps JPEG bytes in a data URL.
func JPEGDataURL(jpeg []byte) string {
	return JPEGDataURLPrefix + base64.StdEncoding.EncodeToString(jpeg)
}

// DecodeDataURL returns the bytes carried by a base64 data URL. A bare base64
// string (no "data:" header) is accepted too, the detection service sends both.
func DecodeDataURL(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 || !strings.HasSuffix(s[:comma], ";base64") {
			return nil, ErrNotDataURL
		}
		s = s[comma+1:]
	}
	if s == "" {
		return nil, ErrNotDataURL
	}
	return base64.StdEncoding.DecodeString(s)
}
