package domain

import (
	"encoding/base64"
	"errors"
	"strings"
)

// MediaTypePDF is the media type that is previewed as a link rather than inline.
const MediaTypePDF = "application/pdf"

// DataURI is a self-describing document: "data:<media type>;base64,<payload>".
type DataURI string

var (
	ErrNotDataURI       = errors.New("not a data URI")
	ErrDataURIEncoding  = errors.New("data URI payload is not base64")
	defaultDocumentType = "application/octet-stream"
)

// EncodeDataURI builds a base64 data URI for the given bytes.
// An empty media type falls back to application/octet-stream.
func EncodeDataURI(mediaType string, b []byte) DataURI {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		mediaType = defaultDocumentType
	}
	return DataURI("data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(b))
}

// ParseDataURI validates s as a base64 data URI.
func ParseDataURI(s string) (DataURI, error) {
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(header, "data:") {
		return "", ErrNotDataURI
	}
	if !strings.HasSuffix(header, ";base64") {
		return "", ErrDataURIEncoding
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return "", ErrDataURIEncoding
	}
	return DataURI(s), nil
}

// MediaType returns the declared media type without parameters.
func (d DataURI) MediaType() string {
	header, _, _ := strings.Cut(string(d), ",")
	header = strings.TrimPrefix(header, "data:")
	mt, _, _ := strings.Cut(header, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// IsPDF reports whether the document is previewed as a PDF link. Anything else is
// treated as an image.
func (d DataURI) IsPDF() bool {
	return d.MediaType() == MediaTypePDF
}

// Bytes decodes the payload.
func (d DataURI) Bytes() ([]byte, error) {
	_, payload, ok := strings.Cut(string(d), ",")
	if !ok {
		return nil, ErrNotDataURI
	}
	return base64.StdEncoding.DecodeString(payload)
}
