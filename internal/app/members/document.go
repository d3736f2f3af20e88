package members

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Overland-East-Bay/family-health/internal/domain"
)

// ReadDocument reads up into a data URI on its own goroutine. The returned
// channel yields exactly one result and is then closed.
func ReadDocument(ctx context.Context, up Upload) <-chan DocumentResult {
	_ = ctx
	out := make(chan DocumentResult, 1)
	go func() {
		defer close(out)
		if up.Content == nil {
			out <- DocumentResult{Err: fmt.Errorf("read %q: no content", up.Filename)}
			return
		}
		b, err := io.ReadAll(up.Content)
		if err != nil {
			out <- DocumentResult{Err: fmt.Errorf("read %q: %w", up.Filename, err)}
			return
		}
		out <- DocumentResult{DataURI: domain.EncodeDataURI(documentMediaType(up.MediaType, b), b)}
	}()
	return out
}

// documentMediaType prefers the declared type; missing, generic or malformed
// declarations fall back to the sniffed type. The result goes into a data URI
// header and never contains ',' or ';'.
func documentMediaType(declared string, b []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	if len(b) == 0 {
		return "application/octet-stream"
	}
	sniffed, _, _ := strings.Cut(mimetype.Detect(b).String(), ";")
	return strings.TrimSpace(sniffed)
}
