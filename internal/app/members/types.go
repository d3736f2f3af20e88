package members

import (
	"io"
	"strings"

	"github.com/Overland-East-Bay/family-health/internal/domain"
)

// SaveInput carries the raw form fields of a create or update.
type SaveInput struct {
	Name   string
	Age    string
	Blood  string
	Height string
	Weight string
	Notes  string

	// Document is an optional newly uploaded report. On update, nil keeps the
	// previously attached report.
	Document *Upload
}

func (in SaveInput) trimmed() SaveInput {
	out := in
	out.Name = strings.TrimSpace(in.Name)
	out.Age = strings.TrimSpace(in.Age)
	out.Blood = strings.TrimSpace(in.Blood)
	out.Height = strings.TrimSpace(in.Height)
	out.Weight = strings.TrimSpace(in.Weight)
	out.Notes = strings.TrimSpace(in.Notes)
	return out
}

// Upload is a document selected in the form.
type Upload struct {
	Filename string
	// MediaType is the declared type; empty or application/octet-stream triggers sniffing.
	MediaType string
	Content   io.Reader
}

// DocumentResult is the outcome of reading an Upload into a data URI.
type DocumentResult struct {
	DataURI domain.DataURI
	Err     error
}

// BMIPreview is the live BMI shown next to the height/weight inputs.
type BMIPreview struct {
	BMI      *float64
	Category string
}
