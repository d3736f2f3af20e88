package domain

import (
	"errors"
	"testing"
)

func TestEncodeDataURI(t *testing.T) {
	t.Parallel()

	got := EncodeDataURI("image/png", []byte("abc"))
	if got != "data:image/png;base64,YWJj" {
		t.Fatalf("EncodeDataURI()=%q", got)
	}
	if got.MediaType() != "image/png" || got.IsPDF() {
		t.Fatalf("MediaType()=%q IsPDF()=%v", got.MediaType(), got.IsPDF())
	}
	b, err := got.Bytes()
	if err != nil || string(b) != "abc" {
		t.Fatalf("Bytes()=%q err=%v", b, err)
	}

	if got := EncodeDataURI("", nil); got != "data:application/octet-stream;base64," {
		t.Fatalf("EncodeDataURI(empty)=%q", got)
	}
}

func TestDataURI_IsPDF(t *testing.T) {
	t.Parallel()

	if !DataURI("data:application/pdf;base64,JVBERi0=").IsPDF() {
		t.Fatalf("expected pdf")
	}
	if DataURI("data:image/jpeg;base64,/9j/").IsPDF() {
		t.Fatalf("jpeg reported as pdf")
	}
	if DataURI("data:application/octet-stream;base64,").IsPDF() {
		t.Fatalf("octet-stream reported as pdf")
	}
}

func TestParseDataURI(t *testing.T) {
	t.Parallel()

	if _, err := ParseDataURI("data:image/png;base64,YWJj"); err != nil {
		t.Fatalf("ParseDataURI(valid) err=%v", err)
	}
	if _, err := ParseDataURI("javascript:alert(1)"); !errors.Is(err, ErrNotDataURI) {
		t.Fatalf("ParseDataURI(javascript) err=%v, want %v", err, ErrNotDataURI)
	}
	if _, err := ParseDataURI("data:text/plain,hello"); !errors.Is(err, ErrDataURIEncoding) {
		t.Fatalf("ParseDataURI(plain) err=%v, want %v", err, ErrDataURIEncoding)
	}
	if _, err := ParseDataURI("data:image/png;base64,@@@"); !errors.Is(err, ErrDataURIEncoding) {
		t.Fatalf("ParseDataURI(bad payload) err=%v, want %v", err, ErrDataURIEncoding)
	}
}
