package snapshot

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Overland-East-Bay/family-health/internal/domain"
)

// legacyBlob is what the browser version of the app wrote to localStorage.
const legacyBlob = `[{"id":1709285400123,"name":"Rahim","age":"41","blood":"B+","height":"168","weight":"72","notes":"BP <140/90> & sugar","bmi":25.5,"report":"data:application/pdf;base64,JVBERi0xLjQ=","createdAt":"2024-03-01T09:30:00.123Z","updatedAt":"2024-03-02T10:00:00.000Z"},{"id":1709285400456,"name":"Karim","age":"9","blood":"","height":"","weight":"30","notes":"","bmi":null,"report":null,"createdAt":"2024-03-01T09:31:00.000Z"}]`

func TestDecode_LegacyBlob(t *testing.T) {
	t.Parallel()

	ms, err := Decode([]byte(legacyBlob))
	if err != nil {
		t.Fatalf("Decode() err=%v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("len=%d, want 2", len(ms))
	}
	a := ms[0]
	if a.ID != "1709285400123" || a.Name != "Rahim" || a.Notes != "BP <140/90> & sugar" {
		t.Fatalf("ms[0]=%+v", a)
	}
	if a.BMI == nil || *a.BMI != 25.5 {
		t.Fatalf("ms[0].BMI=%v", a.BMI)
	}
	if a.Report == nil || !a.Report.IsPDF() {
		t.Fatalf("ms[0].Report=%v", a.Report)
	}
	wantCreated := time.Date(2024, 3, 1, 9, 30, 0, 123_000_000, time.UTC)
	if !a.CreatedAt.Equal(wantCreated) {
		t.Fatalf("ms[0].CreatedAt=%v, want %v", a.CreatedAt, wantCreated)
	}
	if a.UpdatedAt == nil {
		t.Fatalf("ms[0].UpdatedAt=nil")
	}
	b := ms[1]
	if b.BMI != nil || b.Report != nil || b.UpdatedAt != nil {
		t.Fatalf("ms[1] optional fields set: %+v", b)
	}
}

func TestEncode_RoundTripIsIdempotent(t *testing.T) {
	t.Parallel()

	ms, err := Decode([]byte(legacyBlob))
	if err != nil {
		t.Fatalf("Decode() err=%v", err)
	}
	out, err := Encode(ms)
	if err != nil {
		t.Fatalf("Encode() err=%v", err)
	}
	if string(out) != legacyBlob {
		t.Fatalf("Encode(Decode(blob)) mismatch:\n got=%s\nwant=%s", out, legacyBlob)
	}
}

func TestEncode_NullsAndOmittedUpdatedAt(t *testing.T) {
	t.Parallel()

	m := domain.Member{
		ID:        "4b1f6c0e-2c8e-4b53-9d3a-4f6a1f1d2e3f",
		Name:      "Nadia",
		Age:       "30",
		Height:    "160",
		Weight:    "55",
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	out, err := Encode([]domain.Member{m})
	if err != nil {
		t.Fatalf("Encode() err=%v", err)
	}
	s := string(out)
	for _, want := range []string{
		`"id":"4b1f6c0e-2c8e-4b53-9d3a-4f6a1f1d2e3f"`,
		`"bmi":null`,
		`"report":null`,
		`"createdAt":"2025-01-02T03:04:05.000Z"`,
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("Encode()=%s, missing %s", s, want)
		}
	}
	if strings.Contains(s, "updatedAt") {
		t.Fatalf("Encode()=%s, updatedAt should be omitted", s)
	}
}

func TestEncode_Empty(t *testing.T) {
	t.Parallel()

	out, err := Encode(nil)
	if err != nil {
		t.Fatalf("Encode() err=%v", err)
	}
	if string(out) != "[]" {
		t.Fatalf("Encode(nil)=%q, want []", out)
	}
}

func TestDecode_DuplicateIDs(t *testing.T) {
	t.Parallel()

	blob := `[{"id":1,"name":"A","createdAt":"2024-01-01T00:00:00.000Z"},{"id":1,"name":"B","createdAt":"2024-01-01T00:00:00.000Z"}]`
	ms, err := Decode([]byte(blob))
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("Decode() err=%v, want %v", err, ErrDuplicateID)
	}
	if ms != nil {
		t.Fatalf("Decode() members=%v, want nil", ms)
	}
}

func TestDecode_Rejects(t *testing.T) {
	t.Parallel()

	for _, blob := range []string{
		`not json`,
		`{"id":1}`,
		`[{"id":true}]`,
		`[{"name":"no id"}]`,
		`[{"id":"a","createdAt":"yesterday"}]`,
		`[{"id":1,"createdAt":"2024-01-01T00:00:00.000Z"},{"id":"1","createdAt":"2024-01-02T00:00:00.000Z"}]`,
	} {
		if _, err := Decode([]byte(blob)); err == nil {
			t.Fatalf("Decode(%s) err=nil, want error", blob)
		}
	}
}
