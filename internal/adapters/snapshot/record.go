package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oapi-codegen/nullable"

	"github.com/Overland-East-Bay/family-health/internal/domain"
)

// timestampLayout matches JavaScript's Date.prototype.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// record is the persisted JSON shape of one member.
type record struct {
	ID        recordID                   `json:"id"`
	Name      string                     `json:"name"`
	Age       string                     `json:"age"`
	Blood     string                     `json:"blood"`
	Height    string                     `json:"height"`
	Weight    string                     `json:"weight"`
	Notes     string                     `json:"notes"`
	BMI       nullable.Nullable[float64] `json:"bmi"`
	Report    nullable.Nullable[string]  `json:"report"`
	CreatedAt string                     `json:"createdAt"`
	UpdatedAt nullable.Nullable[string]  `json:"updatedAt,omitempty"`
}

// recordID accepts both the numeric IDs written by the browser version and
// string IDs. All-digit IDs are written back as numbers so legacy blobs
// round-trip unchanged.
type recordID string

func (id recordID) MarshalJSON() ([]byte, error) {
	if isDigits(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *recordID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = recordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("member id must be a string or number: %w", err)
	}
	*id = recordID(n.String())
	return nil
}

func isDigits(s string) bool {
	if s == "" || len(s) > 15 || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func toRecord(m domain.Member) record {
	rec := record{
		ID:        recordID(m.ID),
		Name:      m.Name,
		Age:       m.Age,
		Blood:     m.Blood,
		Height:    m.Height,
		Weight:    m.Weight,
		Notes:     m.Notes,
		BMI:       nullable.NewNullNullable[float64](),
		Report:    nullable.NewNullNullable[string](),
		CreatedAt: formatTimestamp(m.CreatedAt),
	}
	if m.BMI != nil {
		rec.BMI = nullable.NewNullableWithValue(*m.BMI)
	}
	if m.Report != nil {
		rec.Report = nullable.NewNullableWithValue(string(*m.Report))
	}
	if m.UpdatedAt != nil {
		rec.UpdatedAt = nullable.NewNullableWithValue(formatTimestamp(*m.UpdatedAt))
	}
	return rec
}

func fromRecord(rec record) (domain.Member, error) {
	if rec.ID == "" {
		return domain.Member{}, errors.New("member without id")
	}
	createdAt, err := parseTimestamp(rec.CreatedAt)
	if err != nil {
		return domain.Member{}, fmt.Errorf("member %s createdAt: %w", rec.ID, err)
	}
	m := domain.Member{
		ID:        domain.MemberID(rec.ID),
		Name:      rec.Name,
		Age:       rec.Age,
		Blood:     rec.Blood,
		Height:    rec.Height,
		Weight:    rec.Weight,
		Notes:     rec.Notes,
		CreatedAt: createdAt,
	}
	if rec.BMI.IsSpecified() && !rec.BMI.IsNull() {
		v := rec.BMI.MustGet()
		m.BMI = &v
	}
	if rec.Report.IsSpecified() && !rec.Report.IsNull() {
		if v := rec.Report.MustGet(); v != "" {
			d := domain.DataURI(v)
			m.Report = &d
		}
	}
	if rec.UpdatedAt.IsSpecified() && !rec.UpdatedAt.IsNull() {
		t, err := parseTimestamp(rec.UpdatedAt.MustGet())
		if err != nil {
			return domain.Member{}, fmt.Errorf("member %s updatedAt: %w", rec.ID, err)
		}
		m.UpdatedAt = &t
	}
	return m, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Encode serializes the full collection as the persisted JSON array.
func Encode(ms []domain.Member) ([]byte, error) {
	recs := make([]record, 0, len(ms))
	for _, m := range ms {
		recs = append(recs, toRecord(m))
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(recs); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ErrDuplicateID is returned by Decode when two records share an id.
var ErrDuplicateID = errors.New("duplicate member id")

// Decode parses a persisted JSON array.
func Decode(b []byte) ([]domain.Member, error) {
	var recs []record
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, err
	}
	out := make([]domain.Member, 0, len(recs))
	seen := make(map[domain.MemberID]struct{}, len(recs))
	for _, rec := range recs {
		m, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[m.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, m.ID)
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out, nil
}
