package httpapi

import (
	"embed"
	"html/template"
	"net/url"
	"unicode/utf8"

	"github.com/Overland-East-Bay/family-health/internal/app/members"
	"github.com/Overland-East-Bay/family-health/internal/domain"
)

//go:embed templates/*.html
var templatesFS embed.FS

const notesExcerptRunes = 120

var pageTemplate = template.Must(template.New("page.html").ParseFS(templatesFS, "templates/*.html"))

type pageData struct {
	Query   string
	Alert   string
	Form    formData
	Members []memberCard
	Detail  *memberDetail
	Confirm *confirmData
}

type formData struct {
	EditingID  string
	Submission string

	Name   string
	Age    string
	Blood  string
	Height string
	Weight string
	Notes  string

	BMI      string
	Category string
	// HasReport is set when editing a member that already has a document attached.
	HasReport bool
}

type memberCard struct {
	ID       string
	Name     string
	Blood    string
	Age      string
	BMI      string
	Category string
	Notes    string
}

type memberDetail struct {
	ID       string
	Name     string
	Age      string
	Blood    string
	Height   string
	Weight   string
	BMI      string
	Category string
	Notes    string

	// ReportURL is only set for a validated base64 data URI.
	ReportURL   template.URL
	ReportIsPDF bool
}

type confirmData struct {
	Message string
	Action  string
}

func blankForm(submission string) formData {
	return formData{
		Submission: submission,
		BMI:        domain.BMICategoryUnknown,
		Category:   domain.BMICategoryUnknown,
	}
}

func formFromMember(m domain.Member, submission string) formData {
	return formData{
		EditingID:  string(m.ID),
		Submission: submission,
		Name:       m.Name,
		Age:        m.Age,
		Blood:      m.Blood,
		Height:     m.Height,
		Weight:     m.Weight,
		Notes:      m.Notes,
		BMI:        domain.FormatBMI(m.BMI),
		Category:   domain.BMICategory(m.BMI),
		HasReport:  m.Report != nil,
	}
}

func formFromInput(in members.SaveInput, editingID domain.MemberID, submission string) formData {
	bmi := domain.ComputeBMI(in.Height, in.Weight)
	return formData{
		EditingID:  string(editingID),
		Submission: submission,
		Name:       in.Name,
		Age:        in.Age,
		Blood:      in.Blood,
		Height:     in.Height,
		Weight:     in.Weight,
		Notes:      in.Notes,
		BMI:        domain.FormatBMI(bmi),
		Category:   domain.BMICategory(bmi),
	}
}

func cardFromMember(m domain.Member) memberCard {
	return memberCard{
		ID:       string(m.ID),
		Name:     m.Name,
		Blood:    m.Blood,
		Age:      m.Age,
		BMI:      domain.FormatBMI(m.BMI),
		Category: domain.BMICategory(m.BMI),
		Notes:    excerpt(m.Notes, notesExcerptRunes),
	}
}

func detailFromMember(m domain.Member) *memberDetail {
	d := &memberDetail{
		ID:       string(m.ID),
		Name:     m.Name,
		Age:      m.Age,
		Blood:    m.Blood,
		Height:   m.Height,
		Weight:   m.Weight,
		BMI:      domain.FormatBMI(m.BMI),
		Category: domain.BMICategory(m.BMI),
		Notes:    m.Notes,
	}
	if m.Report != nil {
		if uri, err := domain.ParseDataURI(string(*m.Report)); err == nil {
			d.ReportURL = template.URL(uri)
			d.ReportIsPDF = uri.IsPDF()
		}
	}
	return d
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}

// listLocation is the list URL preserving the current search text.
func listLocation(q string) string {
	if q == "" {
		return "/"
	}
	return "/?q=" + url.QueryEscape(q)
}

func memberPath(id domain.MemberID) string {
	return "/members/" + url.PathEscape(string(id))
}
