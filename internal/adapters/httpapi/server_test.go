package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	memclock "github.com/Overland-East-Bay/family-health/internal/adapters/memory/clock"
	memidempotency "github.com/Overland-East-Bay/family-health/internal/adapters/memory/idempotency"
	memkvstore "github.com/Overland-East-Bay/family-health/internal/adapters/memory/kvstore"
	"github.com/Overland-East-Bay/family-health/internal/adapters/snapshot"
	"github.com/Overland-East-Bay/family-health/internal/app/members"
	"github.com/Overland-East-Bay/family-health/internal/domain"
	"github.com/Overland-East-Bay/family-health/internal/ports/out/idempotency"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type testEnv struct {
	h     http.Handler
	srv   *Server
	svc   *members.Service
	store *memkvstore.Store
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	store := memkvstore.NewStore()
	clk := memclock.NewManualClock(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC))
	svc := members.NewService(snapshot.NewRepo(store), clk)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	srv := NewServer(svc, memidempotency.NewStore(), clk)
	return testEnv{h: NewRouter(srv), srv: srv, svc: svc, store: store}
}

func (e testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func (e testEnv) storedBlob(t *testing.T) string {
	t.Helper()
	raw, ok, err := e.store.Get(context.Background(), snapshot.StorageKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		return ""
	}
	return string(raw)
}

type upload struct {
	field    string
	filename string
	content  []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, file *upload) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if file != nil {
		fw, err := mw.CreateFormFile(file.field, file.filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write(file.content); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func formRequest(method, path string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func memberFields(name string) map[string]string {
	return map[string]string{
		"name":   name,
		"age":    "34",
		"blood":  "O+",
		"height": "170",
		"weight": "65",
		"notes":  "annual checkup",
	}
}

func (e testEnv) createMember(t *testing.T, name string, file *upload) domain.Member {
	t.Helper()
	rec := e.do(t, multipartRequest(t, "/members", memberFields(name), file))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("create status=%d body=%s", rec.Code, rec.Body.String())
	}
	for _, m := range e.svc.List(name) {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("member %q not found after create", name)
	return domain.Member{}
}

func TestIndex_EmptyShowsPlaceholder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "No members yet, add a new member.") {
		t.Fatalf("placeholder missing: %s", body)
	}
	if !strings.Contains(body, "Add member") {
		t.Fatalf("form should be in create mode")
	}
}

func TestIndex_FilterWithoutMatchShowsPlaceholder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.createMember(t, "Nadia", nil)

	body := env.do(t, httptest.NewRequest(http.MethodGet, "/?q=zzz", nil)).Body.String()
	if !strings.Contains(body, "No members yet, add a new member.") {
		t.Fatalf("placeholder missing for unmatched filter: %s", body)
	}
	if strings.Contains(body, `class="member-title">Nadia`) {
		t.Fatalf("unmatched member rendered")
	}

	body = env.do(t, httptest.NewRequest(http.MethodGet, "/?q=NAD", nil)).Body.String()
	if !strings.Contains(body, `class="member-title">Nadia`) {
		t.Fatalf("matching member missing: %s", body)
	}
}

func TestIndex_ShowsChangesWrittenToStore(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.createMember(t, "Omar", nil)

	// Another process sharing the store clears it.
	if err := snapshot.NewRepo(env.store).SaveAll(context.Background(), nil); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	body := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()
	if !strings.Contains(body, "No members yet, add a new member.") {
		t.Fatalf("stale list rendered: %s", body)
	}

	env.createMember(t, "Parveen", nil)
	stored, err := snapshot.Decode([]byte(env.storedBlob(t)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(stored) != 1 || stored[0].Name != "Parveen" {
		t.Fatalf("stored=%d members, want only Parveen", len(stored))
	}
}

func TestSaveMember_CreateWithReport(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	m := env.createMember(t, "Asha", &upload{field: "report", filename: "scan.png", content: pngHeader})

	if m.BMI == nil || *m.BMI != 22.5 {
		t.Fatalf("bmi=%v", m.BMI)
	}
	if m.Report == nil || m.Report.MediaType() != "image/png" {
		t.Fatalf("report=%v", m.Report)
	}
	if !strings.Contains(env.storedBlob(t), `"name":"Asha"`) {
		t.Fatalf("blob not written: %s", env.storedBlob(t))
	}

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "Asha") || !strings.Contains(body, "22.5") || !strings.Contains(body, "Normal") {
		t.Fatalf("card missing: %s", body)
	}
}

func TestSaveMember_RedirectKeepsSearch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	fields := memberFields("Ravi")
	fields["q"] = "ra"
	rec := env.do(t, multipartRequest(t, "/members", fields, nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status=%d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/?q=ra" {
		t.Fatalf("location=%q", got)
	}
}

func TestSaveMember_ValidationFailureRerendersForm(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	fields := memberFields("Meera")
	fields["height"] = "   "
	rec := env.do(t, multipartRequest(t, "/members", fields, nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Please enter name, age, height and weight.") {
		t.Fatalf("alert missing: %s", body)
	}
	if !strings.Contains(body, `value="Meera"`) {
		t.Fatalf("submitted values not kept: %s", body)
	}
	if got := len(env.svc.List("")); got != 0 {
		t.Fatalf("members=%d", got)
	}
	if blob := env.storedBlob(t); blob != "" {
		t.Fatalf("unexpected write: %s", blob)
	}
}

func TestSaveMember_ReplayedSubmissionAppliesOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	fields := memberFields("Kiran")
	fields["submission"] = "tok-1"

	first := env.do(t, multipartRequest(t, "/members", fields, nil))
	second := env.do(t, multipartRequest(t, "/members", fields, nil))

	if first.Code != http.StatusSeeOther || second.Code != http.StatusSeeOther {
		t.Fatalf("status first=%d second=%d", first.Code, second.Code)
	}
	if first.Header().Get("Location") != second.Header().Get("Location") {
		t.Fatalf("replay location=%q want %q", second.Header().Get("Location"), first.Header().Get("Location"))
	}
	if got := len(env.svc.List("")); got != 1 {
		t.Fatalf("members=%d, want 1", got)
	}
}

func TestSaveMember_DuplicateWhileSavingRedirects(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.srv.pending.Store(idempotency.Key("tok-busy"), struct{}{})

	fields := memberFields("Qasim")
	fields["submission"] = "tok-busy"
	fields["q"] = "qa"
	rec := env.do(t, multipartRequest(t, "/members", fields, nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != "/?q=qa" {
		t.Fatalf("location=%q", got)
	}
	if got := len(env.svc.List("")); got != 0 {
		t.Fatalf("duplicate applied, members=%d", got)
	}
}

func TestEditFlow_UpdatesInPlace(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	m := env.createMember(t, "Dev", &upload{field: "report", filename: "scan.png", content: pngHeader})

	rec := env.do(t, formRequest(http.MethodPost, "/members/"+string(m.ID)+"/edit", url.Values{}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("edit status=%d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/#member-form" {
		t.Fatalf("location=%q", got)
	}

	page := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()
	if !strings.Contains(page, "Edit member") || !strings.Contains(page, `value="Dev"`) {
		t.Fatalf("form not in edit mode: %s", page)
	}

	fields := memberFields("Dev Kumar")
	fields["weight"] = "80"
	if rec := env.do(t, multipartRequest(t, "/members", fields, nil)); rec.Code != http.StatusSeeOther {
		t.Fatalf("update status=%d body=%s", rec.Code, rec.Body.String())
	}

	all := env.svc.List("")
	if len(all) != 1 {
		t.Fatalf("members=%d", len(all))
	}
	got := all[0]
	if got.ID != m.ID || got.Name != "Dev Kumar" {
		t.Fatalf("got %+v", got)
	}
	if got.Report == nil || *got.Report != *m.Report {
		t.Fatalf("report not preserved")
	}
	if got.UpdatedAt == nil {
		t.Fatalf("updatedAt not set")
	}
	if _, editing := env.svc.Editing(); editing {
		t.Fatalf("edit flag not cleared")
	}
}

func TestResetForm_LeavesEditMode(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	m := env.createMember(t, "Isha", nil)
	env.svc.StartEdit(m.ID)

	rec := env.do(t, formRequest(http.MethodPost, "/form/reset", url.Values{"q": {"is"}}))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/?q=is" {
		t.Fatalf("status=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}
	if _, editing := env.svc.Editing(); editing {
		t.Fatalf("still editing")
	}
}

func TestViewMember(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	img := env.createMember(t, "Anil", &upload{field: "report", filename: "scan.png", content: pngHeader})
	pdf := env.createMember(t, "Bina", &upload{field: "report", filename: "lab.pdf", content: []byte("%PDF-1.4\n%âãÏÓ\n")})
	bare := env.createMember(t, "Chetan", nil)

	tests := []struct {
		name string
		id   domain.MemberID
		want string
	}{
		{name: "image inline", id: img.ID, want: `<img src="data:image/png;base64,`},
		{name: "pdf link", id: pdf.ID, want: "Open PDF"},
		{name: "no report", id: bare.ID, want: "No report"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, httptest.NewRequest(http.MethodGet, "/members/"+string(tt.id), nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status=%d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Fatalf("missing %q in %s", tt.want, rec.Body.String())
			}
		})
	}
}

func TestViewMember_UnknownRedirectsToList(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/members/nope", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("status=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestRender_EscapesUserText(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.createMember(t, `<script>alert("x")</script>`, nil)

	body := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()
	if strings.Contains(body, `<script>alert("x")</script>`) {
		t.Fatalf("name rendered unescaped")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Fatalf("escaped name missing: %s", body)
	}
}

func TestDeleteMember_RequiresConfirmation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	m := env.createMember(t, "Farah", nil)
	path := "/members/" + string(m.ID) + "/delete"

	rec := env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Delete Farah permanently?") {
		t.Fatalf("confirm page status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, formRequest(http.MethodPost, path, url.Values{}))
	if rec.Code != http.StatusOK {
		t.Fatalf("unconfirmed status=%d", rec.Code)
	}
	if got := len(env.svc.List("")); got != 1 {
		t.Fatalf("deleted without confirmation")
	}

	rec = env.do(t, formRequest(http.MethodPost, path, url.Values{"confirm": {"yes"}}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("confirmed status=%d", rec.Code)
	}
	if got := len(env.svc.List("")); got != 0 {
		t.Fatalf("members=%d", got)
	}
	if blob := env.storedBlob(t); blob != "[]" {
		t.Fatalf("blob=%s", blob)
	}
}

func TestMemberAction_Unknown404(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	m := env.createMember(t, "Gita", nil)
	rec := env.do(t, formRequest(http.MethodPost, "/members/"+string(m.ID)+"/archive", url.Values{}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if er.Error.Code != "UNKNOWN_ACTION" {
		t.Fatalf("code=%q", er.Error.Code)
	}
}

func TestClearAll(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.createMember(t, "Hari", nil)
	env.createMember(t, "Jaya", nil)

	rec := env.do(t, formRequest(http.MethodPost, "/clear", url.Values{}))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Delete all members") {
		t.Fatalf("unconfirmed status=%d", rec.Code)
	}
	if got := len(env.svc.List("")); got != 2 {
		t.Fatalf("cleared without confirmation")
	}

	rec = env.do(t, formRequest(http.MethodPost, "/clear", url.Values{"confirm": {"yes"}}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status=%d", rec.Code)
	}
	if got := len(env.svc.List("")); got != 0 {
		t.Fatalf("members=%d", got)
	}
	if blob := env.storedBlob(t); blob != "[]" {
		t.Fatalf("blob=%s", blob)
	}
}

func TestPreviewBMI(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	tests := []struct {
		query    string
		wantBMI  string
		category string
	}{
		{query: "height=170&weight=65", wantBMI: "22.5", category: domain.BMICategoryNormal},
		{query: "height=170cm&weight=95", wantBMI: "32.9", category: domain.BMICategoryObese},
		{query: "height=&weight=65", wantBMI: "null", category: domain.BMICategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := env.do(t, httptest.NewRequest(http.MethodGet, "/bmi?"+tt.query, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status=%d", rec.Code)
			}
			var got map[string]json.RawMessage
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if string(got["bmi"]) != tt.wantBMI {
				t.Fatalf("bmi=%s want %s", got["bmi"], tt.wantBMI)
			}
			var cat string
			_ = json.Unmarshal(got["category"], &cat)
			if cat != tt.category {
				t.Fatalf("category=%q want %q", cat, tt.category)
			}
		})
	}
}

func TestExportMembers_MatchesStoredBlob(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.createMember(t, "Lata", &upload{field: "report", filename: "scan.png", content: pngHeader})

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/members", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if got, want := rec.Body.String(), env.storedBlob(t); got != want {
		t.Fatalf("export=%s\nstored=%s", got, want)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
}
