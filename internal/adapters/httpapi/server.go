package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/nullable"

	"github.com/Overland-East-Bay/family-health/internal/adapters/snapshot"
	"github.com/Overland-East-Bay/family-health/internal/app/members"
	"github.com/Overland-East-Bay/family-health/internal/domain"
	"github.com/Overland-East-Bay/family-health/internal/platform/logger"
	clockport "github.com/Overland-East-Bay/family-health/internal/ports/out/clock"
	"github.com/Overland-East-Bay/family-health/internal/ports/out/idempotency"
)

// maxUploadMemory bounds how much of a multipart upload is held in memory; the
// remainder spills to temporary files.
const maxUploadMemory = 32 << 20

// memberAction handles one (action, id) pair posted from a member card or the
// detail overlay.
type memberAction func(w http.ResponseWriter, r *http.Request, id domain.MemberID)

// Server renders the records UI and maps form posts onto the members service.
type Server struct {
	Members     *members.Service
	Submissions idempotency.Store

	clk     clockport.Clock
	actions map[string]memberAction

	// pending holds submission tokens whose save is still running.
	pending sync.Map
}

func NewServer(membersSvc *members.Service, submissions idempotency.Store, clk clockport.Clock) *Server {
	s := &Server{
		Members:     membersSvc,
		Submissions: submissions,
		clk:         clk,
	}
	s.actions = map[string]memberAction{
		"edit":   s.startEdit,
		"delete": s.deleteMember,
	}
	return s
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	s.refresh(r)
	s.render(w, r, http.StatusOK, s.page(r.URL.Query().Get("q")))
}

// refresh reloads the collection before a read-only page; a failed reload
// renders the last known state.
func (s *Server) refresh(r *http.Request) {
	if err := s.Members.Refresh(r.Context()); err != nil {
		logger.Warn("reload members failed; rendering cached state", "err", err)
	}
}

// page assembles the list view with the form in its current create/edit state.
func (s *Server) page(q string) pageData {
	data := pageData{Query: q}

	submission := uuid.NewString()
	if m, ok := s.Members.Editing(); ok {
		data.Form = formFromMember(m, submission)
	} else {
		data.Form = blankForm(submission)
	}

	ms := s.Members.List(q)
	data.Members = make([]memberCard, 0, len(ms))
	for _, m := range ms {
		data.Members = append(data.Members, cardFromMember(m))
	}
	return data
}

func (s *Server) saveMember(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed form submission", nil)
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	q := r.FormValue("q")
	ctx := r.Context()

	token := idempotency.Key(strings.TrimSpace(r.FormValue("submission")))
	if token != "" && s.Submissions != nil {
		if s.replaySubmission(w, r, token) {
			return
		}
		// A duplicate arriving while the first save runs gets the redirect
		// the first one will produce.
		if _, busy := s.pending.LoadOrStore(token, struct{}{}); busy {
			http.Redirect(w, r, listLocation(q), http.StatusSeeOther)
			return
		}
		defer s.pending.Delete(token)
		if s.replaySubmission(w, r, token) {
			return
		}
	}

	in := members.SaveInput{
		Name:   r.FormValue("name"),
		Age:    r.FormValue("age"),
		Blood:  r.FormValue("blood"),
		Height: r.FormValue("height"),
		Weight: r.FormValue("weight"),
		Notes:  r.FormValue("notes"),
	}
	file, hdr, err := r.FormFile("report")
	switch {
	case err == nil:
		defer file.Close()
		in.Document = &members.Upload{
			Filename:  hdr.Filename,
			MediaType: hdr.Header.Get("Content-Type"),
			Content:   file,
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		logger.Warn("report upload unreadable; saving without it", "err", err)
	}

	editing, _ := s.Members.Editing()
	if _, _, err := s.Members.Save(ctx, in); err != nil {
		ae := (*members.Error)(nil)
		if errors.As(err, &ae) && ae.Status == http.StatusUnprocessableEntity {
			data := s.page(q)
			data.Alert = ae.Message
			data.Form = formFromInput(in, editing.ID, uuid.NewString())
			data.Form.HasReport = editing.Report != nil
			s.render(w, r, http.StatusUnprocessableEntity, data)
			return
		}
		s.writeAppError(w, r, err)
		return
	}

	loc := listLocation(q)
	if token != "" && s.Submissions != nil {
		if err := s.Submissions.Put(ctx, token, idempotency.Record{Location: loc, CreatedAt: s.clk.Now()}); err != nil {
			logger.Warn("failed to record form submission", "err", err)
		}
	}
	http.Redirect(w, r, loc, http.StatusSeeOther)
}

// replaySubmission redirects to the stored location of an already applied
// submission and reports whether it handled the request.
func (s *Server) replaySubmission(w http.ResponseWriter, r *http.Request, token idempotency.Key) bool {
	rec, ok, err := s.Submissions.Get(r.Context(), token)
	if err != nil {
		s.internalError(w, r, err)
		return true
	}
	if ok {
		http.Redirect(w, r, rec.Location, http.StatusSeeOther)
		return true
	}
	return false
}

func (s *Server) resetForm(w http.ResponseWriter, r *http.Request) {
	s.Members.Reset()
	http.Redirect(w, r, listLocation(r.FormValue("q")), http.StatusSeeOther)
}

func (s *Server) dispatchMemberAction(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	h, ok := s.actions[action]
	if !ok {
		writeError(w, r, http.StatusNotFound, "UNKNOWN_ACTION", "unknown member action", map[string]any{"action": action})
		return
	}
	h(w, r, domain.MemberID(chi.URLParam(r, "id")))
}

func (s *Server) startEdit(w http.ResponseWriter, r *http.Request, id domain.MemberID) {
	s.Members.StartEdit(id)
	http.Redirect(w, r, listLocation(r.FormValue("q"))+"#member-form", http.StatusSeeOther)
}

func (s *Server) viewMember(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	s.refresh(r)
	m, ok := s.Members.Get(domain.MemberID(chi.URLParam(r, "id")))
	if !ok {
		http.Redirect(w, r, listLocation(q), http.StatusSeeOther)
		return
	}
	data := s.page(q)
	data.Detail = detailFromMember(m)
	s.render(w, r, http.StatusOK, data)
}

func (s *Server) confirmDelete(w http.ResponseWriter, r *http.Request) {
	s.renderDeleteConfirmation(w, r, domain.MemberID(chi.URLParam(r, "id")), r.URL.Query().Get("q"))
}

func (s *Server) renderDeleteConfirmation(w http.ResponseWriter, r *http.Request, id domain.MemberID, q string) {
	m, ok := s.Members.Get(id)
	if !ok {
		http.Redirect(w, r, listLocation(q), http.StatusSeeOther)
		return
	}
	data := s.page(q)
	data.Confirm = &confirmData{
		Message: "Delete " + m.Name + " permanently?",
		Action:  memberPath(id) + "/delete",
	}
	s.render(w, r, http.StatusOK, data)
}

func (s *Server) deleteMember(w http.ResponseWriter, r *http.Request, id domain.MemberID) {
	q := r.FormValue("q")
	if r.FormValue("confirm") != "yes" {
		s.renderDeleteConfirmation(w, r, id, q)
		return
	}
	if _, err := s.Members.Delete(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	http.Redirect(w, r, listLocation(q), http.StatusSeeOther)
}

func (s *Server) confirmClearAll(w http.ResponseWriter, r *http.Request) {
	data := s.page(r.URL.Query().Get("q"))
	data.Confirm = &confirmData{
		Message: "Delete all members and their data? This cannot be undone.",
		Action:  "/clear",
	}
	s.render(w, r, http.StatusOK, data)
}

func (s *Server) clearAll(w http.ResponseWriter, r *http.Request) {
	if r.FormValue("confirm") != "yes" {
		s.confirmClearAll(w, r)
		return
	}
	if err := s.Members.ClearAll(r.Context()); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type bmiPreviewResponse struct {
	BMI      nullable.Nullable[float64] `json:"bmi"`
	Category string                     `json:"category"`
}

func (s *Server) previewBMI(w http.ResponseWriter, r *http.Request) {
	p := s.Members.PreviewBMI(r.URL.Query().Get("height"), r.URL.Query().Get("weight"))
	resp := bmiPreviewResponse{BMI: nullable.NewNullNullable[float64](), Category: p.Category}
	if p.BMI != nil {
		resp.BMI = nullable.NewNullableWithValue(*p.BMI)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) exportMembers(w http.ResponseWriter, r *http.Request) {
	raw, err := snapshot.Encode(s.Members.List(""))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	if ae := (*members.Error)(nil); errors.As(err, &ae) {
		writeError(w, r, ae.Status, ae.Code, ae.Message, ae.Details)
		return
	}
	s.internalError(w, r, err)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
