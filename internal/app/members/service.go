package members

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/family-health/internal/domain"
	"github.com/Overland-East-Bay/family-health/internal/platform/logger"
	clockport "github.com/Overland-East-Bay/family-health/internal/ports/out/clock"
	"github.com/Overland-East-Bay/family-health/internal/ports/out/memberrepo"
)

// Service owns the member collection and the form's edit state. The collection
// is mirrored to the repository as a full snapshot after every mutation.
//
// Every mutation first reloads the stored snapshot, so writes made by other
// processes sharing the store (familyctl) are built upon, not overwritten.
//
// It is safe for concurrent use; callers observe the operations as if they ran
// one at a time.
type Service struct {
	repo memberrepo.Repository
	clk  clockport.Clock

	newMemberID  func() domain.MemberID
	readDocument func(context.Context, Upload) <-chan DocumentResult

	saving atomic.Bool

	mu        sync.Mutex
	members   []domain.Member
	editingID domain.MemberID // empty in create mode
}

func NewService(repo memberrepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		repo: repo,
		clk:  clk,
		newMemberID: func() domain.MemberID {
			return domain.MemberID(uuid.NewString())
		},
		readDocument: ReadDocument,
		members:      []domain.Member{},
	}
}

// Load replaces the in-memory collection with the stored snapshot.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reloadLocked(ctx); err != nil {
		return err
	}
	s.editingID = ""
	return nil
}

// Refresh picks up the stored snapshot without leaving edit mode. Handlers call
// it before rendering so changes made through the store by another process show up.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked(ctx)
}

// List returns members whose name contains filter, case-insensitively, in
// insertion order. An empty filter returns everyone.
func (s *Service) List(filter string) []domain.Member {
	needle := strings.ToLower(filter)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Member, 0, len(s.members))
	for _, m := range s.members {
		if strings.Contains(strings.ToLower(m.Name), needle) {
			out = append(out, m.Clone())
		}
	}
	return out
}

func (s *Service) Get(id domain.MemberID) (domain.Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx == -1 {
		return domain.Member{}, false
	}
	return s.members[idx].Clone(), true
}

// PreviewBMI computes the BMI shown while the form is being filled in.
func (s *Service) PreviewBMI(height, weight string) BMIPreview {
	bmi := domain.ComputeBMI(height, weight)
	return BMIPreview{BMI: bmi, Category: domain.BMICategory(bmi)}
}

// StartEdit switches the form to editing id. Unknown ids leave the state untouched.
func (s *Service) StartEdit(id domain.MemberID) (domain.Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx == -1 {
		return domain.Member{}, false
	}
	s.editingID = id
	return s.members[idx].Clone(), true
}

// Editing returns the member currently loaded into the form, if any.
func (s *Service) Editing() (domain.Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editingID == "" {
		return domain.Member{}, false
	}
	idx := s.indexOf(s.editingID)
	if idx == -1 {
		return domain.Member{}, false
	}
	return s.members[idx].Clone(), true
}

// Reset returns the form to create mode.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingID = ""
}

// Save creates a member, or updates the one being edited, from the form fields.
//
// applied is false when the member being edited no longer exists; the edit
// state is then cleared and nothing is written. A document that cannot be read
// is logged and the save continues without it.
func (s *Service) Save(ctx context.Context, in SaveInput) (m domain.Member, applied bool, err error) {
	if !s.saving.CompareAndSwap(false, true) {
		return domain.Member{}, false, ErrSaveInProgress
	}
	defer s.saving.Store(false)

	in = in.trimmed()
	if err := validateSaveInput(in); err != nil {
		return domain.Member{}, false, err
	}
	bmi := domain.ComputeBMI(in.Height, in.Weight)

	var report *domain.DataURI
	if in.Document != nil {
		select {
		case res := <-s.readDocument(ctx, *in.Document):
			if res.Err != nil {
				logger.Warn("document read failed; saving without it", "file", in.Document.Filename, "err", res.Err)
			} else {
				d := res.DataURI
				report = &d
			}
		case <-ctx.Done():
			return domain.Member{}, false, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadLocked(ctx); err != nil {
		return domain.Member{}, false, err
	}
	now := s.clk.Now()
	next := cloneMembers(s.members)

	if s.editingID != "" {
		idx := indexOf(next, s.editingID)
		if idx == -1 {
			s.editingID = ""
			return domain.Member{}, false, nil
		}
		prev := next[idx]
		m = domain.Member{
			ID:        prev.ID,
			Name:      in.Name,
			Age:       in.Age,
			Blood:     in.Blood,
			Height:    in.Height,
			Weight:    in.Weight,
			Notes:     in.Notes,
			BMI:       bmi,
			Report:    prev.Report,
			CreatedAt: prev.CreatedAt,
			UpdatedAt: &now,
		}
		if report != nil {
			m.Report = report
		}
		next[idx] = m
	} else {
		m = domain.Member{
			ID:        s.newMemberID(),
			Name:      in.Name,
			Age:       in.Age,
			Blood:     in.Blood,
			Height:    in.Height,
			Weight:    in.Weight,
			Notes:     in.Notes,
			BMI:       bmi,
			Report:    report,
			CreatedAt: now,
		}
		next = append(next, m)
	}

	if err := s.repo.SaveAll(ctx, next); err != nil {
		return domain.Member{}, false, err
	}
	s.members = next
	s.editingID = ""
	return m.Clone(), true, nil
}

// Delete removes id. It reports false, without writing, when id is unknown.
func (s *Service) Delete(ctx context.Context, id domain.MemberID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadLocked(ctx); err != nil {
		return false, err
	}
	idx := s.indexOf(id)
	if idx == -1 {
		return false, nil
	}
	next := make([]domain.Member, 0, len(s.members)-1)
	next = append(next, s.members[:idx]...)
	next = append(next, s.members[idx+1:]...)

	if err := s.repo.SaveAll(ctx, next); err != nil {
		return false, err
	}
	s.members = next
	if s.editingID == id {
		s.editingID = ""
	}
	return true, nil
}

// ClearAll empties the collection and persists the empty snapshot.
func (s *Service) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := []domain.Member{}
	if err := s.repo.SaveAll(ctx, next); err != nil {
		return err
	}
	s.members = next
	s.editingID = ""
	return nil
}

// reloadLocked replaces the in-memory collection with the stored snapshot.
// The edit flag is kept; callers handle an edited member that has gone.
func (s *Service) reloadLocked(ctx context.Context) error {
	ms, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	s.members = cloneMembers(ms)
	return nil
}

func validateSaveInput(in SaveInput) error {
	details := map[string]any{}
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", in.Name},
		{"age", in.Age},
		{"height", in.Height},
		{"weight", in.Weight},
	} {
		if f.value == "" {
			details[f.name] = "required"
		}
	}
	if len(details) == 0 {
		return nil
	}
	return &Error{
		Status:  422,
		Code:    "VALIDATION_ERROR",
		Message: "Please enter name, age, height and weight.",
		Details: details,
	}
}

func (s *Service) indexOf(id domain.MemberID) int {
	return indexOf(s.members, id)
}

func indexOf(ms []domain.Member, id domain.MemberID) int {
	for i := range ms {
		if ms[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneMembers(ms []domain.Member) []domain.Member {
	out := make([]domain.Member, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Clone())
	}
	return out
}
