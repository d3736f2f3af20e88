package contracttest

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/family-health/internal/domain"
	idempotencyport "github.com/Overland-East-Bay/family-health/internal/ports/out/idempotency"
	kvstoreport "github.com/Overland-East-Bay/family-health/internal/ports/out/kvstore"
	memberrepoport "github.com/Overland-East-Bay/family-health/internal/ports/out/memberrepo"
)

type CleanupFunc = func()

type KVStoreFactory func(t *testing.T) (kvstoreport.Store, CleanupFunc)
type MemberRepoFactory func(t *testing.T) (memberrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	key := idempotencyport.Key(uuid.NewString())
	rec := idempotencyport.Record{Location: "/", CreatedAt: time.Unix(123, 0).UTC()}
	if err := store.Put(ctx, key, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || got.Location != "/" {
		t.Fatalf("unexpected record ok=%v rec=%+v", ok, got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Location = "/?q=bob"
	if err := store.Put(ctx, key, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, key)
	if err != nil || !ok || got.Location != "/?q=bob" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v rec=%+v", ok, err, got)
	}

	if _, ok, err := store.Get(ctx, idempotencyport.Key(uuid.NewString())); err != nil || ok {
		t.Fatalf("Get(unknown) ok=%v err=%v, want ok=false", ok, err)
	}
}

func RunKVStore(t *testing.T, newStore KVStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	// Keys are namespaced per run so shared databases do not collide.
	key := "contract-" + uuid.NewString()

	if _, ok, err := store.Get(ctx, key); err != nil || ok {
		t.Fatalf("Get(missing) ok=%v err=%v, want ok=false err=nil", ok, err)
	}

	if err := store.Put(ctx, key, []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, []byte(`[{"id":"a"}]`)) {
		t.Fatalf("Get=%q", got)
	}

	// Whole-value overwrite, including shrinking.
	if err := store.Put(ctx, key, []byte(`[]`)); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, key)
	if err != nil || !ok || string(got) != "[]" {
		t.Fatalf("Get after overwrite=%q ok=%v err=%v", got, ok, err)
	}

	// Keys are independent.
	other := key + "-other"
	if err := store.Put(ctx, other, []byte("x")); err != nil {
		t.Fatalf("Put other: %v", err)
	}
	got, _, _ = store.Get(ctx, key)
	if string(got) != "[]" {
		t.Fatalf("Put(other) clobbered key: %q", got)
	}

	// UTF-8 text survives unchanged.
	text := []byte(`[{"name":"রহিম","notes":"ঔষধ ✓"}]`)
	if err := store.Put(ctx, key, text); err != nil {
		t.Fatalf("Put utf8: %v", err)
	}
	got, _, _ = store.Get(ctx, key)
	if !bytes.Equal(got, text) {
		t.Fatalf("utf8 round trip=%q", got)
	}
}

func RunMemberRepo(t *testing.T, newRepo MemberRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load(empty): %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Load(empty) len=%d, want 0", len(got))
	}

	created := time.Date(2024, 3, 1, 9, 30, 0, 123_000_000, time.UTC)
	updated := created.Add(time.Hour)
	bmi := 24.2
	report := domain.EncodeDataURI("application/pdf", []byte("%PDF-1.4"))
	in := []domain.Member{
		{
			ID:        domain.MemberID(uuid.NewString()),
			Name:      "Zara",
			Age:       "34",
			Blood:     "O+",
			Height:    "170",
			Weight:    "70",
			Notes:     "allergic to penicillin",
			BMI:       &bmi,
			Report:    &report,
			CreatedAt: created,
			UpdatedAt: &updated,
		},
		{
			ID:        domain.MemberID(uuid.NewString()),
			Name:      "adam",
			Age:       "7",
			Height:    "120",
			Weight:    "x",
			CreatedAt: created,
		},
	}
	if err := repo.SaveAll(ctx, in); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	got, err = repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Load len=%d, want 2", len(got))
	}
	// Insertion order, not name order.
	if got[0].ID != in[0].ID || got[1].ID != in[1].ID {
		t.Fatalf("Load order=[%s %s], want [%s %s]", got[0].ID, got[1].ID, in[0].ID, in[1].ID)
	}
	a := got[0]
	if a.Name != "Zara" || a.Blood != "O+" || a.Notes != "allergic to penicillin" {
		t.Fatalf("Load()[0]=%+v", a)
	}
	if a.BMI == nil || *a.BMI != 24.2 {
		t.Fatalf("Load()[0].BMI=%v, want 24.2", a.BMI)
	}
	if a.Report == nil || *a.Report != report {
		t.Fatalf("Load()[0].Report=%v", a.Report)
	}
	if !a.CreatedAt.Equal(created) || a.UpdatedAt == nil || !a.UpdatedAt.Equal(updated) {
		t.Fatalf("Load()[0] timestamps created=%v updated=%v", a.CreatedAt, a.UpdatedAt)
	}
	b := got[1]
	if b.BMI != nil || b.Report != nil || b.UpdatedAt != nil {
		t.Fatalf("Load()[1] optional fields=%v %v %v, want nil", b.BMI, b.Report, b.UpdatedAt)
	}

	// Full snapshot replacement.
	if err := repo.SaveAll(ctx, nil); err != nil {
		t.Fatalf("SaveAll(empty): %v", err)
	}
	got, err = repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load after clear: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Load after clear len=%d, want 0", len(got))
	}
}
