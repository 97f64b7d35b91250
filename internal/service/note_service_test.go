package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"notevault-server/internal/apperror"
	"notevault-server/internal/domain"
	"notevault-server/pkg/hash"
)

type mockNoteRepo struct {
	notes         map[int64]*domain.Note
	versions      map[int64]*domain.NoteVersion
	nextNoteID    int64
	nextVersionID int64
}

func newMockNoteRepo() *mockNoteRepo {
	return &mockNoteRepo{
		notes:    make(map[int64]*domain.Note),
		versions: make(map[int64]*domain.NoteVersion),
	}
}

func (m *mockNoteRepo) Create(ctx context.Context, note *domain.Note) error {
	m.nextNoteID++
	note.ID = m.nextNoteID
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now

	stored := *note
	m.notes[note.ID] = &stored
	m.addVersion(note.ID, note.Title, note.Description)
	return nil
}

func (m *mockNoteRepo) FindByID(ctx context.Context, id int64) (*domain.Note, error) {
	n, ok := m.notes[id]
	if !ok {
		return nil, apperror.NotFound("note", id)
	}
	copied := *n
	return &copied, nil
}

func (m *mockNoteRepo) ListByUser(ctx context.Context, userID int64) ([]*domain.Note, error) {
	var notes []*domain.Note
	for _, n := range m.notes {
		if n.UserID == userID {
			copied := *n
			notes = append(notes, &copied)
		}
	}
	return notes, nil
}

func (m *mockNoteRepo) UpdateWithSnapshot(ctx context.Context, note *domain.Note, snapshot *domain.NoteVersion) error {
	if _, ok := m.notes[note.ID]; !ok {
		return apperror.NotFound("note", note.ID)
	}
	v := m.addVersion(note.ID, snapshot.Title, snapshot.Description)
	snapshot.ID = v.ID
	snapshot.NoteID = note.ID
	note.UpdatedAt = time.Now().UTC()
	stored := *note
	m.notes[note.ID] = &stored
	return nil
}

func (m *mockNoteRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.notes[id]; !ok {
		return apperror.NotFound("note", id)
	}
	delete(m.notes, id)
	for vid, v := range m.versions {
		if v.NoteID == id {
			delete(m.versions, vid)
		}
	}
	return nil
}

func (m *mockNoteRepo) ListVersions(ctx context.Context, noteID int64) ([]*domain.NoteVersion, error) {
	var versions []*domain.NoteVersion
	for _, v := range m.versions {
		if v.NoteID == noteID {
			copied := *v
			versions = append(versions, &copied)
		}
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].ID > versions[j].ID })
	return versions, nil
}

func (m *mockNoteRepo) FindVersion(ctx context.Context, noteID, versionID int64) (*domain.NoteVersion, error) {
	v, ok := m.versions[versionID]
	if !ok || v.NoteID != noteID {
		return nil, apperror.NotFound("note version", versionID)
	}
	copied := *v
	return &copied, nil
}

func (m *mockNoteRepo) addVersion(noteID int64, title, description string) *domain.NoteVersion {
	m.nextVersionID++
	v := &domain.NoteVersion{
		ID:          m.nextVersionID,
		NoteID:      noteID,
		Title:       title,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	m.versions[v.ID] = v
	return v
}

type mockNotifier struct {
	events []*domain.ChangeEvent
	err    error
}

func (m *mockNotifier) PublishChange(event *domain.ChangeEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestNoteService() (*NoteService, *mockNoteRepo, *mockNotifier) {
	repo := newMockNoteRepo()
	notifier := &mockNotifier{}
	return NewNoteService(repo, notifier, testLogger()), repo, notifier
}

func TestNoteService_Create(t *testing.T) {
	svc, repo, notifier := newTestNoteService()

	note, err := svc.Create(context.Background(), 1, &domain.CreateNoteRequest{
		Title:       "T1",
		Description: "D1",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if note.ID == 0 {
		t.Error("expected note id to be assigned")
	}
	if note.Description == nil || *note.Description != "D1" {
		t.Error("expected description in creator's response")
	}

	versions, err := repo.ListVersions(context.Background(), note.ID)
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("expected 1 seeded version, got %d", len(versions))
	}
	if versions[0].Title != "T1" || versions[0].Description != "D1" {
		t.Errorf("seeded version = %q/%q, want T1/D1", versions[0].Title, versions[0].Description)
	}

	if len(notifier.events) != 1 || notifier.events[0].Action != domain.ActionCreate {
		t.Errorf("expected one create event, got %+v", notifier.events)
	}
}

func TestNoteService_Create_Validation(t *testing.T) {
	svc, _, _ := newTestNoteService()

	longTitle := make([]byte, domain.MaxNoteTitleLength+1)
	for i := range longTitle {
		longTitle[i] = 'a'
	}

	tests := []struct {
		name string
		req  domain.CreateNoteRequest
	}{
		{
			name: "empty title",
			req:  domain.CreateNoteRequest{Title: "  ", Description: "D"},
		},
		{
			name: "title too long",
			req:  domain.CreateNoteRequest{Title: string(longTitle), Description: "D"},
		},
		{
			name: "empty description",
			req:  domain.CreateNoteRequest{Title: "T"},
		},
		{
			name: "protected without password",
			req:  domain.CreateNoteRequest{Title: "T", Description: "D", IsProtected: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), 1, &tt.req)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Create() error = %v, want validation error", err)
			}
		})
	}
}

func TestNoteService_Create_Protected(t *testing.T) {
	svc, repo, _ := newTestNoteService()

	resp, err := svc.Create(context.Background(), 1, &domain.CreateNoteRequest{
		Title:       "T",
		Description: "D",
		IsProtected: true,
		Password:    "secret1A!",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	stored := repo.notes[resp.ID]
	if !stored.IsProtected {
		t.Error("expected stored note to be protected")
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "secret1A!" {
		t.Error("expected stored password to be hashed")
	}
	if err := hash.Compare(stored.PasswordHash, "secret1A!"); err != nil {
		t.Error("stored hash does not verify against the raw password")
	}
}

func TestNoteService_Get_ProtectionGate(t *testing.T) {
	svc, _, _ := newTestNoteService()

	owner := int64(1)
	stranger := int64(2)

	open, _ := svc.Create(context.Background(), owner, &domain.CreateNoteRequest{
		Title: "open", Description: "plain",
	})
	locked, _ := svc.Create(context.Background(), owner, &domain.CreateNoteRequest{
		Title: "locked", Description: "hidden", IsProtected: true, Password: "secret1A!",
	})

	got, err := svc.Get(context.Background(), stranger, open.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Description == nil || *got.Description != "plain" {
		t.Error("unprotected note should be readable by anyone")
	}

	got, err = svc.Get(context.Background(), stranger, locked.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Description != nil {
		t.Error("protected description leaked to non-owner")
	}
	if !got.NeedsPassword {
		t.Error("expected needs_password flag for non-owner")
	}

	got, err = svc.Get(context.Background(), owner, locked.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Description == nil || *got.Description != "hidden" {
		t.Error("owner should read protected content without unlocking")
	}
	if got.NeedsPassword {
		t.Error("owner must not be asked for a password")
	}
}

func TestNoteService_Update_PatchSemantics(t *testing.T) {
	svc, _, _ := newTestNoteService()

	created, _ := svc.Create(context.Background(), 1, &domain.CreateNoteRequest{
		Title: "T1", Description: "D1",
	})

	newTitle := "T2"
	updated, err := svc.Update(context.Background(), 1, created.ID, &domain.UpdateNoteRequest{
		Title: &newTitle,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Title != "T2" {
		t.Errorf("title = %q, want T2", updated.Title)
	}
	if updated.Description == nil || *updated.Description != "D1" {
		t.Error("omitted description must be left unchanged")
	}

	entries, err := svc.ListVersions(context.Background(), 1, created.ID)
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}

	if !entries[0].Current || entries[0].Title != "T2" {
		t.Errorf("head entry = %+v, want synthetic current with title T2", entries[0])
	}
	if entries[0].ID != nil {
		t.Error("synthetic current entry must carry a nil id")
	}
	if entries[1].Title != "T1" {
		t.Errorf("latest snapshot title = %q, want pre-update T1", entries[1].Title)
	}
}

func TestNoteService_Update_ProtectionRules(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestNoteService()

	created, _ := svc.Create(ctx, 1, &domain.CreateNoteRequest{Title: "T", Description: "D"})

	protect := true
	if _, err := svc.Update(ctx, 1, created.ID, &domain.UpdateNoteRequest{IsProtected: &protect}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("protecting without a password: error = %v, want validation error", err)
	}

	password := "secret1A!"
	if _, err := svc.Update(ctx, 1, created.ID, &domain.UpdateNoteRequest{IsProtected: &protect, Password: &password}); err != nil {
		t.Fatalf("protecting with a password: error = %v", err)
	}

	firstHash := repo.notes[created.ID].PasswordHash
	if firstHash == "" {
		t.Fatal("expected password hash after protecting")
	}

	// Updating an already protected note without a password keeps the hash.
	title := "T2"
	if _, err := svc.Update(ctx, 1, created.ID, &domain.UpdateNoteRequest{Title: &title}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if repo.notes[created.ID].PasswordHash != firstHash {
		t.Error("existing hash must be retained when no new password is supplied")
	}

	// Dropping protection clears the hash.
	unprotect := false
	if _, err := svc.Update(ctx, 1, created.ID, &domain.UpdateNoteRequest{IsProtected: &unprotect}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	stored := repo.notes[created.ID]
	if stored.IsProtected || stored.PasswordHash != "" {
		t.Error("unprotecting must clear both flag and hash")
	}
}

func TestNoteService_Update_Authorization(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestNoteService()

	created, _ := svc.Create(ctx, 1, &domain.CreateNoteRequest{Title: "T", Description: "D"})

	title := "X"
	if _, err := svc.Update(ctx, 2, created.ID, &domain.UpdateNoteRequest{Title: &title}); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("non-owner update: error = %v, want forbidden", err)
	}

	// A missing note is reported as not found even for a would-be non-owner.
	if _, err := svc.Update(ctx, 2, 999, &domain.UpdateNoteRequest{Title: &title}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing note update: error = %v, want not found", err)
	}
}

func TestNoteService_ListVersions_History(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestNoteService()

	created, _ := svc.Create(ctx, 1, &domain.CreateNoteRequest{Title: "v0", Description: "D"})

	const updates = 3
	for i := 1; i <= updates; i++ {
		title := "v" + string(rune('0'+i))
		if _, err := svc.Update(ctx, 1, created.ID, &domain.UpdateNoteRequest{Title: &title}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}

	entries, err := svc.ListVersions(ctx, 1, created.ID)
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}

	// Seed snapshot + one snapshot per update, headed by the synthetic entry.
	if len(entries) != updates+2 {
		t.Fatalf("got %d entries, want %d", len(entries), updates+2)
	}
	if !entries[0].Current || entries[0].Title != "v3" {
		t.Errorf("head = %+v, want current v3", entries[0])
	}
	for i, want := range []string{"v2", "v1", "v0", "v0"} {
		if entries[i+1].Title != want {
			t.Errorf("entries[%d].Title = %q, want %q", i+1, entries[i+1].Title, want)
		}
		if entries[i+1].Current || entries[i+1].ID == nil {
			t.Errorf("entries[%d] should be a persisted snapshot", i+1)
		}
	}
}

func TestNoteService_ListVersions_ProtectedNonOwner(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestNoteService()

	created, _ := svc.Create(ctx, 1, &domain.CreateNoteRequest{
		Title: "T", Description: "D", IsProtected: true, Password: "secret1A!",
	})

	if _, err := svc.ListVersions(ctx, 2, created.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("non-owner version listing: error = %v, want forbidden", err)
	}

	if _, err := svc.ListVersions(ctx, 1, created.ID); err != nil {
		t.Errorf("owner version listing: error = %v", err)
	}
}

func TestNoteService_Revert_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier := newTestNoteService()

	created, _ := svc.Create(ctx, 1, &domain.CreateNoteRequest{Title: "T1", Description: "D1"})

	title, desc := "T2", "D2"
	if _, err := svc.Update(ctx, 1, created.ID, &domain.UpdateNoteRequest{Title: &title, Description: &desc}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	entries, _ := svc.ListVersions(ctx, 1, created.ID)
	var firstVersionID int64
	for _, e := range entries {
		if e.ID != nil && e.Title == "T1" {
			firstVersionID = *e.ID
			break
		}
	}
	if firstVersionID == 0 {
		t.Fatal("no persisted T1 version found")
	}

	reverted, err := svc.Revert(ctx, 1, created.ID, firstVersionID)
	if err != nil {
		t.Fatalf("Revert() error = %v", err)
	}
	if reverted.Title != "T1" || *reverted.Description != "D1" {
		t.Errorf("after first revert note = %q/%q, want T1/D1", reverted.Title, *reverted.Description)
	}

	last := notifier.events[len(notifier.events)-1]
	if last.Action != domain.ActionRevert || last.VersionID == nil || *last.VersionID != firstVersionID {
		t.Errorf("revert event = %+v, want version id %d", last, firstVersionID)
	}

	// The revert itself snapshotted T2/D2; reverting to that snapshot
	// restores the pre-revert state exactly.
	entries, _ = svc.ListVersions(ctx, 1, created.ID)
	var revertSnapshotID int64
	for _, e := range entries {
		if e.ID != nil && e.Title == "T2" {
			revertSnapshotID = *e.ID
			break
		}
	}
	if revertSnapshotID == 0 {
		t.Fatal("revert did not snapshot the pre-revert state")
	}

	restored, err := svc.Revert(ctx, 1, created.ID, revertSnapshotID)
	if err != nil {
		t.Fatalf("second Revert() error = %v", err)
	}
	if restored.Title != "T2" || *restored.Description != "D2" {
		t.Errorf("after second revert note = %q/%q, want T2/D2", restored.Title, *restored.Description)
	}
}

func TestNoteService_Revert_WrongNoteVersion(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestNoteService()

	first, _ := svc.Create(ctx, 1, &domain.CreateNoteRequest{Title: "A", Description: "D"})
	second, _ := svc.Create(ctx, 1, &domain.CreateNoteRequest{Title: "B", Description: "D"})

	entries, _ := svc.ListVersions(ctx, 1, second.ID)
	var foreignVersionID int64
	for _, e := range entries {
		if e.ID != nil {
			foreignVersionID = *e.ID
		}
	}

	if _, err := svc.Revert(ctx, 1, first.ID, foreignVersionID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("cross-note revert: error = %v, want not found", err)
	}
}

func TestNoteService_Revert_KeepsProtection(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestNoteService()

	created, _ := svc.Create(ctx, 1, &domain.CreateNoteRequest{
		Title: "T1", Description: "D1", IsProtected: true, Password: "secret1A!",
	})
	hashBefore := repo.notes[created.ID].PasswordHash

	title := "T2"
	svc.Update(ctx, 1, created.ID, &domain.UpdateNoteRequest{Title: &title})

	entries, _ := svc.ListVersions(ctx, 1, created.ID)
	var versionID int64
	for _, e := range entries {
		if e.ID != nil && e.Title == "T1" {
			versionID = *e.ID
			break
		}
	}

	if _, err := svc.Revert(ctx, 1, created.ID, versionID); err != nil {
		t.Fatalf("Revert() error = %v", err)
	}

	stored := repo.notes[created.ID]
	if !stored.IsProtected || stored.PasswordHash != hashBefore {
		t.Error("revert must not touch protection flag or password hash")
	}
}

func TestNoteService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, repo, notifier := newTestNoteService()

	created, _ := svc.Create(ctx, 1, &domain.CreateNoteRequest{Title: "T", Description: "D"})

	if err := svc.Delete(ctx, 2, created.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("non-owner delete: error = %v, want forbidden", err)
	}

	if err := svc.Delete(ctx, 1, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if versions, _ := repo.ListVersions(ctx, created.ID); len(versions) != 0 {
		t.Errorf("expected cascade delete of versions, %d left", len(versions))
	}

	last := notifier.events[len(notifier.events)-1]
	if last.Action != domain.ActionDelete {
		t.Errorf("last event action = %s, want delete", last.Action)
	}

	if err := svc.Delete(ctx, 1, created.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("double delete: error = %v, want not found", err)
	}
}

func TestNoteService_Unlock(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestNoteService()

	plain, _ := svc.Create(ctx, 1, &domain.CreateNoteRequest{Title: "T", Description: "D"})
	locked, _ := svc.Create(ctx, 1, &domain.CreateNoteRequest{
		Title: "T", Description: "hidden", IsProtected: true, Password: "secret1A!",
	})

	if _, err := svc.Unlock(ctx, plain.ID, "anything"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("unlock unprotected: error = %v, want validation error", err)
	}

	resp, err := svc.Unlock(ctx, locked.ID, "wrong")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("wrong password: error = %v, want unauthorized", err)
	}
	if resp != nil {
		t.Error("wrong password must not reveal any content")
	}

	resp, err = svc.Unlock(ctx, locked.ID, "secret1A!")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if resp.Description == nil || *resp.Description != "hidden" {
		t.Error("successful unlock must return the full description")
	}
}

func TestNoteService_PublishFailureIsSwallowed(t *testing.T) {
	repo := newMockNoteRepo()
	notifier := &mockNotifier{err: errors.New("broadcast channel down")}
	svc := NewNoteService(repo, notifier, testLogger())

	note, err := svc.Create(context.Background(), 1, &domain.CreateNoteRequest{Title: "T", Description: "D"})
	if err != nil {
		t.Fatalf("Create() must not fail on publish errors, got %v", err)
	}
	if note == nil || note.ID == 0 {
		t.Fatal("note was not created")
	}

	if err := svc.Delete(context.Background(), 1, note.ID); err != nil {
		t.Fatalf("Delete() must not fail on publish errors, got %v", err)
	}
}

func TestNoteService_ProtectionHashInvariant(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestNoteService()

	created, _ := svc.Create(ctx, 1, &domain.CreateNoteRequest{
		Title: "T", Description: "D", IsProtected: true, Password: "secret1A!",
	})

	checkInvariant := func(step string) {
		t.Helper()
		n := repo.notes[created.ID]
		if n.IsProtected != (n.PasswordHash != "") {
			t.Errorf("%s: is_protected=%v but hash set=%v", step, n.IsProtected, n.PasswordHash != "")
		}
	}

	checkInvariant("after create")

	title := "T2"
	svc.Update(ctx, 1, created.ID, &domain.UpdateNoteRequest{Title: &title})
	checkInvariant("after plain update")

	unprotect := false
	svc.Update(ctx, 1, created.ID, &domain.UpdateNoteRequest{IsProtected: &unprotect})
	checkInvariant("after unprotect")

	protect := true
	password := "other2B!"
	svc.Update(ctx, 1, created.ID, &domain.UpdateNoteRequest{IsProtected: &protect, Password: &password})
	checkInvariant("after re-protect")
}
