package task

import (
	"context"
	"errors"
	"testing"

	"github.com/example/task-manager/domain/label"
	"github.com/example/task-manager/domain/status"
	domain "github.com/example/task-manager/domain/task"
	"github.com/example/task-manager/domain/user"
	"github.com/example/task-manager/domain/validation"
	"github.com/example/task-manager/modules/database"
	"gorm.io/gorm"
)

// setupTestDB opens a migrated in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(":memory:", false)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// fixtures holds the records tasks refer to.
type fixtures struct {
	alice, bob        *user.User
	newStatus, doing  *status.Status
	bug, feature, ops *label.Label
}

func seed(t *testing.T, db *gorm.DB) fixtures {
	t.Helper()
	f := fixtures{
		alice:     &user.User{Username: "alice", FirstName: "Alice", LastName: "A", PasswordHash: "h"},
		bob:       &user.User{Username: "bob", FirstName: "Bob", LastName: "B", PasswordHash: "h"},
		newStatus: &status.Status{Name: "New"},
		doing:     &status.Status{Name: "In progress"},
		bug:       &label.Label{Name: "bug"},
		feature:   &label.Label{Name: "feature"},
		ops:       &label.Label{Name: "ops"},
	}
	for _, rec := range []any{f.alice, f.bob, f.newStatus, f.doing, f.bug, f.feature, f.ops} {
		if err := db.Create(rec).Error; err != nil {
			t.Fatalf("failed to seed %T: %v", rec, err)
		}
	}
	return f
}

func insert(t *testing.T, repo *Repository, name string, authorID, statusID uint, executorID *uint, labelIDs ...uint) *domain.Task {
	t.Helper()
	tk := &domain.Task{Name: name, Description: "d", AuthorID: authorID, StatusID: statusID, ExecutorID: executorID}
	if err := repo.Create(context.Background(), tk, labelIDs); err != nil {
		t.Fatalf("Create(%s) error = %v", name, err)
	}
	return tk
}

func names(tasks []domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, tk := range tasks {
		out = append(out, tk.Name)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRepository_CreateLoadsRelations(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	f := seed(t, db)

	tk := insert(t, repo, "Fix login", f.alice.ID, f.newStatus.ID, &f.bob.ID, f.feature.ID, f.bug.ID, f.bug.ID)

	got, err := repo.GetByID(context.Background(), tk.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Author == nil || got.Author.Username != "alice" {
		t.Errorf("Author = %+v, want alice", got.Author)
	}
	if got.Executor == nil || got.Executor.Username != "bob" {
		t.Errorf("Executor = %+v, want bob", got.Executor)
	}
	if got.Status == nil || got.Status.Name != "New" {
		t.Errorf("Status = %+v, want New", got.Status)
	}
	ids := got.LabelIDs()
	if len(ids) != 2 || ids[0] != f.bug.ID || ids[1] != f.feature.ID {
		t.Errorf("LabelIDs() = %v, want [%d %d]", ids, f.bug.ID, f.feature.ID)
	}
}

func TestRepository_CreateRollsBackOnBadReference(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	f := seed(t, db)
	ctx := context.Background()

	missing := uint(999)
	tests := []struct {
		name      string
		statusID  uint
		executor  *uint
		labels    []uint
		wantField string
	}{
		{name: "missing status", statusID: 999, wantField: "status"},
		{name: "missing executor", statusID: f.newStatus.ID, executor: &missing, wantField: "executor"},
		{name: "missing label", statusID: f.newStatus.ID, labels: []uint{f.bug.ID, 999}, wantField: "labels"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := &domain.Task{Name: "x", Description: "d", AuthorID: f.alice.ID, StatusID: tt.statusID, ExecutorID: tt.executor}
			err := repo.Create(ctx, tk, tt.labels)
			fe, ok := validation.AsErrors(err)
			if !ok {
				t.Fatalf("Create() error = %v, want validation errors", err)
			}
			if _, ok := fe[tt.wantField]; !ok {
				t.Errorf("Create() errors = %v, want field %q", fe, tt.wantField)
			}
		})
	}

	count, _ := repo.Count(ctx)
	if count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}
	var links int64
	db.Table(domain.LabelsJoinTable).Count(&links)
	if links != 0 {
		t.Errorf("label links = %d, want 0", links)
	}
}

func TestRepository_UpdateReplacesLabels(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	f := seed(t, db)
	ctx := context.Background()

	tk := insert(t, repo, "Deploy", f.alice.ID, f.newStatus.ID, nil, f.bug.ID, f.feature.ID)

	got, err := repo.Update(ctx, tk.ID, []uint{f.ops.ID}, func(row *domain.Task) {
		row.Name = "Deploy v2"
		row.StatusID = f.doing.ID
		row.ExecutorID = &f.bob.ID
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.AuthorID != f.alice.ID {
		t.Errorf("AuthorID = %d, want %d", got.AuthorID, f.alice.ID)
	}

	reloaded, _ := repo.GetByID(ctx, tk.ID)
	if reloaded.Name != "Deploy v2" || reloaded.StatusID != f.doing.ID {
		t.Errorf("reloaded = %+v", reloaded)
	}
	if ids := reloaded.LabelIDs(); len(ids) != 1 || ids[0] != f.ops.ID {
		t.Errorf("LabelIDs() = %v, want [%d]", ids, f.ops.ID)
	}

	// An empty label set detaches everything.
	if _, err := repo.Update(ctx, tk.ID, nil, func(*domain.Task) {}); err != nil {
		t.Fatalf("Update(no labels) error = %v", err)
	}
	reloaded, _ = repo.GetByID(ctx, tk.ID)
	if len(reloaded.Labels) != 0 {
		t.Errorf("Labels = %v, want none", reloaded.Labels)
	}

	if _, err := repo.Update(ctx, 999, nil, func(*domain.Task) {}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRepository_UpdateRollsBackOnBadLabel(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	f := seed(t, db)
	ctx := context.Background()

	tk := insert(t, repo, "Keep", f.alice.ID, f.newStatus.ID, nil, f.bug.ID)

	_, err := repo.Update(ctx, tk.ID, []uint{999}, func(row *domain.Task) { row.Name = "Changed" })
	if _, ok := validation.AsErrors(err); !ok {
		t.Fatalf("Update() error = %v, want validation errors", err)
	}

	got, _ := repo.GetByID(ctx, tk.ID)
	if got.Name != "Keep" {
		t.Errorf("Name = %s, want Keep", got.Name)
	}
	if ids := got.LabelIDs(); len(ids) != 1 || ids[0] != f.bug.ID {
		t.Errorf("LabelIDs() = %v, want [%d]", ids, f.bug.ID)
	}
}

func TestRepository_DeleteRespectsAllow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	f := seed(t, db)
	ctx := context.Background()

	tk := insert(t, repo, "Delete me", f.alice.ID, f.newStatus.ID, nil, f.bug.ID)
	denied := errors.New("denied")

	if _, err := repo.Delete(ctx, tk.ID, func(*domain.Task) error { return denied }); !errors.Is(err, denied) {
		t.Fatalf("Delete(denied) error = %v, want %v", err, denied)
	}
	if _, err := repo.GetByID(ctx, tk.ID); err != nil {
		t.Fatalf("task missing after denied delete: %v", err)
	}

	deleted, err := repo.Delete(ctx, tk.ID, func(*domain.Task) error { return nil })
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted.Name != "Delete me" {
		t.Errorf("Delete() returned %+v", deleted)
	}

	var links int64
	db.Table(domain.LabelsJoinTable).Count(&links)
	if links != 0 {
		t.Errorf("label links = %d, want 0", links)
	}

	if _, err := repo.Delete(ctx, tk.ID, func(*domain.Task) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(again) error = %v, want ErrNotFound", err)
	}
}

func TestRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	f := seed(t, db)
	ctx := context.Background()

	insert(t, repo, "a1", f.alice.ID, f.newStatus.ID, &f.bob.ID, f.bug.ID)
	insert(t, repo, "a2", f.alice.ID, f.doing.ID, nil, f.feature.ID)
	insert(t, repo, "b1", f.bob.ID, f.newStatus.ID, &f.alice.ID, f.bug.ID, f.feature.ID)
	insert(t, repo, "b2", f.bob.ID, f.doing.ID, &f.bob.ID)

	tests := []struct {
		name   string
		filter domain.Filter
		want   []string
	}{
		{name: "no filter", filter: domain.Filter{}, want: []string{"a1", "a2", "b1", "b2"}},
		{name: "by status", filter: domain.Filter{StatusID: f.newStatus.ID}, want: []string{"a1", "b1"}},
		{name: "by executor", filter: domain.Filter{ExecutorID: f.bob.ID}, want: []string{"a1", "b2"}},
		{name: "one label", filter: domain.Filter{LabelIDs: []uint{f.feature.ID}}, want: []string{"a2", "b1"}},
		{name: "any of labels", filter: domain.Filter{LabelIDs: []uint{f.bug.ID, f.feature.ID}}, want: []string{"a1", "a2", "b1"}},
		{name: "unused label", filter: domain.Filter{LabelIDs: []uint{f.ops.ID}}, want: []string{}},
		{name: "only mine", filter: domain.Filter{AuthorID: f.alice.ID}, want: []string{"a1", "a2"}},
		{name: "status and mine", filter: domain.Filter{StatusID: f.newStatus.ID, AuthorID: f.alice.ID}, want: []string{"a1"}},
		{name: "all constraints", filter: domain.Filter{StatusID: f.newStatus.ID, ExecutorID: f.alice.ID, LabelIDs: []uint{f.feature.ID}, AuthorID: f.bob.ID}, want: []string{"b1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if !equal(names(got), tt.want) {
				t.Errorf("List() = %v, want %v", names(got), tt.want)
			}
		})
	}
}
