package task

import (
	"context"
	"strings"
	"testing"

	"github.com/example/task-manager/domain/policy"
	domain "github.com/example/task-manager/domain/task"
	"github.com/example/task-manager/domain/validation"
	"github.com/example/task-manager/internal/logtest"
	"github.com/example/task-manager/modules/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubUsers is a user.UserPort backed by a fixed set of ids.
type stubUsers struct {
	known map[uint]bool
	calls int
}

func (s *stubUsers) GetUser(_ context.Context, id uint) (*user.UserInfo, bool, error) {
	s.calls++
	if !s.known[id] {
		return nil, false, nil
	}
	return &user.UserInfo{ID: id}, true, nil
}

func setupTestService(t *testing.T) (*Service, fixtures, *stubUsers, *logtest.Logger) {
	t.Helper()
	db := setupTestDB(t)
	f := seed(t, db)
	users := &stubUsers{known: map[uint]bool{f.alice.ID: true, f.bob.ID: true}}
	log := logtest.New()
	return NewService(NewRepository(db), users, nil, log), f, users, log
}

func actor(id uint) policy.Actor {
	return policy.Actor{ID: id}
}

func TestService_CreateForcesAuthor(t *testing.T) {
	svc, f, _, log := setupTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, actor(f.bob.ID), &domain.Input{
		Name:        "Write docs",
		Description: "README",
		StatusID:    f.newStatus.ID,
		LabelIDs:    []uint{f.feature.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, f.bob.ID, created.AuthorID)
	assert.Nil(t, created.ExecutorID)
	assert.True(t, log.Has("info", "Task created"))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Author.Username)
	assert.Equal(t, []uint{f.feature.ID}, got.LabelIDs())
}

func TestService_CreateRequiresSignIn(t *testing.T) {
	svc, f, _, _ := setupTestService(t)

	_, err := svc.Create(context.Background(), policy.Anonymous, &domain.Input{
		Name: "x", Description: "d", StatusID: f.newStatus.ID,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	tasks, err := svc.List(context.Background(), domain.Filter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestService_CreateValidation(t *testing.T) {
	svc, f, users, _ := setupTestService(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		in         domain.Input
		wantFields []string
	}{
		{
			name:       "empty form",
			in:         domain.Input{},
			wantFields: []string{"name", "description", "status"},
		},
		{
			name:       "name too long",
			in:         domain.Input{Name: strings.Repeat("n", 51), Description: "d", StatusID: f.newStatus.ID},
			wantFields: []string{"name"},
		},
		{
			name:       "unknown executor",
			in:         domain.Input{Name: "x", Description: "d", StatusID: f.newStatus.ID, ExecutorID: 999},
			wantFields: []string{"executor"},
		},
		{
			name:       "unknown status",
			in:         domain.Input{Name: "x", Description: "d", StatusID: 999},
			wantFields: []string{"status"},
		},
		{
			name:       "unknown label",
			in:         domain.Input{Name: "x", Description: "d", StatusID: f.newStatus.ID, LabelIDs: []uint{999}},
			wantFields: []string{"labels"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			_, err := svc.Create(ctx, actor(f.alice.ID), &in)
			fe, ok := validation.AsErrors(err)
			require.True(t, ok, "want validation errors, got %v", err)
			for _, field := range tt.wantFields {
				assert.Contains(t, fe, field)
			}
		})
	}

	assert.Positive(t, users.calls)
	tasks, _ := svc.List(ctx, domain.Filter{})
	assert.Empty(t, tasks)
}

func TestService_UpdateByAnyUser(t *testing.T) {
	svc, f, _, _ := setupTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, actor(f.alice.ID), &domain.Input{
		Name: "Draft", Description: "d", StatusID: f.newStatus.ID, LabelIDs: []uint{f.bug.ID},
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, actor(f.bob.ID), created.ID, &domain.Input{
		Name: "Final", Description: "done", StatusID: f.doing.ID, ExecutorID: f.bob.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, updated.AuthorID)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Name)
	assert.Equal(t, f.doing.ID, got.StatusID)
	require.NotNil(t, got.ExecutorID)
	assert.Equal(t, f.bob.ID, *got.ExecutorID)
	assert.Empty(t, got.Labels)

	_, err = svc.Update(ctx, policy.Anonymous, created.ID, &domain.Input{Name: "x", Description: "d", StatusID: f.newStatus.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update(ctx, actor(f.bob.ID), 999, &domain.Input{Name: "x", Description: "d", StatusID: f.newStatus.ID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_DeleteOnlyByAuthor(t *testing.T) {
	svc, f, _, log := setupTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, actor(f.alice.ID), &domain.Input{Name: "Mine", Description: "d", StatusID: f.newStatus.ID})
	require.NoError(t, err)

	err = svc.Delete(ctx, actor(f.bob.ID), created.ID)
	assert.ErrorIs(t, err, ErrNotAuthor)
	_, err = svc.Get(ctx, created.ID)
	require.NoError(t, err, "task must survive a denied delete")

	superuser := policy.Actor{ID: f.bob.ID, IsSuperuser: true}
	assert.ErrorIs(t, svc.Delete(ctx, superuser, created.ID), ErrNotAuthor)

	require.NoError(t, svc.Delete(ctx, actor(f.alice.ID), created.ID))
	assert.True(t, log.Has("info", "Task deleted"))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, actor(f.alice.ID), created.ID), ErrNotFound)
}

func TestService_ListOnlyMineWithStatus(t *testing.T) {
	svc, f, _, _ := setupTestService(t)
	ctx := context.Background()

	mk := func(author uint, name string, statusID uint) {
		_, err := svc.Create(ctx, actor(author), &domain.Input{Name: name, Description: "d", StatusID: statusID})
		require.NoError(t, err)
	}
	mk(f.alice.ID, "alice-new", f.newStatus.ID)
	mk(f.alice.ID, "alice-doing", f.doing.ID)
	mk(f.bob.ID, "bob-new", f.newStatus.ID)

	tasks, err := svc.List(ctx, domain.Filter{StatusID: f.newStatus.ID, AuthorID: f.alice.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice-new"}, names(tasks))
}
