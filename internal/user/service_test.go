package user

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/timesheet/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id int64) (*model.User, error)
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return m.findByUsernameFn(ctx, username)
}
func (m *mockUserRepo) Create(ctx context.Context, in model.UserInput) (*model.User, error) {
	return nil, nil
}

func TestGet_ReturnsUser(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Username: "demo", Name: "Alex Johnson"}, nil
		},
	}
	svc := NewService(repo)

	u, err := svc.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if u.ID != 1 || u.Username != "demo" {
		t.Errorf("user = %+v", u)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return nil, nil
		},
	}
	svc := NewService(repo)

	_, err := svc.Get(context.Background(), 1)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %s, want %s", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

func TestGet_RepositoryError(t *testing.T) {
	sentinel := errors.New("db error")
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return nil, sentinel
		},
	}
	svc := NewService(repo)

	_, err := svc.Get(context.Background(), 1)
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want wrapped %v", err, sentinel)
	}
}

func TestGetByUsername(t *testing.T) {
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			if username == "demo" {
				return &model.User{ID: 1, Username: "demo"}, nil
			}
			return nil, nil
		},
	}
	svc := NewService(repo)

	u, err := svc.GetByUsername(context.Background(), "demo")
	if err != nil || u.ID != 1 {
		t.Errorf("GetByUsername(demo) = %+v, %v", u, err)
	}

	_, err = svc.GetByUsername(context.Background(), "nobody")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("GetByUsername(nobody) err = %v, want USER_NOT_FOUND", err)
	}
}
