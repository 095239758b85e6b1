package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/timesheet/internal/model"
	"github.com/hitoshi/timesheet/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Get はユーザーを取得する。存在しない場合はUSER_NOT_FOUND。
	Get(ctx context.Context, id int64) (*model.User, error)
}

var _ UserServiceInterface = (*user.Service)(nil)

// UserHandler はユーザー情報のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// GetCurrentUser は現在のユーザーを返す。パスワードは含まない。
// GET /api/users/current
func (h *UserHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Get(r.Context(), defaultUserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
