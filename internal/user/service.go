// Package user はユーザー参照のドメインロジックを提供する。
// ユーザーはサンプルデータ投入時に作成され、以降は変更されない。
package user

import (
	"context"
	"fmt"

	"github.com/hitoshi/timesheet/internal/model"
	"github.com/hitoshi/timesheet/internal/repository"
)

// Service はユーザー参照のサービス層。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// Get は指定IDのユーザーを返す。存在しない場合はUSER_NOT_FOUND。
func (s *Service) Get(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}
	return u, nil
}

// GetByUsername はユーザー名でユーザーを返す。存在しない場合はUSER_NOT_FOUND。
func (s *Service) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}
	return u, nil
}
