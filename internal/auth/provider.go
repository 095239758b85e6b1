// Package auth はリクエストの認証とロール判定を提供する。
//
// 本サービス自体はログイン機能を持たず、認証は差し替え可能なProviderに委ねる。
// 開発用のMockProviderと、前段の認証プロキシが付与するヘッダーを信頼する
// HeaderProviderを用意している。
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
)

// ロール名
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ErrUnauthenticated はリクエストから認証済みの利用者を特定できない場合に返される。
var ErrUnauthenticated = errors.New("unauthenticated")

// Principal は認証済みの利用者を表す。
type Principal struct {
	UserID int64
	Roles  []string
}

// HasRole は指定ロールを持つかを返す。
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Roles, role)
}

// Provider はリクエストから利用者を特定するインターフェース。
// 特定できない場合はErrUnauthenticatedを返す。
type Provider interface {
	Authenticate(r *http.Request) (*Principal, error)
}

// プロバイダー名
const (
	ProviderMock   = "mock"
	ProviderHeader = "header"
)

// NewProvider は名前に対応するProviderを返す。
func NewProvider(name string) (Provider, error) {
	switch name {
	case ProviderMock:
		return MockProvider{}, nil
	case ProviderHeader:
		return HeaderProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown auth provider: %q", name)
	}
}
