package auth

import "net/http"

// MockRoleHeader はMockProviderで利用者を切り替えるヘッダー。
const MockRoleHeader = "X-Mock-Role"

// MockProvider は開発用の固定利用者を返すProvider。
// IDはサンプルデータで投入されるユーザーに対応する。
//   - ヘッダーなし、または admin: ユーザー1（admin, user）
//   - user: ユーザー2（user）
//
// それ以外の値は未認証として扱う。
type MockProvider struct{}

var _ Provider = MockProvider{}

// Authenticate はX-Mock-Roleヘッダーに応じた利用者を返す。
func (MockProvider) Authenticate(r *http.Request) (*Principal, error) {
	switch r.Header.Get(MockRoleHeader) {
	case "", RoleAdmin:
		return &Principal{UserID: 1, Roles: []string{RoleAdmin, RoleUser}}, nil
	case RoleUser:
		return &Principal{UserID: 2, Roles: []string{RoleUser}}, nil
	default:
		return nil, ErrUnauthenticated
	}
}
