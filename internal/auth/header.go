package auth

import (
	"net/http"
	"strconv"
	"strings"
)

// 認証プロキシが付与するヘッダー
const (
	UserIDHeader = "X-Auth-User-Id"
	RolesHeader  = "X-Auth-Roles"
)

// HeaderProvider は前段の認証プロキシが付与したヘッダーを信頼するProvider。
// プロキシを経由しない経路を公開してはならない。
type HeaderProvider struct{}

var _ Provider = HeaderProvider{}

// Authenticate はX-Auth-User-IdとX-Auth-Roles（カンマ区切り）から利用者を組み立てる。
func (HeaderProvider) Authenticate(r *http.Request) (*Principal, error) {
	raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if raw == "" {
		return nil, ErrUnauthenticated
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return nil, ErrUnauthenticated
	}

	var roles []string
	for _, role := range strings.Split(r.Header.Get(RolesHeader), ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}

	return &Principal{UserID: userID, Roles: roles}, nil
}
