package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/timesheet/internal/auth"
	"github.com/hitoshi/timesheet/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストに認証済み利用者を格納するためのキー。
var principalContextKey = contextKey("principal")

// principalHolderKey は外側のミドルウェアが認証結果を受け取るためのホルダーのキー。
var principalHolderKey = contextKey("principal_holder")

// principalHolder は認証ミドルウェアが認証結果を書き戻す先。
// ロギングのように認証より外側で動くミドルウェアが使う。
type principalHolder struct {
	principal *auth.Principal
}

// NewAuthMiddleware はProviderでリクエストを認証し、
// 認証済みの利用者をリクエストコンテキストに注入するミドルウェアを返す。
// 未認証リクエストには401 Unauthorizedを返す。
func NewAuthMiddleware(provider auth.Provider) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := provider.Authenticate(r)
			if err != nil || principal == nil {
				if err != nil && !errors.Is(err, auth.ErrUnauthenticated) {
					slog.Error("failed to authenticate request",
						slog.String("error", err.Error()),
					)
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			if h, ok := r.Context().Value(principalHolderKey).(*principalHolder); ok {
				h.principal = principal
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole は指定ロールを持たない利用者に403 Forbiddenを返すミドルウェアを返す。
// NewAuthMiddlewareの後に配置する。
func RequireRole(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			if !principal.HasRole(role) {
				slog.Warn("role check failed",
					slog.Int64("user_id", principal.UserID),
					slog.String("required_role", role),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError(role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext はリクエストコンテキストから認証済み利用者を取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*auth.Principal)
	return p, ok && p != nil
}

// ContextWithPrincipal はコンテキストに認証済み利用者を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// UserIDFromContext はリクエストコンテキストから認証済みユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (int64, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return 0, false
	}
	return p.UserID, true
}
