package middleware

import (
	"net/http"
	"strings"

	"autotrader/pkg/crypto"
	"autotrader/pkg/utils"
)

// BearerAuth - middleware для единственного пути записи в API.
//
// Ожидает заголовок "Authorization: Bearer <токен>" и сверяет токен
// с bcrypt хешем из конфигурации (API_TOKEN_HASH). Сам токен нигде
// не хранится и не логируется. Если хеш не настроен, путь записи
// полностью закрыт (503), а не открыт без защиты.
func BearerAuth(tokenHash string, log *utils.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				log.Warn("запрос на путь записи при незаданном API_TOKEN_HASH",
					utils.String("path", r.URL.Path),
					utils.String("remote_addr", r.RemoteAddr),
				)
				http.Error(w, "write path disabled: API token is not configured", http.StatusServiceUnavailable)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if err := crypto.VerifyToken(token, tokenHash); err != nil {
				log.Warn("отклонён запрос с неверным токеном",
					utils.String("path", r.URL.Path),
					utils.String("remote_addr", r.RemoteAddr),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
