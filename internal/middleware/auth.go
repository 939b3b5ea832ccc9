package middleware

import (
	"net/http"
	"strings"

	"drowsyguard/internal/auth"
)

// AuthCookie is the name of the cookie set by the login handler.
const AuthCookie = "authenticated"

// AuthMiddleware attaches an authenticated principal to the request context when
// the auth cookie is present. With required set, requests without it are refused.
func AuthMiddleware(next http.Handler, required bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		// Strona logowania i zasoby statyczne są dostępne bez uwierzytelnienia
		if r.URL.Path == "/login" ||
			strings.HasPrefix(r.URL.Path, "/auth/") ||
			strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(AuthCookie)
		if err == nil && cookie.Value == "true" {
			ctx := auth.WithPrincipal(r.Context(), auth.Principal{Name: "user"})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if !required {
			next.ServeHTTP(w, r)
			return
		}

		// Zapytania API dostają 401, zwykłe żądania przekierowanie na login
		if strings.HasPrefix(r.URL.Path, "/api/") ||
			r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
			r.Header.Get("Content-Type") == "application/json" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}
