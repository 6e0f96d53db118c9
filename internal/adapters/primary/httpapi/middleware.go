package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/jupiterclapton/postboard/internal/core/ports"
)

// Clé privée pour le contexte (évite les collisions)
type contextKey struct{ name string }

var callerCtxKey = &contextKey{"caller_email"}

// requireAuth décode le token (header Authorization ou param ?token=) et le
// valide via IdentityService. En cas de succès, l'email du caller est
// injecté dans le contexte de la requête.
func requireAuth(identity ports.IdentityService, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}

		email, err := identity.ValidateToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), callerCtxKey, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// extractToken accepte "Authorization: Bearer <tok>", un header brut,
// ou le paramètre de requête ?token= (contrat de l'API d'origine).
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimPrefix(header, "Bearer ")
		}
		return header
	}
	return r.URL.Query().Get("token")
}

// ForContext récupère l'email du caller depuis un handler protégé.
func ForContext(ctx context.Context) string {
	raw, _ := ctx.Value(callerCtxKey).(string)
	return raw
}
