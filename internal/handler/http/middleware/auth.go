package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/verihr/verihr-backend-go/internal/handler/http/response"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the authenticated caller, extracted from verified JWT claims.
type Identity struct {
	TenantID string
	PersonID string
	Role     string
}

func AuthRequired(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())

			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			if token == nil {
				response.Unauthorized(w, ErrInvalidToken.Error())
				return
			}

			tokenType, ok := claims["type"].(string)
			if tokenType != "access" || !ok {
				response.Unauthorized(w, ErrInvalidToken.Error())
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

// IdentityFromContext reads the tenant and person from the verified claims.
// Only valid below the Verifier and AuthRequired middlewares.
func IdentityFromContext(ctx context.Context) (Identity, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Identity{}, err
	}

	tenantID, _ := claims["tenant_id"].(string)
	personID, _ := claims["person_id"].(string)
	role, _ := claims["role"].(string)
	if tenantID == "" || personID == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{TenantID: tenantID, PersonID: personID, Role: role}, nil
}
