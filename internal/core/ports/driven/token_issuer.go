package driven

import (
	"github.com/custodia-labs/socialauth-core/internal/core/domain"
)

// TokenIssuer mints and verifies the signed application session tokens handed
// to UI processes after a successful provider login. The token wraps only the
// provider identity, never the broker credential itself.
type TokenIssuer interface {
	// Issue creates a signed token for the credential's provider.
	Issue(cred *domain.Credential) (string, error)

	// Verify checks a token and returns the provider id it was issued for.
	Verify(token string) (string, error)
}
