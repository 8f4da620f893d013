package domain

import "time"

// Credential is the cached result of a successful login against one provider.
// At most one credential is kept per provider; a new login overwrites it.
type Credential struct {
	ProviderID string `json:"provider_id"`

	// DeviceToken is the opaque session token returned by the broker's
	// authentication exchange. It authorizes publish calls.
	DeviceToken string `json:"device_token"`

	// AuthInfo is the raw profile payload as returned by the broker.
	AuthInfo map[string]any `json:"auth_info"`

	// WelcomeString is a display string for the return experience, e.g.
	// "Sign in as jane".
	WelcomeString string `json:"welcome_string,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
