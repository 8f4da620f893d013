package domain

// Provider describes one configured identity/social endpoint as delivered by
// the broker's provider_info section.
type Provider struct {
	ID               string `json:"id"`
	Name             string `json:"friendly_name"`
	LoginPath        string `json:"url"`               // path appended to the base URL to start a login
	OpenIDIdentifier string `json:"openid_identifier"` // template; "%@" is replaced with user input
	RequiresInput    bool   `json:"requires_input"`
	InputPrompt      string `json:"input_prompt,omitempty"`

	// ForceReauth makes the next login bypass any cached broker session.
	// Toggled by the coordinator, reset after a login URL is built.
	ForceReauth bool `json:"force_reauth,omitempty"`
}

// RequiresUserInput reports whether the login URL needs a user-supplied
// identifier (e.g. an OpenID URL) before it can be built.
func (p *Provider) RequiresUserInput() bool {
	return p.RequiresInput
}
