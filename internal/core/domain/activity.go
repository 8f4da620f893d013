package domain

// Activity is a user action shared to a social provider via the broker's
// activity endpoint.
type Activity struct {
	// Action is the short description of what the user did, e.g.
	// "wrote a review".
	Action string `json:"action"`

	// URL is the link the activity points at.
	URL string `json:"url,omitempty"`

	// UserGeneratedContent is free-form text entered by the user.
	UserGeneratedContent string `json:"user_generated_content,omitempty"`

	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}
