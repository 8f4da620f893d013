package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrProviderNotFound indicates the provider id is not in the catalog
	ErrProviderNotFound = errors.New("provider not found")

	// ErrNoCredential indicates no cached credential exists for the provider
	ErrNoCredential = errors.New("no credential for provider")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// Category groups session errors by the flow they belong to and by how the
// caller should react. Publishing errors that require a fresh login carry
// CategoryPublishNeedsReauth, content problems carry CategoryPublishInvalidActivity.
type Category string

const (
	CategoryConfigurationFailed    Category = "configuration_failed"
	CategoryAuthenticationFailed   Category = "authentication_failed"
	CategoryPublishFailed          Category = "publish_failed"
	CategoryPublishNeedsReauth     Category = "publish_needs_reauthentication"
	CategoryPublishInvalidActivity Category = "publish_invalid_activity"
)

// Kind is the specific error condition within a category.
type Kind string

const (
	// Configuration
	KindConfigurationURL         Kind = "configuration_url_error"
	KindConfigurationInformation Kind = "configuration_information_error"
	KindConfigurationJSON        Kind = "configuration_json_error"

	// Authentication
	KindAuthenticationFailed Kind = "authentication_failed"

	// Publishing
	KindPublishFailed     Kind = "publish_failed"
	KindMissingAPIKey     Kind = "missing_api_key"
	KindInvalidOAuthToken Kind = "invalid_oauth_token"
	KindContentTooLong    Kind = "content_too_long"
	KindDuplicateContent  Kind = "duplicate_content"

	// Unknown covers transport-level failures that carry no broker error code
	KindUnknown Kind = "unknown"
)

// Error is the typed error surfaced to UI layers and observers.
// UI code decides what to show from Kind and Category alone; the transport-level
// cause is kept only for logging.
type Error struct {
	Message  string
	Kind     Kind
	Category Category
	Cause    error
}

// NewError creates a session error without an underlying cause.
func NewError(message string, kind Kind, category Category) *Error {
	return &Error{Message: message, Kind: kind, Category: category}
}

// WrapError creates a session error around an underlying cause.
func WrapError(message string, kind Kind, category Category, cause error) *Error {
	return &Error{Message: message, Kind: kind, Category: category, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NeedsReauthentication reports whether the caller should discard the cached
// credential and run a fresh login before retrying.
func (e *Error) NeedsReauthentication() bool {
	return e.Category == CategoryPublishNeedsReauth
}
