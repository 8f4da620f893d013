package driven

import (
	"github.com/custodia-labs/socialauth-core/internal/core/domain"
)

// SessionObserver receives authentication and publishing lifecycle events
// from the session coordinator. Implementations are typically UI screens or
// native provider bridges. Observers may register and unregister themselves
// at any time, including from inside a callback.
type SessionObserver interface {
	// AuthenticationDidComplete fires after a successful login. authInfo is
	// the raw profile payload from the broker.
	AuthenticationDidComplete(authInfo map[string]any, providerName string)

	// AuthenticationDidFail fires when a login attempt ends in error.
	AuthenticationDidFail(err error, providerName string)

	// AuthenticationDidCancel fires when the user abandons a login attempt.
	AuthenticationDidCancel()

	// AuthenticationDidReachTokenURL fires when the post-login call to the
	// relying party's token URL succeeds, with the token URL's raw response.
	AuthenticationDidReachTokenURL(tokenURL string, payload []byte, providerName string)

	// AuthenticationCallToTokenURLDidFail fires when that call fails.
	AuthenticationCallToTokenURLDidFail(tokenURL string, err error, providerName string)

	// PublishingDidSucceed fires when an activity is accepted by the provider.
	PublishingDidSucceed(activity *domain.Activity, providerName string)

	// PublishingDidFail fires when publishing ends in error.
	PublishingDidFail(activity *domain.Activity, err error, providerName string)

	// PublishingDidComplete fires when the publishing flow is torn down.
	PublishingDidComplete()

	// PublishingDidCancel fires when the user abandons publishing.
	PublishingDidCancel()
}

// ObserverAdapter is a no-op SessionObserver. Embed it to implement only the
// callbacks a component cares about.
type ObserverAdapter struct{}

func (ObserverAdapter) AuthenticationDidComplete(map[string]any, string)          {}
func (ObserverAdapter) AuthenticationDidFail(error, string)                       {}
func (ObserverAdapter) AuthenticationDidCancel()                                  {}
func (ObserverAdapter) AuthenticationDidReachTokenURL(string, []byte, string)     {}
func (ObserverAdapter) AuthenticationCallToTokenURLDidFail(string, error, string) {}
func (ObserverAdapter) PublishingDidSucceed(*domain.Activity, string)             {}
func (ObserverAdapter) PublishingDidFail(*domain.Activity, error, string)         {}
func (ObserverAdapter) PublishingDidComplete()                                    {}
func (ObserverAdapter) PublishingDidCancel()                                      {}
