package services

// opKind enumerates every network operation the coordinator can have in
// flight. Completion callbacks dispatch on this closed set instead of
// inspecting the tag's runtime type.
type opKind int

const (
	opConfigSync opKind = iota
	opPublish
	opTokenCallback
)

func (k opKind) String() string {
	switch k {
	case opConfigSync:
		return "config_sync"
	case opPublish:
		return "publish"
	case opTokenCallback:
		return "token_callback"
	default:
		return "unknown"
	}
}

// pendingOp is the tag carried alongside each transport request and echoed
// back in the completion callback.
type pendingOp struct {
	kind opKind

	// tokenURL and providerName are set for opTokenCallback so the failure
	// path can notify observers even after the current provider is cleared.
	tokenURL     string
	providerName string
}
