package fetcher

import "fmt"

// Kind classifies fetch failures for user-facing scan errors.
type Kind string

// Fetch failure kinds.
const (
	KindTimeout          Kind = "timeout"
	KindTooLarge         Kind = "too_large"
	KindTooManyRedirects Kind = "too_many_redirects"
	KindUnreachable      Kind = "unreachable"
	KindDisallowedURL    Kind = "disallowed_url"
)

// Error is a classified fetch failure.
type Error struct {
	Kind   Kind
	URL    string
	Reason string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("request timed out: %s", e.Reason)
	case KindTooLarge:
		return fmt.Sprintf("document too large: %s", e.Reason)
	case KindTooManyRedirects:
		return fmt.Sprintf("too many redirects: %s", e.Reason)
	case KindDisallowedURL:
		return fmt.Sprintf("url not allowed: %s", e.Reason)
	default:
		return fmt.Sprintf("unreachable: %s", e.Reason)
	}
}

func newError(kind Kind, url, format string, args ...any) *Error {
	return &Error{Kind: kind, URL: url, Reason: fmt.Sprintf(format, args...)}
}
