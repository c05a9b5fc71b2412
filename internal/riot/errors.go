package riot

import (
	"fmt"
	"regexp"

	"github.com/cockroachdb/errors"
)

// Sentinels matched by errors.Is against a *FetchError.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrRateLimitOrAuth  = errors.New("forbidden: rate limit exceeded or api key rejected")
	ErrExhausted        = errors.New("retry attempts exhausted")
	ErrUnexpectedFormat = errors.New("unexpected response format")
)

// FetchErrorKind classifies why the executor gave up on a URL.
type FetchErrorKind int

const (
	KindBadRequest FetchErrorKind = iota + 1
	KindRateLimitOrAuth
	KindExhausted
)

func (k FetchErrorKind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindRateLimitOrAuth:
		return "rate_limit_or_auth"
	case KindExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// FetchError is returned by Executor.Execute when no payload could be obtained.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string // api key redacted
	Attempts   int
	LastStatus int // 0 when the last attempt failed before a response
	Cause      error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s: %s after %d attempt(s)", e.URL, e.Kind, e.Attempts)
	if e.LastStatus != 0 {
		msg += fmt.Sprintf(" (last status %d)", e.LastStatus)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Cause }

func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrBadRequest:
		return e.Kind == KindBadRequest
	case ErrRateLimitOrAuth:
		return e.Kind == KindRateLimitOrAuth
	case ErrExhausted:
		return e.Kind == KindExhausted
	}
	return false
}

// IsFatalForRun reports whether err means the whole key/quota is unusable.
func IsFatalForRun(err error) bool {
	return errors.Is(err, ErrRateLimitOrAuth)
}

var apiKeyParamRegex = regexp.MustCompile(`api_key=[^&\s"']+`)

// RedactURL hides the api_key query value so URLs can be logged.
func RedactURL(raw string) string {
	return apiKeyParamRegex.ReplaceAllString(raw, "api_key=***")
}
