package riot

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"

	"ranked-crawler/internal/logging"
)

const (
	DefaultMaxAttempts = 5
	defaultHTTPTimeout = 30 * time.Second
)

// Payload is a successful response: status 200 with a body that parses as JSON.
type Payload struct {
	StatusCode int
	Body       []byte
}

// attemptState is the executor's position in the retry state machine.
type attemptState int

const (
	stateAttempting attemptState = iota
	stateSuccess
	stateFatal
	stateRetry
	stateExhausted
)

func (s attemptState) String() string {
	switch s {
	case stateAttempting:
		return "attempting"
	case stateSuccess:
		return "success"
	case stateFatal:
		return "fatal"
	case stateRetry:
		return "retry"
	case stateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// outcome is what one attempt produced.
type outcome struct {
	next   attemptState
	status int
	body   []byte
	kind   FetchErrorKind // set when next == stateFatal
	cause  error
}

// ExecutorConfig configures an Executor. Zero values fall back to defaults.
type ExecutorConfig struct {
	MaxAttempts int
	Delay       time.Duration // applied after every attempt
	HTTPClient  *resty.Client
	Clock       Clock
	Logger      *logging.Logger
}

// Executor issues paced GET requests and retries according to the status-code policy.
// It is the only place where request timing is enforced. Not safe for concurrent use.
type Executor struct {
	http        *resty.Client
	clock       Clock
	logger      *logging.Logger
	maxAttempts int
	delay       time.Duration

	requests int
}

func NewExecutor(cfg ExecutorConfig) *Executor {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resty.New().SetTimeout(defaultHTTPTimeout)
	}
	// Retries are driven by the state machine below, never by resty.
	httpClient.SetRetryCount(0)

	clock := cfg.Clock
	if clock == nil {
		clock = RealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Executor{
		http:        httpClient,
		clock:       clock,
		logger:      logger,
		maxAttempts: maxAttempts,
		delay:       cfg.Delay,
	}
}

// Requests returns how many attempts have been issued so far.
func (e *Executor) Requests() int { return e.requests }

// Delay returns the pacing delay applied after each attempt.
func (e *Executor) Delay() time.Duration { return e.delay }

// Execute fetches url until a valid JSON payload arrives, a fatal status is seen,
// or the attempt budget runs out. The pacing delay follows every attempt.
func (e *Executor) Execute(ctx context.Context, url string) (Payload, error) {
	redacted := RedactURL(url)
	e.logger.Debug("request", "url", redacted)

	state := stateAttempting
	attempts := 0
	var last outcome

	for {
		switch state {
		case stateAttempting:
			attempts++
			e.requests++
			last = e.attempt(ctx, url)
			if err := ctx.Err(); err != nil {
				return Payload{}, errors.Wrap(err, "request cancelled")
			}

			if err := e.clock.Sleep(ctx, e.delay); err != nil {
				return Payload{}, errors.Wrap(err, "pacing delay interrupted")
			}

			state = last.next
			if state == stateRetry && attempts >= e.maxAttempts {
				state = stateExhausted
			}

		case stateSuccess:
			return Payload{StatusCode: last.status, Body: last.body}, nil

		case stateFatal:
			e.logger.Warn("request rejected, not retrying",
				"url", redacted, "status", last.status, "kind", last.kind.String())
			return Payload{}, &FetchError{
				Kind:       last.kind,
				URL:        redacted,
				Attempts:   attempts,
				LastStatus: last.status,
				Cause:      last.cause,
			}

		case stateRetry:
			e.logger.Debug("retrying request",
				"url", redacted, "attempt", attempts, "max_attempts", e.maxAttempts,
				"status", last.status, "error", last.cause)
			state = stateAttempting

		case stateExhausted:
			e.logger.Warn("giving up on request",
				"url", redacted, "attempts", attempts, "status", last.status, "error", last.cause)
			return Payload{}, &FetchError{
				Kind:       KindExhausted,
				URL:        redacted,
				Attempts:   attempts,
				LastStatus: last.status,
				Cause:      last.cause,
			}
		}
	}
}

// attempt performs one GET and classifies the response.
func (e *Executor) attempt(ctx context.Context, url string) outcome {
	resp, err := e.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)
	if err != nil {
		e.logger.Warn("request failed", "url", RedactURL(url), "error", RedactURL(err.Error()))
		return outcome{next: stateRetry, cause: errors.Newf("send request: %s", RedactURL(err.Error()))}
	}

	return e.classify(url, resp.StatusCode(), resp.Body())
}

func (e *Executor) classify(url string, status int, body []byte) outcome {
	switch status {
	case http.StatusOK:
		if !json.Valid(body) {
			e.logger.Warn("problematic JSON body, retrying", "url", RedactURL(url), "bytes", len(body))
			return outcome{next: stateRetry, status: status, cause: ErrUnexpectedFormat}
		}
		return outcome{next: stateSuccess, status: status, body: body}

	case http.StatusBadRequest:
		return outcome{next: stateFatal, status: status, kind: KindBadRequest}

	case http.StatusForbidden:
		return outcome{next: stateFatal, status: status, kind: KindRateLimitOrAuth}

	case http.StatusTooManyRequests:
		// Retry-After is ignored; the fixed pacing delay applies.
		return outcome{next: stateRetry, status: status, cause: errors.New("rate limited")}

	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		e.logger.Warn("server unable to fulfill request, retrying", "url", RedactURL(url), "status", status)
		return outcome{next: stateRetry, status: status, cause: errors.Newf("server error %d", status)}

	default:
		e.logger.Warn("unrecognized response code, retrying", "url", RedactURL(url), "status", status)
		return outcome{next: stateRetry, status: status, cause: errors.Newf("unrecognized status %d", status)}
	}
}
