package riot

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"

	"ranked-crawler/internal/config"
)

const defaultValidationTimeout = 10 * time.Second

// KeyValidator checks an API key with a single lightweight status request.
// It bypasses the Executor so a bad key is reported without retries.
type KeyValidator struct {
	http    *resty.Client
	baseURL string
}

// KeyValidatorOption configures a KeyValidator
type KeyValidatorOption func(*KeyValidator)

// WithBaseURL sets a custom base URL (useful for testing)
func WithBaseURL(url string) KeyValidatorOption {
	return func(v *KeyValidator) {
		v.baseURL = url
	}
}

// WithTimeout sets a custom timeout for validation requests
func WithTimeout(timeout time.Duration) KeyValidatorOption {
	return func(v *KeyValidator) {
		v.http.SetTimeout(timeout)
	}
}

// NewKeyValidator targets the region's platform host unless WithBaseURL is given.
func NewKeyValidator(region config.Region, opts ...KeyValidatorOption) *KeyValidator {
	v := &KeyValidator{
		http:    resty.New().SetTimeout(defaultValidationTimeout),
		baseURL: "https://" + region.Host() + ".api.riotgames.com/lol",
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateKey returns:
//   - (true, nil) if the key is accepted
//   - (false, nil) if the key is rejected (401/403)
//   - (false, error) on network or server errors, when validity is unknown
func (v *KeyValidator) ValidateKey(ctx context.Context, apiKey string) (bool, error) {
	if apiKey == "" {
		return false, errors.New("api key cannot be empty")
	}

	url := NewEndpointsWithBase(v.baseURL, apiKey).ShardStatus()
	resp, err := v.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return false, errors.Newf("key check request failed: %s", RedactURL(err.Error()))
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return true, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, nil
	default:
		return false, errors.Newf("unexpected status code: %d", resp.StatusCode())
	}
}
