package ai

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Provider error kinds. Providers wrap their native errors with one of these
// so callers can classify failures with errors.Is.
var (
	// ErrAuth means the credential was rejected. Retrying cannot help.
	ErrAuth = errors.New("ai provider authentication failed")
	// ErrBilling means the account has no credits or billing is disabled.
	ErrBilling = errors.New("ai provider billing or credits exhausted")
	// ErrBadRequest means the provider refused the request as malformed.
	ErrBadRequest = errors.New("ai provider rejected the request")
	// ErrRateLimited means the provider asked the caller to slow down.
	ErrRateLimited = errors.New("ai provider rate limited the request")
	// ErrEmptyResponse means the provider answered without any text.
	ErrEmptyResponse = errors.New("ai provider returned empty response")
)

// IsFatal reports whether err makes further requests to the provider pointless.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrBilling)
}

// Completer sends a rendered prompt to a text completion model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}
