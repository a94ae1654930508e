// Package failures classifies errors from cosmo operations into actionable
// outcomes and maps them to process exit codes. Every failure is classified
// exactly once, at the command boundary; inner layers wrap with %w and never
// re-classify.
package failures

import (
	"errors"
	"fmt"

	"github.com/cosmo-orch/cosmo/pkg/providers"
	"github.com/cosmo-orch/cosmo/pkg/rest"
	"github.com/cosmo-orch/cosmo/pkg/session"
)

// Kind identifies the class of a failure.
type Kind int

const (
	// KindUserInput covers missing arguments, alias conflicts, and files
	// the user pointed at that do not exist.
	KindUserInput Kind = iota + 1

	// KindSessionNotInitialized means no session document exists in the
	// working directory; the remedy is always "run 'cosmo init' first".
	KindSessionNotInitialized

	// KindRemoteCall covers transport and HTTP failures talking to the
	// management server.
	KindRemoteCall

	// KindRemoteCallTimeout means the REST call itself did not respond.
	// This is distinct from an orchestration timeout, which is a terminal
	// execution state rather than a failure.
	KindRemoteCallTimeout

	// KindProviderOperation means the provisioning backend raised during
	// provision, bootstrap, or teardown.
	KindProviderOperation

	// KindProviderNotFound means no provider is registered under the
	// requested name.
	KindProviderNotFound

	// KindAlreadyReported means a nested layer already printed the
	// diagnostic; only a non-zero exit is needed.
	KindAlreadyReported
)

// Exit codes per kind. Success is 0; anything classified is non-zero.
const (
	ExitOK                    = 0
	ExitUserInput             = 1
	ExitSessionNotInitialized = 2
	ExitRemoteCall            = 3
	ExitRemoteCallTimeout     = 4
	ExitProviderOperation     = 5
	ExitProviderNotFound      = 6
	ExitAlreadyReported       = 7
)

// Classified is a failure tagged with its kind. Message holds the original
// diagnostic, except for AlreadyReported which carries none.
type Classified struct {
	Kind    Kind
	Message string
}

func (c *Classified) Error() string {
	if c.Kind == KindAlreadyReported {
		return "failure already reported"
	}
	return c.Message
}

// ExitCode returns the process exit code for this failure.
func (c *Classified) ExitCode() int {
	switch c.Kind {
	case KindUserInput:
		return ExitUserInput
	case KindSessionNotInitialized:
		return ExitSessionNotInitialized
	case KindRemoteCall:
		return ExitRemoteCall
	case KindRemoteCallTimeout:
		return ExitRemoteCallTimeout
	case KindProviderOperation:
		return ExitProviderOperation
	case KindProviderNotFound:
		return ExitProviderNotFound
	case KindAlreadyReported:
		return ExitAlreadyReported
	default:
		return ExitUserInput
	}
}

// UserInput builds a user-input failure.
func UserInput(format string, args ...interface{}) *Classified {
	return &Classified{Kind: KindUserInput, Message: fmt.Sprintf(format, args...)}
}

// ProviderOperation builds a provider-operation failure wrapping err.
func ProviderOperation(op string, err error) *Classified {
	return &Classified{Kind: KindProviderOperation, Message: fmt.Sprintf("provider %s failed: %v", op, err)}
}

// AlreadyReported builds a failure whose diagnostic was already emitted.
func AlreadyReported() *Classified {
	return &Classified{Kind: KindAlreadyReported}
}

// Classify maps err to exactly one Classified failure. Errors that are
// already classified pass through unchanged.
func Classify(err error) *Classified {
	if err == nil {
		return nil
	}

	var classified *Classified
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, session.ErrNotInitialized) {
		return &Classified{Kind: KindSessionNotInitialized, Message: err.Error()}
	}

	var aliasConflict *session.AliasConflictError
	if errors.As(err, &aliasConflict) {
		return &Classified{Kind: KindUserInput, Message: err.Error()}
	}

	var providerNotFound *providers.NotFoundError
	if errors.As(err, &providerNotFound) {
		return &Classified{Kind: KindProviderNotFound, Message: err.Error()}
	}

	var execTimeout *rest.ExecutionTimeoutError
	if errors.As(err, &execTimeout) {
		return &Classified{Kind: KindRemoteCallTimeout, Message: err.Error()}
	}

	var httpErr *rest.HTTPError
	if errors.As(err, &httpErr) {
		return &Classified{Kind: KindRemoteCall, Message: err.Error()}
	}

	var callErr *rest.CallError
	if errors.As(err, &callErr) {
		return &Classified{Kind: KindRemoteCall, Message: err.Error()}
	}

	return &Classified{Kind: KindUserInput, Message: err.Error()}
}
