// Package providers defines the provisioning-backend capability interface
// and the registry that resolves a backend by name. Providers are compiled
// in and register themselves; resolution failure is a distinct
// NotFoundError, not a generic lookup error.
package providers

import (
	"context"
	"fmt"
)

// ProvisionResult is what a successful provision hands back: where the
// management server lives, how to reach it over SSH, and the provider's
// opaque context needed later for teardown. A nil result from Provision
// means the provider brought up nothing that needs recording.
type ProvisionResult struct {
	ManagementAddress string
	PrivateAddress    string
	KeyPath           string
	User              string
	// Context is backend-specific state, persisted verbatim in the
	// session document and passed back on teardown.
	Context map[string]interface{}
}

// Provider is one provisioning backend.
type Provider interface {
	// Name is the registry key.
	Name() string

	// Scaffold writes the provider's configuration files
	// (cosmo-config.yaml and its defaults) into an initialized working
	// directory.
	Scaffold(dir string) error

	// ValidateConfig checks the merged effective configuration before
	// any provisioning starts.
	ValidateConfig(effective map[string]interface{}) error

	// Provision brings up the management infrastructure.
	Provision(ctx context.Context, effective map[string]interface{}) (*ProvisionResult, error)

	// Bootstrap installs and starts the management services on the
	// provisioned host.
	Bootstrap(ctx context.Context, effective map[string]interface{}, result *ProvisionResult) error

	// Teardown destroys the management infrastructure using the context
	// recorded at provision time. With ignoreValidation the provider
	// skips its pre-teardown sanity checks.
	Teardown(ctx context.Context, providerContext map[string]interface{}, ignoreValidation bool) error
}

// NotFoundError is returned when no provider is registered under a name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("provider %q not found", e.Name)
}
