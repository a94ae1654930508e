// Package baremetal is the provisioning backend for a pre-existing host:
// nothing is created in a cloud, the operator supplies the machine and the
// provider installs the management services on it over SSH.
package baremetal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cosmo-orch/cosmo/pkg/config"
	"github.com/cosmo-orch/cosmo/pkg/providers"
	"github.com/cosmo-orch/cosmo/pkg/transports/ssh"
)

const providerName = "cosmo_baremetal"

// bootstrapCommands install and start the management services. They run in
// order over one SSH connection; the first failure aborts the bootstrap.
var bootstrapCommands = []string{
	"sudo mkdir -p /opt/cosmo",
	"sudo docker pull cosmo/management:latest",
	"sudo docker run -d --name cosmo-management --restart unless-stopped -p 8100:8100 cosmo/management:latest",
}

var teardownCommands = []string{
	"sudo docker rm -f cosmo-management",
	"sudo rm -rf /opt/cosmo",
}

func init() {
	providers.MustRegister(&Provider{})
}

// Provider implements providers.Provider for operator-supplied hosts.
type Provider struct{}

// Name returns the registry key.
func (p *Provider) Name() string { return providerName }

// Scaffold writes the provider's config file pair into dir.
func (p *Provider) Scaffold(dir string) error {
	files := map[string]string{
		config.FileName:         configTemplate,
		config.DefaultsFileName: defaultsTemplate,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			// Never clobber an operator's edited config.
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

// ValidateConfig checks the merged configuration names a reachable host.
func (p *Provider) ValidateConfig(effective map[string]interface{}) error {
	settings, err := config.ManagementFromEffective(effective)
	if err != nil {
		return err
	}
	if settings.PublicIP == "" {
		return fmt.Errorf("baremetal provider requires management.public_ip")
	}
	return nil
}

// Provision records the operator-supplied host as the management server.
// Nothing is created; the context notes that so Teardown knows not to
// destroy infrastructure it does not own.
func (p *Provider) Provision(ctx context.Context, effective map[string]interface{}) (*providers.ProvisionResult, error) {
	settings, err := config.ManagementFromEffective(effective)
	if err != nil {
		return nil, err
	}
	return &providers.ProvisionResult{
		ManagementAddress: settings.PublicIP,
		PrivateAddress:    settings.PublicIP,
		KeyPath:           settings.KeyPath,
		User:              settings.User,
		Context: map[string]interface{}{
			"provider": providerName,
			"host":     settings.PublicIP,
			"user":     settings.User,
			"key_path": settings.KeyPath,
		},
	}, nil
}

// Bootstrap installs and starts the management services over SSH.
func (p *Provider) Bootstrap(ctx context.Context, effective map[string]interface{}, result *providers.ProvisionResult) error {
	client, err := p.connect(ctx, result.ManagementAddress, result.User, result.KeyPath)
	if err != nil {
		return err
	}
	defer client.Close()

	for _, command := range bootstrapCommands {
		if output, err := client.Run(ctx, command); err != nil {
			return fmt.Errorf("bootstrap command %q failed: %w (output: %s)", command, err, output)
		}
	}
	return nil
}

// Teardown stops and removes the management services from the host named in
// the provider context.
func (p *Provider) Teardown(ctx context.Context, providerContext map[string]interface{}, ignoreValidation bool) error {
	host, _ := providerContext["host"].(string)
	user, _ := providerContext["user"].(string)
	keyPath, _ := providerContext["key_path"].(string)
	if host == "" || user == "" || keyPath == "" {
		if ignoreValidation {
			return nil
		}
		return fmt.Errorf("provider context is missing host connection details; re-run with --force to skip")
	}

	client, err := p.connect(ctx, host, user, keyPath)
	if err != nil {
		if ignoreValidation {
			return nil
		}
		return err
	}
	defer client.Close()

	for _, command := range teardownCommands {
		if output, err := client.Run(ctx, command); err != nil && !ignoreValidation {
			return fmt.Errorf("teardown command %q failed: %w (output: %s)", command, err, output)
		}
	}
	return nil
}

func (p *Provider) connect(ctx context.Context, host, user, keyPath string) (*ssh.Client, error) {
	client, err := ssh.NewClient(&ssh.Config{
		Host:           host,
		User:           user,
		KeyPath:        keyPath,
		ConnectTimeout: 30 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

const configTemplate = `# Cosmo baremetal provider configuration.
# Values set here override cosmo-config.defaults.yaml.
management:
  # Address of the host the management services will be installed on.
  public_ip: ""
  user: ubuntu
  key_path: ~/.ssh/id_rsa
`

const defaultsTemplate = `management:
  user: ubuntu
  key_path: ~/.ssh/id_rsa
networking:
  management_port: 8100
`
