package baremetal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cosmo-orch/cosmo/pkg/config"
	"github.com/cosmo-orch/cosmo/pkg/providers"
)

func TestRegisteredInDefaultRegistry(t *testing.T) {
	provider, err := providers.Default().Resolve("cosmo_baremetal")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if provider.Name() != "cosmo_baremetal" {
		t.Errorf("name = %q", provider.Name())
	}
}

func TestScaffoldWritesConfigPair(t *testing.T) {
	dir := t.TempDir()
	provider := &Provider{}

	if err := provider.Scaffold(dir); err != nil {
		t.Fatalf("scaffold failed: %v", err)
	}

	for _, name := range []string{config.FileName, config.DefaultsFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s was not written: %v", name, err)
		}
	}
}

func TestScaffoldNeverClobbersExistingConfig(t *testing.T) {
	dir := t.TempDir()
	provider := &Provider{}
	edited := "management:\n  public_ip: 10.0.0.1\n"
	path := filepath.Join(dir, config.FileName)
	if err := os.WriteFile(path, []byte(edited), 0o644); err != nil {
		t.Fatalf("failed to seed config: %v", err)
	}

	if err := provider.Scaffold(dir); err != nil {
		t.Fatalf("scaffold failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != edited {
		t.Error("scaffold overwrote the operator's config")
	}
}

func TestScaffoldedConfigMergesCleanly(t *testing.T) {
	dir := t.TempDir()
	provider := &Provider{}
	if err := provider.Scaffold(dir); err != nil {
		t.Fatalf("scaffold failed: %v", err)
	}

	effective, err := config.ReadEffective(
		filepath.Join(dir, config.FileName),
		filepath.Join(dir, config.DefaultsFileName))
	if err != nil {
		t.Fatalf("scaffolded files must merge: %v", err)
	}
	if _, ok := effective["management"]; !ok {
		t.Error("merged config is missing the management section")
	}
}

func TestValidateConfigRequiresPublicIP(t *testing.T) {
	provider := &Provider{}
	effective := map[string]interface{}{
		"management": map[string]interface{}{
			"user":     "ubuntu",
			"key_path": "/keys/mgmt.pem",
		},
	}

	err := provider.ValidateConfig(effective)
	if err == nil {
		t.Fatal("expected an error without management.public_ip")
	}
	if !strings.Contains(err.Error(), "public_ip") {
		t.Errorf("error must name the missing key: %v", err)
	}
}

func TestProvisionRecordsHostInContext(t *testing.T) {
	provider := &Provider{}
	effective := map[string]interface{}{
		"management": map[string]interface{}{
			"public_ip": "10.0.0.1",
			"user":      "ubuntu",
			"key_path":  "/keys/mgmt.pem",
		},
	}

	result, err := provider.Provision(context.Background(), effective)
	if err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	if result.ManagementAddress != "10.0.0.1" {
		t.Errorf("address = %q", result.ManagementAddress)
	}
	if result.Context["host"] != "10.0.0.1" || result.Context["provider"] != "cosmo_baremetal" {
		t.Errorf("context = %v, teardown needs the host recorded", result.Context)
	}
}

func TestTeardownMissingContextRequiresForce(t *testing.T) {
	provider := &Provider{}

	if err := provider.Teardown(context.Background(), map[string]interface{}{}, false); err == nil {
		t.Fatal("expected an error when connection details are missing")
	}
	if err := provider.Teardown(context.Background(), map[string]interface{}{}, true); err != nil {
		t.Fatalf("forced teardown must tolerate a missing context: %v", err)
	}
}
