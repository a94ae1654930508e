package session

import (
	"errors"
	"testing"
)

const testServer = "10.0.0.1"

func TestTranslateManagementAliasPassThrough(t *testing.T) {
	doc := NewDocument()
	if got := doc.TranslateManagementAlias("10.9.9.9"); got != "10.9.9.9" {
		t.Errorf("unknown input must pass through, got %q", got)
	}
}

func TestSaveAndTranslateManagementAlias(t *testing.T) {
	doc := NewDocument()
	if err := doc.SaveManagementAlias("prod", testServer, false); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if got := doc.TranslateManagementAlias("prod"); got != testServer {
		t.Errorf("translate = %q, want %q", got, testServer)
	}
}

func TestManagementAliasConflict(t *testing.T) {
	doc := NewDocument()
	if err := doc.SaveManagementAlias("prod", testServer, false); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	err := doc.SaveManagementAlias("prod", "10.0.0.2", false)
	var conflict *AliasConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected AliasConflictError, got %v", err)
	}
	if conflict.Alias != "prod" {
		t.Errorf("conflict names alias %q, want prod", conflict.Alias)
	}
	if got := doc.TranslateManagementAlias("prod"); got != testServer {
		t.Errorf("rejected save must not change the binding, got %q", got)
	}
}

func TestManagementAliasOverwriteWithForce(t *testing.T) {
	doc := NewDocument()
	if err := doc.SaveManagementAlias("prod", testServer, false); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := doc.SaveManagementAlias("prod", "10.0.0.2", true); err != nil {
		t.Fatalf("forced overwrite failed: %v", err)
	}
	if got := doc.TranslateManagementAlias("prod"); got != "10.0.0.2" {
		t.Errorf("translate = %q, want 10.0.0.2", got)
	}
}

func TestContextualAliasScopedToServer(t *testing.T) {
	doc := NewDocument()
	if err := doc.SaveContextualAlias(KindDeployments, "web", "d-1", testServer, false); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if got := doc.TranslateContextualAlias(KindDeployments, "web", testServer); got != "d-1" {
		t.Errorf("translate on owning server = %q, want d-1", got)
	}
	if got := doc.TranslateContextualAlias(KindDeployments, "web", "10.0.0.2"); got != "web" {
		t.Errorf("alias must not leak to another server, got %q", got)
	}
}

func TestContextualAliasKindsAreIndependent(t *testing.T) {
	doc := NewDocument()
	if err := doc.SaveContextualAlias(KindBlueprints, "web", "b-1", testServer, false); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := doc.SaveContextualAlias(KindDeployments, "web", "d-1", testServer, false); err != nil {
		t.Fatalf("same alias in another kind must not conflict: %v", err)
	}

	if got := doc.TranslateContextualAlias(KindBlueprints, "web", testServer); got != "b-1" {
		t.Errorf("blueprint scope = %q, want b-1", got)
	}
	if got := doc.TranslateContextualAlias(KindDeployments, "web", testServer); got != "d-1" {
		t.Errorf("deployment scope = %q, want d-1", got)
	}
}

func TestContextualAliasConflict(t *testing.T) {
	doc := NewDocument()
	if err := doc.SaveContextualAlias(KindDeployments, "web", "d-1", testServer, false); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	err := doc.SaveContextualAlias(KindDeployments, "web", "d-2", testServer, false)
	var conflict *AliasConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected AliasConflictError, got %v", err)
	}
}

func TestSaveContextualAliasUnknownKind(t *testing.T) {
	doc := NewDocument()
	if err := doc.SaveContextualAlias("nodes", "web", "n-1", testServer, false); err == nil {
		t.Fatal("expected an error for an unknown alias kind")
	}
}

func TestAliasMappingReturnsCopy(t *testing.T) {
	doc := NewDocument()
	if err := doc.SaveContextualAlias(KindDeployments, "web", "d-1", testServer, false); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	mapping := doc.AliasMapping(KindDeployments, testServer)
	mapping["web"] = "tampered"

	if got := doc.TranslateContextualAlias(KindDeployments, "web", testServer); got != "d-1" {
		t.Error("mutating the returned mapping leaked into session state")
	}
}

func TestRemoveServerContext(t *testing.T) {
	doc := NewDocument()
	doc.ManagementAddress = testServer
	if err := doc.SaveContextualAlias(KindDeployments, "web", "d-1", testServer, false); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := doc.SaveContextualAlias(KindDeployments, "web", "d-9", "10.0.0.2", false); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if !doc.RemoveServerContext(testServer) {
		t.Error("removing the active server must report so")
	}
	if doc.ManagementAddress != "" {
		t.Errorf("active address not cleared: %q", doc.ManagementAddress)
	}
	if got := doc.TranslateContextualAlias(KindDeployments, "web", testServer); got != "web" {
		t.Errorf("aliases of the removed server survived, got %q", got)
	}
	if got := doc.TranslateContextualAlias(KindDeployments, "web", "10.0.0.2"); got != "d-9" {
		t.Errorf("aliases of other servers must survive, got %q", got)
	}

	if doc.RemoveServerContext("10.0.0.2") {
		t.Error("removing a non-active server must report false")
	}
}
