// Package session manages the per-working-directory session document: which
// management server is active, which provisioning provider is in use, and
// the operator's alias mappings.
package session

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Alias kinds for contextual aliases. An alias of a given kind is scoped to
// one management server address; the same alias may map to different ids on
// different servers.
const (
	KindBlueprints  = "blueprints"
	KindDeployments = "deployments"
)

// SchemaVersion is written into every persisted document. Decoding accepts
// any version up to the current one; unknown fields from newer writers are
// ignored so older binaries can still read the file.
const SchemaVersion = 1

// Document is the persisted session state. ProviderContext is opaque: it is
// stored exactly as received from the provider and returned exactly as
// stored, never interpreted here.
type Document struct {
	Schema            int                           `yaml:"schema"`
	ManagementAddress string                        `yaml:"management_address,omitempty"`
	ManagementKey     string                        `yaml:"management_key,omitempty"`
	ManagementUser    string                        `yaml:"management_user,omitempty"`
	Provider          string                        `yaml:"provider,omitempty"`
	ProviderContext   map[string]interface{}        `yaml:"provider_context,omitempty"`
	ManagementAliases map[string]string             `yaml:"management_aliases,omitempty"`
	ContextualAliases map[string]*ContextualAliases `yaml:"contextual_aliases,omitempty"`
}

// ContextualAliases holds the alias mappings scoped to one management server.
type ContextualAliases struct {
	Blueprints  map[string]string `yaml:"blueprints,omitempty"`
	Deployments map[string]string `yaml:"deployments,omitempty"`
}

// NewDocument returns an empty session document at the current schema.
func NewDocument() *Document {
	return &Document{Schema: SchemaVersion}
}

// Encode serializes the document to YAML. The schema version is always
// stamped so future readers can tell what they are looking at.
func Encode(doc *Document) ([]byte, error) {
	doc.Schema = SchemaVersion
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session document: %w", err)
	}
	return data, nil
}

// Decode parses a persisted session document. Documents written by newer
// minor revisions decode cleanly because unknown fields are ignored; a
// schema newer than this binary understands is rejected outright.
func Decode(data []byte) (*Document, error) {
	doc := &Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to decode session document: %w", err)
	}
	if doc.Schema > SchemaVersion {
		return nil, fmt.Errorf("session document schema %d is newer than supported schema %d", doc.Schema, SchemaVersion)
	}
	if doc.Schema == 0 {
		// Pre-versioned documents carry no schema field.
		doc.Schema = SchemaVersion
	}
	return doc, nil
}
