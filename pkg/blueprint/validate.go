// Package blueprint performs local structural validation of a blueprint
// file before it is uploaded. Full semantic validation happens server-side;
// this catches the cheap mistakes (file missing, not YAML, no topology)
// without a round trip.
package blueprint

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Document is the structural skeleton every blueprint must have.
type Document struct {
	Blueprint struct {
		Name     string `yaml:"name" validate:"required"`
		Topology []Node `yaml:"topology" validate:"required,min=1,dive"`
	} `yaml:"blueprint" validate:"required"`
}

// Node is one topology node.
type Node struct {
	Name string `yaml:"name" validate:"required"`
	Type string `yaml:"type" validate:"required"`
}

// ValidationError describes why a blueprint failed local validation.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("blueprint %s failed validation: %s", e.Path, e.Reason)
}

// ValidateFile checks that path exists, parses as YAML, and has the
// required blueprint skeleton.
func ValidateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("blueprint file %s not found", path)
	}
	if info.IsDir() {
		return fmt.Errorf("blueprint path %s is a directory, not a file", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read blueprint %s: %w", path, err)
	}

	doc := &Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return &ValidationError{Path: path, Reason: fmt.Sprintf("not valid YAML: %v", err)}
	}
	if doc.Blueprint.Name == "" && len(doc.Blueprint.Topology) == 0 {
		return &ValidationError{Path: path, Reason: "missing 'blueprint' section"}
	}
	if err := validator.New().Struct(doc); err != nil {
		return &ValidationError{Path: path, Reason: err.Error()}
	}
	return nil
}
