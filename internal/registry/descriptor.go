package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/svcbind/internal/errors"
)

// Descriptor describes one client service. It is read from a YAML file in
// the registry directory.
type Descriptor struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`

	// Path is the file the descriptor was read from.
	Path string `yaml:"-"`
}

// IsDescriptorFile reports whether path has a descriptor extension.
func IsDescriptorFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// ParseDescriptor decodes and validates a descriptor. An empty id is
// allowed; the registry assigns one.
func ParseDescriptor(data []byte) (Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Descriptor{}, errors.NewValidationError("malformed descriptor").WithCause(err)
	}

	d.ID = strings.TrimSpace(d.ID)
	d.Name = strings.TrimSpace(d.Name)
	d.Endpoint = strings.TrimSpace(d.Endpoint)

	if d.ID == "" && d.Name == "" && d.Endpoint == "" {
		return Descriptor{}, errors.NewValidationError("descriptor is empty")
	}
	if strings.ContainsAny(d.ID, " \t\n") {
		return Descriptor{}, errors.NewValidationError("descriptor id cannot contain whitespace").
			WithField("id").WithValue(d.ID)
	}
	return d, nil
}

// LoadDescriptor reads and parses the descriptor at path.
func LoadDescriptor(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, errors.NewRegistryError("failed to read descriptor", err).WithPath(path)
	}
	d, err := ParseDescriptor(data)
	if err != nil {
		return Descriptor{}, errors.NewRegistryError("invalid descriptor",
			fmt.Errorf("%w: %w", errors.ErrDescriptorInvalid, err)).WithPath(path)
	}
	d.Path = path
	return d, nil
}
