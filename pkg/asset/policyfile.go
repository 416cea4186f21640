package asset

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// policyOverride is the YAML shape of one category entry.
// Omitted fields keep the base policy value.
type policyOverride struct {
	Transform    *Transform `yaml:"transform"`
	Folder       string     `yaml:"folder"`
	AllowedTypes []string   `yaml:"allowed_types"`
	MaxSize      int64      `yaml:"max_size"`
}

// LoadPolicies reads per-category overrides from YAML and applies them on top of
// base, returning a new registry. Unknown categories are rejected.
//
// Example file:
//
//	icon:
//	  allowed_types: [image/png, image/jpeg]
//	  max_size: 1048576
//	  transform: {width: 256, height: 256, mode: limit}
//	course_video:
//	  folder: videos
func LoadPolicies(r io.Reader, base *Registry) (*Registry, error) {
	if base == nil {
		base = DefaultRegistry()
	}

	var overrides map[Category]policyOverride
	if err := yaml.NewDecoder(r).Decode(&overrides); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode policy file: %v", ErrInvalidPolicy, err)
	}

	for c := range overrides {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q in policy file", ErrUnknownCategory, c)
		}
	}

	policies := base.Policies()
	for i, p := range policies {
		o, ok := overrides[p.Category]
		if !ok {
			continue
		}
		if len(o.AllowedTypes) > 0 {
			p.AllowedTypes = o.AllowedTypes
		}
		if o.MaxSize > 0 {
			p.MaxSize = o.MaxSize
		}
		if o.Folder != "" {
			p.Folder = o.Folder
		}
		if o.Transform != nil {
			p.Transform = o.Transform
		}
		policies[i] = p
	}

	return NewRegistry(policies...)
}
