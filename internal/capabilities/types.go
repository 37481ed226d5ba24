package capabilities

import (
	"slices"

	"gopkg.in/yaml.v3"
)

// UploadPolicy constrains uploads of one content type
type UploadPolicy struct {
	// Content type identifier (set during YAML unmarshaling)
	ContentType string `yaml:"-" json:"content_type"`

	Description string `yaml:"description" json:"description"`

	// MaxSize is the largest accepted upload in bytes
	MaxSize int64 `yaml:"max_size" json:"max_size"`

	// Empty lists accept anything
	MimeTypes  []string `yaml:"mime_types" json:"mime_types,omitempty"`
	Extensions []string `yaml:"extensions" json:"extensions,omitempty"`
}

// AllowsMimeType reports whether mediaType passes the policy
func (p *UploadPolicy) AllowsMimeType(mediaType string) bool {
	return len(p.MimeTypes) == 0 || slices.Contains(p.MimeTypes, mediaType)
}

// AllowsExtension reports whether ext (lower-case, with dot) passes the policy
func (p *UploadPolicy) AllowsExtension(ext string) bool {
	return len(p.Extensions) == 0 || slices.Contains(p.Extensions, ext)
}

// PolicyFile is the parsed uploads.yaml
type PolicyFile struct {
	Policies []UploadPolicy `yaml:"-" json:"policies"` // Ordered slice, populated by custom unmarshaler
}

// UnmarshalYAML implements custom YAML unmarshaling to preserve policy order from YAML file
func (f *PolicyFile) UnmarshalYAML(node *yaml.Node) error {
	type policiesOnly struct {
		ContentTypes map[string]UploadPolicy `yaml:"content_types"`
	}
	var m policiesOnly
	if err := node.Decode(&m); err != nil {
		return err
	}

	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value != "content_types" {
			continue
		}
		typesNode := node.Content[i+1]
		// typesNode.Content alternates: key, value, key, value...
		for j := 0; j < len(typesNode.Content); j += 2 {
			id := typesNode.Content[j].Value
			if policy, ok := m.ContentTypes[id]; ok {
				policy.ContentType = id
				f.Policies = append(f.Policies, policy)
			}
		}
		break
	}

	return nil
}
