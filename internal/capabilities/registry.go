package capabilities

import (
	"embed"
	"fmt"
	"mime"
	"path"
	"strings"
	"sync"

	"beps/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry holds the upload policies per content type
type Registry struct {
	policies map[string]*UploadPolicy
	order    []string
	mu       sync.RWMutex
}

// NewRegistry creates a registry from the embedded policy file
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/uploads.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read uploads.yaml: %w", err)
	}
	return NewRegistryFromYAML(data)
}

// NewRegistryFromYAML parses a policy document
func NewRegistryFromYAML(data []byte) (*Registry, error) {
	var file PolicyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal upload policies: %w", err)
	}

	r := &Registry{policies: make(map[string]*UploadPolicy)}
	for i := range file.Policies {
		p := file.Policies[i]
		for j, ext := range p.Extensions {
			p.Extensions[j] = strings.ToLower(ext)
		}
		r.policies[p.ContentType] = &p
		r.order = append(r.order, p.ContentType)
	}
	return r, nil
}

// Policy returns the policy of a content type
func (r *Registry) Policy(contentType string) (*UploadPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.policies[contentType]
	if !ok {
		return nil, fmt.Errorf("unknown content type: %s", contentType)
	}
	return p, nil
}

// ListPolicies returns all policies (ordered as defined in YAML)
func (r *Registry) ListPolicies() []UploadPolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]UploadPolicy, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.policies[id])
	}
	return out
}

// Check validates an upload against its policy. Oversized uploads return
// *domain.PayloadTooLargeError, anything else *domain.ValidationError.
func (r *Registry) Check(contentType, filename, mimeType string, size int64) error {
	p, err := r.Policy(contentType)
	if err != nil {
		return &domain.ValidationError{Message: err.Error()}
	}

	if p.MaxSize > 0 && size > p.MaxSize {
		return &domain.PayloadTooLargeError{
			Message: fmt.Sprintf("%s upload exceeds %d bytes", contentType, p.MaxSize),
			Limit:   p.MaxSize,
		}
	}

	if len(p.MimeTypes) > 0 {
		mediaType, _, err := mime.ParseMediaType(mimeType)
		if err != nil || !p.AllowsMimeType(strings.ToLower(mediaType)) {
			return &domain.ValidationError{
				Message: fmt.Sprintf("%s upload must be one of %s", contentType, strings.Join(p.MimeTypes, ", ")),
			}
		}
	}

	if ext := strings.ToLower(path.Ext(filename)); !p.AllowsExtension(ext) {
		return &domain.ValidationError{
			Message: fmt.Sprintf("file extension %q is not allowed for %s", ext, contentType),
		}
	}

	return nil
}
