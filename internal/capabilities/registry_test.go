package capabilities

import (
	"errors"
	"testing"

	"beps/internal/config"
	"beps/internal/domain"
)

func TestEmbeddedRegistry(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	policies := r.ListPolicies()
	if len(policies) != 3 || policies[0].ContentType != "page" || policies[1].ContentType != "detail" || policies[2].ContentType != "additional" {
		t.Fatalf("policies out of YAML order: %+v", policies)
	}

	page, err := r.Policy("page")
	if err != nil {
		t.Fatalf("Policy(page) error = %v", err)
	}
	if page.MaxSize != 100<<20 {
		t.Errorf("page max size = %d, want %d", page.MaxSize, 100<<20)
	}
}

func TestPoliciesFitUploadBody(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	for _, p := range r.ListPolicies() {
		if p.MaxSize <= 0 || p.MaxSize > config.MaxUploadBodySize {
			t.Errorf("%s max size = %d, want within (0, %d]", p.ContentType, p.MaxSize, config.MaxUploadBodySize)
		}
	}
}

func TestCheck(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	tests := []struct {
		name        string
		contentType string
		filename    string
		mimeType    string
		size        int64
		want        error
	}{
		{"page png", "page", "001_Intro.png", "image/png", 1000, nil},
		{"page png with params", "page", "001_Intro.png", "image/png; charset=binary", 1000, nil},
		{"page jpeg rejected", "page", "001_Intro.png", "image/jpeg", 1000, domain.ErrValidation},
		{"page too large", "page", "001_Intro.png", "image/png", 100<<20 + 1, domain.ErrTooLarge},
		{"detail png", "detail", "001_Intro_1.png", "image/png", 1000, nil},
		{"detail too large", "detail", "001_Intro_1.png", "image/png", 100<<20 + 1, domain.ErrTooLarge},
		{"additional mp4", "additional", "foo.mp4", "video/mp4", 5000, nil},
		{"additional upper-case ext", "additional", "FOO.PDF", "", 5000, nil},
		{"additional exe", "additional", "foo.exe", "application/octet-stream", 10, domain.ErrValidation},
		{"unknown type", "memo", "x.txt", "", 1, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Check(tt.contentType, tt.filename, tt.mimeType, tt.size)
			if tt.want == nil {
				if err != nil {
					t.Errorf("Check() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Check() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewRegistryFromYAMLInvalid(t *testing.T) {
	if _, err := NewRegistryFromYAML([]byte("content_types: [")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
