package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestValidatePathSecurity exercises the path checks shared by the
// fragments dir and template entries.
func TestValidatePathSecurity(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"relative dir", "./fragments", false},
		{"nested template", "fragments/cart.html", false},
		{"redundant segments", "./fragments/./cart.html", false},
		{"empty", "", true},
		{"traversal", "../etc/passwd", true},
		{"hidden traversal", "fragments/../../etc", true},
		{"command injection", "frags;rm -rf /", true},
		{"pipe", "a|b", true},
		{"backtick", "frag`whoami`", true},
		{"subshell", "frag$(id)", true},
		{"control character", "frag\x01ments", true},
		{"newline", "frags\nheader", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHostValidationSecurity(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		wantErr bool
	}{
		{"localhost", "localhost", false},
		{"loopback", "127.0.0.1", false},
		{"all interfaces", "0.0.0.0", false},
		{"empty allowed", "", false},
		{"semicolon injection", "localhost;rm -rf /", true},
		{"backtick injection", "host`cmd`", true},
		{"pipe", "host|tee", true},
		{"header smuggling", "host\r\nX-Evil: 1", true},
		{"quote", `host"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ServerConfig{Port: 8080, Host: tt.host}
			err := validateServerConfig(&cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOriginValidationSecurity(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		wantErr bool
	}{
		{"http origin", "http://localhost:8080", false},
		{"https origin", "https://dev.example.com", false},
		{"explicit port", "https://dev.example.com:8443", false},
		{"trailing slash", "http://localhost:8080/", false},
		{"wildcard", "*", false},
		{"javascript scheme", "javascript:alert(1)", true},
		{"file scheme", "file:///etc/passwd", true},
		{"schemeless", "//missing.scheme", true},
		{"missing host", "http://", true},
		{"path smuggled in", "http://ok.dev/path", true},
		{"query smuggled in", "http://ok.dev?x=1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateOrigin(tt.origin)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFragmentEntrySecurity(t *testing.T) {
	valid := FragmentConfig{Name: "cart", Tag: "x-cart", Template: "cart.html", Selector: ".cart-root", Mode: "open"}
	assert.NoError(t, validateFragmentConfig(&valid))

	tests := []struct {
		name   string
		mutate func(*FragmentConfig)
	}{
		{"empty name", func(e *FragmentConfig) { e.Name = "  " }},
		{"name with slash", func(e *FragmentConfig) { e.Name = "cart/../../etc" }},
		{"tag without dash", func(e *FragmentConfig) { e.Tag = "cart" }},
		{"uppercase tag", func(e *FragmentConfig) { e.Tag = "X-Cart" }},
		{"absolute template", func(e *FragmentConfig) { e.Template = "/etc/passwd" }},
		{"template traversal", func(e *FragmentConfig) { e.Template = "../outside.html" }},
		{"missing template", func(e *FragmentConfig) { e.Template = "" }},
		{"broken selector", func(e *FragmentConfig) { e.Selector = "##" }},
		{"unknown mode", func(e *FragmentConfig) { e.Mode = "translucent" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := valid
			tt.mutate(&entry)
			assert.Error(t, validateFragmentConfig(&entry))
		})
	}
}

func TestDuplicateFragmentsRejected(t *testing.T) {
	cfg := FragmentsConfig{
		Dir: "./fragments",
		Entries: []FragmentConfig{
			{Name: "cart", Tag: "x-cart", Template: "cart.html"},
			{Name: "cart", Tag: "x-cart-two", Template: "cart2.html"},
		},
	}
	assert.Error(t, validateFragmentsConfig(&cfg))

	cfg.Entries[1].Name = "cart-two"
	assert.NoError(t, validateFragmentsConfig(&cfg))

	cfg.Entries[1].Tag = "x-cart"
	assert.Error(t, validateFragmentsConfig(&cfg))
}
