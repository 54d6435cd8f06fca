package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/types"
)

func TestURLPolicy(t *testing.T) {
	policy, err := NewURLPolicy(
		[]string{"https://*.example.com/*", "https://example.com/*"},
		[]string{"*/admin*"},
	)
	require.NoError(t, err)

	tests := []struct {
		url     string
		allowed bool
	}{
		{"https://example.com/", true},
		{"https://docs.example.com/guide", true},
		{"https://example.com/admin/users", false},
		{"https://other.org/", false},
		{"http://example.com/", false},
		{"javascript:alert(1)", false},
		{"/relative/path", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := policy.Check(tt.url)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, types.ErrorKindValidation, types.KindOf(err))
		})
	}
}

func TestNilURLPolicy(t *testing.T) {
	var policy *URLPolicy
	assert.NoError(t, policy.Check("http://localhost:8080/x"))
	assert.Error(t, policy.Check("file:///etc/passwd"))
}

func TestURLPolicyInvalidPattern(t *testing.T) {
	_, err := NewURLPolicy([]string{"https://[bad"}, nil)
	assert.Error(t, err)
}
