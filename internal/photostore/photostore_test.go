package photostore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		ok   bool
	}{
		{"generated name", "0f8fad5bd9cb469fa16570867728950e", true},
		{"name with extension", "photo.png", true},
		{"empty", "", false},
		{"dot", ".", false},
		{"dotdot", "..", false},
		{"parent traversal", "../../etc/passwd", false},
		{"absolute", "/etc/passwd", false},
		{"nested", "a/b", false},
		{"windows separator", `..\secret`, false},
		{"nul byte", "abc\x00.png", false},
		{"hidden staging dir", ".tmp", false},
		{"too long", strings.Repeat("a", 256), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidKey)
			}
		})
	}
}
