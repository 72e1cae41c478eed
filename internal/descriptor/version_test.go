package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Version_String(t *testing.T) {
	v := Version{Major: 1, Minor: 2, Patch: 3}
	assert.Equal(t, "1.2.3", v.String())
}

func Test_ParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Version
		wantErr bool
	}{
		{"simple", "1.2.3", Version{1, 2, 3}, false},
		{"zero", "0.0.0", Version{0, 0, 0}, false},
		{"with v prefix", "v2.0.1", Version{2, 0, 1}, false},
		{"malformed", "not-a-version", Version{}, true},
		{"empty", "", Version{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVersion(tt.input)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_Version_Satisfies(t *testing.T) {
	tests := []struct {
		name       string
		version    Version
		constraint string
		want       bool
	}{
		{"empty constraint always satisfies", Version{1, 0, 0}, "", true},
		{"exact match", Version{1, 2, 3}, "1.2.3", true},
		{"caret range satisfied", Version{1, 5, 0}, "^1.0.0", true},
		{"caret range violated by major bump", Version{2, 0, 0}, "^1.0.0", false},
		{"comparison range satisfied", Version{1, 5, 0}, ">=1.0.0, <2.0.0", true},
		{"comparison range violated", Version{2, 0, 0}, ">=1.0.0, <2.0.0", false},
		{"malformed constraint never satisfies", Version{1, 0, 0}, "not a constraint", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.version.Satisfies(tt.constraint))
		})
	}
}
