package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		ctx         *Context
		wantVersion string
		wantString  string
	}{
		{"nil context", nil, UnknownValue, "unknown (built unknown)"},
		{"empty", NewContext("", ""), UnknownValue, "unknown (built unknown)"},
		{"release", NewContext("1.2.0", "2026-10-01"), "1.2.0", "1.2.0 (built 2026-10-01)"},
		{"pre-release", NewContext("1.3.0-beta.1", ""), "1.3.0-beta.1", "1.3.0-beta.1 (built unknown)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantVersion, tt.ctx.GetVersion())
			assert.Equal(t, tt.wantString, tt.ctx.String())
		})
	}
}
