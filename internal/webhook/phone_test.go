package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"6281234567890@c.us", "6281234567890"},
		{"+6281234567890", "6281234567890"},
		{" 62 812-3456-7890 ", "6281234567890"},
		{"6281234567890", "6281234567890"},
		{"+62 812 3456 7890@c.us", "6281234567890"},
		{"", ""},
		{"@c.us", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.in), "input %q", tt.in)
	}
}
