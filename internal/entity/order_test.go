package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeOrderStatus(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		want  string
		valid bool
	}{
		{"exact", "pending", "pending", true},
		{"uppercase", "READY", "ready", true},
		{"mixed case and padding", "  Preparing ", "preparing", true},
		{"completed", "completed", "completed", true},
		{"unknown", "cancelled", "cancelled", false},
		{"empty", "", "", false},
		{"whitespace only", "   ", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeOrderStatus(tc.raw)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.valid, ok)
		})
	}
}
