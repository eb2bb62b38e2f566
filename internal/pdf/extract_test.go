package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageBased(t *testing.T) {
	tests := []struct {
		name      string
		charCount int
		pageCount int
		want      bool
	}{
		{"dense text", 5000, 10, false},
		{"exactly at threshold", 50, 1, false},
		{"just below threshold", 49, 1, true},
		{"sparse scan", 100, 10, true},
		{"empty document", 0, 3, true},
		{"zero pages", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, imageBased(tt.charCount, tt.pageCount))
		})
	}
}
