package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name          string
		page, limit   int
		expectedPage  int
		expectedLimit int
	}{
		{"defaults", 0, 0, 1, 10},
		{"negative", -3, -1, 1, 10},
		{"explicit", 3, 20, 3, 20},
		{"capped", 1, 1000, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Normalize(tt.page, tt.limit, DefaultOpts)
			assert.Equal(t, tt.expectedPage, p.Page)
			assert.Equal(t, tt.expectedLimit, p.Limit)
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Params{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 20, Params{Page: 3, Limit: 10}.Offset())
}

func TestPage(t *testing.T) {
	p := NewPage([]int{1, 2}, 5, Params{Page: 1, Limit: 2})
	assert.Equal(t, 3, p.TotalPages())
	assert.True(t, p.HasMore())

	last := NewPage([]int{5}, 5, Params{Page: 3, Limit: 2})
	assert.False(t, last.HasMore())

	empty := NewPage[int](nil, 0, Params{Page: 1, Limit: 10})
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.TotalPages())
}
