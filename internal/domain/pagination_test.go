package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationParams_Validate(t *testing.T) {
	p := PaginationParams{Page: 0, PageSize: 500}
	p.Validate()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxPageSize, p.PageSize)
	assert.Equal(t, 0, p.Offset())

	p = PaginationParams{Page: 3, PageSize: -1}
	p.Validate()
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Equal(t, 40, p.Offset())
}

func TestNewPaginatedResponse(t *testing.T) {
	page := NewPaginatedResponse([]int{1, 2}, 2, 2, 5)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrev)

	empty := NewPaginatedResponse[int](nil, 1, 20, 0)
	assert.NotNil(t, empty.Data)
	assert.False(t, empty.HasNext)
}

func TestMapPage(t *testing.T) {
	page := NewPaginatedResponse([]int{1, 2, 3}, 1, 3, 7)
	doubled := MapPage(page, func(v *int) int { return *v * 2 })

	assert.Equal(t, []int{2, 4, 6}, doubled.Data)
	assert.Equal(t, page.TotalItems, doubled.TotalItems)
	assert.Equal(t, page.TotalPages, doubled.TotalPages)
}
