package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPageClamps(t *testing.T) {
	p := NewPage(0, 0)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, 10, p.Size)

	p = NewPage(-3, 500)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, 100, p.Size)

	p = NewPage(4, 25)
	assert.Equal(t, 75, p.Offset())
	assert.Equal(t, 25, p.Limit())
}

func TestNewPagination(t *testing.T) {
	pg := NewPagination(NewPage(2, 10), 35)
	assert.Equal(t, 2, pg.Page)
	assert.Equal(t, 10, pg.Limit)
	assert.Equal(t, 35, pg.Total)
	assert.Equal(t, 4, pg.Pages)

	pg = NewPagination(NewPage(1, 10), 30)
	assert.Equal(t, 3, pg.Pages)

	pg = NewPagination(NewPage(1, 10), 0)
	assert.Equal(t, 0, pg.Pages)
}
