package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taggedEntity struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	Skipped  string `db:"-"`
	Untagged string
	hidden   string `db:"hidden"`
}

func TestStructTagValues(t *testing.T) {
	want := []string{"id", "name"}

	assert.Equal(t, want, StructTagValues(taggedEntity{}))
	assert.Equal(t, want, StructTagValues(&taggedEntity{}), "pointer input")
}

func TestStructToMap(t *testing.T) {
	e := taggedEntity{ID: "p-1", Name: "PET Bottles", Skipped: "x", Untagged: "y", hidden: "z"}

	m := StructToMap(&e)

	assert.Equal(t, map[string]any{"id": "p-1", "name": "PET Bottles"}, m)
}

func TestStructToMap_NonStructPanics(t *testing.T) {
	assert.Panics(t, func() { StructToMap("not a struct") })
}

func TestErrorWrapOrNil(t *testing.T) {
	assert.NoError(t, ErrorWrapOrNil(nil, "context"))

	base := errors.New("boom")
	assert.Same(t, base, ErrorWrapOrNil(base, ""))

	wrapped := ErrorWrapOrNil(base, "create pickup")
	require.Error(t, wrapped)
	assert.Equal(t, "create pickup: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, base)
}
