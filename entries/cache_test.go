package entries

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	list []Entry
	err  error
}

func (s *stubStore) ListEntries(context.Context) ([]Entry, error) { return s.list, s.err }
func (s *stubStore) CreateEntry(context.Context, NewEntry) error  { return nil }

func TestCacheRefresh(t *testing.T) {
	store := &stubStore{list: []Entry{{ID: "2", Name: "b"}, {ID: "1", Name: "a"}}}
	c := NewCache(store)
	require.NoError(t, c.Refresh(context.Background()))
	assert.True(t, c.Loaded())
	assert.Equal(t, store.list, c.Entries())

	got := c.Entries()
	got[0].Name = "mutated"
	assert.Equal(t, "b", c.Entries()[0].Name)
}

func TestCacheRefreshFailureEmpties(t *testing.T) {
	store := &stubStore{list: []Entry{{ID: "1"}}}
	c := NewCache(store)
	require.NoError(t, c.Refresh(context.Background()))

	store.err = errors.New("connection refused")
	err := c.Refresh(context.Background())
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, store.err)
	assert.Empty(t, c.Entries())
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Loaded())
}
