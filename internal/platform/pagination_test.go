package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetchFrom(items []Customer) PageFunc[Customer] {
	return func(ctx context.Context, page, perPage int) ([]Customer, int, error) {
		start := (page - 1) * perPage
		if start >= len(items) {
			return nil, len(items), nil
		}
		end := start + perPage
		if end > len(items) {
			end = len(items)
		}
		return items[start:end], len(items), nil
	}
}

func makeCustomers(n int) []Customer {
	out := make([]Customer, n)
	for i := range out {
		out[i] = Customer{ID: string(rune('a' + i))}
	}
	return out
}

func TestPaginator_TerminatesOnShortPage(t *testing.T) {
	pager := NewPaginator(fetchFrom(makeCustomers(5)), 1, 2)

	var got []Customer
	pages := 0
	for {
		items, ok, err := pager.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		pages++
		got = append(got, items...)
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, got, 5)
	assert.Equal(t, 5, pager.TotalItems())
	assert.Equal(t, 3, pager.TotalPages())
}

func TestPaginator_TerminatesOnEmptyPage(t *testing.T) {
	// Totals divisible by the page size produce a trailing empty fetch
	pager := NewPaginator(fetchFrom(makeCustomers(4)), 1, 2)

	pages := 0
	for {
		_, ok, err := pager.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		pages++
	}
	assert.Equal(t, 2, pages)
}

func TestPaginator_EmptyCollection(t *testing.T) {
	pager := NewPaginator(fetchFrom(nil), 1, 2)

	items, ok, err := pager.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, items)

	// Exhausted paginators stay exhausted
	_, ok, err = pager.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPaginator_StartsMidStream(t *testing.T) {
	pager := NewPaginator(fetchFrom(makeCustomers(6)), 3, 2)

	items, ok, err := pager.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, "e", items[0].ID)
}

func TestPaginator_PropagatesFetchError(t *testing.T) {
	fetchErr := errors.New("boom")
	pager := NewPaginator(func(ctx context.Context, page, perPage int) ([]Customer, int, error) {
		return nil, 0, fetchErr
	}, 1, 2)

	_, ok, err := pager.Next(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, fetchErr)

	// An error does not end the sequence; the same page is retried
	assert.Equal(t, 1, pager.Page())
}
