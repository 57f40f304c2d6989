package vgrid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewClamps(t *testing.T) {
	g := New(30, 7, -4, 0)
	require.Equal(t, Grid{RowCount: 30, Columns: MaxColumns, Offset: 0, Window: DefaultWindow}, g)

	g = New(5, 0, 9, 2)
	require.Equal(t, 1, g.Columns)
	require.Equal(t, 5, g.Offset)
}

func TestRenderOnlyVisibleRows(t *testing.T) {
	var called []int
	w, err := Render(New(30, 2, 12, 12), func(index, columns int) (int, error) {
		require.Equal(t, 2, columns)
		called = append(called, index)
		return index * 10, nil
	})
	require.NoError(t, err)
	require.Len(t, called, 12)
	require.Equal(t, 12, called[0])
	require.Equal(t, 23, called[11])
	require.Equal(t, 24, w.NextOffset)
	require.True(t, w.HasMore)
	require.Equal(t, 120, w.Items[0])
}

func TestRenderLastWindow(t *testing.T) {
	w, err := Render(New(30, 3, 24, 12), func(index, _ int) (int, error) { return index, nil })
	require.NoError(t, err)
	require.Equal(t, []int{24, 25, 26, 27, 28, 29}, w.Items)
	require.False(t, w.HasMore)
	require.Equal(t, 30, w.NextOffset)
}

func TestRenderStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Render(New(10, 1, 0, 10), func(index, _ int) (string, error) {
		calls++
		if index == 3 {
			return "", boom
		}
		return "ok", nil
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 4, calls)
}
