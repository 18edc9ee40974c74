package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByMonthKeepsInputOrder(t *testing.T) {
	evs := []DayEvent{
		{Month: 7, Day: 4, Name: "b", CreationOrder: 2},
		{Month: 1, Day: 1, Name: "a", CreationOrder: 0},
		{Month: 7, Day: 4, Name: "c", CreationOrder: 1},
	}
	got := GroupByMonth(evs)
	require.Len(t, got, 2)
	assert.Equal(t, []DayEvent{evs[0], evs[2]}, got[7][4])
	assert.Equal(t, []DayEvent{evs[1]}, got[1][1])
	assert.Nil(t, got[2])
}

func TestParseGenerationType(t *testing.T) {
	for _, s := range []string{"calendar_only", "with_headers", "combined"} {
		gt, err := ParseGenerationType(s)
		require.NoError(t, err)
		assert.Equal(t, GenerationType(s), gt)
	}
	_, err := ParseGenerationType("poster")
	assert.Error(t, err)

	assert.False(t, CalendarOnly.RequiresHeader())
	assert.True(t, WithHeaders.RequiresHeader())
	assert.True(t, Combined.RequiresHeader())
}

func TestHasImage(t *testing.T) {
	assert.False(t, DayEvent{}.HasImage())
	assert.True(t, DayEvent{Image: "a.jpg"}.HasImage())
	assert.True(t, DayEvent{FullImage: "a.jpg"}.HasImage())
}
