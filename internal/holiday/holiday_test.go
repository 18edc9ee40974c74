package holiday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ymd(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		year int
		want time.Time
	}{
		{"new years", NewYears, 2025, ymd(2025, 1, 1)},
		{"independence day", IndependenceDay, 2025, ymd(2025, 7, 4)},
		{"christmas", Christmas, 2031, ymd(2031, 12, 25)},
		{"easter 2024", Easter, 2024, ymd(2024, 3, 31)},
		{"easter 2025", Easter, 2025, ymd(2025, 4, 20)},
		{"easter 2019", Easter, 2019, ymd(2019, 4, 21)},
		{"easter 2000", Easter, 2000, ymd(2000, 4, 23)},
		{"easter 2038 latest", Easter, 2038, ymd(2038, 4, 25)},
		{"easter 2285 earliest", Easter, 2285, ymd(2285, 3, 22)},
		{"thanksgiving 2024", Thanksgiving, 2024, ymd(2024, 11, 28)},
		{"thanksgiving 2025", Thanksgiving, 2025, ymd(2025, 11, 27)},
		{"memorial day 2024", MemorialDay, 2024, ymd(2024, 5, 27)},
		{"memorial day 2021 on last day", MemorialDay, 2021, ymd(2021, 5, 31)},
		{"labor day 2025", LaborDay, 2025, ymd(2025, 9, 1)},
		{"labor day 2024", LaborDay, 2024, ymd(2024, 9, 2)},
		{"mothers day 2025", MothersDay, 2025, ymd(2025, 5, 11)},
		{"fathers day 2025", FathersDay, 2025, ymd(2025, 6, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.kind, tt.year)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveChristmasEveryYear(t *testing.T) {
	for y := 1900; y <= 2100; y++ {
		got, ok := Resolve(Christmas, y)
		require.True(t, ok)
		assert.Equal(t, ymd(y, 12, 25), got)
	}
}

func TestResolveUnknownKind(t *testing.T) {
	_, ok := Resolve(Kind("arbor_day"), 2025)
	assert.False(t, ok)
}

func TestNthWeekdayOutsideMonth(t *testing.T) {
	// February 2025 has four Mondays; the fifth would be in March.
	_, ok := NthWeekday(2025, 2, Monday, 5)
	assert.False(t, ok)

	// December 2025: fifth Wednesday is the 31st, still in the month.
	got, ok := NthWeekday(2025, 12, Wednesday, 5)
	require.True(t, ok)
	assert.Equal(t, ymd(2025, 12, 31), got)

	// A fifth Thursday in December would spill into the next year.
	_, ok = NthWeekday(2025, 12, Thursday, 5)
	assert.False(t, ok)
}

func TestNthWeekdayInvalidInput(t *testing.T) {
	for _, tc := range []struct{ month, weekday, n int }{
		{0, Monday, 1},
		{13, Monday, 1},
		{5, -1, 1},
		{5, 7, 1},
		{5, Monday, 0},
	} {
		_, ok := NthWeekday(2025, tc.month, tc.weekday, tc.n)
		assert.False(t, ok, "month=%d weekday=%d n=%d", tc.month, tc.weekday, tc.n)
	}
}

func TestLastWeekday(t *testing.T) {
	got, ok := LastWeekday(2025, 2, Friday)
	require.True(t, ok)
	assert.Equal(t, ymd(2025, 2, 28), got)

	got, ok = LastWeekday(2024, 2, Thursday)
	require.True(t, ok)
	assert.Equal(t, ymd(2024, 2, 29), got)

	_, ok = LastWeekday(2024, 14, Thursday)
	assert.False(t, ok)
}

func TestEasterAlwaysSundayInSpring(t *testing.T) {
	for y := 1583; y <= 2400; y++ {
		d := EasterSunday(y)
		assert.Equal(t, time.Sunday, d.Weekday(), "year %d", y)
		assert.True(t, d.Month() == time.March || d.Month() == time.April, "year %d", y)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
		assert.NotEmpty(t, k.DisplayName())
	}
	_, err := ParseKind("groundhog_day")
	assert.Error(t, err)
}

func TestEvents(t *testing.T) {
	sel := []Selection{
		{Kind: Christmas, Image: "xmas.jpg"},
		{Kind: Kind("bogus")},
		{Kind: Thanksgiving},
	}
	evs := Events(2024, sel, 10)
	require.Len(t, evs, 2)

	assert.Equal(t, 12, evs[0].Month)
	assert.Equal(t, 25, evs[0].Day)
	assert.Equal(t, "Christmas", evs[0].Name)
	assert.Equal(t, "xmas.jpg", evs[0].Image)
	assert.Equal(t, 10, evs[0].CreationOrder)

	assert.Equal(t, 11, evs[1].Month)
	assert.Equal(t, 28, evs[1].Day)
	assert.Empty(t, evs[1].Image)
	assert.Equal(t, 11, evs[1].CreationOrder)
}

func TestFloorDivision(t *testing.T) {
	assert.Equal(t, -1, floorDiv(-1, 19))
	assert.Equal(t, 18, floorMod(-1, 19))
	assert.Equal(t, 2, floorDiv(7, 3))
	assert.Equal(t, 1, floorMod(7, 3))
}
