package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRestRangeBareDate(t *testing.T) {
	r, ok := ParseRestRange(" 2026-03-05 ")
	require.True(t, ok)
	assert.Equal(t, RestRange{Start: "2026-03-05", End: "2026-03-05", StartPeriod: PeriodAM, EndPeriod: PeriodPM}, r)

	_, ok = ParseRestRange("")
	assert.False(t, ok)
}

func TestParseRestRangeMapShapes(t *testing.T) {
	r, ok := ParseRestRange(map[string]interface{}{"start": "2026-03-05", "end": "2026-03-08"})
	require.True(t, ok)
	assert.Equal(t, RestRange{Start: "2026-03-05", End: "2026-03-08", StartPeriod: PeriodAM, EndPeriod: PeriodPM}, r)

	// from/to aliases
	r, ok = ParseRestRange(map[string]interface{}{"from": "2026-03-05", "to": "2026-03-08", "fromPeriod": "pm", "toPeriod": "am"})
	require.True(t, ok)
	assert.Equal(t, RestRange{Start: "2026-03-05", End: "2026-03-08", StartPeriod: PeriodPM, EndPeriod: PeriodAM}, r)

	// single "date" key means a one-day range
	r, ok = ParseRestRange(map[string]interface{}{"date": "2026-03-05"})
	require.True(t, ok)
	assert.Equal(t, RestRange{Start: "2026-03-05", End: "2026-03-05", StartPeriod: PeriodAM, EndPeriod: PeriodPM}, r)

	// canonical keys win over aliases
	r, ok = ParseRestRange(map[string]interface{}{"start": "2026-03-01", "from": "2026-03-05", "end": "2026-03-02"})
	require.True(t, ok)
	assert.Equal(t, "2026-03-01", r.Start)
	assert.Equal(t, "2026-03-02", r.End)

	_, ok = ParseRestRange(map[string]interface{}{"note": "no dates here"})
	assert.False(t, ok)
	_, ok = ParseRestRange(42)
	assert.False(t, ok)
}

func TestParseRestRangePeriodAliases(t *testing.T) {
	r, ok := ParseRestRange(map[string]interface{}{"start": "2026-03-05", "end": "2026-03-06", "startPeriod": "matin", "endPeriod": "soir"})
	require.True(t, ok)
	assert.Equal(t, PeriodAM, r.StartPeriod)
	assert.Equal(t, PeriodPM, r.EndPeriod)

	// unknown period words fall back to the defaults
	r, ok = ParseRestRange(map[string]interface{}{"start": "2026-03-05", "end": "2026-03-06", "startPeriod": "noonish", "endPeriod": "whenever"})
	require.True(t, ok)
	assert.Equal(t, PeriodAM, r.StartPeriod)
	assert.Equal(t, PeriodPM, r.EndPeriod)
}

func TestParseRestRangeSwapsOutOfOrder(t *testing.T) {
	// 2026-03-10 before 2026-03-05: boundaries swap together with their periods
	r, ok := ParseRestRange(map[string]interface{}{"start": "2026-03-10", "end": "2026-03-05", "startPeriod": "pm", "endPeriod": "am"})
	require.True(t, ok)
	assert.Equal(t, RestRange{Start: "2026-03-05", End: "2026-03-10", StartPeriod: PeriodAM, EndPeriod: PeriodPM}, r)
}

func TestNormalizeRestRangesDedupAndSort(t *testing.T) {
	out := NormalizeRestRanges([]interface{}{
		"2026-03-08",
		map[string]interface{}{"start": "2026-03-05", "end": "2026-03-06"},
		map[string]interface{}{"from": "2026-03-05", "to": "2026-03-06"}, // same as above
		42, // unrecognized, dropped
		map[string]interface{}{"start": "2026-03-05", "end": "2026-03-06", "startPeriod": "pm"},
	})
	require.Len(t, out, 3)
	assert.Equal(t, RestRange{Start: "2026-03-05", End: "2026-03-06", StartPeriod: PeriodAM, EndPeriod: PeriodPM}, out[0])
	assert.Equal(t, RestRange{Start: "2026-03-05", End: "2026-03-06", StartPeriod: PeriodPM, EndPeriod: PeriodPM}, out[1])
	assert.Equal(t, RestRange{Start: "2026-03-08", End: "2026-03-08", StartPeriod: PeriodAM, EndPeriod: PeriodPM}, out[2])
}

func TestNormalizeRestRangesIdempotent(t *testing.T) {
	first := NormalizeRestRanges([]interface{}{
		"2026-03-08",
		map[string]interface{}{"start": "2026-03-10", "end": "2026-03-05"},
	})
	second := NormalizeRanges(first)
	assert.Equal(t, first, second)
}
