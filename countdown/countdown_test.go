package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKey(t *testing.T) {
	d := time.Date(2026, 3, 2, 23, 59, 0, 0, time.Local)
	assert.Equal(t, "2026-03-02", DayKey(d))
}

func TestDecompose(t *testing.T) {
	p := Decompose(2*24*60*60*1000 + 3*60*60*1000 + 4*60*1000 + 5*1000 + 999)
	assert.Equal(t, Parts{Days: 2, Hours: 3, Minutes: 4, Seconds: 5}, p)
	assert.Equal(t, Parts{}, Decompose(-1000))
	assert.Equal(t, Parts{}, Decompose(0))
}

func TestUntilMidnight(t *testing.T) {
	now := time.Date(2026, 3, 2, 23, 0, 0, 0, time.Local)
	assert.Equal(t, int64(60*60*1000), UntilMidnight(now))
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.Local)

	_, ok := DaysUntil(time.Time{}, now)
	assert.False(t, ok)

	// exactly five 24h buckets ahead
	days, ok := DaysUntil(now.AddDate(0, 0, 5), now)
	require.True(t, ok)
	assert.Equal(t, 5, days)

	// any started day rounds up
	days, _ = DaysUntil(now.Add(4*24*time.Hour+time.Minute), now)
	assert.Equal(t, 5, days)

	days, _ = DaysUntil(now, now)
	assert.Equal(t, 0, days)

	days, _ = DaysUntil(now.Add(-36*time.Hour), now)
	assert.Equal(t, -1, days)
}

func TestNights(t *testing.T) {
	assert.Equal(t, 3, Nights(3))
	assert.Equal(t, 0, Nights(0))
	assert.Equal(t, 0, Nights(-2))
}

func TestNextMilestone(t *testing.T) {
	cap, ok := NextMilestone(90)
	require.True(t, ok)
	assert.Equal(t, 60, cap)

	cap, _ = NextMilestone(60)
	assert.Equal(t, 45, cap)

	cap, _ = NextMilestone(15)
	assert.Equal(t, 14, cap)

	cap, _ = NextMilestone(1)
	assert.Equal(t, 0, cap)

	_, ok = NextMilestone(0)
	assert.False(t, ok)
	_, ok = NextMilestone(-3)
	assert.False(t, ok)
}

func TestMilestoneLabel(t *testing.T) {
	assert.Equal(t, "1 jour", MilestoneLabel(1))
	assert.Equal(t, "14 jours", MilestoneLabel(14))
	assert.Equal(t, "Aujourd’hui 💖", MilestoneLabel(0))
}

func TestWeekends(t *testing.T) {
	// 2026-03-02 is a Monday, 2026-03-10 a Tuesday; the only Saturday in
	// between is 2026-03-07.
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	to := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	assert.Equal(t, 1, Weekends(from, to))

	// [from, to) excludes a Saturday end
	sat := time.Date(2026, 3, 14, 0, 0, 0, 0, time.Local)
	assert.Equal(t, 1, Weekends(from, sat))

	assert.Equal(t, 0, Weekends(to, from))
	assert.Equal(t, 0, Weekends(from, from))
	assert.Equal(t, 0, Weekends(time.Time{}, to))
}

func TestResultText(t *testing.T) {
	assert.Equal(t, "Plus que 5 jours avant de te revoir 💕", ResultText(5, true))
	assert.Equal(t, "C’est aujourd’hui 💖💖💖", ResultText(0, true))
	assert.Equal(t, "Je t’ai déjà retrouvé(e) ❤️", ResultText(-1, true))
	assert.Equal(t, "", ResultText(5, false))
}

func TestCountdownFiveDaysOut(t *testing.T) {
	// picking a reunion date five days from now yields the 5-day headline
	now := time.Date(2026, 3, 2, 14, 30, 0, 0, time.Local)
	targetISO, err := TargetFromDay("2026-03-07")
	require.NoError(t, err)
	target, ok := ParseTarget(targetISO)
	require.True(t, ok)
	days, ok := DaysUntil(target, now)
	require.True(t, ok)
	assert.Equal(t, "Plus que 5 jours avant de te revoir 💕", ResultText(days, ok))
}

func TestVibeLine(t *testing.T) {
	assert.Equal(t, "", VibeLine(5, false))
	assert.Equal(t, "C’est le jour J. Respire… j’arrive 💞", VibeLine(0, true))
	assert.Equal(t, "Ok là… c’est imminent 😈💗", VibeLine(2, true))
	assert.Equal(t, "On avance, un jour à la fois. Team nous 💪💖", VibeLine(45, true))
}

func TestParseTarget(t *testing.T) {
	_, ok := ParseTarget("")
	assert.False(t, ok)

	ts, ok := ParseTarget("2026-03-07T12:00:00+01:00")
	require.True(t, ok)
	assert.Equal(t, 12, ts.Hour())

	// bare date anchors at local noon
	ts, ok = ParseTarget("2026-03-07")
	require.True(t, ok)
	assert.Equal(t, 12, ts.Hour())
	assert.Equal(t, "2026-03-07", DayKey(ts))

	_, ok = ParseTarget("not a date")
	assert.False(t, ok)
}

func TestTargetFromDayRoundTrip(t *testing.T) {
	iso, err := TargetFromDay("2026-03-07")
	require.NoError(t, err)
	ts, ok := ParseTarget(iso)
	require.True(t, ok)
	assert.Equal(t, "2026-03-07", DayKey(ts))

	_, err = TargetFromDay("07/03/2026")
	assert.Error(t, err)
}

func TestDayKeyIn(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	// 23:30 UTC is already the next day in Paris
	utc := time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-03", DayKeyIn(utc, loc))
}
