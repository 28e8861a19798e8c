// Package countdown holds the date arithmetic behind the reunion countdown:
// local day keys, duration decomposition, milestone caps and weekend counting.
// Everything works on wall-clock local time; "today" is the user's day, not UTC's.
package countdown

import (
	"fmt"
	"math"
	"time"
)

const msPerDay = 24 * 60 * 60 * 1000

// Parts is a duration decomposed for display.
type Parts struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

// DayKey returns the YYYY-MM-DD key of t's local calendar day.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Decompose clamps a millisecond duration to zero and splits it into
// days/hours/minutes/seconds by integer division. No rounding.
func Decompose(ms int64) Parts {
	if ms < 0 {
		ms = 0
	}
	s := ms / 1000
	days := s / 86400
	rem := s % 86400
	return Parts{
		Days:    int(days),
		Hours:   int(rem / 3600),
		Minutes: int(rem % 3600 / 60),
		Seconds: int(rem % 60),
	}
}

// UntilMidnight returns the milliseconds from now to the next local midnight.
func UntilMidnight(now time.Time) int64 {
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	return next.Sub(now).Milliseconds()
}

// DaysUntil returns the number of days remaining to the target, rounding any
// started day up (ceil over 24h buckets). ok is false when target is zero.
func DaysUntil(target, now time.Time) (int, bool) {
	if target.IsZero() {
		return 0, false
	}
	ms := target.Sub(now).Milliseconds()
	return int(math.Ceil(float64(ms) / float64(msPerDay))), true
}

// Nights is the remaining sleeps, clamped to zero.
func Nights(days int) int {
	if days < 0 {
		return 0
	}
	return days
}

// milestoneCaps is descending; NextMilestone returns the largest cap strictly
// below the remaining days.
var milestoneCaps = []int{60, 45, 30, 21, 14, 10, 7, 5, 3, 2, 1, 0}

// NextMilestone returns the next countdown cap to look forward to, or ok=false
// when there is none left.
func NextMilestone(days int) (int, bool) {
	for _, c := range milestoneCaps {
		if days > c {
			return c, true
		}
	}
	return 0, false
}

// MilestoneLabel renders a cap for display.
func MilestoneLabel(capDays int) string {
	switch capDays {
	case 0:
		return "Aujourd’hui 💖"
	case 1:
		return "1 jour"
	}
	return fmt.Sprintf("%d jours", capDays)
}

// Weekends counts the Saturdays in [from, to), stepping day by day at local
// noon so a DST change cannot skip or double a day.
func Weekends(from, to time.Time) int {
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return 0
	}
	d := time.Date(from.Year(), from.Month(), from.Day(), 12, 0, 0, 0, from.Location())
	end := time.Date(to.Year(), to.Month(), to.Day(), 12, 0, 0, 0, to.Location())
	count := 0
	for d.Before(end) {
		if d.Weekday() == time.Saturday {
			count++
		}
		d = d.AddDate(0, 0, 1)
	}
	return count
}

// ResultText is the headline countdown sentence.
func ResultText(days int, ok bool) string {
	switch {
	case !ok:
		return ""
	case days > 0:
		return fmt.Sprintf("Plus que %d jours avant de te revoir 💕", days)
	case days == 0:
		return "C’est aujourd’hui 💖💖💖"
	}
	return "Je t’ai déjà retrouvé(e) ❤️"
}

// VibeLine is the mood line under the countdown.
func VibeLine(days int, ok bool) string {
	switch {
	case !ok:
		return ""
	case days < 0:
		return "On s’est déjà retrouvés… et j’en veux encore 😈"
	case days == 0:
		return "C’est le jour J. Respire… j’arrive 💞"
	case days <= 3:
		return "Ok là… c’est imminent 😈💗"
	case days <= 7:
		return "Semaine finale. Je tiens plus 😭💋"
	case days <= 14:
		return "Deux semaines… je commence à préparer les bisous 😇"
	case days <= 30:
		return "Ça se rapproche. Et je souris bêtement."
	}
	return "On avance, un jour à la fois. Team nous 💪💖"
}

// ParseTarget parses a stored targetISO value. The document convention is
// local-noon RFC 3339; a bare date is accepted for resilience.
func ParseTarget(targetISO string) (time.Time, bool) {
	if targetISO == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, targetISO); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02", targetISO, time.Local); err == nil {
		return t.Add(12 * time.Hour), true
	}
	return time.Time{}, false
}

// TargetFromDay converts a picked YYYY-MM-DD day into the stored targetISO,
// anchored at local noon so day arithmetic is stable across DST.
func TargetFromDay(day string) (string, error) {
	t, err := time.ParseInLocation("2006-01-02", day, time.Local)
	if err != nil {
		return "", err
	}
	return t.Add(12 * time.Hour).Format(time.RFC3339), nil
}

// DayKeyIn formats now's calendar day in the given zone, for the dispatcher
// which runs in the couple's home time zone rather than server local time.
func DayKeyIn(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
