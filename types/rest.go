package types

import (
	"sort"
	"strings"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/mitchellh/mapstructure"
)

// Rest-schedule periods. Only two exist; legacy documents used day-part words.
const (
	PeriodAM = "am"
	PeriodPM = "pm"
)

// RestRange is a canonical rest date range. Start and End are YYYY-MM-DD day
// keys with Start <= End; the periods tag which half of the boundary days counts.
type RestRange struct {
	Start       string `json:"start" mapstructure:"start"`
	End         string `json:"end" mapstructure:"end"`
	StartPeriod string `json:"startPeriod" mapstructure:"startPeriod"`
	EndPeriod   string `json:"endPeriod" mapstructure:"endPeriod"`
}

func periodRank(p string) int {
	if p == PeriodPM {
		return 1
	}
	return 0
}

func canonicalPeriod(raw, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case PeriodAM, "morning", "matin":
		return PeriodAM
	case PeriodPM, "afternoon", "evening", "soir", "aprem":
		return PeriodPM
	case "":
		return fallback
	}
	return fallback
}

// legacyRestShape covers every range representation seen in old documents.
// Canonical keys win over their aliases.
type legacyRestShape struct {
	Start       string `mapstructure:"start"`
	End         string `mapstructure:"end"`
	StartPeriod string `mapstructure:"startPeriod"`
	EndPeriod   string `mapstructure:"endPeriod"`

	From       string `mapstructure:"from"`
	To         string `mapstructure:"to"`
	Date       string `mapstructure:"date"`
	FromPeriod string `mapstructure:"fromPeriod"`
	ToPeriod   string `mapstructure:"toPeriod"`
}

// ParseRestRange turns one heterogeneous legacy value into a canonical range.
// Accepted shapes: a bare date string, {start,end}, {start,end,startPeriod,endPeriod}
// and the from/to/date key aliases. Unrecognized shapes yield ok=false and are
// dropped rather than guessed at.
func ParseRestRange(raw interface{}) (RestRange, bool) {
	switch v := raw.(type) {
	case string:
		day := strings.TrimSpace(v)
		if day == "" {
			return RestRange{}, false
		}
		return RestRange{Start: day, End: day, StartPeriod: PeriodAM, EndPeriod: PeriodPM}, true

	case RestRange:
		return normalizeOne(v)

	case map[string]interface{}:
		var shape legacyRestShape
		if err := mapstructure.WeakDecode(v, &shape); err != nil {
			return RestRange{}, false
		}
		r := RestRange{
			Start:       strings.TrimSpace(shape.Start),
			End:         strings.TrimSpace(shape.End),
			StartPeriod: shape.StartPeriod,
			EndPeriod:   shape.EndPeriod,
		}
		if r.Start == "" {
			r.Start = strings.TrimSpace(shape.From)
		}
		if r.Start == "" {
			r.Start = strings.TrimSpace(shape.Date)
		}
		if r.End == "" {
			r.End = strings.TrimSpace(shape.To)
		}
		if r.StartPeriod == "" {
			r.StartPeriod = shape.FromPeriod
		}
		if r.EndPeriod == "" {
			r.EndPeriod = shape.ToPeriod
		}
		return normalizeOne(r)
	}
	return RestRange{}, false
}

func normalizeOne(r RestRange) (RestRange, bool) {
	r.Start = strings.TrimSpace(r.Start)
	r.End = strings.TrimSpace(r.End)
	if r.Start == "" && r.End == "" {
		return RestRange{}, false
	}
	if r.Start == "" {
		r.Start = r.End
	}
	if r.End == "" {
		r.End = r.Start
	}
	r.StartPeriod = canonicalPeriod(r.StartPeriod, PeriodAM)
	r.EndPeriod = canonicalPeriod(r.EndPeriod, PeriodPM)
	if r.Start > r.End {
		r.Start, r.End = r.End, r.Start
		r.StartPeriod, r.EndPeriod = r.EndPeriod, r.StartPeriod
	}
	return r, true
}

func restKey(r RestRange) uint64 {
	key, err := hashstructure.Hash(r, hashstructure.FormatV2, nil)
	if err != nil {
		return 0
	}
	return key
}

// NormalizeRestRanges produces the canonical list: each element parsed, start/end
// swapped into order, de-duplicated by the full (start,end,startPeriod,endPeriod)
// key and sorted. Normalizing an already-normalized list returns the same list.
func NormalizeRestRanges(raw []interface{}) []RestRange {
	out := make([]RestRange, 0, len(raw))
	seen := make(map[uint64]struct{})
	for _, item := range raw {
		r, ok := ParseRestRange(item)
		if !ok {
			continue
		}
		key := restKey(r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		if out[i].End != out[j].End {
			return out[i].End < out[j].End
		}
		if periodRank(out[i].StartPeriod) != periodRank(out[j].StartPeriod) {
			return periodRank(out[i].StartPeriod) < periodRank(out[j].StartPeriod)
		}
		return periodRank(out[i].EndPeriod) < periodRank(out[j].EndPeriod)
	})
	return out
}

// NormalizeRanges is NormalizeRestRanges over already-typed ranges.
func NormalizeRanges(ranges []RestRange) []RestRange {
	raw := make([]interface{}, len(ranges))
	for i, r := range ranges {
		raw[i] = r
	}
	return NormalizeRestRanges(raw)
}
