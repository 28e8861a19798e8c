package roomsync

import (
	"fmt"
	"strings"
	"time"

	"github.com/glachaux/reunion-rooms/content"
	"github.com/glachaux/reunion-rooms/countdown"
	"github.com/glachaux/reunion-rooms/pick"
	"github.com/glachaux/reunion-rooms/types"
)

// Op is a pure mutation of the room document. The engine applies it twice:
// once optimistically to the local copy, once inside the store transaction
// against the freshly read base, so concurrent composite writes merge instead
// of overwriting each other.
type Op func(*types.RoomState) error

func isoNow(now time.Time) string {
	return now.UTC().Format(time.RFC3339)
}

// DailyFor computes the deterministic love note + challenge for a day.
func DailyFor(dayKey, targetISO, roomId string) types.Daily {
	seed := pick.DailySeed(dayKey, targetISO, roomId)
	return types.Daily{
		DateKey:   dayKey,
		Love:      pick.Pick(content.LoveNotes, seed+pick.SuffixLove),
		Challenge: pick.Pick(content.Challenges, seed+pick.SuffixChallenge),
	}
}

// QuestionFor computes the deterministic trivia question for a day.
func QuestionFor(dayKey, targetISO, roomId string) content.QuizQuestion {
	seed := pick.DailySeed(dayKey, targetISO, roomId) + pick.SuffixQuiz
	return content.QuizQuestions[pick.Index(len(content.QuizQuestions), seed)]
}

// UnlockDaily materializes today's deterministic love note + challenge into
// the document. Unlocking an already-unlocked day is a no-op, so the record
// cannot flip within a day. This is the only write path for the daily record;
// the patch surface deliberately has no daily field.
func UnlockDaily(roomId string, now time.Time) Op {
	return func(r *types.RoomState) error {
		dayKey := countdown.DayKey(now)
		if r.Daily != nil && r.Daily.DateKey == dayKey {
			return nil
		}
		d := DailyFor(dayKey, r.TargetISO, roomId)
		r.Daily = &d
		return nil
	}
}

// AddPlaylistEntry prepends the entry, replacing any existing entry for the
// same (dateKey, who). One song per participant per day.
func AddPlaylistEntry(entry types.PlaylistEntry, now time.Time) Op {
	return func(r *types.RoomState) error {
		if entry.DateKey == "" {
			entry.DateKey = countdown.DayKey(now)
		}
		if entry.AddedAt == "" {
			entry.AddedAt = isoNow(now)
		}
		kept := make([]types.PlaylistEntry, 0, len(r.Playlist)+1)
		kept = append(kept, entry)
		for _, e := range r.Playlist {
			if e.DateKey == entry.DateKey && e.Who == entry.Who {
				continue
			}
			kept = append(kept, e)
		}
		r.Playlist = kept
		return nil
	}
}

// RemovePlaylistEntry deletes the entry for (dateKey, who), if any.
func RemovePlaylistEntry(dateKey, who string) Op {
	return func(r *types.RoomState) error {
		kept := make([]types.PlaylistEntry, 0, len(r.Playlist))
		for _, e := range r.Playlist {
			if e.DateKey == dateKey && e.Who == who {
				continue
			}
			kept = append(kept, e)
		}
		r.Playlist = kept
		return nil
	}
}

func ClearPlaylist() Op {
	return func(r *types.RoomState) error {
		r.Playlist = []types.PlaylistEntry{}
		return nil
	}
}

// AddRestRange parses the raw client value (any of the accepted legacy
// shapes), appends it and renormalizes the whole list.
func AddRestRange(raw interface{}) Op {
	return func(r *types.RoomState) error {
		rr, ok := types.ParseRestRange(raw)
		if !ok {
			return fmt.Errorf("unrecognized rest range")
		}
		merged := make([]interface{}, 0, len(r.RestRanges)+1)
		for _, existing := range r.RestRanges {
			merged = append(merged, existing)
		}
		merged = append(merged, rr)
		r.RestRanges = types.NormalizeRestRanges(merged)
		return nil
	}
}

// RemoveRestRange drops every range equal to the parsed value.
func RemoveRestRange(raw interface{}) Op {
	return func(r *types.RoomState) error {
		rr, ok := types.ParseRestRange(raw)
		if !ok {
			return fmt.Errorf("unrecognized rest range")
		}
		kept := make([]types.RestRange, 0, len(r.RestRanges))
		for _, existing := range r.RestRanges {
			if existing == rr {
				continue
			}
			kept = append(kept, existing)
		}
		r.RestRanges = types.NormalizeRanges(kept)
		return nil
	}
}

// AddCustomMovie appends a watchlist entry unless the title already exists
// (case-insensitive) in either list.
func AddCustomMovie(title string) Op {
	return func(r *types.RoomState) error {
		title = strings.TrimSpace(title)
		if title == "" {
			return fmt.Errorf("empty movie title")
		}
		lower := strings.ToLower(title)
		for _, m := range r.Movies {
			if strings.ToLower(m.Title) == lower {
				return nil
			}
		}
		for _, m := range r.CustomMovies {
			if strings.ToLower(m.Title) == lower {
				return nil
			}
		}
		r.CustomMovies = append(r.CustomMovies, types.MovieItem{Title: title})
		return nil
	}
}

func RemoveCustomMovie(title string) Op {
	return func(r *types.RoomState) error {
		kept := make([]types.MovieItem, 0, len(r.CustomMovies))
		for _, m := range r.CustomMovies {
			if m.Title == title {
				continue
			}
			kept = append(kept, m)
		}
		r.CustomMovies = kept
		return nil
	}
}

// AnswerDailyQuiz records who's answer to today's question. A record carrying
// yesterday's date key or a question id that is no longer today's pick is
// stale and replaced wholesale. The first answer is final.
func AnswerDailyQuiz(roomId, who string, answer int, now time.Time) Op {
	return func(r *types.RoomState) error {
		dayKey := countdown.DayKey(now)
		q := QuestionFor(dayKey, r.TargetISO, roomId)
		if answer < 0 || answer >= len(q.Options) {
			return fmt.Errorf("answer out of range")
		}
		if r.DailyQuiz == nil || r.DailyQuiz.DateKey != dayKey || r.DailyQuiz.QuestionId != q.Id {
			r.DailyQuiz = &types.DailyQuiz{
				DateKey:    dayKey,
				QuestionId: q.Id,
				Answers:    map[string]types.QuizAnswer{},
			}
		}
		if r.DailyQuiz.Answers == nil {
			r.DailyQuiz.Answers = map[string]types.QuizAnswer{}
		}
		if _, done := r.DailyQuiz.Answers[who]; done {
			return nil // first answer is final
		}
		r.DailyQuiz.Answers[who] = types.QuizAnswer{
			Answer:     answer,
			Correct:    answer == q.Answer,
			AnsweredAt: isoNow(now),
		}
		return nil
	}
}

// SubmitCoupleQuiz records who's Valentine's submission. Only accepted on
// February 14, with one non-blank answer per question; the first submission
// is final.
func SubmitCoupleQuiz(who string, answers []string, now time.Time) Op {
	return func(r *types.RoomState) error {
		if now.Month() != time.February || now.Day() != 14 {
			return fmt.Errorf("couple quiz only opens on February 14")
		}
		if len(answers) != len(content.CoupleQuestions) {
			return fmt.Errorf("expected %d answers, got %d", len(content.CoupleQuestions), len(answers))
		}
		trimmed := make([]string, len(answers))
		for i, a := range answers {
			a = strings.TrimSpace(a)
			if a == "" {
				return fmt.Errorf("answer %d is empty", i+1)
			}
			trimmed[i] = a
		}
		if r.CoupleQuiz == nil {
			r.CoupleQuiz = &types.CoupleQuiz{Answers: map[string]types.CoupleQuizEntry{}}
		}
		if r.CoupleQuiz.Answers == nil {
			r.CoupleQuiz.Answers = map[string]types.CoupleQuizEntry{}
		}
		if _, done := r.CoupleQuiz.Answers[who]; done {
			return nil // first submission is final
		}
		r.CoupleQuiz.Answers[who] = types.CoupleQuizEntry{
			Answers:     trimmed,
			SubmittedAt: isoNow(now),
		}
		return nil
	}
}
