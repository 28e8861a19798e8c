package roomsync

import (
	"testing"
	"time"

	"github.com/glachaux/reunion-rooms/content"
	"github.com/glachaux/reunion-rooms/countdown"
	"github.com/glachaux/reunion-rooms/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 15, 0, 0, 0, time.Local)

func testRoom() *types.RoomState {
	r := types.DefaultRoomState()
	return &r
}

func TestDailyForDeterministic(t *testing.T) {
	a := DailyFor("2026-03-02", "", "abcd2345")
	b := DailyFor("2026-03-02", "", "abcd2345")
	assert.Equal(t, a, b)
	assert.Equal(t, "2026-03-02", a.DateKey)
	assert.Contains(t, content.LoveNotes, a.Love)
	assert.Contains(t, content.Challenges, a.Challenge)

	// another room sees its own picks
	c := DailyFor("2026-03-02", "", "other-room")
	assert.NotEqual(t, a.DateKey+a.Love+a.Challenge, c.DateKey+c.Love+c.Challenge)
}

func TestUnlockDaily(t *testing.T) {
	r := testRoom()
	roomId := "abcd2345"
	require.NoError(t, UnlockDaily(roomId, testNow)(r))
	require.NotNil(t, r.Daily)
	assert.Equal(t, DailyFor(countdown.DayKey(testNow), r.TargetISO, roomId), *r.Daily)

	// unlocking an already-unlocked day keeps the record
	first := *r.Daily
	require.NoError(t, UnlockDaily(roomId, testNow)(r))
	assert.Equal(t, first, *r.Daily)

	// the next day replaces it with that day's pick
	tomorrow := testNow.AddDate(0, 0, 1)
	require.NoError(t, UnlockDaily(roomId, tomorrow)(r))
	assert.Equal(t, DailyFor(countdown.DayKey(tomorrow), r.TargetISO, roomId), *r.Daily)
}

func TestAddPlaylistEntryPrependsAndReplaces(t *testing.T) {
	r := testRoom()
	first := types.PlaylistEntry{DateKey: "2026-03-01", Who: "lea", Title: "one"}
	require.NoError(t, AddPlaylistEntry(first, testNow)(r))
	second := types.PlaylistEntry{DateKey: "2026-03-02", Who: "lea", Title: "two"}
	require.NoError(t, AddPlaylistEntry(second, testNow)(r))

	require.Len(t, r.Playlist, 2)
	assert.Equal(t, "two", r.Playlist[0].Title, "newest entry is prepended")
	assert.Equal(t, "one", r.Playlist[1].Title)

	// same (dateKey, who) replaces instead of stacking
	replacement := types.PlaylistEntry{DateKey: "2026-03-02", Who: "lea", Title: "two bis"}
	require.NoError(t, AddPlaylistEntry(replacement, testNow)(r))
	require.Len(t, r.Playlist, 2)
	assert.Equal(t, "two bis", r.Playlist[0].Title)

	// the partner's song of the same day is a separate slot
	partner := types.PlaylistEntry{DateKey: "2026-03-02", Who: "gauthier", Title: "three"}
	require.NoError(t, AddPlaylistEntry(partner, testNow)(r))
	assert.Len(t, r.Playlist, 3)
}

func TestAddPlaylistEntryDefaults(t *testing.T) {
	r := testRoom()
	require.NoError(t, AddPlaylistEntry(types.PlaylistEntry{Who: "lea", Title: "song"}, testNow)(r))
	assert.Equal(t, countdown.DayKey(testNow), r.Playlist[0].DateKey)
	assert.NotEmpty(t, r.Playlist[0].AddedAt)
}

func TestRemovePlaylistEntry(t *testing.T) {
	r := testRoom()
	require.NoError(t, AddPlaylistEntry(types.PlaylistEntry{DateKey: "2026-03-01", Who: "lea", Title: "one"}, testNow)(r))
	require.NoError(t, RemovePlaylistEntry("2026-03-01", "lea")(r))
	assert.Empty(t, r.Playlist)
	// removing a missing entry is fine
	require.NoError(t, RemovePlaylistEntry("2026-03-01", "lea")(r))
}

func TestClearPlaylist(t *testing.T) {
	r := testRoom()
	require.NoError(t, AddPlaylistEntry(types.PlaylistEntry{DateKey: "2026-03-01", Who: "lea", Title: "one"}, testNow)(r))
	require.NoError(t, ClearPlaylist()(r))
	assert.Empty(t, r.Playlist)
}

func TestAddRemoveRestRange(t *testing.T) {
	r := testRoom()
	require.NoError(t, AddRestRange("2026-03-08")(r))
	require.NoError(t, AddRestRange(map[string]interface{}{"start": "2026-03-10", "end": "2026-03-05"})(r))
	require.Len(t, r.RestRanges, 2)
	assert.Equal(t, "2026-03-05", r.RestRanges[0].Start, "list stays sorted")

	// duplicates collapse
	require.NoError(t, AddRestRange("2026-03-08")(r))
	assert.Len(t, r.RestRanges, 2)

	require.NoError(t, RemoveRestRange("2026-03-08")(r))
	require.Len(t, r.RestRanges, 1)
	assert.Equal(t, "2026-03-05", r.RestRanges[0].Start)

	assert.Error(t, AddRestRange(42)(r))
}

func TestAddRemoveCustomMovie(t *testing.T) {
	r := testRoom()
	require.NoError(t, AddCustomMovie(" Notre film ")(r))
	require.Len(t, r.CustomMovies, 1)
	assert.Equal(t, "Notre film", r.CustomMovies[0].Title)

	// case-insensitive duplicate is ignored
	require.NoError(t, AddCustomMovie("notre FILM")(r))
	assert.Len(t, r.CustomMovies, 1)

	// also against the default list
	r.Movies = []types.MovieItem{{Title: "Déjà prévu"}}
	require.NoError(t, AddCustomMovie("déjà prévu")(r))
	assert.Len(t, r.CustomMovies, 1)

	assert.Error(t, AddCustomMovie("   ")(r))

	require.NoError(t, RemoveCustomMovie("Notre film")(r))
	assert.Empty(t, r.CustomMovies)
}

func TestAnswerDailyQuiz(t *testing.T) {
	r := testRoom()
	roomId := "abcd2345"
	q := QuestionFor(countdown.DayKey(testNow), r.TargetISO, roomId)

	require.NoError(t, AnswerDailyQuiz(roomId, "lea", q.Answer, testNow)(r))
	require.NotNil(t, r.DailyQuiz)
	assert.Equal(t, countdown.DayKey(testNow), r.DailyQuiz.DateKey)
	assert.Equal(t, q.Id, r.DailyQuiz.QuestionId)
	require.Contains(t, r.DailyQuiz.Answers, "lea")
	assert.True(t, r.DailyQuiz.Answers["lea"].Correct)

	// first answer is final
	wrong := (q.Answer + 1) % len(q.Options)
	require.NoError(t, AnswerDailyQuiz(roomId, "lea", wrong, testNow)(r))
	assert.Equal(t, q.Answer, r.DailyQuiz.Answers["lea"].Answer)

	// the partner answers independently
	require.NoError(t, AnswerDailyQuiz(roomId, "gauthier", wrong, testNow)(r))
	assert.False(t, r.DailyQuiz.Answers["gauthier"].Correct)

	assert.Error(t, AnswerDailyQuiz(roomId, "lea", -1, testNow)(r))
	assert.Error(t, AnswerDailyQuiz(roomId, "lea", len(q.Options), testNow)(r))
}

func TestAnswerDailyQuizReplacesStaleRecord(t *testing.T) {
	r := testRoom()
	roomId := "abcd2345"
	// yesterday's record, fully answered
	r.DailyQuiz = &types.DailyQuiz{
		DateKey:    "2026-03-01",
		QuestionId: "q01",
		Answers: map[string]types.QuizAnswer{
			"lea":      {Answer: 1},
			"gauthier": {Answer: 2},
		},
	}
	q := QuestionFor(countdown.DayKey(testNow), r.TargetISO, roomId)
	require.NoError(t, AnswerDailyQuiz(roomId, "lea", q.Answer, testNow)(r))
	assert.Equal(t, countdown.DayKey(testNow), r.DailyQuiz.DateKey)
	assert.Len(t, r.DailyQuiz.Answers, 1, "stale answers are gone")
}

func TestSubmitCoupleQuiz(t *testing.T) {
	valentines := time.Date(2026, 2, 14, 18, 0, 0, 0, time.Local)
	answers := make([]string, len(content.CoupleQuestions))
	for i := range answers {
		answers[i] = " réponse "
	}

	r := testRoom()
	require.NoError(t, SubmitCoupleQuiz("lea", answers, valentines)(r))
	require.NotNil(t, r.CoupleQuiz)
	require.Contains(t, r.CoupleQuiz.Answers, "lea")
	assert.Equal(t, "réponse", r.CoupleQuiz.Answers["lea"].Answers[0], "answers are trimmed")

	// first submission is final
	other := make([]string, len(content.CoupleQuestions))
	for i := range other {
		other[i] = "autre"
	}
	require.NoError(t, SubmitCoupleQuiz("lea", other, valentines)(r))
	assert.Equal(t, "réponse", r.CoupleQuiz.Answers["lea"].Answers[0])
}

func TestSubmitCoupleQuizGates(t *testing.T) {
	answers := make([]string, len(content.CoupleQuestions))
	for i := range answers {
		answers[i] = "réponse"
	}

	r := testRoom()
	// closed outside February 14
	assert.Error(t, SubmitCoupleQuiz("lea", answers, testNow)(r))

	valentines := time.Date(2026, 2, 14, 18, 0, 0, 0, time.Local)
	// wrong count
	assert.Error(t, SubmitCoupleQuiz("lea", answers[:1], valentines)(r))
	// blank answer
	answers[2] = "   "
	assert.Error(t, SubmitCoupleQuiz("lea", answers, valentines)(r))
	assert.Nil(t, r.CoupleQuiz)
}
