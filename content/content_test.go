package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The deterministic picks hash modulo the list lengths, so the lengths are
// part of the shared contract with already-unlocked days.
func TestListLengths(t *testing.T) {
	assert.Len(t, LoveNotes, 29)
	assert.Len(t, Challenges, 21)
	assert.Len(t, QuizQuestions, 12)
	assert.Len(t, CoupleQuestions, 5)
	assert.Len(t, DefaultMovies, 5)
}

func TestQuizQuestionsWellFormed(t *testing.T) {
	seen := make(map[string]bool)
	for _, q := range QuizQuestions {
		assert.NotEmpty(t, q.Id)
		assert.False(t, seen[q.Id], "duplicate id %s", q.Id)
		seen[q.Id] = true
		assert.NotEmpty(t, q.Question)
		assert.GreaterOrEqual(t, len(q.Options), 2)
		assert.GreaterOrEqual(t, q.Answer, 0)
		assert.Less(t, q.Answer, len(q.Options))
	}
}

func TestParticipantLabel(t *testing.T) {
	assert.Equal(t, "Léa", ParticipantLabel("lea"))
	assert.Equal(t, "Gauthier", ParticipantLabel("gauthier"))
	assert.Equal(t, "Quelqu'un", ParticipantLabel("someone@example.com"))
	assert.Equal(t, "Quelqu'un", ParticipantLabel(""))
}
