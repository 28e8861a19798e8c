package pick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	assert.Equal(t, uint32(440920331), Hash("abc"))
	assert.Equal(t, uint32(2166136261), Hash(""))
	// hashing operates on UTF-16 code units, so astral-plane runes count twice
	assert.Equal(t, uint32(1991222768), Hash("café 💛"))
}

func TestHashKnownSeeds(t *testing.T) {
	assert.Equal(t, uint32(1755339648), Hash("demo-seed"))
	assert.Equal(t, uint32(1720783230), Hash("2026-02-14|no-target|ROOM:gauthier-lea-2026-coeur|LOVE"))
	assert.Equal(t, uint32(4073936527), Hash("2026-02-14|no-target|ROOM:gauthier-lea-2026-coeur|CHALLENGE"))
	assert.Equal(t, uint32(3082869155), Hash("2026-02-14|no-target|ROOM:gauthier-lea-2026-coeur|QUIZ"))
}

func TestIndex(t *testing.T) {
	seed := DailySeed("2026-02-14", "", "gauthier-lea-2026-coeur")
	require.Equal(t, "2026-02-14|no-target|ROOM:gauthier-lea-2026-coeur", seed)
	assert.Equal(t, 22, Index(29, seed+SuffixLove))
	assert.Equal(t, 15, Index(21, seed+SuffixChallenge))
	assert.Equal(t, 5, Index(12, seed+SuffixQuiz))
}

func TestIndexStable(t *testing.T) {
	first := Index(29, "some seed")
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Index(29, "some seed"))
	}
}

func TestIndexRange(t *testing.T) {
	seeds := []string{"", "a", "zz", "2026-01-01|no-target|ROOM:x|LOVE", "💖💖💖"}
	for _, seed := range seeds {
		for _, n := range []int{1, 2, 5, 29} {
			idx := Index(n, seed)
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, n)
		}
	}
	assert.Equal(t, 0, Index(0, "whatever"))
	assert.Equal(t, 0, Index(-3, "whatever"))
}

func TestPick(t *testing.T) {
	list := []string{"a", "b", "c"}
	assert.Equal(t, list[Index(3, "s")], Pick(list, "s"))
	assert.Equal(t, "", Pick(nil, "s"))
}

func TestDailySeed(t *testing.T) {
	assert.Equal(t, "2026-03-01|2026-03-20T12:00:00+01:00|ROOM:abcd2345",
		DailySeed("2026-03-01", "2026-03-20T12:00:00+01:00", "abcd2345"))
	// a rescheduled target reshuffles the remaining days
	assert.NotEqual(t,
		DailySeed("2026-03-01", "2026-03-20T12:00:00+01:00", "abcd2345"),
		DailySeed("2026-03-01", "2026-03-21T12:00:00+01:00", "abcd2345"))
}

func TestSuffixesIndependent(t *testing.T) {
	seed := DailySeed("2026-02-14", "", "gauthier-lea-2026-coeur")
	assert.NotEqual(t, Hash(seed+SuffixLove), Hash(seed+SuffixChallenge))
	assert.NotEqual(t, Hash(seed+SuffixLove), Hash(seed+SuffixQuiz))
}
