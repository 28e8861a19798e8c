// Package pick implements deterministic list selection: the same seed string
// picks the same element on every client, with no shared state. Both sides of a
// room must agree bit-for-bit, which is why the hash is defined in fixed-width
// 32-bit arithmetic over UTF-16 code units rather than platform-native ints.
package pick

import (
	"fmt"
	"unicode/utf16"
)

const (
	offsetBasis uint32 = 2166136261
	prime       uint32 = 16777619
)

// Hash is a 32-bit FNV-1a over the seed's UTF-16 code units, with wraparound
// multiplication.
func Hash(seed string) uint32 {
	h := offsetBasis
	for _, cu := range utf16.Encode([]rune(seed)) {
		h ^= uint32(cu)
		h *= prime
	}
	return h
}

// Index maps the seed to a stable index in [0, n). The hash is interpreted as a
// signed 32-bit value and its absolute value taken; changing this arithmetic
// would move every already-unlocked pick.
func Index(n int, seed string) int {
	if n <= 0 {
		return 0
	}
	v := int64(int32(Hash(seed)))
	if v < 0 {
		v = -v
	}
	return int(v % int64(n))
}

// Pick returns the stable choice from list for the seed.
func Pick(list []string, seed string) string {
	if len(list) == 0 {
		return ""
	}
	return list[Index(len(list), seed)]
}

// DailySeed builds the shared per-day seed prefix. The target date is part of
// the seed so a rescheduled reunion reshuffles the remaining days.
func DailySeed(dayKey, targetISO, roomId string) string {
	target := targetISO
	if target == "" {
		target = "no-target"
	}
	return fmt.Sprintf("%s|%s|ROOM:%s", dayKey, target, roomId)
}

// Seed suffixes keep the day's picks independent of each other.
const (
	SuffixLove      = "|LOVE"
	SuffixChallenge = "|CHALLENGE"
	SuffixQuiz      = "|QUIZ"
)
