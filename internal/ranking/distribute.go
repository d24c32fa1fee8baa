// Package ranking holds the pure competition arithmetic: judge workload
// distribution, leaderboard ranking and winner selection. Nothing in this
// package performs I/O; services feed it slices built from repository data.
package ranking

import (
	"errors"
	"math/rand"
)

// ErrNoJudges is returned when a distribution is requested with an empty judge set.
var ErrNoJudges = errors.New("at least one judge is required")

// Distribute partitions submissions across judges in near-equal groups.
//
// The submissions are shuffled with a Fisher-Yates pass and sliced
// contiguously: with remainder r = len(submissionIDs) mod len(judgeIDs), the
// first r judges in input order receive one extra submission. Every input
// submission lands in exactly one group and group sizes never differ by more
// than one.
//
// The random source is injectable so tests can pass a seeded generator; a nil
// rng falls back to the package-level default source.
func Distribute(submissionIDs []uint, judgeIDs []uint, rng *rand.Rand) (map[uint][]uint, error) {
	if len(judgeIDs) == 0 {
		return nil, ErrNoJudges
	}

	shuffled := make([]uint, len(submissionIDs))
	copy(shuffled, submissionIDs)
	for i := len(shuffled) - 1; i >= 1; i-- {
		var j int
		if rng != nil {
			j = rng.Intn(i + 1)
		} else {
			j = rand.Intn(i + 1)
		}
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	base := len(shuffled) / len(judgeIDs)
	remainder := len(shuffled) % len(judgeIDs)

	groups := make(map[uint][]uint, len(judgeIDs))
	cursor := 0
	for i, judgeID := range judgeIDs {
		size := base
		if i < remainder {
			size++
		}
		group := make([]uint, size)
		copy(group, shuffled[cursor:cursor+size])
		groups[judgeID] = group
		cursor += size
	}

	return groups, nil
}
