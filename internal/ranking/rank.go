package ranking

import (
	"sort"

	"github.com/shopspring/decimal"
)

// UnrankedSentinel is the rank given to entries that have not completed judging.
const UnrankedSentinel = 999

// Entry is the minimal view of a leaderboard row needed to compute ranks.
type Entry struct {
	SubmissionID    uint
	FinalScore      *decimal.Decimal
	JudgingComplete bool
}

// Ranked is an Entry with its computed standing.
type Ranked struct {
	Entry
	Rank   int
	HasTie bool
}

// Rank orders entries and assigns standard competition ("1224") ranks.
//
// Only entries with completed judging and a final score participate: their
// rank is 1 plus the number of entries with a strictly greater score, so tied
// scores share a rank and the following distinct score skips ahead. Every
// member of a tied group gets HasTie set. Remaining entries receive the
// UnrankedSentinel rank and sort after all ranked entries.
//
// Ties and unranked entries are ordered by submission ID ascending, which
// makes the output deterministic regardless of input order.
func Rank(entries []Entry) []Ranked {
	scored := make([]Entry, 0, len(entries))
	unscored := make([]Entry, 0)
	for _, e := range entries {
		if e.JudgingComplete && e.FinalScore != nil {
			scored = append(scored, e)
		} else {
			unscored = append(unscored, e)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		cmp := scored[i].FinalScore.Cmp(*scored[j].FinalScore)
		if cmp != 0 {
			return cmp > 0
		}
		return scored[i].SubmissionID < scored[j].SubmissionID
	})
	sort.SliceStable(unscored, func(i, j int) bool {
		return unscored[i].SubmissionID < unscored[j].SubmissionID
	})

	ranked := make([]Ranked, 0, len(entries))
	for i, e := range scored {
		rank := 1
		for _, other := range scored {
			if other.FinalScore.Cmp(*e.FinalScore) > 0 {
				rank++
			}
		}

		hasTie := false
		if i > 0 && scored[i-1].FinalScore.Cmp(*e.FinalScore) == 0 {
			hasTie = true
		}
		if i < len(scored)-1 && scored[i+1].FinalScore.Cmp(*e.FinalScore) == 0 {
			hasTie = true
		}

		ranked = append(ranked, Ranked{Entry: e, Rank: rank, HasTie: hasTie})
	}

	for _, e := range unscored {
		ranked = append(ranked, Ranked{Entry: e, Rank: UnrankedSentinel})
	}

	return ranked
}
