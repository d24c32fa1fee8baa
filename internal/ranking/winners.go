package ranking

import "errors"

// ErrInsufficientData is returned when fewer qualifying entries exist than
// declared prize places.
var ErrInsufficientData = errors.New("not enough qualifying entries to fill all prize places")

// Winner pairs a prize place with the submission that earned it.
type Winner struct {
	Place        string
	SubmissionID uint
}

// SelectWinners pairs the declared prize places, in order, with the top
// entries of a ranked leaderboard. Only fully-judged entries qualify. The
// caller is responsible for ensuring judging coverage is unanimous before
// invoking; this is a pure pairing step.
func SelectWinners(ranked []Ranked, places []string) ([]Winner, error) {
	qualifying := make([]Ranked, 0, len(ranked))
	for _, r := range ranked {
		if r.JudgingComplete && r.FinalScore != nil {
			qualifying = append(qualifying, r)
		}
	}

	if len(qualifying) < len(places) {
		return nil, ErrInsufficientData
	}

	winners := make([]Winner, 0, len(places))
	for i, place := range places {
		winners = append(winners, Winner{Place: place, SubmissionID: qualifying[i].SubmissionID})
	}

	return winners, nil
}
