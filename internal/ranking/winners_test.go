package ranking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectWinnersTopEntriesMatchPlaces(t *testing.T) {
	entries := []Entry{
		{SubmissionID: 1, FinalScore: score(92), JudgingComplete: true},
		{SubmissionID: 2, FinalScore: score(88), JudgingComplete: true},
		{SubmissionID: 3, FinalScore: score(75), JudgingComplete: true},
		{SubmissionID: 4, FinalScore: score(60), JudgingComplete: true},
		{SubmissionID: 5, FinalScore: score(40), JudgingComplete: true},
	}

	winners, err := SelectWinners(Rank(entries), []string{"first", "second", "third"})
	require.NoError(t, err)
	require.Equal(t, []Winner{
		{Place: "first", SubmissionID: 1},
		{Place: "second", SubmissionID: 2},
		{Place: "third", SubmissionID: 3},
	}, winners)
}

func TestSelectWinnersInsufficientData(t *testing.T) {
	entries := []Entry{
		{SubmissionID: 1, FinalScore: score(92), JudgingComplete: true},
		{SubmissionID: 2, FinalScore: score(88), JudgingComplete: true},
	}

	_, err := SelectWinners(Rank(entries), []string{"first", "second", "third"})
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestSelectWinnersSkipsIncompleteEntries(t *testing.T) {
	entries := []Entry{
		{SubmissionID: 1, FinalScore: score(99), JudgingComplete: false},
		{SubmissionID: 2, FinalScore: score(80), JudgingComplete: true},
		{SubmissionID: 3, FinalScore: score(70), JudgingComplete: true},
	}

	winners, err := SelectWinners(Rank(entries), []string{"first", "second"})
	require.NoError(t, err)
	require.Equal(t, uint(2), winners[0].SubmissionID)
	require.Equal(t, uint(3), winners[1].SubmissionID)
}
