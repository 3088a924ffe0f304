package server

// tallyVotes computes the ejection outcome for one voting close. Skip votes
// never nominate anyone; a strict skip majority (skip > total/2) cancels any
// plurality winner, and a tie between the top non-skip targets cancels the
// ejection with Tie set.
func tallyVotes(votes map[string]string) VoteTally {
	tally := VoteTally{Counts: make(map[string]int)}
	for _, target := range votes {
		tally.Counts[target]++
	}

	maxVotes := 0
	for target, count := range tally.Counts {
		if target == VoteSkip {
			continue
		}
		if count > maxVotes {
			maxVotes = count
			tally.EjectedID = target
			tally.Tie = false
		} else if count == maxVotes && count > 0 {
			tally.Tie = true
		}
	}

	if tally.Counts[VoteSkip] > len(votes)/2 {
		tally.EjectedID = ""
		tally.Tie = false
		return tally
	}
	if tally.Tie {
		tally.EjectedID = ""
	}
	return tally
}
