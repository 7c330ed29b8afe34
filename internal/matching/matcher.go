package matching

import "peerprep/backend/internal/models"

// Compatible reports whether a and b share a topic, share a difficulty and
// have overlapping time ranges.
func Compatible(a, b models.PreferenceSet) bool {
	_, ok := Agree(a, b)
	return ok
}

// SelectPartner picks the compatible candidate that has waited longest; equal
// arrival times fall back to the lexically smaller user id.
func SelectPartner(req models.PreferenceSet, candidates []*WaitingEntry) (*WaitingEntry, bool) {
	var best *WaitingEntry
	for _, c := range candidates {
		if c.UserID() == req.UserID() || !Compatible(req, c.Preferences) {
			continue
		}
		if best == nil || arrivedBefore(c, best) {
			best = c
		}
	}
	return best, best != nil
}

// Agree computes the terms of a pairing: the smallest common topic, the
// smallest common difficulty and the midpoint of the overlapping time range.
func Agree(a, b models.PreferenceSet) (models.Terms, bool) {
	topic, ok := firstCommon(a.Topics(), b.Topics())
	if !ok {
		return models.Terms{}, false
	}
	difficulty, ok := firstCommon(a.Difficulties(), b.Difficulties())
	if !ok {
		return models.Terms{}, false
	}

	lo := max(a.MinTime(), b.MinTime())
	hi := min(a.MaxTime(), b.MaxTime())
	if lo > hi {
		return models.Terms{}, false
	}

	return models.Terms{Topic: topic, Difficulty: difficulty, Time: lo + (hi-lo)/2}, true
}

// firstCommon walks two sorted label lists and returns their smallest shared value.
func firstCommon(a, b []string) (string, bool) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return a[i], true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return "", false
}
