package domain

// MinSelectionWeight keeps every candidate selectable whatever its parsed
// talkativeness.
const MinSelectionWeight = 0.01

type Candidate struct {
	ID     PersonaID
	Weight float64
}

// PickWeighted returns the candidate whose cumulative weight first reaches
// u*total, where u is a uniform draw in [0,1). It only reports false for an
// empty candidate list.
func PickWeighted(candidates []Candidate, u float64) (PersonaID, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	cumulative := make([]float64, len(candidates))
	total := 0.0
	for i, candidate := range candidates {
		total += max(MinSelectionWeight, candidate.Weight)
		cumulative[i] = total
	}

	r := u * total
	for i, sum := range cumulative {
		if sum >= r {
			return candidates[i].ID, true
		}
	}

	return candidates[len(candidates)-1].ID, true
}
