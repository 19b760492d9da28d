package metadata

// SelectFit picks one region from candidates according to policy. Candidates must already be
// filtered down to eligible regions (free, not reserved, at least size KiB) and ordered by
// address; ties between equally sized regions go to the lowest address. It returns false
// when candidates is empty.
func SelectFit(policy FitPolicy, size int, candidates []Region) (Region, bool) {
	if len(candidates) == 0 {
		return Region{}, false
	}

	selected := candidates[0]
	switch policy {
	case FitBest:
		for _, candidate := range candidates[1:] {
			if candidate.Size < selected.Size {
				selected = candidate
			}
		}
	case FitWorst:
		for _, candidate := range candidates[1:] {
			if candidate.Size > selected.Size {
				selected = candidate
			}
		}
	}

	return selected, true
}

// EligibleRegions filters regions down to the candidates SelectFit expects for a request of
// size KiB, preserving order
func EligibleRegions(regions []Region, size int) []Region {
	var eligible []Region
	for _, region := range regions {
		if region.Allocatable(size) {
			eligible = append(eligible, region)
		}
	}
	return eligible
}
