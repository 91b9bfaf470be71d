package detection

// Best returns the highest-confidence detection. Ties go to the earliest
// entry. The boolean is false when batch is empty.
func Best(batch Batch) (Detection, bool) {
	if len(batch) == 0 {
		return Detection{}, false
	}
	best := batch[0]
	for _, det := range batch[1:] {
		if det.Confidence > best.Confidence {
			best = det
		}
	}
	return best, true
}
