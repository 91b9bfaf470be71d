package detection

// Filter returns the detections whose denomination is allow-listed and whose
// confidence meets threshold, in input order.
func Filter(batch Batch, allow AllowList, threshold float64) Batch {
	kept := make(Batch, 0, len(batch))
	for _, det := range batch {
		if !allow.Contains(det.Denomination) {
			continue
		}
		if det.Confidence < threshold {
			continue
		}
		kept = append(kept, det)
	}
	return kept
}
