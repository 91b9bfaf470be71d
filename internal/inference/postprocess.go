package inference

import "sort"

// candidate is a decoded model box in source-image pixels, center origin.
type candidate struct {
	class int
	score float32
	cx    float32
	cy    float32
	w     float32
	h     float32
}

// letterbox records how a source image was scaled and padded onto the square
// model input.
type letterbox struct {
	scale float32
	padX  float32
	padY  float32
	srcW  float32
	srcH  float32
}

// decodeYOLO reads a [1, 4+classes, anchors] tensor laid out row-major and
// keeps anchors whose best class score reaches floor.
func decodeYOLO(data []float32, classes, anchors int, floor float32, lb letterbox) []candidate {
	rows := 4 + classes
	if classes <= 0 || anchors <= 0 || len(data) < rows*anchors {
		return nil
	}
	at := func(row, col int) float32 { return data[row*anchors+col] }

	out := make([]candidate, 0, 16)
	for i := 0; i < anchors; i++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < classes; c++ {
			if s := at(4+c, i); s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || bestScore < floor {
			continue
		}
		scale := lb.scale
		if scale <= 0 {
			scale = 1
		}
		cx := (at(0, i) - lb.padX) / scale
		cy := (at(1, i) - lb.padY) / scale
		w := at(2, i) / scale
		h := at(3, i) / scale
		out = append(out, candidate{
			class: best,
			score: bestScore,
			cx:    clamp(cx, 0, lb.srcW),
			cy:    clamp(cy, 0, lb.srcH),
			w:     w,
			h:     h,
		})
	}
	return out
}

// nms applies per-class non-maximum suppression, returning survivors in
// descending score order.
func nms(cands []candidate, iouThreshold float32) []candidate {
	sorted := append([]candidate(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].score > sorted[j].score })

	kept := make([]candidate, 0, len(sorted))
	for _, c := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.class == c.class && iou(k, c) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}
	return kept
}

func iou(a, b candidate) float32 {
	ax0, ay0, ax1, ay1 := a.cx-a.w/2, a.cy-a.h/2, a.cx+a.w/2, a.cy+a.h/2
	bx0, by0, bx1, by1 := b.cx-b.w/2, b.cy-b.h/2, b.cx+b.w/2, b.cy+b.h/2
	iw := max(0, min(ax1, bx1)-max(ax0, bx0))
	ih := max(0, min(ay1, by1)-max(ay0, by0))
	inter := iw * ih
	union := a.w*a.h + b.w*b.h - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clamp(v, lo, hi float32) float32 {
	if hi > lo {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
	}
	return v
}

// anchorCount returns the YOLOv8 prediction count for a square input at
// strides 8, 16 and 32.
func anchorCount(size int) int {
	total := 0
	for _, stride := range []int{8, 16, 32} {
		n := size / stride
		total += n * n
	}
	return total
}

func toRecords(cands []candidate, labels []string) []map[string]any {
	records := make([]map[string]any, 0, len(cands))
	for _, c := range cands {
		label := "unknown"
		if c.class >= 0 && c.class < len(labels) {
			label = labels[c.class]
		}
		records = append(records, map[string]any{
			"class":      label,
			"confidence": float64(c.score),
			"bbox": map[string]any{
				"x":      float64(c.cx),
				"y":      float64(c.cy),
				"width":  float64(c.w),
				"height": float64(c.h),
			},
		})
	}
	return records
}
