package detection

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

var (
	labelKeys      = []string{"class", "label", "name", "class_name", "denomination"}
	confidenceKeys = []string{"confidence", "score", "conf", "probability"}
	boxKeys        = []string{"bbox", "box", "bounding_box"}
	widthKeys      = []string{"width", "w"}
	heightKeys     = []string{"height", "h"}
)

// Normalize maps one raw inference record onto a Detection. Missing or
// malformed fields fall back to zero values; it never fails.
func Normalize(raw map[string]any) Detection {
	if raw == nil {
		return Detection{Denomination: UnknownDenomination}
	}
	det := Detection{
		Denomination: resolveLabel(raw),
		Confidence:   sanitizeConfidence(firstNumber(raw, confidenceKeys)),
	}

	box := raw
	for _, key := range boxKeys {
		if nested, ok := raw[key].(map[string]any); ok {
			box = nested
			break
		}
	}
	det.Box = BoundingBox{
		X:      firstNumber(box, []string{"x"}),
		Y:      firstNumber(box, []string{"y"}),
		Width:  firstNumber(box, widthKeys),
		Height: firstNumber(box, heightKeys),
	}
	return det
}

// NormalizeAll applies Normalize to every record, preserving order.
func NormalizeAll(records []map[string]any) Batch {
	batch := make(Batch, 0, len(records))
	for _, record := range records {
		batch = append(batch, Normalize(record))
	}
	return batch
}

func resolveLabel(raw map[string]any) string {
	for _, key := range labelKeys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		if label := labelString(value); label != "" {
			return label
		}
	}
	return UnknownDenomination
}

func labelString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return formatNumber(f)
		}
		return strings.TrimSpace(v.String())
	case float64:
		return formatNumber(v)
	case float32:
		return formatNumber(float64(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func firstNumber(raw map[string]any, keys []string) float64 {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok {
			continue
		}
		if f, ok := toFloat(value); ok {
			return f
		}
	}
	return 0
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func sanitizeConfidence(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}
