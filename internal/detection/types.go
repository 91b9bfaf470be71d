package detection

// UnknownDenomination is assigned to records that carry no usable label.
const UnknownDenomination = "unknown"

// BoundingBox locates a detection in source-image pixels. X and Y are the
// box center.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one canonical candidate produced by the classifier.
type Detection struct {
	Denomination string      `json:"denomination"`
	Confidence   float64     `json:"confidence"`
	Box          BoundingBox `json:"box"`
}

// Batch holds all detections returned by a single inference call.
type Batch []Detection

// AllowList is the set of denominations the pipeline is willing to confirm.
type AllowList map[string]struct{}

// NewAllowList builds an AllowList from denomination labels.
func NewAllowList(labels ...string) AllowList {
	allow := make(AllowList, len(labels))
	for _, label := range labels {
		allow[label] = struct{}{}
	}
	return allow
}

// Contains reports whether denomination is allow-listed.
func (a AllowList) Contains(denomination string) bool {
	_, ok := a[denomination]
	return ok
}
