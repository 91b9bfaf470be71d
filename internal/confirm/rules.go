package confirm

import "fmt"

// Result is a confirmed denomination. Support counts the rounds that voted
// for it out of Window.
type Result struct {
	Denomination string `json:"denomination"`
	Support      int    `json:"support"`
	Window       int    `json:"window"`
	Unanimous    bool   `json:"unanimous"`
}

// Label renders the result for display: "100" when unanimous, "100 (2/3)"
// for a majority decision.
func (r Result) Label() string {
	if r.Unanimous {
		return r.Denomination
	}
	return fmt.Sprintf("%s (%d/%d)", r.Denomination, r.Support, r.Window)
}

// Unanimous reports the denomination when every round is the same present
// denomination. An empty window is never unanimous.
func Unanimous(rounds []Round) (Result, bool) {
	if len(rounds) == 0 {
		return Result{}, false
	}
	first := rounds[0]
	if !first.Present {
		return Result{}, false
	}
	for _, round := range rounds[1:] {
		if !round.Present || round.Denomination != first.Denomination {
			return Result{}, false
		}
	}
	return Result{
		Denomination: first.Denomination,
		Support:      len(rounds),
		Window:       len(rounds),
		Unanimous:    true,
	}, true
}

// Majority returns the most frequent present denomination. Ties go to the
// denomination seen first. It reports false when every round is absent.
func Majority(rounds []Round) (Result, bool) {
	counts := make(map[string]int, len(rounds))
	order := make([]string, 0, len(rounds))
	for _, round := range rounds {
		if !round.Present {
			continue
		}
		if _, ok := counts[round.Denomination]; !ok {
			order = append(order, round.Denomination)
		}
		counts[round.Denomination]++
	}
	if len(order) == 0 {
		return Result{}, false
	}
	winner := order[0]
	for _, denom := range order[1:] {
		if counts[denom] > counts[winner] {
			winner = denom
		}
	}
	return Result{
		Denomination: winner,
		Support:      counts[winner],
		Window:       len(rounds),
		Unanimous:    counts[winner] == len(rounds),
	}, true
}
