package confirm

import (
	"reflect"
	"testing"
)

func rounds(values ...string) []Round {
	out := make([]Round, 0, len(values))
	for _, v := range values {
		if v == "" {
			out = append(out, Absent())
			continue
		}
		out = append(out, Seen(v))
	}
	return out
}

func TestBufferEvictsOldest(t *testing.T) {
	buf := NewBuffer(3)
	for i, denom := range []string{"20", "50", "100", "200", "500"} {
		buf.Push(Seen(denom))
		if buf.Len() > 3 {
			t.Fatalf("after push %d len = %d, want <= 3", i, buf.Len())
		}
	}
	want := rounds("100", "200", "500")
	if got := buf.Rounds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Rounds() = %v, want %v", got, want)
	}
}

func TestBufferRoundsIsCopy(t *testing.T) {
	buf := NewBuffer(2)
	buf.Push(Seen("100"))
	got := buf.Rounds()
	got[0] = Seen("50")
	if buf.Rounds()[0].Denomination != "100" {
		t.Fatal("Rounds() leaked internal storage")
	}
}

func TestBufferReset(t *testing.T) {
	buf := NewBuffer(3)
	buf.Push(Seen("100"))
	buf.Push(Absent())
	buf.Reset()
	if buf.Len() != 0 || buf.Full() {
		t.Fatalf("after Reset len = %d full = %v", buf.Len(), buf.Full())
	}
}

func TestNewBufferClampsCapacity(t *testing.T) {
	if got := NewBuffer(0).Capacity(); got != 1 {
		t.Fatalf("Capacity() = %d, want 1", got)
	}
}

func TestUnanimous(t *testing.T) {
	tests := []struct {
		name   string
		rounds []Round
		want   string
		ok     bool
	}{
		{"all same", rounds("100", "100", "100"), "100", true},
		{"one differs", rounds("100", "100", "50"), "", false},
		{"one absent", rounds("100", "", "100"), "", false},
		{"all absent", rounds("", "", ""), "", false},
		{"empty", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Unanimous(tt.rounds)
			if ok != tt.ok {
				t.Fatalf("Unanimous() ok = %v, want %v", ok, tt.ok)
			}
			if ok && (got.Denomination != tt.want || !got.Unanimous || got.Support != len(tt.rounds)) {
				t.Errorf("Unanimous() = %+v", got)
			}
		})
	}
}

func TestMajority(t *testing.T) {
	tests := []struct {
		name    string
		rounds  []Round
		want    string
		support int
		ok      bool
	}{
		{"two of three", rounds("100", "100", "50"), "100", 2, true},
		{"absent does not vote", rounds("", "50", ""), "50", 1, true},
		{"tie goes to first seen", rounds("50", "100", ""), "50", 1, true},
		{"three way tie", rounds("200", "100", "50"), "200", 1, true},
		{"all absent", rounds("", "", ""), "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Majority(tt.rounds)
			if ok != tt.ok {
				t.Fatalf("Majority() ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Denomination != tt.want || got.Support != tt.support || got.Window != len(tt.rounds) {
				t.Errorf("Majority() = %+v, want %s %d/%d", got, tt.want, tt.support, len(tt.rounds))
			}
		})
	}
}

func TestResultLabel(t *testing.T) {
	if got := (Result{Denomination: "100", Support: 3, Window: 3, Unanimous: true}).Label(); got != "100" {
		t.Errorf("unanimous label = %q", got)
	}
	if got := (Result{Denomination: "100", Support: 2, Window: 3}).Label(); got != "100 (2/3)" {
		t.Errorf("majority label = %q", got)
	}
}

func TestConfirmerLiveRequiresFullUnanimousWindow(t *testing.T) {
	c := New(3)
	if _, ok := c.Observe(Seen("100")); ok {
		t.Fatal("confirmed after one round")
	}
	if _, ok := c.Observe(Seen("100")); ok {
		t.Fatal("confirmed after two rounds")
	}
	result, ok := c.Observe(Seen("100"))
	if !ok || result.Label() != "100" {
		t.Fatalf("third round = %+v, %v; want unanimous 100", result, ok)
	}
}

func TestConfirmerLiveNeverUsesMajority(t *testing.T) {
	c := New(3)
	c.Observe(Seen("100"))
	c.Observe(Seen("100"))
	if result, ok := c.Observe(Seen("50")); ok {
		t.Fatalf("live confirmed %+v from a split window", result)
	}
}

func TestConfirmerLiveSlidingWindowRecovers(t *testing.T) {
	c := New(3)
	for _, denom := range []string{"50", "100", "100"} {
		if _, ok := c.Observe(Seen(denom)); ok {
			t.Fatalf("unexpected confirmation at %s", denom)
		}
	}
	result, ok := c.Observe(Seen("100"))
	if !ok || result.Denomination != "100" {
		t.Fatalf("expected 100 once 50 is evicted, got %+v %v", result, ok)
	}
}

func TestConfirmerBurst(t *testing.T) {
	tests := []struct {
		name  string
		input []Round
		label string
		ok    bool
	}{
		{"unanimous", rounds("100", "100", "100"), "100", true},
		{"majority", rounds("100", "50", "100"), "100 (2/3)", true},
		{"single present", rounds("", "", "20"), "20 (1/3)", true},
		{"all absent", rounds("", "", ""), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(3)
			for _, round := range tt.input {
				c.Record(round)
			}
			if !c.Full() {
				t.Fatal("expected full window")
			}
			result, ok := c.Conclude()
			if ok != tt.ok {
				t.Fatalf("Conclude() ok = %v, want %v", ok, tt.ok)
			}
			if ok && result.Label() != tt.label {
				t.Errorf("Label() = %q, want %q", result.Label(), tt.label)
			}
		})
	}
}

func TestConfirmerReset(t *testing.T) {
	c := New(3)
	c.Observe(Seen("100"))
	c.Observe(Seen("100"))
	c.Reset()
	if len(c.Rounds()) != 0 {
		t.Fatalf("Rounds() after Reset = %v", c.Rounds())
	}
	if _, ok := c.Observe(Seen("100")); ok {
		t.Fatal("confirmed immediately after Reset")
	}
}
