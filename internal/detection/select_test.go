package detection

import "testing"

func TestBest(t *testing.T) {
	tests := []struct {
		name   string
		batch  Batch
		want   Detection
		wantOK bool
	}{
		{"empty", nil, Detection{}, false},
		{
			name:   "single",
			batch:  Batch{{Denomination: "100", Confidence: 0.4}},
			want:   Detection{Denomination: "100", Confidence: 0.4},
			wantOK: true,
		},
		{
			name: "maximum confidence",
			batch: Batch{
				{Denomination: "50", Confidence: 0.4},
				{Denomination: "100", Confidence: 0.9},
				{Denomination: "200", Confidence: 0.7},
			},
			want:   Detection{Denomination: "100", Confidence: 0.9},
			wantOK: true,
		},
		{
			name: "tie goes to first",
			batch: Batch{
				{Denomination: "50", Confidence: 0.8},
				{Denomination: "100", Confidence: 0.8},
			},
			want:   Detection{Denomination: "50", Confidence: 0.8},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Best(tt.batch)
			if ok != tt.wantOK {
				t.Fatalf("Best() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Best() = %+v, want %+v", got, tt.want)
			}
			for _, det := range tt.batch {
				if det.Confidence > got.Confidence {
					t.Errorf("found %+v above selected %+v", det, got)
				}
			}
		})
	}
}
