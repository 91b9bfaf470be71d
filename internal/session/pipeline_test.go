package session

import (
	"context"
	"testing"

	"cashcue/internal/logging"
)

func TestPipelineRoundSelectsBestAllowed(t *testing.T) {
	gw := &scriptGateway{script: []gatewayReply{{records: []map[string]any{
		{"class": "100", "confidence": 0.61},
		{"class": "coin", "confidence": 0.99},
		{"class": "500", "confidence": 0.83},
		{"class": "10", "confidence": 0.1},
	}}}}
	p := NewPipeline(gw, []string{"10", "100", "500"}, 0.25, logging.NewNop())

	out := p.Round(context.Background(), []byte("img"))
	if !out.Round.Present || out.Round.Denomination != "500" {
		t.Fatalf("expected 500, got %+v", out.Round)
	}
	if out.Candidates != 4 || out.Kept != 2 {
		t.Fatalf("expected 4 candidates and 2 kept, got %d/%d", out.Candidates, out.Kept)
	}
	if out.Best.Confidence != 0.83 {
		t.Fatalf("unexpected confidence %v", out.Best.Confidence)
	}
}

func TestPipelineRoundAbsentWhenNothingSurvives(t *testing.T) {
	gw := &scriptGateway{script: []gatewayReply{reply("100", 0.2)}}
	p := NewPipeline(gw, []string{"100"}, 0.25, logging.NewNop())
	out := p.Round(context.Background(), nil)
	if out.Round.Present {
		t.Fatalf("expected absent round, got %+v", out.Round)
	}
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
}

func TestPipelineRoundTreatsInferenceFailureAsAbsent(t *testing.T) {
	gw := &scriptGateway{script: []gatewayReply{failReply()}}
	p := NewPipeline(gw, []string{"100"}, 0.25, logging.NewNop())
	out := p.Round(context.Background(), nil)
	if out.Round.Present {
		t.Fatal("expected absent round on failure")
	}
	if out.Err == nil {
		t.Fatal("expected failure cause to be carried")
	}
}

func TestPipelineRoundThresholdIsInclusive(t *testing.T) {
	gw := &scriptGateway{script: []gatewayReply{reply("200", 0.25)}}
	p := NewPipeline(gw, []string{"200"}, 0.25, logging.NewNop())
	out := p.Round(context.Background(), nil)
	if !out.Round.Present || out.Round.Denomination != "200" {
		t.Fatalf("expected 200 at the threshold, got %+v", out.Round)
	}
}
