package inference

import (
	"image"
	"image/color"
	"testing"
)

func tensor(classes int, boxes [][]float32) []float32 {
	anchors := len(boxes)
	rows := 4 + classes
	data := make([]float32, rows*anchors)
	for col, box := range boxes {
		for row := 0; row < rows; row++ {
			data[row*anchors+col] = box[row]
		}
	}
	return data
}

func TestDecodeYOLOKeepsAnchorsAboveFloor(t *testing.T) {
	data := tensor(2, [][]float32{
		{100, 100, 20, 20, 0.9, 0.1},
		{50, 50, 10, 10, 0.02, 0.03},
		{200, 120, 40, 30, 0.2, 0.7},
	})
	lb := letterbox{scale: 1, srcW: 640, srcH: 640}
	got := decodeYOLO(data, 2, 3, 0.05, lb)
	if len(got) != 2 {
		t.Fatalf("decoded %d candidates, want 2", len(got))
	}
	if got[0].class != 0 || got[1].class != 1 {
		t.Fatalf("classes = %d,%d", got[0].class, got[1].class)
	}
}

func TestDecodeYOLOUndoesLetterbox(t *testing.T) {
	data := tensor(1, [][]float32{{330, 250, 100, 50, 0.8}})
	lb := letterbox{scale: 0.5, padX: 10, padY: 0, srcW: 1280, srcH: 960}
	got := decodeYOLO(data, 1, 1, 0.1, lb)
	if len(got) != 1 {
		t.Fatalf("decoded %d candidates", len(got))
	}
	c := got[0]
	if c.cx != 640 || c.cy != 500 || c.w != 200 || c.h != 100 {
		t.Fatalf("candidate = %+v", c)
	}
}

func TestDecodeYOLORejectsShortTensor(t *testing.T) {
	if got := decodeYOLO(make([]float32, 3), 2, 4, 0, letterbox{}); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestNMSSuppressesOverlapsPerClass(t *testing.T) {
	cands := []candidate{
		{class: 0, score: 0.6, cx: 100, cy: 100, w: 50, h: 50},
		{class: 0, score: 0.9, cx: 102, cy: 101, w: 50, h: 50},
		{class: 1, score: 0.5, cx: 100, cy: 100, w: 50, h: 50},
		{class: 0, score: 0.4, cx: 400, cy: 400, w: 50, h: 50},
	}
	kept := nms(cands, 0.45)
	if len(kept) != 3 {
		t.Fatalf("kept %d, want 3: %+v", len(kept), kept)
	}
	if kept[0].score != 0.9 {
		t.Fatalf("highest score not first: %+v", kept[0])
	}
}

func TestToRecordsNormalizesShape(t *testing.T) {
	records := toRecords([]candidate{{class: 1, score: 0.5, cx: 10, cy: 20, w: 30, h: 40}, {class: 9, score: 0.1}}, []string{"50", "100"})
	if records[0]["class"] != "100" {
		t.Fatalf("class = %v", records[0]["class"])
	}
	box := records[0]["bbox"].(map[string]any)
	if box["width"] != float64(30) {
		t.Fatalf("bbox = %v", box)
	}
	if records[1]["class"] != "unknown" {
		t.Fatalf("out-of-range class = %v", records[1]["class"])
	}
}

func TestAnchorCount(t *testing.T) {
	if got := anchorCount(640); got != 8400 {
		t.Fatalf("anchorCount(640) = %d, want 8400", got)
	}
}

func TestFillInputLetterboxesWideImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	size := 64
	dst := make([]float32, 3*size*size)
	lb := fillInput(dst, img, size)
	if lb.scale != 0.32 || lb.padX != 0 || lb.padY != 16 {
		t.Fatalf("letterbox = %+v", lb)
	}
	// top rows are padding, center row is the image
	if dst[0] != float32(letterboxFill)/255 {
		t.Fatalf("padding pixel = %v", dst[0])
	}
	center := 32*size + 32
	if dst[center] != 1 || dst[size*size+center] != 0 {
		t.Fatalf("center pixel r=%v g=%v", dst[center], dst[size*size+center])
	}
}
