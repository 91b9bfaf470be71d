package inference

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // register decoders for camera frames and uploads
	_ "image/png"
	"log/slog"
	"strings"
	"sync"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"

	"cashcue/internal/logging"
	"cashcue/internal/services"
)

const (
	onnxInputName  = "images"
	onnxOutputName = "output0"
	letterboxFill  = 114
)

var (
	envMu   sync.Mutex
	envRefs int
)

// ONNXOptions describes a local YOLO-style detection model.
type ONNXOptions struct {
	ModelPath     string
	SharedLibrary string
	Labels        []string
	InputSize     int
	ScoreFloor    float64
	IOUThreshold  float64
}

// ONNXGateway runs a YOLOv8-format model exported with a single
// [1, 4+classes, anchors] output.
type ONNXGateway struct {
	opts    ONNXOptions
	logger  *slog.Logger
	anchors int

	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewONNXGateway loads the model and allocates its tensors.
func NewONNXGateway(opts ONNXOptions, logger *slog.Logger) (*ONNXGateway, error) {
	if strings.TrimSpace(opts.ModelPath) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "inference", "onnx", "model path required", nil)
	}
	if len(opts.Labels) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "inference", "onnx", "labels required", nil)
	}
	if opts.InputSize <= 0 {
		opts.InputSize = 640
	}
	if opts.IOUThreshold <= 0 {
		opts.IOUThreshold = 0.45
	}

	if err := acquireEnvironment(opts.SharedLibrary); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "inference", "onnx", "initialize runtime", err)
	}

	size := int64(opts.InputSize)
	anchors := anchorCount(opts.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		releaseEnvironment()
		return nil, services.Wrap(services.ErrConfiguration, "inference", "onnx", "create input tensor", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+len(opts.Labels)), int64(anchors)))
	if err != nil {
		input.Destroy()
		releaseEnvironment()
		return nil, services.Wrap(services.ErrConfiguration, "inference", "onnx", "create output tensor", err)
	}
	session, err := ort.NewAdvancedSession(opts.ModelPath,
		[]string{onnxInputName}, []string{onnxOutputName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		releaseEnvironment()
		return nil, services.Wrap(services.ErrConfiguration, "inference", "onnx", "create session", err)
	}

	g := &ONNXGateway{
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "inference"),
		anchors: anchors,
		session: session,
		input:   input,
		output:  output,
	}
	g.logger.Info("onnx model loaded",
		logging.String("model_path", opts.ModelPath),
		logging.Int("input_size", opts.InputSize),
		logging.Int("classes", len(opts.Labels)),
	)
	return g, nil
}

// Infer decodes image, runs the model and returns NMS-filtered records.
func (g *ONNXGateway) Infer(ctx context.Context, data []byte) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "inference", "onnx", "decode image", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil, services.Wrap(services.ErrTransient, "inference", "onnx", "gateway closed", nil)
	}

	lb := fillInput(g.input.GetData(), img, g.opts.InputSize)
	if err := g.session.Run(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "inference", "onnx", "run session", err)
	}
	cands := decodeYOLO(g.output.GetData(), len(g.opts.Labels), g.anchors, float32(g.opts.ScoreFloor), lb)
	kept := nms(cands, float32(g.opts.IOUThreshold))
	g.logger.Debug("onnx inference complete",
		logging.Int("candidates", len(cands)),
		logging.Int("kept", len(kept)),
	)
	return toRecords(kept, g.opts.Labels), nil
}

// Close releases the session and tensors.
func (g *ONNXGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil
	}
	var firstErr error
	if err := g.session.Destroy(); err != nil {
		firstErr = err
	}
	if err := g.input.Destroy(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := g.output.Destroy(); err != nil && firstErr == nil {
		firstErr = err
	}
	g.session, g.input, g.output = nil, nil, nil
	releaseEnvironment()
	return firstErr
}

func acquireEnvironment(sharedLibrary string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 {
		if lib := strings.TrimSpace(sharedLibrary); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("initialize onnx environment: %w", err)
		}
	}
	envRefs++
	return nil
}

func releaseEnvironment() {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 {
		return
	}
	envRefs--
	if envRefs == 0 {
		_ = ort.DestroyEnvironment()
	}
}

// fillInput letterboxes img onto a size x size canvas and writes it to dst as
// normalized CHW floats.
func fillInput(dst []float32, img image.Image, size int) letterbox {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	lb := letterbox{scale: 1, srcW: float32(srcW), srcH: float32(srcH)}
	if srcW == 0 || srcH == 0 {
		return lb
	}

	scale := min(float32(size)/float32(srcW), float32(size)/float32(srcH))
	newW := max(1, int(float32(srcW)*scale))
	newH := max(1, int(float32(srcH)*scale))
	scaled := resize.Resize(uint(newW), uint(newH), img, resize.Bilinear)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.RGBA{letterboxFill, letterboxFill, letterboxFill, 255}}, image.Point{}, draw.Src)
	offX := (size - newW) / 2
	offY := (size - newH) / 2
	draw.Draw(canvas, image.Rect(offX, offY, offX+newW, offY+newH), scaled, scaled.Bounds().Min, draw.Src)

	plane := size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := canvas.PixOffset(x, y)
			idx := y*size + x
			dst[idx] = float32(canvas.Pix[i]) / 255
			dst[plane+idx] = float32(canvas.Pix[i+1]) / 255
			dst[2*plane+idx] = float32(canvas.Pix[i+2]) / 255
		}
	}

	lb.scale = scale
	lb.padX = float32(offX)
	lb.padY = float32(offY)
	return lb
}
