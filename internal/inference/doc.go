// Package inference talks to the bill classifier.
//
// A Gateway takes one encoded still image and returns the raw candidate
// records the classifier produced, untouched, for the detection package to
// normalize. HTTPGateway posts frames to a remote detector service;
// ONNXGateway runs a YOLO-style model in-process through onnxruntime. Both
// report failures as services.ErrTransient so callers can treat a failed call
// as an empty round.
package inference
