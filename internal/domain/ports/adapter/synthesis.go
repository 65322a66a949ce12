package adapter

import "context"

// SubmitRequest carries everything the synthesis provider needs for one
// generation request. ImageURI/OutputPrefix are full storage URIs
// (e.g. gs://bucket/path) because the provider reads and writes the bucket
// directly.
type SubmitRequest struct {
	Prompt          string
	ImageURI        string
	ImageMIME       string
	AspectRatio     string
	DurationSeconds int
	SampleCount     int
	Seed            int32
	EnhancePrompt   bool
	OutputPrefix    string
	Style           string
	CameraMotion    string
	Lighting        string
	ColorTone       string
}

// OperationStatus is the provider's view of a long-running operation.
// ErrorMessage and VideoURIs are mutually exclusive; both empty means the
// operation is still running (or the provider has not reported completion,
// which is why the bucket fallback exists).
type OperationStatus struct {
	Name         string
	Done         bool
	ErrorMessage string
	VideoURIs    []string
	Raw          []byte
}

// VideoSynthesizer is the port for the external video generation API.
// Submit returns a handle for a long-running operation; PollOperation
// re-queries it and has no side effects, so callers may retry freely.
type VideoSynthesizer interface {
	Submit(ctx context.Context, req SubmitRequest) (OperationStatus, error)
	PollOperation(ctx context.Context, operationName string) (OperationStatus, error)
}
