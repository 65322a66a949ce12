// File: internal/infra/adapters/synthesis/veo_adapter.go
package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"social-video-orchestrator/internal/domain/ports/adapter"
)

var _ adapter.VideoSynthesizer = (*VeoAdapter)(nil)

// VeoAdapter drives Veo video generation through the official SDK. Generation
// is a long-running operation: Submit returns the operation name, and
// PollOperation re-queries it until the provider reports done.
type VeoAdapter struct {
	client *genai.Client
	model  string
}

func NewVeoAdapter(ctx context.Context, apiKey, baseURL, model string) (*VeoAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("veo: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "veo-3.0-generate-001"
	}
	return &VeoAdapter{client: c, model: model}, nil
}

func (v *VeoAdapter) Submit(ctx context.Context, req adapter.SubmitRequest) (adapter.OperationStatus, error) {
	cfg := &genai.GenerateVideosConfig{
		AspectRatio:    req.AspectRatio,
		NumberOfVideos: int32(req.SampleCount),
		OutputGCSURI:   req.OutputPrefix,
		EnhancePrompt:  req.EnhancePrompt,
	}
	if req.DurationSeconds > 0 {
		d := int32(req.DurationSeconds)
		cfg.DurationSeconds = &d
	}
	if req.Seed > 0 {
		s := req.Seed
		cfg.Seed = &s
	}

	var image *genai.Image
	if req.ImageURI != "" {
		image = &genai.Image{GCSURI: req.ImageURI, MIMEType: req.ImageMIME}
	}

	op, err := v.client.Models.GenerateVideos(ctx, v.model, buildPrompt(req), image, cfg)
	if err != nil {
		return adapter.OperationStatus{}, fmt.Errorf("veo: submit: %w", err)
	}
	return toStatus(op), nil
}

func (v *VeoAdapter) PollOperation(ctx context.Context, operationName string) (adapter.OperationStatus, error) {
	if operationName == "" {
		return adapter.OperationStatus{}, errors.New("veo: empty operation name")
	}
	op, err := v.client.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: operationName}, nil)
	if err != nil {
		return adapter.OperationStatus{}, fmt.Errorf("veo: poll: %w", err)
	}
	return toStatus(op), nil
}

// --- internal ---

// buildPrompt folds the optional style knobs into the prompt text. The SDK's
// video config has no fields for them, and Veo honors such hints textually.
func buildPrompt(req adapter.SubmitRequest) string {
	parts := []string{strings.TrimSpace(req.Prompt)}
	if req.Style != "" {
		parts = append(parts, fmt.Sprintf("%s style", knob(req.Style)))
	}
	if req.CameraMotion != "" {
		parts = append(parts, fmt.Sprintf("camera motion: %s", knob(req.CameraMotion)))
	}
	if req.Lighting != "" {
		parts = append(parts, fmt.Sprintf("%s lighting", knob(req.Lighting)))
	}
	if req.ColorTone != "" {
		parts = append(parts, fmt.Sprintf("%s color tone", knob(req.ColorTone)))
	}
	return strings.Join(parts, ", ")
}

func knob(s string) string { return strings.ReplaceAll(s, "_", " ") }

func toStatus(op *genai.GenerateVideosOperation) adapter.OperationStatus {
	st := adapter.OperationStatus{
		Name: op.Name,
		Done: op.Done,
	}
	if op.Error != nil {
		if msg, ok := op.Error["message"].(string); ok && msg != "" {
			st.ErrorMessage = msg
		} else {
			st.ErrorMessage = fmt.Sprintf("provider error: %v", op.Error)
		}
	}
	if op.Response != nil {
		for _, gv := range op.Response.GeneratedVideos {
			if gv != nil && gv.Video != nil && gv.Video.URI != "" {
				st.VideoURIs = append(st.VideoURIs, gv.Video.URI)
			}
		}
	}
	// Best-effort raw snapshot for the job record; losing it is not fatal.
	if raw, err := json.Marshal(op); err == nil {
		st.Raw = raw
	}
	return st
}
