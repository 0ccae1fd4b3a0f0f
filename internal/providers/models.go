package providers

import (
	"fmt"
	"sort"
	"strings"
)

// ModelKind distinguishes image and video generation models.
type ModelKind string

const (
	KindImage ModelKind = "image"
	KindVideo ModelKind = "video"
)

// ModelSpec is the capability descriptor for one generation model. Payloads
// are validated against it before submission so oversized or unsupported
// parameters never reach the remote API.
type ModelSpec struct {
	Name               string // CLI-facing name
	APIName            string // model identifier sent to the API
	Kind               ModelKind
	CostUSD            float64 // per successful generation
	MaxPromptLen       int
	SupportsImageInput bool
	SupportsResolution bool
	DefaultAspectRatio string
	DefaultResolution  string
	OutputFormat       string
	// FrameOptions lists allowed n_frames values (video models only).
	FrameOptions []string
	DefaultFrames string
}

var imageModels = map[string]ModelSpec{
	"z-image": {
		Name:               "z-image",
		APIName:            "z-image",
		Kind:               KindImage,
		CostUSD:            0.004,
		MaxPromptLen:       1000,
		SupportsImageInput: false,
		SupportsResolution: false,
		DefaultAspectRatio: "1:1",
	},
	"nano-banana-pro": {
		Name:               "nano-banana-pro",
		APIName:            "nano-banana-pro",
		Kind:               KindImage,
		CostUSD:            0.09,
		MaxPromptLen:       10000,
		SupportsImageInput: true,
		SupportsResolution: true,
		DefaultAspectRatio: "1:1",
		DefaultResolution:  "1K",
		OutputFormat:       "png",
	},
}

var videoModels = map[string]ModelSpec{
	"sora-2": {
		Name:               "sora-2",
		APIName:            "sora-2-image-to-video",
		Kind:               KindVideo,
		CostUSD:            0.50,
		MaxPromptLen:       10000,
		SupportsImageInput: true,
		DefaultAspectRatio: "landscape",
		FrameOptions:       []string{"10", "15"},
		DefaultFrames:      "10",
	},
}

// ImageModel looks up an image model by CLI name.
func ImageModel(name string) (ModelSpec, error) {
	spec, ok := imageModels[name]
	if !ok {
		return ModelSpec{}, fmt.Errorf("unknown image model %q (available: %s)", name, strings.Join(modelNames(imageModels), ", "))
	}
	return spec, nil
}

// VideoModel looks up a video model by CLI name.
func VideoModel(name string) (ModelSpec, error) {
	spec, ok := videoModels[name]
	if !ok {
		return ModelSpec{}, fmt.Errorf("unknown video model %q (available: %s)", name, strings.Join(modelNames(videoModels), ", "))
	}
	return spec, nil
}

func modelNames(m map[string]ModelSpec) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewImageTask builds a createTask request for an image model, truncating
// the prompt to the model's limit and dropping parameters the model does
// not support.
func NewImageTask(spec ModelSpec, prompt, referenceImageURL, aspectRatio, resolution string) *TaskRequest {
	if aspectRatio == "" {
		aspectRatio = spec.DefaultAspectRatio
	}

	req := &TaskRequest{
		Model: spec.APIName,
		Input: TaskInput{
			Prompt:      TruncatePrompt(prompt, spec.MaxPromptLen),
			AspectRatio: aspectRatio,
		},
	}
	if spec.SupportsResolution {
		if resolution == "" {
			resolution = spec.DefaultResolution
		}
		req.Input.Resolution = resolution
	}
	if spec.OutputFormat != "" {
		req.Input.OutputFormat = spec.OutputFormat
	}
	if spec.SupportsImageInput && referenceImageURL != "" {
		req.Input.ImageInput = []string{referenceImageURL}
	}
	return req
}

// NewVideoTask builds a createTask request for an image-to-video model.
// The start image is required and the frame count must be one the model
// offers.
func NewVideoTask(spec ModelSpec, prompt, imageURL, aspectRatio, frames string, removeWatermark bool) (*TaskRequest, error) {
	if imageURL == "" {
		return nil, fmt.Errorf("model %s requires a start image", spec.Name)
	}
	if aspectRatio == "" {
		aspectRatio = spec.DefaultAspectRatio
	}
	if frames == "" {
		frames = spec.DefaultFrames
	}
	if len(spec.FrameOptions) > 0 {
		valid := false
		for _, opt := range spec.FrameOptions {
			if frames == opt {
				valid = true
				break
			}
		}
		if !valid {
			return nil, fmt.Errorf("invalid duration %q for model %s (allowed: %s)", frames, spec.Name, strings.Join(spec.FrameOptions, ", "))
		}
	}

	return &TaskRequest{
		Model: spec.APIName,
		Input: TaskInput{
			Prompt:          TruncatePrompt(prompt, spec.MaxPromptLen),
			ImageURLs:       []string{imageURL},
			AspectRatio:     aspectRatio,
			NFrames:         frames,
			RemoveWatermark: removeWatermark,
			UploadMethod:    "s3",
		},
	}, nil
}
