package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScenePrompt pairs the image and video prompts derived for one scene.
type ScenePrompt struct {
	SceneNumber      int     `yaml:"scene_number"`
	SceneDescription string  `yaml:"scene_description"`
	Duration         float64 `yaml:"duration"`
	ImagePrompt      string  `yaml:"image_prompt"`
	VideoPrompt      string  `yaml:"video_prompt"`
}

// Metadata carries whole-video context alongside the per-scene prompts.
type Metadata struct {
	TotalScenes   int    `yaml:"total_scenes"`
	TotalDuration string `yaml:"total_duration,omitempty"`
	MusicSound    string `yaml:"music_sound,omitempty"`
}

// PromptSet is the prompts artifact: one prompt pair per analyzed scene.
type PromptSet struct {
	Metadata Metadata      `yaml:"metadata"`
	Prompts  []ScenePrompt `yaml:"prompts"`
}

// BuildPrompts derives an image and a video prompt for every analyzed
// scene. The scene's environment, lighting, and camera direction are
// carried into both prompts unchanged; only the subject is swapped for
// the reference description. The image prompt freezes the first sentence
// of the action as the pose.
func BuildPrompts(analysis *Analysis, subjectDescription string) *PromptSet {
	va := analysis.VideoAnalysis

	set := &PromptSet{
		Metadata: Metadata{
			TotalScenes:   len(va.Scenes),
			TotalDuration: va.OverallDuration,
			MusicSound:    va.MusicSound,
		},
	}

	for _, scene := range va.Scenes {
		pose := scene.Action
		if idx := strings.Index(pose, "."); idx != -1 {
			pose = pose[:idx]
		}

		imagePrompt := fmt.Sprintf(`%s

Setting: %s
Lighting: %s
Camera: %s

The subject is in this position/pose: %s.

Style: Photorealistic, high quality, professional photography
Details: Sharp focus, natural colors, %s`,
			subjectDescription,
			scene.Environment, scene.Lighting, scene.Camera,
			pose,
			strings.ToLower(scene.Lighting),
		)

		videoPrompt := fmt.Sprintf(`Camera Type: %s

Main Movement: %s %s

Setting: %s
Lighting: %s

Motion details: %s
Duration: %g seconds

Style: Smooth, natural motion, high quality video, realistic physics`,
			scene.Camera,
			subjectDescription, scene.Action,
			scene.Environment, scene.Lighting,
			scene.Action, scene.Duration,
		)

		set.Prompts = append(set.Prompts, ScenePrompt{
			SceneNumber:      scene.SceneNumber,
			SceneDescription: scene.Description,
			Duration:         scene.Duration,
			ImagePrompt:      strings.TrimSpace(imagePrompt),
			VideoPrompt:      strings.TrimSpace(videoPrompt),
		})
	}

	return set
}

// LoadPrompts reads and parses a prompts artifact.
func LoadPrompts(path string) (*PromptSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}

	var set PromptSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse prompts %s: %w", path, err)
	}
	if len(set.Prompts) == 0 {
		return nil, fmt.Errorf("prompts %s contains no scenes", path)
	}
	return &set, nil
}

// SavePrompts writes the prompts artifact, creating parent directories
// as needed.
func SavePrompts(path string, set *PromptSet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	data, err := yaml.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal prompts: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write prompts: %w", err)
	}
	return nil
}
