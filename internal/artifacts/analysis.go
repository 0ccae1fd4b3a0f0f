// Package artifacts defines the on-disk YAML artifacts the pipeline
// stages exchange: the scene analysis of a source video and the derived
// per-scene prompt set.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// AnalysisPrompt asks for a scene-by-scene breakdown of a video using
// the SEALCaM framework, formatted as YAML.
const AnalysisPrompt = `
Analyze this video using the SEALCaM framework (Scene, Environment, Action, Lighting, Camera, Music).

Break down the video into distinct scenes and for each scene provide:

1. **Scene Number**: Sequential numbering
2. **Scene Description**: Brief overview of what's happening
3. **Subject**: The main focus (person, object, character)
4. **Environment**: Setting/location/background
5. **Action**: What motion or activity is occurring
6. **Lighting**: Lighting style (natural, studio, dramatic, soft, etc.)
7. **Camera**: Camera angle and movement (static, pan, zoom, tracking, POV, etc.)
8. **Duration**: Approximate duration of the scene in seconds

Also provide:
- **Overall Music/Sound**: Description of background music, sound effects, or audio style

Format your response as a structured analysis that can be easily parsed into YAML.
Use clear section headers and consistent formatting.

Example format:
---
video_analysis:
  overall_duration: X seconds
  total_scenes: N
  music_sound: "Description of audio/music"

  scenes:
    - scene_number: 1
      description: "..."
      subject: "..."
      environment: "..."
      action: "..."
      lighting: "..."
      camera: "..."
      duration: X

    - scene_number: 2
      description: "..."
      ...

Now analyze the provided video.
`

// DescribePrompt asks for a short generation-ready description of the
// reference subject in an image.
const DescribePrompt = `
Describe this product/character in detail for use in image generation prompts.

Focus on:
- What is it? (person, product, character, mascot, etc.)
- Key visual features (colors, shape, distinctive elements)
- Style (realistic, cartoon, 3D render, etc.)
- Any text, logos, or branding
- Size/scale context if relevant

Be specific and descriptive but concise (2-3 sentences).
This description will be used to generate images of this subject in different scenes.
`

// Scene is one analyzed scene of the source video.
type Scene struct {
	SceneNumber int     `yaml:"scene_number"`
	Description string  `yaml:"description"`
	Subject     string  `yaml:"subject"`
	Environment string  `yaml:"environment"`
	Action      string  `yaml:"action"`
	Lighting    string  `yaml:"lighting"`
	Camera      string  `yaml:"camera"`
	Duration    float64 `yaml:"duration"`
}

// VideoAnalysis is the scene breakdown of a whole video.
type VideoAnalysis struct {
	OverallDuration string  `yaml:"overall_duration,omitempty"`
	TotalScenes     int     `yaml:"total_scenes,omitempty"`
	MusicSound      string  `yaml:"music_sound,omitempty"`
	Scenes          []Scene `yaml:"scenes,omitempty"`
	RawAnalysis     string  `yaml:"raw_analysis,omitempty"`
	Note            string  `yaml:"note,omitempty"`
}

// Analysis is the top-level analysis artifact.
type Analysis struct {
	VideoAnalysis VideoAnalysis `yaml:"video_analysis"`
}

var yamlFence = regexp.MustCompile("(?s)```ya?ml\n(.*?)\n```")

// ExtractYAML pulls the YAML document out of a model reply. It prefers a
// fenced yaml code block, then a bare document starting at the first
// "---" marker, then the whole text. Replies that do not parse as YAML
// at all are wrapped into a raw_analysis document so the artifact is
// still written and inspectable.
func ExtractYAML(text string) string {
	if m := yamlFence.FindStringSubmatch(text); m != nil {
		candidate := strings.TrimSpace(m[1])
		if yamlValid(candidate) {
			return candidate
		}
	}

	if strings.Contains(text, "---") || strings.Contains(text, "video_analysis:") {
		candidate := text
		if idx := strings.Index(text, "---"); idx != -1 {
			candidate = text[idx:]
		}
		if yamlValid(candidate) {
			return candidate
		}
	}

	wrapped, err := yaml.Marshal(Analysis{VideoAnalysis: VideoAnalysis{
		RawAnalysis: text,
		Note:        "Analysis returned in text format - may need manual parsing",
	}})
	if err != nil {
		return text
	}
	return string(wrapped)
}

func yamlValid(text string) bool {
	var probe any
	return yaml.Unmarshal([]byte(text), &probe) == nil
}

// LoadAnalysis reads and parses an analysis artifact.
func LoadAnalysis(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read analysis: %w", err)
	}

	var analysis Analysis
	if err := yaml.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("parse analysis %s: %w", path, err)
	}
	if len(analysis.VideoAnalysis.Scenes) == 0 && analysis.VideoAnalysis.RawAnalysis == "" {
		return nil, fmt.Errorf("analysis %s contains no scenes", path)
	}
	return &analysis, nil
}

// SaveAnalysis writes the raw YAML text of an analysis, creating parent
// directories as needed.
func SaveAnalysis(path, yamlText string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(yamlText), 0o644); err != nil {
		return fmt.Errorf("write analysis: %w", err)
	}
	return nil
}
