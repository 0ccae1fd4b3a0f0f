package pipeline

import (
	"testing"

	"github.com/creativecloner/cloner/internal/providers"
	"github.com/creativecloner/cloner/internal/store"
)

func TestImageOpEligible(t *testing.T) {
	spec, err := providers.ImageModel("z-image")
	if err != nil {
		t.Fatal(err)
	}
	op := &ImageOp{Model: spec}

	tests := []struct {
		name   string
		record store.Record
		want   bool
	}{
		{
			"prompt and no image",
			store.Record{Fields: store.Fields{StartImagePrompt: "p"}},
			true,
		},
		{
			"no prompt",
			store.Record{},
			false,
		},
		{
			"already has image",
			store.Record{Fields: store.Fields{
				StartImagePrompt: "p",
				StartImage:       []store.Attachment{{URL: "u"}},
			}},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := op.Eligible(&tt.record); got != tt.want {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVideoOpEligible(t *testing.T) {
	spec, err := providers.VideoModel("sora-2")
	if err != nil {
		t.Fatal(err)
	}
	op := &VideoOp{Model: spec}

	withImage := store.Fields{
		VideoPrompt: "p",
		StartImage:  []store.Attachment{{URL: "u"}},
	}
	done := withImage
	done.SceneVideo = []store.Attachment{{URL: "v"}}

	tests := []struct {
		name   string
		fields store.Fields
		want   bool
	}{
		{"image and prompt, no video", withImage, true},
		{"video already attached", done, false},
		{"no image yet", store.Fields{VideoPrompt: "p"}, false},
		{"image but no prompt", store.Fields{StartImage: []store.Attachment{{URL: "u"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := store.Record{Fields: tt.fields}
			if got := op.Eligible(&r); got != tt.want {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClipFilename(t *testing.T) {
	tests := []struct {
		num   int
		label string
		want  string
	}{
		{3, "Scene 3 - Rooftop chase", "scene_3_Scene_3_-_Rooftop_chase.mp4"},
		{1, "", "scene_1.mp4"},
	}
	for _, tt := range tests {
		if got := clipFilename(tt.num, tt.label); got != tt.want {
			t.Errorf("clipFilename(%d, %q) = %q, want %q", tt.num, tt.label, got, tt.want)
		}
	}

	long := clipFilename(2, "Scene 2 - A very long descriptive scene label indeed")
	if len(long) > len("scene_2_")+30+len(".mp4") {
		t.Errorf("long label not capped: %q", long)
	}
}
