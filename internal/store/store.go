// Package store persists scene records in Airtable. Scene progress is
// derived from which artifact fields are populated rather than tracked in
// a separate status column, so a record can always be re-read to decide
// what work remains.
package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Field names in the scene table.
const (
	FieldProjectName      = "Project Name"
	FieldScene            = "scene"
	FieldStartImagePrompt = "start_image_prompt"
	FieldVideoPrompt      = "video_prompt"
	FieldStartImage       = "start_image"
	FieldSceneVideo       = "scene_video"
)

// Attachment is one entry in an Airtable attachment field. Only the URL
// is required when writing; Airtable fills in the rest on ingest.
type Attachment struct {
	ID       string `json:"id,omitempty"`
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
}

// Fields holds the scene columns. Prompt columns are plain text, artifact
// columns are attachments.
type Fields struct {
	ProjectName      string       `json:"Project Name,omitempty"`
	Scene            string       `json:"scene,omitempty"`
	StartImagePrompt string       `json:"start_image_prompt,omitempty"`
	VideoPrompt      string       `json:"video_prompt,omitempty"`
	StartImage       []Attachment `json:"start_image,omitempty"`
	SceneVideo       []Attachment `json:"scene_video,omitempty"`
}

// Record is one scene row.
type Record struct {
	ID     string `json:"id,omitempty"`
	Fields Fields `json:"fields"`
}

// HasImage reports whether a start image has been attached.
func (r *Record) HasImage() bool {
	return len(r.Fields.StartImage) > 0
}

// HasVideo reports whether a scene video has been attached.
func (r *Record) HasVideo() bool {
	return len(r.Fields.SceneVideo) > 0
}

// EligibleForVideo reports whether the scene is ready for video
// generation: it has a start image but no video yet.
func (r *Record) EligibleForVideo() bool {
	return r.HasImage() && !r.HasVideo()
}

// ImageURL returns the URL of the first start image attachment, or ""
// when none is present.
func (r *Record) ImageURL() string {
	if !r.HasImage() {
		return ""
	}
	return r.Fields.StartImage[0].URL
}

// SceneNumber parses the leading number out of a scene label like
// "Scene 3 - Rooftop chase". Labels that do not parse sort last, so the
// second return is the parse success flag.
func (r *Record) SceneNumber() (int, bool) {
	label := strings.TrimSpace(r.Fields.Scene)
	lower := strings.ToLower(label)
	if rest, ok := strings.CutPrefix(lower, "scene"); ok {
		label = strings.TrimSpace(rest)
	}
	numEnd := 0
	for numEnd < len(label) && label[numEnd] >= '0' && label[numEnd] <= '9' {
		numEnd++
	}
	if numEnd == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(label[:numEnd])
	if err != nil {
		return 0, false
	}
	return n, true
}

// SceneLabel builds the canonical scene label. Long titles are cut to
// keep labels readable in table views.
func SceneLabel(number int, title string) string {
	title = strings.TrimSpace(title)
	if len(title) > 50 {
		title = title[:47] + "..."
	}
	if title == "" {
		return fmt.Sprintf("Scene %d", number)
	}
	return fmt.Sprintf("Scene %d - %s", number, title)
}
