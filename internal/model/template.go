package model

import "fmt"

// Template is a reusable declarative description of a video: an ordered
// list of scenes, each an ordered list of segments, plus output settings.
type Template struct {
	TemplateID     string         `json:"template_id"`
	TemplateName   string         `json:"template_name" validate:"required"`
	Description    string         `json:"description,omitempty"`
	Scenes         []Scene        `json:"scenes" validate:"required,min=1"`
	OutputSettings OutputSettings `json:"output_settings"`
	CreatedAt      string         `json:"created_at,omitempty"`
	UpdatedAt      string         `json:"updated_at,omitempty"`
	IsDefault      bool           `json:"is_default"`
}

// Scene groups segments that share one set of request images.
type Scene struct {
	SceneNumber int       `json:"scene_number"`
	Segments    []Segment `json:"segments" validate:"required,min=1"`
}

// Segment declares one clip slot: a type (resolving to a split half or a
// full-frame role), a positive duration, and a layout position hint.
type Segment struct {
	Type     string  `json:"type" validate:"required"`
	Duration float64 `json:"duration" validate:"required,gt=0"`
	Position string  `json:"position,omitempty"`
}

// OutputSettings describe the rendered container.
type OutputSettings struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	FPS    int    `json:"fps"`
	Format string `json:"format"`
	Codec  string `json:"codec"`
}

// DefaultOutputSettings is applied where a template leaves settings unset.
var DefaultOutputSettings = OutputSettings{
	Width:  720,
	Height: 1280,
	FPS:    30,
	Format: "mp4",
	Codec:  "libx264",
}

// Key returns the AssetMap key for the scene ("scene_<n>").
func (s Scene) Key() string {
	return fmt.Sprintf("scene_%d", s.SceneNumber)
}

// TotalDuration sums all declared segment durations. Split pairs declare
// their shared duration twice, but render as one clip, so the pair
// contributes once here via the collapse in SceneDuration.
func (t *Template) TotalDuration() float64 {
	var total float64
	for _, sc := range t.Scenes {
		total += sc.Duration()
	}
	return total
}

// Duration returns the scene's rendered duration: split pairs count once.
func (s Scene) Duration() float64 {
	var total float64
	for _, seg := range s.Segments {
		if seg.Type == SegmentSplitBottom {
			continue // rendered together with its split_top
		}
		total += seg.Duration
	}
	return total
}

// Normalize fills unset output settings from the defaults.
func (t *Template) Normalize() {
	if t.OutputSettings.Width == 0 {
		t.OutputSettings.Width = DefaultOutputSettings.Width
	}
	if t.OutputSettings.Height == 0 {
		t.OutputSettings.Height = DefaultOutputSettings.Height
	}
	if t.OutputSettings.FPS == 0 {
		t.OutputSettings.FPS = DefaultOutputSettings.FPS
	}
	if t.OutputSettings.Format == "" {
		t.OutputSettings.Format = DefaultOutputSettings.Format
	}
	if t.OutputSettings.Codec == "" {
		t.OutputSettings.Codec = DefaultOutputSettings.Codec
	}
}

// TemplateSummary is the list-view projection of a template.
type TemplateSummary struct {
	TemplateID           string  `json:"template_id"`
	TemplateName         string  `json:"template_name"`
	Description          string  `json:"description"`
	ScenesCount          int     `json:"scenes_count"`
	TotalDurationSeconds float64 `json:"total_duration_seconds"`
	CreatedAt            string  `json:"created_at,omitempty"`
	IsDefault            bool    `json:"is_default"`
}
