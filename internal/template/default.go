package template

import "github.com/clipforge/api/internal/model"

// DefaultTemplate returns the built-in fight video template: eight
// scenes, each a split-screen face-off (top vs bottom) followed by a
// full-frame winner shot, at 720x1280 vertical.
func DefaultTemplate() *model.Template {
	scenes := make([]model.Scene, 0, 8)
	for n := 1; n <= 8; n++ {
		scenes = append(scenes, model.Scene{
			SceneNumber: n,
			Segments: []model.Segment{
				{Type: model.SegmentSplitTop, Duration: 3, Position: "top"},
				{Type: model.SegmentSplitBottom, Duration: 3, Position: "bottom"},
				{Type: "full_winner", Duration: 4, Position: "full"},
			},
		})
	}
	return &model.Template{
		TemplateID:     "fight_video_standard",
		TemplateName:   "fight_video_standard",
		Description:    "Standard fight video: 8 scenes of split-screen face-offs with winner reveals",
		Scenes:         scenes,
		OutputSettings: model.DefaultOutputSettings,
		IsDefault:      true,
	}
}
