package render

import (
	"sort"

	"github.com/clipforge/api/internal/model"
	"github.com/clipforge/api/pkg/response"
)

// BuildInput is everything the clip builder needs. Assets hold local
// file paths (the fetcher's output), keyed like the request's images.
type BuildInput struct {
	Template    *model.Template
	Assets      model.AssetMap
	CustomText  map[string]string
	AudioPath   string
	Audio       *model.AudioSpec
	Mode        model.RenderMode
	DefaultMode model.RenderMode
}

// BuildClipSpec turns a template plus fetched assets into a complete
// encoder plan. It is pure: same input, same spec, no I/O. Split pairs
// collapse into one stacked clip; any other segment type renders
// full-frame; per-scene custom text is burned onto the scene's final
// clip.
func BuildClipSpec(in BuildInput) (*ClipSpec, error) {
	mode := in.Mode
	explicit := mode != ""
	if !explicit {
		mode = in.DefaultMode
	}
	params, ok := mode.Params()
	if !ok {
		return nil, Errf(response.CodeInvalidRequest, "unknown render_mode: %s", mode)
	}

	out := in.Template.OutputSettings
	spec := &ClipSpec{
		Width:  out.Width,
		Height: out.Height,
		FPS:    out.FPS,
		Codec:  out.Codec,
		Preset: params.Preset,
		CRF:    params.CRF,
	}
	// An explicitly requested mode may lower the frame rate; the
	// template's own rate wins otherwise.
	if explicit {
		spec.FPS = params.FPS
	}

	// Clips run in ascending scene_number order regardless of the order
	// the template declares its scenes in.
	scenes := make([]model.Scene, len(in.Template.Scenes))
	copy(scenes, in.Template.Scenes)
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].SceneNumber < scenes[j].SceneNumber
	})

	for _, scene := range scenes {
		sceneKey := scene.Key()
		assets := in.Assets[sceneKey]
		sceneStart := len(spec.Clips)

		var pendingTop string
		var pendingTopDur float64
		havePending := false

		for _, seg := range scene.Segments {
			role, _ := model.ResolveSegmentRole(seg.Type)
			path := assets[seg.Type]
			if path == "" {
				return nil, Errf(response.CodeMissingImages,
					"missing image for %s.%s", sceneKey, seg.Type)
			}

			switch role {
			case model.RoleSplitTop:
				if havePending {
					return nil, Errf(response.CodeInvalidTemplate,
						"scene %d declares consecutive split_top segments", scene.SceneNumber)
				}
				pendingTop = path
				pendingTopDur = seg.Duration
				havePending = true

			case model.RoleSplitBottom:
				if !havePending {
					return nil, Errf(response.CodeInvalidTemplate,
						"scene %d declares split_bottom without split_top", scene.SceneNumber)
				}
				if seg.Duration != pendingTopDur {
					return nil, Errf(response.CodeInvalidTemplate,
						"scene %d split segments declare different durations", scene.SceneNumber)
				}
				spec.Clips = append(spec.Clips, Clip{
					Sources:  []string{pendingTop, path},
					Split:    true,
					Duration: seg.Duration,
				})
				spec.TotalDuration += seg.Duration
				havePending = false

			default:
				if havePending {
					return nil, Errf(response.CodeInvalidTemplate,
						"scene %d declares %s between split halves", scene.SceneNumber, seg.Type)
				}
				spec.Clips = append(spec.Clips, Clip{
					Sources:  []string{path},
					Duration: seg.Duration,
				})
				spec.TotalDuration += seg.Duration
			}
		}
		if havePending {
			return nil, Errf(response.CodeInvalidTemplate,
				"scene %d declares split_top without split_bottom", scene.SceneNumber)
		}
		if overlay := in.CustomText[sceneKey]; overlay != "" && len(spec.Clips) > sceneStart {
			spec.Clips[len(spec.Clips)-1].OverlayText = overlay
		}
	}

	if len(spec.Clips) == 0 {
		return nil, Errf(response.CodeInvalidTemplate, "template produced no clips")
	}

	if in.AudioPath != "" {
		spec.Audio = buildAudioPlan(in.AudioPath, in.Audio, spec.TotalDuration)
	}

	return spec, nil
}

// buildAudioPlan clamps the requested fades to the timeline: when
// fade_in + fade_out exceed the total duration both are scaled down
// proportionally so they exactly meet.
func buildAudioPlan(path string, a *model.AudioSpec, total float64) *AudioPlan {
	plan := &AudioPlan{
		SourcePath:     path,
		Volume:         a.EffectiveVolume(),
		FadeIn:         a.FadeIn,
		FadeOut:        a.FadeOut,
		Loop:           a.LoopEnabled(),
		TargetDuration: total,
	}
	if sum := plan.FadeIn + plan.FadeOut; sum > total && sum > 0 {
		scale := total / sum
		plan.FadeIn *= scale
		plan.FadeOut *= scale
	}
	return plan
}
