// Package validate holds admission-time validation: template structure
// checks on create, and render request checks against the target
// template. Failures here are synchronous rejections and never create a
// job.
package validate

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/clipforge/api/internal/model"
	"github.com/clipforge/api/pkg/response"
)

// Error is a validation failure with the error code the HTTP layer
// returns.
type Error struct {
	Code    string
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string { return e.Message }

func errf(code string, details map[string]interface{}, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Details: details}
}

var templateNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// TemplateName checks a template name/id for safe file storage.
func TemplateName(name string) error {
	if name == "" {
		return errf(response.CodeInvalidTemplate, nil, "template name is required")
	}
	if !templateNameRe.MatchString(name) {
		return errf(response.CodeInvalidTemplate, map[string]interface{}{"name": name},
			"template name can only contain letters, numbers, underscores, and hyphens")
	}
	if len(name) > 100 {
		return errf(response.CodeInvalidTemplate, map[string]interface{}{"name": name},
			"template name must be 100 characters or less")
	}
	return nil
}

// TemplateStructure checks a template's scene/segment shape: at least
// one scene, typed segments with positive durations, split halves paired
// with equal durations, and output settings within sane bounds.
func TemplateStructure(t *model.Template) error {
	if err := TemplateName(t.TemplateName); err != nil {
		return err
	}
	if len(t.Scenes) == 0 {
		return errf(response.CodeInvalidTemplate, nil, "template must have at least one scene")
	}
	seen := make(map[int]bool, len(t.Scenes))
	for i, scene := range t.Scenes {
		if scene.SceneNumber <= 0 {
			return errf(response.CodeInvalidTemplate, map[string]interface{}{"scene_index": i},
				"scene %d missing scene_number", i+1)
		}
		if seen[scene.SceneNumber] {
			return errf(response.CodeInvalidTemplate, map[string]interface{}{"scene_number": scene.SceneNumber},
				"scene %d is declared more than once", scene.SceneNumber)
		}
		seen[scene.SceneNumber] = true
		if len(scene.Segments) == 0 {
			return errf(response.CodeInvalidTemplate, map[string]interface{}{"scene_number": scene.SceneNumber},
				"scene %d must have at least one segment", scene.SceneNumber)
		}
		// Split halves must form an adjacent top/bottom pair with equal
		// durations; a segment between them makes the stack ambiguous.
		var pendingDur float64
		pendingTop := false
		for j, seg := range scene.Segments {
			if seg.Type == "" {
				return errf(response.CodeInvalidTemplate, nil,
					"segment %d in scene %d missing type", j+1, scene.SceneNumber)
			}
			if seg.Duration <= 0 {
				return errf(response.CodeInvalidTemplate, nil,
					"segment %d in scene %d must have a positive duration", j+1, scene.SceneNumber)
			}
			switch seg.Type {
			case model.SegmentSplitTop:
				if pendingTop {
					return errf(response.CodeInvalidTemplate, map[string]interface{}{"scene_number": scene.SceneNumber},
						"scene %d declares consecutive split_top segments", scene.SceneNumber)
				}
				pendingTop = true
				pendingDur = seg.Duration
			case model.SegmentSplitBottom:
				if !pendingTop {
					return errf(response.CodeInvalidTemplate, map[string]interface{}{"scene_number": scene.SceneNumber},
						"scene %d declares split_bottom without a preceding split_top", scene.SceneNumber)
				}
				if seg.Duration != pendingDur {
					return errf(response.CodeInvalidTemplate, map[string]interface{}{"scene_number": scene.SceneNumber},
						"scene %d split segments must declare equal durations", scene.SceneNumber)
				}
				pendingTop = false
			default:
				if pendingTop {
					return errf(response.CodeInvalidTemplate, map[string]interface{}{"scene_number": scene.SceneNumber},
						"scene %d declares %s between split halves", scene.SceneNumber, seg.Type)
				}
			}
		}
		if pendingTop {
			return errf(response.CodeInvalidTemplate, map[string]interface{}{"scene_number": scene.SceneNumber},
				"scene %d declares split_top without split_bottom", scene.SceneNumber)
		}
	}
	s := t.OutputSettings
	if s.Width != 0 && (s.Width < 100 || s.Width > 4096) {
		return errf(response.CodeInvalidTemplate, nil, "width must be between 100 and 4096")
	}
	if s.Height != 0 && (s.Height < 100 || s.Height > 4096) {
		return errf(response.CodeInvalidTemplate, nil, "height must be between 100 and 4096")
	}
	if s.FPS != 0 && (s.FPS < 1 || s.FPS > 120) {
		return errf(response.CodeInvalidTemplate, nil, "fps must be between 1 and 120")
	}
	return nil
}

// AssetURL enforces the per-request download policy: https only, and
// when a domain allow-list is configured the host must match it.
func AssetURL(raw string, allowedDomains []string) error {
	if raw == "" {
		return errf(response.CodeInvalidURL, nil, "image URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errf(response.CodeInvalidURL, map[string]interface{}{"url": raw}, "invalid URL format")
	}
	if u.Scheme != "https" {
		return errf(response.CodeInvalidURL, map[string]interface{}{"url": raw}, "only HTTPS URLs are allowed")
	}
	if len(allowedDomains) > 0 {
		allowed := false
		for _, d := range allowedDomains {
			if u.Host == d {
				allowed = true
				break
			}
		}
		if !allowed {
			return errf(response.CodeInvalidURL,
				map[string]interface{}{"url": raw, "domain": u.Host},
				"domain not allowed: %s", u.Host)
		}
	}
	return nil
}

// RenderRequest checks a render request against its template: every
// scene and segment type must have an image URL (a lone split half is a
// missing image, never a partial layout), all URLs must pass the
// download policy, the audio spec must be in bounds, and the webhook URL
// must be an absolute http(s) URL.
func RenderRequest(req *model.RenderRequest, tpl *model.Template, allowedDomains []string) error {
	if req.Images == nil {
		return errf(response.CodeInvalidRequest, nil, "missing required field: images")
	}
	if req.RenderMode != "" && !req.RenderMode.Valid() {
		return errf(response.CodeInvalidRequest, map[string]interface{}{"render_mode": req.RenderMode},
			"unknown render_mode: %s", req.RenderMode)
	}

	declared := make(map[string]map[string]bool, len(tpl.Scenes))
	for _, scene := range tpl.Scenes {
		sceneKey := scene.Key()
		sceneImages, ok := req.Images[sceneKey]
		if !ok {
			return errf(response.CodeMissingImages, map[string]interface{}{"scene": sceneKey},
				"missing images for %s", sceneKey)
		}
		declared[sceneKey] = make(map[string]bool, len(scene.Segments))
		for _, seg := range scene.Segments {
			declared[sceneKey][seg.Type] = true
			rawURL, ok := sceneImages[seg.Type]
			if !ok || rawURL == "" {
				return errf(response.CodeMissingImages,
					map[string]interface{}{"scene": sceneKey, "segment_type": seg.Type},
					"missing image for %s.%s", sceneKey, seg.Type)
			}
			if err := AssetURL(rawURL, allowedDomains); err != nil {
				return err
			}
		}
	}

	// Image keys the template never declares are a caller mistake, not
	// extra material to render.
	for sceneKey, segs := range req.Images {
		types, ok := declared[sceneKey]
		if !ok {
			return errf(response.CodeInvalidRequest, map[string]interface{}{"scene": sceneKey},
				"template does not declare %s", sceneKey)
		}
		for segType := range segs {
			if !types[segType] {
				return errf(response.CodeInvalidRequest,
					map[string]interface{}{"scene": sceneKey, "segment_type": segType},
					"template does not declare segment type %s in %s", segType, sceneKey)
			}
		}
	}

	if req.Audio != nil {
		if err := audioSpec(req.Audio, allowedDomains); err != nil {
			return err
		}
	}

	if req.WebhookURL != "" {
		u, err := url.Parse(req.WebhookURL)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errf(response.CodeInvalidWebhookURL, map[string]interface{}{"url": req.WebhookURL},
				"webhook_url must be an absolute http(s) URL")
		}
	}

	return nil
}

func audioSpec(a *model.AudioSpec, allowedDomains []string) error {
	if a.URL == "" {
		return errf(response.CodeInvalidAudio, nil, "audio url is required")
	}
	if err := AssetURL(a.URL, allowedDomains); err != nil {
		return errf(response.CodeInvalidAudio, map[string]interface{}{"url": a.URL},
			"invalid audio url: %s", err.Error())
	}
	if v := a.EffectiveVolume(); v < 0 || v > 2 {
		return errf(response.CodeInvalidAudio, map[string]interface{}{"volume": v},
			"audio volume must be between 0 and 2")
	}
	if a.FadeIn < 0 || a.FadeOut < 0 {
		return errf(response.CodeInvalidAudio, nil, "audio fades must not be negative")
	}
	return nil
}
