package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/clipforge/api/internal/model"
	"github.com/clipforge/api/pkg/response"
)

func fightTemplate() *model.Template {
	return &model.Template{
		TemplateID:   "fight_video_standard",
		TemplateName: "fight_video_standard",
		Scenes: []model.Scene{
			{SceneNumber: 1, Segments: []model.Segment{
				{Type: "split_top", Duration: 3},
				{Type: "split_bottom", Duration: 3},
				{Type: "full_winner", Duration: 4},
			}},
			{SceneNumber: 2, Segments: []model.Segment{
				{Type: "split_top", Duration: 3},
				{Type: "split_bottom", Duration: 3},
				{Type: "full_winner", Duration: 4},
			}},
		},
		OutputSettings: model.DefaultOutputSettings,
	}
}

func validRequest() *model.RenderRequest {
	return &model.RenderRequest{
		TemplateID: "fight_video_standard",
		Images: model.AssetMap{
			"scene_1": {
				"split_top":    "https://cdn.example.com/1t.png",
				"split_bottom": "https://cdn.example.com/1b.png",
				"full_winner":  "https://cdn.example.com/1w.png",
			},
			"scene_2": {
				"split_top":    "https://cdn.example.com/2t.png",
				"split_bottom": "https://cdn.example.com/2b.png",
				"full_winner":  "https://cdn.example.com/2w.png",
			},
		},
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *validate.Error, got %T: %v", err, err)
	}
	if ve.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, ve.Code, ve.Message)
	}
}

func TestRenderRequest_Valid(t *testing.T) {
	if err := RenderRequest(validRequest(), fightTemplate(), nil); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestRenderRequest_MissingScene(t *testing.T) {
	req := validRequest()
	delete(req.Images, "scene_2")
	assertCode(t, RenderRequest(req, fightTemplate(), nil), response.CodeMissingImages)
}

func TestRenderRequest_LoneSplitHalf(t *testing.T) {
	req := validRequest()
	delete(req.Images["scene_1"], "split_bottom")
	assertCode(t, RenderRequest(req, fightTemplate(), nil), response.CodeMissingImages)
}

func TestRenderRequest_NoImages(t *testing.T) {
	req := validRequest()
	req.Images = nil
	assertCode(t, RenderRequest(req, fightTemplate(), nil), response.CodeInvalidRequest)
}

func TestRenderRequest_UndeclaredKeys(t *testing.T) {
	req := validRequest()
	req.Images["scene_9"] = map[string]string{"full_winner": "https://cdn.example.com/x.png"}
	assertCode(t, RenderRequest(req, fightTemplate(), nil), response.CodeInvalidRequest)

	req = validRequest()
	req.Images["scene_1"]["banner"] = "https://cdn.example.com/x.png"
	assertCode(t, RenderRequest(req, fightTemplate(), nil), response.CodeInvalidRequest)
}

func TestRenderRequest_HTTPRejected(t *testing.T) {
	req := validRequest()
	req.Images["scene_1"]["split_top"] = "http://cdn.example.com/1t.png"
	assertCode(t, RenderRequest(req, fightTemplate(), nil), response.CodeInvalidURL)
}

func TestRenderRequest_DomainAllowList(t *testing.T) {
	req := validRequest()
	allowed := []string{"cdn.example.com"}
	if err := RenderRequest(req, fightTemplate(), allowed); err != nil {
		t.Fatalf("allow-listed domain rejected: %v", err)
	}
	assertCode(t, RenderRequest(req, fightTemplate(), []string{"other.example.com"}), response.CodeInvalidURL)
}

func TestRenderRequest_UnknownRenderMode(t *testing.T) {
	req := validRequest()
	req.RenderMode = "turbo"
	assertCode(t, RenderRequest(req, fightTemplate(), nil), response.CodeInvalidRequest)
}

func TestRenderRequest_AudioBounds(t *testing.T) {
	vol := 3.5
	req := validRequest()
	req.Audio = &model.AudioSpec{URL: "https://cdn.example.com/a.mp3", Volume: &vol}
	assertCode(t, RenderRequest(req, fightTemplate(), nil), response.CodeInvalidAudio)

	req.Audio = &model.AudioSpec{URL: "http://cdn.example.com/a.mp3"}
	assertCode(t, RenderRequest(req, fightTemplate(), nil), response.CodeInvalidAudio)

	req.Audio = &model.AudioSpec{URL: "https://cdn.example.com/a.mp3", FadeIn: 2, FadeOut: 3}
	if err := RenderRequest(req, fightTemplate(), nil); err != nil {
		t.Fatalf("valid audio rejected: %v", err)
	}
}

func TestRenderRequest_WebhookURL(t *testing.T) {
	req := validRequest()
	req.WebhookURL = "not-a-url"
	assertCode(t, RenderRequest(req, fightTemplate(), nil), response.CodeInvalidWebhookURL)

	req.WebhookURL = "https://hooks.example.com/render"
	if err := RenderRequest(req, fightTemplate(), nil); err != nil {
		t.Fatalf("valid webhook rejected: %v", err)
	}
}

func TestTemplateStructure_SplitPairing(t *testing.T) {
	tpl := fightTemplate()
	tpl.Scenes[0].Segments = tpl.Scenes[0].Segments[:1] // lone split_top
	assertCode(t, TemplateStructure(tpl), response.CodeInvalidTemplate)

	tpl = fightTemplate()
	tpl.Scenes[0].Segments[1].Duration = 5 // mismatched pair
	assertCode(t, TemplateStructure(tpl), response.CodeInvalidTemplate)
}

func TestTemplateStructure_DuplicateSceneNumbers(t *testing.T) {
	tpl := fightTemplate()
	tpl.Scenes[1].SceneNumber = 1
	assertCode(t, TemplateStructure(tpl), response.CodeInvalidTemplate)
}

func TestTemplateStructure_InterleavedSplitHalves(t *testing.T) {
	tpl := fightTemplate()
	tpl.Scenes[0].Segments = []model.Segment{
		{Type: "split_top", Duration: 3},
		{Type: "full_winner", Duration: 4},
		{Type: "split_bottom", Duration: 3},
	}
	assertCode(t, TemplateStructure(tpl), response.CodeInvalidTemplate)
}

func TestTemplateStructure_Durations(t *testing.T) {
	tpl := fightTemplate()
	tpl.Scenes[1].Segments[2].Duration = 0
	assertCode(t, TemplateStructure(tpl), response.CodeInvalidTemplate)
}

func TestTemplateName(t *testing.T) {
	for _, name := range []string{"fight_video_standard", "promo-2", "A1"} {
		if err := TemplateName(name); err != nil {
			t.Errorf("TemplateName(%q) = %v, want nil", name, err)
		}
	}
	bad := []string{"", "../etc", "name with spaces", strings.Repeat("a", 101)}
	for _, name := range bad {
		if err := TemplateName(name); err == nil {
			t.Errorf("TemplateName(%q) = nil, want error", name)
		}
	}
}
