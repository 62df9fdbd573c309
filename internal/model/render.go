package model

// AssetMap maps "scene_<n>" keys to segment-type keys to image URLs
// (pre-fetch) or local file paths (post-fetch).
type AssetMap map[string]map[string]string

// AudioSpec describes the optional background audio track of a render
// request. Volume and Loop use pointers so an omitted field keeps its
// documented default (volume 1.0, loop on) instead of the zero value.
type AudioSpec struct {
	URL     string   `json:"url" validate:"required"`
	Volume  *float64 `json:"volume,omitempty" validate:"omitempty,gte=0,lte=2"`
	FadeIn  float64  `json:"fade_in,omitempty" validate:"gte=0"`
	FadeOut float64  `json:"fade_out,omitempty" validate:"gte=0"`
	Loop    *bool    `json:"loop,omitempty"`
}

// EffectiveVolume returns the requested volume factor, defaulting to 1.0.
func (a *AudioSpec) EffectiveVolume() float64 {
	if a == nil || a.Volume == nil {
		return 1.0
	}
	return *a.Volume
}

// LoopEnabled returns whether the audio should loop, defaulting to true.
func (a *AudioSpec) LoopEnabled() bool {
	if a == nil || a.Loop == nil {
		return true
	}
	return *a.Loop
}

// RenderRequest is the body of POST /render-video.
type RenderRequest struct {
	TemplateID string            `json:"template_id" validate:"required"`
	Images     AssetMap          `json:"images" validate:"required"`
	CustomText map[string]string `json:"custom_text,omitempty"`
	Audio      *AudioSpec        `json:"audio,omitempty"`
	WebhookURL string            `json:"webhook_url,omitempty"`
	RenderMode RenderMode        `json:"render_mode,omitempty"`
}

// RenderAcceptedResponse is the 202 body returned on admission. The
// estimate is a documented heuristic derived from the template's total
// duration, not a guarantee.
type RenderAcceptedResponse struct {
	Status               string `json:"status"`
	JobID                string `json:"job_id"`
	TemplateID           string `json:"template_id"`
	EstimatedTimeSeconds int    `json:"estimated_time_seconds"`
	CheckStatusURL       string `json:"check_status_url"`
}

// JobListResponse is the body of GET /jobs.
type JobListResponse struct {
	Jobs  []Job      `json:"jobs"`
	Stats QueueStats `json:"stats"`
}

// QueueStats are aggregate job counts by status plus the queue limits.
type QueueStats struct {
	TotalJobs    int `json:"total_jobs"`
	Queued       int `json:"queued"`
	Processing   int `json:"processing"`
	Completed    int `json:"completed"`
	Failed       int `json:"failed"`
	MaxWorkers   int `json:"max_workers"`
	MaxQueueSize int `json:"max_queue_size"`
}
