package render

// Clip is one rendered unit of the output timeline: either a single
// full-frame image or a stacked split pair, shown for Duration seconds.
type Clip struct {
	// Sources are local image paths: one entry for a full-frame clip,
	// two (top then bottom) for a split clip.
	Sources []string

	// Split marks a vertically stacked pair.
	Split bool

	Duration float64

	// OverlayText, when non-empty, is drawn over the clip.
	OverlayText string
}

// AudioPlan describes the background audio mix for the whole timeline.
type AudioPlan struct {
	SourcePath     string
	Volume         float64
	FadeIn         float64
	FadeOut        float64
	Loop           bool
	TargetDuration float64
}

// ClipSpec is the complete, encoder-agnostic description of one output
// video. The builder produces it; the ffmpeg layer turns it into a
// single command invocation.
type ClipSpec struct {
	Clips         []Clip
	Audio         *AudioPlan
	TotalDuration float64

	Width  int
	Height int
	FPS    int
	Codec  string
	Preset string
	CRF    int
}
