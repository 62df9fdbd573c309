package model

// Job status
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Segment roles. Every recognized segment type string resolves to one of
// these; split halves pair up into a single stacked clip, everything else
// fills the full canvas.
type SegmentRole string

const (
	RoleSplitTop    SegmentRole = "split_top"
	RoleSplitBottom SegmentRole = "split_bottom"
	RoleFullFrame   SegmentRole = "full_frame"
)

// Split segment type strings as they appear in templates.
const (
	SegmentSplitTop    = "split_top"
	SegmentSplitBottom = "split_bottom"
)

// fullFrameAliases are the recognized full-frame segment types. A type a
// template declares that is not listed here still renders full-frame;
// the template is the closed set for its own renders.
var fullFrameAliases = map[string]bool{
	"full_winner": true,
	"full_screen": true,
	"full":        true,
	"image":       true,
	"result":      true,
}

// ResolveSegmentRole maps a segment type string to its role. known is
// false only for types that are neither split halves nor recognized
// full-frame aliases; callers decide whether template-declared custom
// types are acceptable.
func ResolveSegmentRole(segType string) (role SegmentRole, known bool) {
	switch segType {
	case SegmentSplitTop:
		return RoleSplitTop, true
	case SegmentSplitBottom:
		return RoleSplitBottom, true
	}
	if fullFrameAliases[segType] {
		return RoleFullFrame, true
	}
	return RoleFullFrame, false
}

// Render modes select encoder speed/quality knobs. They never touch the
// template's width or height.
type RenderMode string

const (
	RenderModeFast     RenderMode = "fast"
	RenderModeBalanced RenderMode = "balanced"
	RenderModeQuality  RenderMode = "quality"
)

// EncodeParams is the encoder triple a render mode selects.
type EncodeParams struct {
	Preset string
	CRF    int
	FPS    int
}

var renderModes = map[RenderMode]EncodeParams{
	RenderModeFast:     {Preset: "ultrafast", CRF: 28, FPS: 24},
	RenderModeBalanced: {Preset: "veryfast", CRF: 23, FPS: 30},
	RenderModeQuality:  {Preset: "medium", CRF: 18, FPS: 30},
}

// Params returns the encode parameters for the mode.
func (m RenderMode) Params() (EncodeParams, bool) {
	p, ok := renderModes[m]
	return p, ok
}

// Valid reports whether the mode names a known table entry.
func (m RenderMode) Valid() bool {
	_, ok := renderModes[m]
	return ok
}
