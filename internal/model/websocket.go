package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage is a live progress update for one job
type WSProgressMessage struct {
	Type     string    `json:"type"`
	JobID    string    `json:"job_id"`
	Progress int       `json:"progress"`
	Status   JobStatus `json:"status"`
}

// WSCompleteMessage announces a finished render
type WSCompleteMessage struct {
	Type            string  `json:"type"`
	JobID           string  `json:"job_id"`
	DownloadURL     string  `json:"download_url"`
	FileSizeBytes   int64   `json:"file_size_bytes"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// WSErrorMessage announces a failed render
type WSErrorMessage struct {
	Type  string   `json:"type"`
	JobID string   `json:"job_id"`
	Error JobError `json:"error"`
}
