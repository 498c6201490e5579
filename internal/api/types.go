package api

// JobCreatedResponse acknowledges an accepted background job.
type JobCreatedResponse struct {
	JobID string `json:"job_id"`
}

// ProgressResponse is the polling view of one job.
type ProgressResponse struct {
	JobID    string   `json:"job_id"`
	Status   string   `json:"status"`
	Progress float64  `json:"progress"`
	Error    string   `json:"error,omitempty"`
	Logs     []string `json:"logs,omitempty"`
}

// JobSummary is one row of the job listing used by the CLI.
type JobSummary struct {
	JobID     string  `json:"job_id"`
	Kind      string  `json:"kind"`
	Status    string  `json:"status"`
	Progress  float64 `json:"progress"`
	Error     string  `json:"error,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// JobListResponse wraps the job listing.
type JobListResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

// MeasurementResponse carries the pass-one loudness analysis.
type MeasurementResponse struct {
	InputI       string `json:"input_i"`
	InputTP      string `json:"input_tp"`
	InputLRA     string `json:"input_lra"`
	InputThresh  string `json:"input_thresh"`
	TargetOffset string `json:"target_offset"`
}

// StatusResponse reports daemon health.
type StatusResponse struct {
	Status string `json:"status"`
	Jobs   int    `json:"jobs"`
}
