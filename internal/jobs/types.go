package jobs

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// IsTerminal reports whether a job in this status will never change again.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// FileInfo describes one uploaded subtitle file belonging to a batch.
type FileInfo struct {
	Name         string `json:"name"`
	Format       string `json:"format"`
	Path         string `json:"path"`
	SizeBytes    int64  `json:"size_bytes"`
	DetectedLang string `json:"detected_lang,omitempty"`
	EntryCount   int    `json:"entry_count"`
}

// FileResult records the outcome for one file of a batch. Error is empty
// on success; a failed file does not fail the whole job.
type FileResult struct {
	Name       string `json:"name"`
	OutputPath string `json:"output_path,omitempty"`
	EntryCount int    `json:"entry_count"`
	Error      string `json:"error,omitempty"`
}

// Params are the translation settings chosen for a batch.
type Params struct {
	SourceLang    string `json:"source_lang"`
	TargetLang    string `json:"target_lang"`
	Service       string `json:"service"`
	UseContext    bool   `json:"use_context"`
	ContextWindow int    `json:"context_window"`
}

// Progress tracks how far a running job has gotten.
type Progress struct {
	TotalFiles  int    `json:"total_files"`
	DoneFiles   int    `json:"done_files"`
	CurrentFile string `json:"current_file,omitempty"`
}

type EnqueueRequest struct {
	UploadID string
	Params   Params
	Files    []FileInfo
}

type TranslationJob struct {
	ID          string       `json:"id"`
	UploadID    string       `json:"upload_id"`
	Params      Params       `json:"params"`
	Files       []FileInfo   `json:"files"`
	Results     []FileResult `json:"results,omitempty"`
	Progress    Progress     `json:"progress"`
	Status      Status       `json:"status"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
