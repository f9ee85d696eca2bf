package job

import (
	"sync"
	"time"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is a single tracked download. It is created by the registry and
// mutated only by the runner that picked it up; everyone else reads
// snapshots.
type Job struct {
	mtx sync.RWMutex

	id        string
	url       string
	status    Status
	progress  int
	platform  string
	filename  string
	result    string
	errMsg    string
	createdAt time.Time
}

// View is the wire representation of a job, as polled by clients.
type View struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Status      Status `json:"status"`
	Progress    int    `json:"progress"`
	Platform    string `json:"platform"`
	Filename    string `json:"filename,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

func newJob(id, url string) *Job {
	return &Job{
		id:        id,
		url:       url,
		status:    StatusPending,
		platform:  "Unknown",
		createdAt: time.Now().UTC(),
	}
}

func (j *Job) ID() string {
	return j.id
}

func (j *Job) URL() string {
	return j.url
}

func (j *Job) Status() Status {
	j.mtx.RLock()
	defer j.mtx.RUnlock()
	return j.status
}

// MarkDownloading moves a pending job into the downloading state.
// Terminal states are never left.
func (j *Job) MarkDownloading() {
	j.mtx.Lock()
	defer j.mtx.Unlock()
	if j.status.IsTerminal() {
		return
	}
	j.status = StatusDownloading
}

// SetProgress applies a progress update, clamped to [0, 100]. Both
// progress signals of the fetcher write here; last writer wins.
func (j *Job) SetProgress(percent int) {
	j.mtx.Lock()
	defer j.mtx.Unlock()
	if j.status.IsTerminal() {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	j.progress = percent
}

func (j *Job) SetPlatform(platform string) {
	j.mtx.Lock()
	defer j.mtx.Unlock()
	if platform == "" {
		return
	}
	j.platform = platform
}

// Complete marks the job completed with its final artifact info.
func (j *Job) Complete(filename, downloadURL string) {
	j.mtx.Lock()
	defer j.mtx.Unlock()
	if j.status.IsTerminal() {
		return
	}
	j.status = StatusCompleted
	j.progress = 100
	j.filename = filename
	j.result = downloadURL
}

// Fail marks the job failed. The message is what clients see.
func (j *Job) Fail(msg string) {
	j.mtx.Lock()
	defer j.mtx.Unlock()
	if j.status.IsTerminal() {
		return
	}
	j.status = StatusFailed
	if msg == "" {
		msg = "download failed"
	}
	j.errMsg = msg
}

func (j *Job) Snapshot() View {
	j.mtx.RLock()
	defer j.mtx.RUnlock()
	return View{
		ID:          j.id,
		URL:         j.url,
		Status:      j.status,
		Progress:    j.progress,
		Platform:    j.platform,
		Filename:    j.filename,
		DownloadURL: j.result,
		Error:       j.errMsg,
	}
}
