package domain

import (
	"context"
	"time"
)

// Job asks the worker to ingest one file that is already on local storage.
type Job struct {
	ID            string     `json:"id"`
	Kind          UploadKind `json:"kind"`
	Path          string     `json:"path"`
	Filename      string     `json:"filename,omitempty"`
	ForceProvince string     `json:"force_province,omitempty"`
	RemoveAfter   bool       `json:"remove_after,omitempty"`
}

// RawJob is an undecoded job message together with its source position.
type RawJob struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Report statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// IngestReport summarizes one ingestion. Zero written rows is a legitimate
// outcome; Status is failed only when an error aborted the call.
type IngestReport struct {
	JobID            string     `json:"job_id,omitempty"`
	Kind             UploadKind `json:"kind"`
	Filename         string     `json:"filename,omitempty"`
	UploadID         int64      `json:"upload_id,omitempty"`
	Candidates       int        `json:"candidates"`
	Written          int        `json:"written"`
	Duplicates       int        `json:"duplicates"`
	AlreadyPersisted int        `json:"already_persisted"`
	Unresolved       int        `json:"unresolved"`
	UnresolvedSample []string   `json:"unresolved_sample,omitempty"`
	Filled           int        `json:"filled"`
	Status           string     `json:"status"`
	Error            string     `json:"error,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       time.Time  `json:"finished_at"`
}

// maxUnresolvedSample bounds how many unmatched keys a report carries.
const maxUnresolvedSample = 20

// AddUnresolved records an unmatched key, keeping a bounded distinct sample.
func (r *IngestReport) AddUnresolved(key string) {
	r.Unresolved++
	if len(r.UnresolvedSample) >= maxUnresolvedSample {
		return
	}
	for _, k := range r.UnresolvedSample {
		if k == key {
			return
		}
	}
	r.UnresolvedSample = append(r.UnresolvedSample, key)
}
