package pipeline

import (
	"net/url"
	"time"

	"github.com/rohmanhakim/page-archiver/internal/extractor"
)

// DownloadTask is one distinct resource URL to fetch. References are
// grouped by canonical URL before tasks are built, so a URL appearing
// five times in the document still produces exactly one task.
type DownloadTask struct {
	resourceURL url.URL
	kind        extractor.ResourceKind
	refCount    int
}

func (t DownloadTask) ResourceURL() url.URL {
	return t.resourceURL
}

func (t DownloadTask) Kind() extractor.ResourceKind {
	return t.kind
}

func (t DownloadTask) RefCount() int {
	return t.refCount
}

// DownloadResult is the terminal outcome of one task. Exactly one result
// exists per task, success or failure.
type DownloadResult struct {
	resourceURL url.URL
	kind        extractor.ResourceKind
	success     bool
	localPath   string
	byteCount   int64
	attempts    int
	failReason  string
}

func (r DownloadResult) ResourceURL() url.URL {
	return r.resourceURL
}

func (r DownloadResult) Kind() extractor.ResourceKind {
	return r.kind
}

func (r DownloadResult) Success() bool {
	return r.success
}

func (r DownloadResult) LocalPath() string {
	return r.localPath
}

func (r DownloadResult) ByteCount() int64 {
	return r.byteCount
}

func (r DownloadResult) Attempts() int {
	return r.attempts
}

func (r DownloadResult) FailReason() string {
	return r.failReason
}

// ArchiveStats aggregates download outcomes per resource kind.
type ArchiveStats struct {
	ImagesOk          int
	ImagesFailed      int
	StylesheetsOk     int
	StylesheetsFailed int
	BytesWritten      int64
	Duration          time.Duration
}

func (s ArchiveStats) ResourcesOk() int {
	return s.ImagesOk + s.StylesheetsOk
}

func (s ArchiveStats) ResourcesFailed() int {
	return s.ImagesFailed + s.StylesheetsFailed
}

// Summary is what a completed run reports back to the caller.
type Summary struct {
	DocumentPath        string
	Stats               ArchiveStats
	Results             []DownloadResult
	ReferencesFound     int
	ReferencesRewritten int
}
