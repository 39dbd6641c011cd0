package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rohmanhakim/page-archiver/internal/config"
	"github.com/rohmanhakim/page-archiver/internal/extractor"
	"github.com/rohmanhakim/page-archiver/internal/fetcher"
	"github.com/rohmanhakim/page-archiver/internal/metadata"
	"github.com/rohmanhakim/page-archiver/internal/naming"
	"github.com/rohmanhakim/page-archiver/internal/rewriter"
	"github.com/rohmanhakim/page-archiver/internal/storage"
	"github.com/rohmanhakim/page-archiver/pkg/failure"
	"github.com/rohmanhakim/page-archiver/pkg/hashutil"
	"github.com/rohmanhakim/page-archiver/pkg/limiter"
	"github.com/rohmanhakim/page-archiver/pkg/retry"
	"github.com/rohmanhakim/page-archiver/pkg/timeutil"
	"github.com/rohmanhakim/page-archiver/pkg/urlutil"
)

/*
Pipeline drives one archive run end to end:

 1. fetch the target document
 2. parse it and collect resource references
 3. group references by canonical URL into download tasks
 4. run tasks under the concurrency limiter, each with its own
    retry budget
 5. fold results into local path mappings and per-kind stats
 6. rewrite the document and write the bundle

Failure semantics:
  - Steps 1, 2, and 6 are fatal: without a document there is nothing
    to archive, and without a written document there is no bundle.
  - Step 4 failures are per-task: they are counted, reported in the
    summary, and leave the affected references untouched.

Concurrency model:
  - One goroutine per task, gated by the limiter. A task holds its
    limiter slot across its whole retry sequence, so at most
    Concurrency() fetches are in flight at any instant.
  - Results flow through a channel and are folded by the single
    Run goroutine, so no map or counter needs a lock.
*/
type Pipeline struct {
	cfg          config.Config
	docFetcher   fetcher.Fetcher
	domExtractor extractor.DomExtractor
	allocator    naming.Allocator
	docRewriter  rewriter.DocumentRewriter
	bundleWriter storage.BundleWriter
	taskLimiter  limiter.ConcurrencyLimiter
	metadataSink metadata.MetadataSink
	finalizer    metadata.ArchiveFinalizer
	clock        func() time.Time
}

func NewPipeline(cfg config.Config, logger *slog.Logger) Pipeline {
	recorder := metadata.NewRecorder(logger)
	httpFetcher := fetcher.NewHttpFetcher(&recorder, &http.Client{}, cfg.Timeout(), cfg.MaxResourceSize())
	domExtractor := extractor.NewDomExtractor(&recorder)
	allocator := naming.NewAllocator(hashutil.HashAlgoBLAKE3)
	docRewriter := rewriter.NewDocumentRewriter(&recorder)
	bundleWriter := storage.NewFsBundleWriter(cfg.OutputDir(), &recorder)

	return Pipeline{
		cfg:          cfg,
		docFetcher:   &httpFetcher,
		domExtractor: domExtractor,
		allocator:    allocator,
		docRewriter:  docRewriter,
		bundleWriter: &bundleWriter,
		taskLimiter:  limiter.NewSemaphoreLimiter(cfg.Concurrency()),
		metadataSink: &recorder,
		finalizer:    &recorder,
		clock:        time.Now,
	}
}

// NewPipelineWithDeps wires a pipeline from explicit collaborators.
func NewPipelineWithDeps(
	cfg config.Config,
	docFetcher fetcher.Fetcher,
	domExtractor extractor.DomExtractor,
	allocator naming.Allocator,
	docRewriter rewriter.DocumentRewriter,
	bundleWriter storage.BundleWriter,
	taskLimiter limiter.ConcurrencyLimiter,
	metadataSink metadata.MetadataSink,
	finalizer metadata.ArchiveFinalizer,
) Pipeline {
	return Pipeline{
		cfg:          cfg,
		docFetcher:   docFetcher,
		domExtractor: domExtractor,
		allocator:    allocator,
		docRewriter:  docRewriter,
		bundleWriter: bundleWriter,
		taskLimiter:  taskLimiter,
		metadataSink: metadataSink,
		finalizer:    finalizer,
		clock:        time.Now,
	}
}

// Run executes one archive run. The returned error is non-nil only for
// run-terminating failures; resource download failures are reported
// through the summary.
func (p *Pipeline) Run(ctx context.Context) (Summary, failure.ClassifiedError) {
	startTime := p.clock()
	targetURL := p.cfg.TargetURL()
	retryParam := p.retryParam()

	docResult := p.docFetcher.FetchDocument(ctx, fetcher.NewFetchParam(targetURL, p.cfg.UserAgent()), retryParam)
	if err := docResult.Err(); err != nil {
		pipelineErr := &PipelineError{
			Message: fmt.Sprintf("fetch document %s: %v", targetURL.String(), err),
			Cause:   ErrCauseRootFetchFail,
		}
		p.recordError("run", pipelineErr)
		return Summary{}, pipelineErr
	}

	docValue := docResult.Value()
	doc, parseErr := p.domExtractor.Parse(targetURL, docValue.Body())
	if parseErr != nil {
		pipelineErr := &PipelineError{
			Message: fmt.Sprintf("parse document %s: %v", targetURL.String(), parseErr),
			Cause:   ErrCauseParseFail,
		}
		p.recordError("run", pipelineErr)
		return Summary{}, pipelineErr
	}

	refs := p.domExtractor.Extract(doc, targetURL, p.cfg.DownloadImages(), p.cfg.DownloadCSS())
	tasks := groupIntoTasks(refs)

	results := p.downloadAll(ctx, tasks, retryParam)

	localPaths := make(map[string]string)
	stats := ArchiveStats{}
	for _, result := range results {
		if result.Success() {
			canonical := urlutil.Canonicalize(result.ResourceURL())
			localPaths[canonical.String()] = result.LocalPath()
			stats.BytesWritten += result.ByteCount()
		}
		countResult(&stats, result)
	}

	rewrittenCount := p.docRewriter.Apply(refs, localPaths)
	if noticeErr := p.docRewriter.InjectArchiveNotice(doc, targetURL, p.clock()); noticeErr != nil {
		// the archive is still usable without the banner
		p.metadataSink.RecordError(
			time.Now(),
			"pipeline",
			"inject_notice",
			metadata.CauseContentInvalid,
			noticeErr.Error(),
			nil,
		)
	}

	rendered, renderErr := p.docRewriter.Render(doc)
	if renderErr != nil {
		pipelineErr := &PipelineError{
			Message: fmt.Sprintf("render document: %v", renderErr),
			Cause:   ErrCauseDocumentWriteFail,
		}
		p.recordError("run", pipelineErr)
		return Summary{}, pipelineErr
	}

	documentPath, writeErr := p.bundleWriter.WriteDocument(rendered)
	if writeErr != nil {
		pipelineErr := &PipelineError{
			Message: fmt.Sprintf("write document: %v", writeErr),
			Cause:   ErrCauseDocumentWriteFail,
		}
		p.recordError("run", pipelineErr)
		return Summary{}, pipelineErr
	}
	stats.BytesWritten += int64(len(rendered))
	stats.Duration = p.clock().Sub(startTime)

	p.finalizer.RecordFinalArchiveStats(
		stats.ResourcesOk(),
		stats.ResourcesFailed(),
		stats.BytesWritten,
		stats.Duration,
	)

	return Summary{
		DocumentPath:        documentPath,
		Stats:               stats,
		Results:             results,
		ReferencesFound:     len(refs),
		ReferencesRewritten: rewrittenCount,
	}, nil
}

// groupIntoTasks collapses references sharing a canonical URL into one
// task each. The first reference seen for a URL decides the task's kind;
// order follows first appearance in the document.
func groupIntoTasks(refs []extractor.ResourceReference) []DownloadTask {
	index := make(map[string]int)
	var tasks []DownloadTask
	for i := range refs {
		canonical := urlutil.Canonicalize(refs[i].Resolved())
		key := canonical.String()
		if at, seen := index[key]; seen {
			tasks[at].refCount++
			continue
		}
		index[key] = len(tasks)
		tasks = append(tasks, DownloadTask{
			resourceURL: canonical,
			kind:        refs[i].Kind(),
			refCount:    1,
		})
	}
	return tasks
}

// downloadAll fans tasks out under the limiter and collects one result
// per task. It returns only after every task has terminated.
func (p *Pipeline) downloadAll(ctx context.Context, tasks []DownloadTask, retryParam retry.RetryParam) []DownloadResult {
	if len(tasks) == 0 {
		return nil
	}

	resultCh := make(chan DownloadResult, len(tasks))
	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task DownloadTask) {
			defer wg.Done()
			resultCh <- p.runTask(ctx, task, retryParam)
		}(task)
	}
	wg.Wait()
	close(resultCh)

	results := make([]DownloadResult, 0, len(tasks))
	for result := range resultCh {
		results = append(results, result)
	}
	return results
}

func (p *Pipeline) runTask(ctx context.Context, task DownloadTask, retryParam retry.RetryParam) DownloadResult {
	if err := p.taskLimiter.Acquire(ctx); err != nil {
		return failedResult(task, 0, fmt.Sprintf("acquire download slot: %v", err))
	}
	defer p.taskLimiter.Release()

	fetchResult := p.docFetcher.FetchResource(ctx, fetcher.NewFetchParam(task.resourceURL, p.cfg.UserAgent()), retryParam)
	if err := fetchResult.Err(); err != nil {
		return failedResult(task, fetchResult.Attempts(), err.Error())
	}

	filename, nameErr := p.allocator.Allocate(task.resourceURL, task.kind)
	if nameErr != nil {
		return failedResult(task, fetchResult.Attempts(), fmt.Sprintf("allocate filename: %v", nameErr))
	}

	fetchValue := fetchResult.Value()
	body := fetchValue.Body()
	localPath, writeErr := p.bundleWriter.WriteResource(task.kind, filename, body)
	if writeErr != nil {
		return failedResult(task, fetchResult.Attempts(), writeErr.Error())
	}

	p.metadataSink.RecordArtifact(metadata.ArtifactResource, localPath, []metadata.Attribute{
		metadata.NewAttr(metadata.AttrURL, task.resourceURL.String()),
		metadata.NewAttr(metadata.AttrAttempts, strconv.Itoa(fetchResult.Attempts())),
	})

	return DownloadResult{
		resourceURL: task.resourceURL,
		kind:        task.kind,
		success:     true,
		localPath:   localPath,
		byteCount:   int64(len(body)),
		attempts:    fetchResult.Attempts(),
	}
}

func failedResult(task DownloadTask, attempts int, reason string) DownloadResult {
	return DownloadResult{
		resourceURL: task.resourceURL,
		kind:        task.kind,
		success:     false,
		attempts:    attempts,
		failReason:  reason,
	}
}

func countResult(stats *ArchiveStats, result DownloadResult) {
	switch result.Kind() {
	case extractor.KindStylesheet:
		if result.Success() {
			stats.StylesheetsOk++
		} else {
			stats.StylesheetsFailed++
		}
	default:
		if result.Success() {
			stats.ImagesOk++
		} else {
			stats.ImagesFailed++
		}
	}
}

func (p *Pipeline) retryParam() retry.RetryParam {
	return retry.NewRetryParam(
		p.cfg.Jitter(),
		p.cfg.RandomSeed(),
		p.cfg.MaxRetries()+1,
		timeutil.NewBackoffParam(
			p.cfg.BaseRetryDelay(),
			p.cfg.BackoffMultiplier(),
			p.cfg.BackoffMaxDuration(),
		),
	)
}

func (p *Pipeline) recordError(action string, pipelineErr *PipelineError) {
	targetURL := p.cfg.TargetURL()
	p.metadataSink.RecordError(
		time.Now(),
		"pipeline",
		action,
		mapPipelineErrorToMetadataCause(pipelineErr.Cause),
		pipelineErr.Message,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, targetURL.String()),
		},
	)
}
