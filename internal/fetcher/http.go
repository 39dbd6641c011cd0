package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rohmanhakim/page-archiver/internal/metadata"
	"github.com/rohmanhakim/page-archiver/pkg/failure"
	"github.com/rohmanhakim/page-archiver/pkg/retry"
)

/*
Responsibilities

- Perform HTTP requests
- Apply headers and per-attempt timeouts
- Classify responses

Fetch Semantics

- Transport errors and timeouts are transient and retried
- Any HTTP 4xx/5xx response is a final failure: the server answered,
  and repeating an unambiguous rejection rarely changes it
- The root document must be HTML; resources may be any content type
- Resource bodies are capped; exceeding the cap is a final failure

The fetcher never parses content; it only returns bytes and metadata.
*/

type HttpFetcher struct {
	metadataSink    metadata.MetadataSink
	httpClient      *http.Client
	attemptTimeout  time.Duration
	maxResourceSize int64
}

func NewHttpFetcher(
	metadataSink metadata.MetadataSink,
	httpClient *http.Client,
	attemptTimeout time.Duration,
	maxResourceSize int64,
) HttpFetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return HttpFetcher{
		metadataSink:    metadataSink,
		httpClient:      httpClient,
		attemptTimeout:  attemptTimeout,
		maxResourceSize: maxResourceSize,
	}
}

func (h *HttpFetcher) FetchDocument(
	ctx context.Context,
	fetchParam FetchParam,
	retryParam retry.RetryParam,
) retry.Result[FetchResult] {
	return h.fetchWithRetry(ctx, "HttpFetcher.FetchDocument", fetchParam, retryParam, true)
}

func (h *HttpFetcher) FetchResource(
	ctx context.Context,
	fetchParam FetchParam,
	retryParam retry.RetryParam,
) retry.Result[FetchResult] {
	return h.fetchWithRetry(ctx, "HttpFetcher.FetchResource", fetchParam, retryParam, false)
}

func (h *HttpFetcher) fetchWithRetry(
	ctx context.Context,
	callerMethod string,
	fetchParam FetchParam,
	retryParam retry.RetryParam,
	wantHTML bool,
) retry.Result[FetchResult] {
	startTime := time.Now()

	fetchTask := func() (FetchResult, failure.ClassifiedError) {
		return h.performFetch(ctx, fetchParam, wantHTML)
	}

	result := retry.Retry(retryParam, fetchTask)

	duration := time.Since(startTime)

	var statusCode int
	if result.Err() == nil {
		value := result.Value()
		statusCode = value.Code()
	}

	h.metadataSink.RecordFetch(
		fetchParam.fetchUrl.String(),
		statusCode,
		duration,
		result.Attempts(),
	)

	if err := result.Err(); err != nil {
		h.recordError(callerMethod, fetchParam.fetchUrl, err)
	}

	return result
}

func (h *HttpFetcher) recordError(callerMethod string, fetchUrl url.URL, err failure.ClassifiedError) {
	cause := metadata.CauseUnknown

	var retryErr *retry.RetryError
	var fetchErr *FetchError
	switch {
	case errors.As(err, &retryErr):
		cause = metadata.CauseRetryFailure
	case errors.As(err, &fetchErr):
		cause = mapFetchErrorToMetadataCause(fetchErr)
	}

	h.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		callerMethod,
		cause,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, fetchUrl.String()),
		},
	)
}

func (h *HttpFetcher) performFetch(ctx context.Context, fetchParam FetchParam, wantHTML bool) (FetchResult, failure.ClassifiedError) {
	// Each attempt gets its own deadline so a stalled attempt times out
	// without consuming the whole run budget.
	attemptCtx := ctx
	if h.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, h.attemptTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, fetchParam.fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseNetworkFailure,
		}
	}

	headers := requestHeaders(fetchParam.userAgent, wantHTML)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return FetchResult{}, &FetchError{
				Message:   fmt.Sprintf("request timed out: %v", err),
				Retryable: true,
				Cause:     ErrCauseTimeout,
			}
		}
		// Other network/transport errors are retryable
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: true,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()

	// The server answered: any error status is final, whether client or
	// server side. Diagnose and stop rather than hammer a 403/404/500.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return FetchResult{}, &FetchError{
			Message:    fmt.Sprintf("error status: %d", resp.StatusCode),
			Retryable:  false,
			Cause:      ErrCauseHTTPStatus,
			StatusCode: resp.StatusCode,
		}
	}

	if wantHTML {
		contentType := resp.Header.Get("Content-Type")
		if !isHTMLContent(contentType) {
			return FetchResult{}, &FetchError{
				Message:   fmt.Sprintf("non-HTML content type: %s", contentType),
				Retryable: false,
				Cause:     ErrCauseContentTypeInvalid,
			}
		}
	}

	// Read with hard limit to protect against:
	// - Content-Length = -1 (unknown/omitted)
	// - Incorrect/malicious Content-Length values
	// - Streaming responses that exceed maxResourceSize
	var reader io.Reader = resp.Body
	if h.maxResourceSize > 0 {
		reader = io.LimitReader(resp.Body, h.maxResourceSize+1) // +1 to detect overflow
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		if isTimeout(err) {
			return FetchResult{}, &FetchError{
				Message:   fmt.Sprintf("body read timed out: %v", err),
				Retryable: true,
				Cause:     ErrCauseTimeout,
			}
		}
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}

	if h.maxResourceSize > 0 && int64(len(body)) > h.maxResourceSize {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("body too large: exceeded max %d bytes", h.maxResourceSize),
			Retryable: false,
			Cause:     ErrCauseBodyTooLarge,
		}
	}

	// Build response headers map
	responseHeaders := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			responseHeaders[key] = values[0]
		}
	}

	return FetchResult{
		url:  fetchParam.fetchUrl,
		body: body,
		meta: ResponseMeta{
			statusCode:          resp.StatusCode,
			transferredSizeByte: uint64(len(body)),
			responseHeaders:     responseHeaders,
		},
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isHTMLContent(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml")
}

func requestHeaders(userAgent string, wantHTML bool) map[string]string {
	accept := "image/webp,image/apng,image/*,text/css,*/*;q=0.8"
	if wantHTML {
		accept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	}
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          accept,
		"Accept-Language": "en-US,en;q=0.5",
		"Connection":      "keep-alive",
	}
}
