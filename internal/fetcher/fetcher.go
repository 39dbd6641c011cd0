package fetcher

import (
	"context"

	"github.com/rohmanhakim/page-archiver/pkg/retry"
)

type Fetcher interface {
	// FetchDocument fetches the root HTML document. The response must carry
	// an HTML content type; anything else is a final failure.
	FetchDocument(
		ctx context.Context,
		fetchParam FetchParam,
		retryParam retry.RetryParam,
	) retry.Result[FetchResult]

	// FetchResource fetches one embedded resource (image or stylesheet
	// bytes), retrying transient failures per retryParam.
	FetchResource(
		ctx context.Context,
		fetchParam FetchParam,
		retryParam retry.RetryParam,
	) retry.Result[FetchResult]
}
