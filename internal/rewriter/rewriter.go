package rewriter

import (
	"bytes"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/rohmanhakim/page-archiver/internal/extractor"
	"github.com/rohmanhakim/page-archiver/internal/metadata"
	"github.com/rohmanhakim/page-archiver/pkg/failure"
	"github.com/rohmanhakim/page-archiver/pkg/urlutil"
)

const noticeElementID = "page-archive-notice"

/*
Responsibilities
- Point document references at downloaded local copies
- Leave references whose download failed untouched
- Stamp the document with an archive notice
Invariants:
- Rewriting is idempotent: applying the same outcome map twice yields
  the same document as applying it once.
- Every element sharing a URL is rewritten, even though the URL was
  downloaded once.
*/
type DocumentRewriter struct {
	metadataSink metadata.MetadataSink
}

func NewDocumentRewriter(metadataSink metadata.MetadataSink) DocumentRewriter {
	return DocumentRewriter{
		metadataSink: metadataSink,
	}
}

// Apply points each reference at its local copy. localPaths is keyed by
// canonical resource URL; references with no entry are left as-is.
// It returns how many references were rewritten.
func (w *DocumentRewriter) Apply(refs []extractor.ResourceReference, localPaths map[string]string) int {
	rewritten := 0
	for i := range refs {
		ref := &refs[i]
		canonical := urlutil.Canonicalize(ref.Resolved())
		localPath, ok := localPaths[canonical.String()]
		if !ok {
			continue
		}
		switch ref.Kind() {
		case extractor.KindImage:
			setAttr(ref.Node(), "src", localPath)
			// a stale lazy-load attribute would let scripts undo the rewrite
			removeAttr(ref.Node(), "data-src")
		case extractor.KindStylesheet:
			setAttr(ref.Node(), "href", localPath)
		}
		rewritten++
	}
	return rewritten
}

// InjectArchiveNotice prepends a provenance banner to the document body.
// A document already carrying the banner is left unchanged.
func (w *DocumentRewriter) InjectArchiveNotice(doc *goquery.Document, sourceURL url.URL, archivedAt time.Time) failure.ClassifiedError {
	if doc.Find("#" + noticeElementID).Length() > 0 {
		return nil
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		rewriteErr := &RewriteError{
			Message:   "document has no body element to carry the archive notice",
			Retryable: false,
			Cause:     ErrCauseNoticeInjectFail,
		}
		w.recordError("inject_notice", rewriteErr)
		return rewriteErr
	}

	notice := fmt.Sprintf(
		`<div id=%q style="padding:8px;background:#fffbcc;border-bottom:1px solid #e0d890;font-size:13px;">Archived copy of <a href=%q>%s</a>, saved on %s.</div>`,
		noticeElementID,
		sourceURL.String(),
		html.EscapeString(sourceURL.String()),
		archivedAt.UTC().Format("2006-01-02 15:04 MST"),
	)
	body.PrependHtml(notice)
	return nil
}

// Render serializes the document back to HTML bytes.
func (w *DocumentRewriter) Render(doc *goquery.Document) ([]byte, failure.ClassifiedError) {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc.Get(0)); err != nil {
		rewriteErr := &RewriteError{
			Message:   fmt.Sprintf("render document: %v", err),
			Retryable: false,
			Cause:     ErrCauseRenderFail,
		}
		w.recordError("render", rewriteErr)
		return nil, rewriteErr
	}
	return buf.Bytes(), nil
}

func (w *DocumentRewriter) recordError(action string, rewriteErr *RewriteError) {
	w.metadataSink.RecordError(
		time.Now(),
		"rewriter",
		action,
		mapRewriteErrorToMetadataCause(rewriteErr.Cause),
		rewriteErr.Message,
		nil,
	)
}

func setAttr(node *html.Node, key string, value string) {
	for i := range node.Attr {
		if node.Attr[i].Key == key {
			node.Attr[i].Val = value
			return
		}
	}
	node.Attr = append(node.Attr, html.Attribute{Key: key, Val: value})
}

func removeAttr(node *html.Node, key string) {
	kept := node.Attr[:0]
	for _, attr := range node.Attr {
		if attr.Key != key {
			kept = append(kept, attr)
		}
	}
	node.Attr = kept
}
