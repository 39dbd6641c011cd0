package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/rohmanhakim/page-archiver/internal/metadata"
	"github.com/rohmanhakim/page-archiver/pkg/failure"
	"github.com/rohmanhakim/page-archiver/pkg/urlutil"
)

/*
Responsibilities
- Parse HTML into a DOM tree
- Discover embedded resource references (images, stylesheets)
- Resolve relative reference URLs against the document base

Extraction Rules
- An image reference is read from src, falling back to data-src when
  src is absent (lazy-loaded images)
- A stylesheet reference is read from link elements whose rel contains
  "stylesheet"
- References with no resolvable URL are skipped, not an error

The extractor never fetches anything; it only walks the tree.
*/

type DomExtractor struct {
	metadataSink metadata.MetadataSink
}

func NewDomExtractor(
	metadataSink metadata.MetadataSink,
) DomExtractor {
	return DomExtractor{
		metadataSink: metadataSink,
	}
}

// Parse builds the mutable document tree from raw HTML bytes. The same
// tree instance flows through extraction, rewriting, and rendering.
func (d *DomExtractor) Parse(
	sourceUrl url.URL,
	htmlByte []byte,
) (*goquery.Document, failure.ClassifiedError) {
	root, err := html.Parse(bytes.NewReader(htmlByte))
	if err != nil {
		extractionErr := &ExtractionError{
			Message:   fmt.Sprintf("failed to parse HTML: %v", err),
			Retryable: false,
			Cause:     ErrCauseNotHTML,
		}
		d.recordError(sourceUrl, extractionErr)
		return nil, extractionErr
	}

	return goquery.NewDocumentFromNode(root), nil
}

// Extract walks the parsed document and returns every resource reference
// in document order. Disabled kinds are skipped entirely.
func (d *DomExtractor) Extract(
	doc *goquery.Document,
	baseURL url.URL,
	withImages bool,
	withStylesheets bool,
) []ResourceReference {
	var refs []ResourceReference

	if withImages {
		doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
			raw, attr := imageSource(sel)
			if raw == "" {
				return
			}
			resolved, ok := resolveRef(baseURL, raw)
			if !ok {
				d.recordSkipped(baseURL, raw)
				return
			}
			refs = append(refs, NewResourceReference(raw, resolved, KindImage, sel.Nodes[0], attr))
		})
	}

	if withStylesheets {
		doc.Find("link").Each(func(_ int, sel *goquery.Selection) {
			if !isStylesheetLink(sel) {
				return
			}
			raw, exists := sel.Attr("href")
			raw = strings.TrimSpace(raw)
			if !exists || raw == "" {
				return
			}
			resolved, ok := resolveRef(baseURL, raw)
			if !ok {
				d.recordSkipped(baseURL, raw)
				return
			}
			refs = append(refs, NewResourceReference(raw, resolved, KindStylesheet, sel.Nodes[0], "href"))
		})
	}

	return refs
}

// imageSource reads the primary source attribute, falling back to the
// lazy-load attribute when the primary is absent or blank.
func imageSource(sel *goquery.Selection) (string, string) {
	if src, ok := sel.Attr("src"); ok {
		if trimmed := strings.TrimSpace(src); trimmed != "" {
			return trimmed, "src"
		}
	}
	if dataSrc, ok := sel.Attr("data-src"); ok {
		if trimmed := strings.TrimSpace(dataSrc); trimmed != "" {
			return trimmed, "data-src"
		}
	}
	return "", ""
}

func isStylesheetLink(sel *goquery.Selection) bool {
	rel, _ := sel.Attr("rel")
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		if token == "stylesheet" {
			return true
		}
	}
	return false
}

// resolveRef turns a raw attribute value into an absolute http(s) URL.
// Anything unparseable or non-fetchable (data:, javascript:, mailto:)
// reports false.
func resolveRef(baseURL url.URL, raw string) (url.URL, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return url.URL{}, false
	}

	resolved := urlutil.Resolve(baseURL, *parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return url.URL{}, false
	}
	if resolved.Host == "" {
		return url.URL{}, false
	}
	return resolved, true
}

func (d *DomExtractor) recordError(sourceUrl url.URL, err *ExtractionError) {
	d.metadataSink.RecordError(
		time.Now(),
		"extractor",
		"DomExtractor.Parse",
		mapExtractionErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, sourceUrl.String()),
		},
	)
}

func (d *DomExtractor) recordSkipped(baseURL url.URL, raw string) {
	d.metadataSink.RecordError(
		time.Now(),
		"extractor",
		"DomExtractor.Extract",
		metadata.CauseContentInvalid,
		fmt.Sprintf("skipping unresolvable reference: %s", raw),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, baseURL.String()),
			metadata.NewAttr(metadata.AttrMessage, raw),
		},
	)
}
