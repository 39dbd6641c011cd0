package extractor

import (
	"net/url"

	"golang.org/x/net/html"
)

// ResourceKind identifies which family of embedded asset a reference
// points at. The kind decides both the output subdirectory and which
// statistics counter a download outcome lands in.
type ResourceKind string

const (
	KindImage      ResourceKind = "image"
	KindStylesheet ResourceKind = "stylesheet"
)

// SubDir returns the bundle subdirectory for resources of this kind.
func (k ResourceKind) SubDir() string {
	if k == KindStylesheet {
		return "css"
	}
	return "images"
}

// ResourceReference is one embedded asset pointer discovered in the
// document: the attribute value as written, the absolute URL it resolves
// to, and a handle on the element carrying it. Several references may
// share the same resolved URL; downloading deduplicates, rewriting does
// not.
type ResourceReference struct {
	raw        string
	resolved   url.URL
	kind       ResourceKind
	node       *html.Node
	sourceAttr string
}

func NewResourceReference(
	raw string,
	resolved url.URL,
	kind ResourceKind,
	node *html.Node,
	sourceAttr string,
) ResourceReference {
	return ResourceReference{
		raw:        raw,
		resolved:   resolved,
		kind:       kind,
		node:       node,
		sourceAttr: sourceAttr,
	}
}

func (r *ResourceReference) Raw() string {
	return r.raw
}

func (r *ResourceReference) Resolved() url.URL {
	return r.resolved
}

func (r *ResourceReference) Kind() ResourceKind {
	return r.kind
}

func (r *ResourceReference) Node() *html.Node {
	return r.node
}

func (r *ResourceReference) SourceAttr() string {
	return r.sourceAttr
}
