package naming

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/rohmanhakim/page-archiver/internal/extractor"
	"github.com/rohmanhakim/page-archiver/pkg/fileutil"
	"github.com/rohmanhakim/page-archiver/pkg/hashutil"
)

/*
Responsibilities
- Map a resource URL to a stable local filename
- Keep filenames collision-free across URLs sharing a trailing segment
- Keep filenames human-recognizable

Naming Policy
- <sanitized-basename>-<url-hash-12-hex>.<ext>
- The hash is computed over the full URL string, so two distinct URLs
  ending in "logo.png" get distinct names while the same URL always
  maps to the same name within and across calls
- Stylesheets with no extension in the URL path get ".css"
*/

const (
	hashPrefixLen = 12
	maxNameLen    = 30
)

type Allocator struct {
	hashAlgo hashutil.HashAlgo
}

func NewAllocator(hashAlgo hashutil.HashAlgo) Allocator {
	return Allocator{
		hashAlgo: hashAlgo,
	}
}

// Allocate returns the local filename for the given resource URL.
// Pure and deterministic: the same URL always yields the same filename.
func (a *Allocator) Allocate(resourceURL url.URL, kind extractor.ResourceKind) (string, error) {
	urlHash, err := hashutil.HashBytes([]byte(resourceURL.String()), a.hashAlgo)
	if err != nil {
		return "", err
	}
	shortHash := urlHash
	if len(shortHash) > hashPrefixLen {
		shortHash = shortHash[:hashPrefixLen]
	}

	base := filepath.Base(resourceURL.Path)
	extension := fileutil.GetFileExtension(resourceURL.Path)
	nameWithoutExt := strings.TrimSuffix(base, filepath.Ext(base))

	safeName := sanitizeFilename(nameWithoutExt)
	if safeName == "" {
		safeName = "resource"
	}

	if extension == "" && kind == extractor.KindStylesheet {
		extension = "css"
	}

	filename := safeName + "-" + shortHash
	if extension != "" {
		filename = filename + "." + extension
	}

	return filename, nil
}

// sanitizeFilename keeps only alphanumerics, underscore, and hyphen,
// replacing everything else with underscore, and caps the length.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	result := strings.Trim(b.String(), "_")
	if len(result) > maxNameLen {
		result = result[:maxNameLen]
	}
	return result
}
