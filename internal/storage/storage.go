package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rohmanhakim/page-archiver/internal/extractor"
	"github.com/rohmanhakim/page-archiver/internal/metadata"
	"github.com/rohmanhakim/page-archiver/pkg/failure"
	"github.com/rohmanhakim/page-archiver/pkg/fileutil"
)

const documentFilename = "index.html"

/*
Responsibilities
- Own the on-disk layout of an archive bundle
- Write resource payloads under their kind subdirectory
- Write the rewritten document at the bundle root
It must not:
- decide filenames (the allocator does)
- mutate document content
*/
type BundleWriter interface {
	// WriteResource persists a downloaded resource payload and returns
	// its path relative to the bundle root, e.g. "images/logo-ab12cd34ef56.png".
	WriteResource(kind extractor.ResourceKind, filename string, data []byte) (string, failure.ClassifiedError)

	// WriteDocument persists the rewritten document as index.html at the
	// bundle root and returns its absolute path.
	WriteDocument(data []byte) (string, failure.ClassifiedError)
}

type FsBundleWriter struct {
	outputDir    string
	metadataSink metadata.MetadataSink
}

func NewFsBundleWriter(outputDir string, metadataSink metadata.MetadataSink) FsBundleWriter {
	return FsBundleWriter{
		outputDir:    outputDir,
		metadataSink: metadataSink,
	}
}

func (w *FsBundleWriter) WriteResource(kind extractor.ResourceKind, filename string, data []byte) (string, failure.ClassifiedError) {
	subDir := kind.SubDir()
	if err := fileutil.EnsureDir(w.outputDir, subDir); err != nil {
		storageErr := &StorageError{
			Message:   fmt.Sprintf("create bundle subdirectory %s: %v", subDir, err),
			Retryable: false,
			Cause:     ErrCauseDirCreation,
		}
		w.recordError("write_resource", storageErr)
		return "", storageErr
	}

	relPath := filepath.Join(subDir, filename)
	absPath := filepath.Join(w.outputDir, relPath)
	if err := os.WriteFile(absPath, data, 0644); err != nil {
		storageErr := classifyWriteError(relPath, err)
		w.recordError("write_resource", storageErr)
		return "", storageErr
	}

	w.metadataSink.RecordArtifact(metadata.ArtifactResource, absPath, []metadata.Attribute{
		metadata.NewAttr(metadata.AttrKind, string(kind)),
	})
	return relPath, nil
}

func (w *FsBundleWriter) WriteDocument(data []byte) (string, failure.ClassifiedError) {
	if err := fileutil.EnsureDir(w.outputDir); err != nil {
		storageErr := &StorageError{
			Message:   fmt.Sprintf("create bundle directory %s: %v", w.outputDir, err),
			Retryable: false,
			Cause:     ErrCauseDirCreation,
		}
		w.recordError("write_document", storageErr)
		return "", storageErr
	}

	absPath := filepath.Join(w.outputDir, documentFilename)
	if err := os.WriteFile(absPath, data, 0644); err != nil {
		storageErr := classifyWriteError(documentFilename, err)
		w.recordError("write_document", storageErr)
		return "", storageErr
	}

	w.metadataSink.RecordArtifact(metadata.ArtifactDocument, absPath, nil)
	return absPath, nil
}

// classifyWriteError separates disk exhaustion, which may clear, from
// other write failures, which will not.
func classifyWriteError(path string, err error) *StorageError {
	if errors.Is(err, syscall.ENOSPC) {
		return &StorageError{
			Message:   fmt.Sprintf("write %s: disk full: %v", path, err),
			Retryable: true,
			Cause:     ErrCauseDiskFull,
		}
	}
	return &StorageError{
		Message:   fmt.Sprintf("write %s: %v", path, err),
		Retryable: false,
		Cause:     ErrCauseWriteFail,
	}
}

func (w *FsBundleWriter) recordError(action string, storageErr *StorageError) {
	w.metadataSink.RecordError(
		time.Now(),
		"storage",
		action,
		mapStorageErrorToMetadataCause(storageErr.Cause),
		storageErr.Message,
		nil,
	)
}
