package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
)

// BatchDownloader coordinates parallel downloads from object storage into a directory.
type BatchDownloader struct {
	storage     ObjectStorage
	concurrency int
}

// BatchRequest specifies which objects to download and where.
type BatchRequest struct {
	// ObjectPaths are the objects to download.
	ObjectPaths []string
	// Prefix is stripped from each object path to form its path under DestDir.
	Prefix string
	// DestDir is the local destination directory.
	DestDir string
	// Overwrite re-downloads files that already exist locally.
	Overwrite bool
}

// BatchResult contains the outcome of a batch download operation.
type BatchResult struct {
	LocalPaths map[string]string
	Errors     map[string]error
	Skipped    int
	Downloads  int
}

// NewBatchDownloader creates a new batch downloader.
// concurrency is the maximum number of parallel downloads (minimum 1).
func NewBatchDownloader(storage ObjectStorage, concurrency int) *BatchDownloader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchDownloader{
		storage:     storage,
		concurrency: concurrency,
	}
}

// Download downloads multiple objects in parallel.
// Successful downloads are reported in LocalPaths and failures in Errors, both
// keyed by object path. The returned error is non-nil only for a malformed request.
func (b *BatchDownloader) Download(ctx context.Context, req *BatchRequest) (*BatchResult, error) {
	result := &BatchResult{
		LocalPaths: make(map[string]string),
		Errors:     make(map[string]error),
	}
	if len(req.ObjectPaths) == 0 {
		return result, nil
	}
	if req.DestDir == "" {
		return nil, fmt.Errorf("destination directory is required")
	}

	type job struct {
		objectPath string
		localPath  string
	}
	var queue []job

	for _, p := range req.ObjectPaths {
		local, err := localPathFor(req.DestDir, req.Prefix, p)
		if err != nil {
			result.Errors[p] = err
			continue
		}
		if !req.Overwrite {
			if _, err := os.Stat(local); err == nil {
				result.LocalPaths[p] = local
				result.Skipped++
				continue
			}
		}
		queue = append(queue, job{objectPath: p, localPath: local})
	}

	sem := semaphore.NewWeighted(int64(b.concurrency))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, j := range queue {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			result.Errors[j.objectPath] = fmt.Errorf("semaphore acquire failed: %w", err)
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(j job) {
			defer sem.Release(1)
			defer wg.Done()

			if err := b.storage.Download(ctx, j.objectPath, j.localPath); err != nil {
				mu.Lock()
				result.Errors[j.objectPath] = err
				mu.Unlock()
				return
			}

			mu.Lock()
			result.LocalPaths[j.objectPath] = j.localPath
			result.Downloads++
			mu.Unlock()
		}(j)
	}

	wg.Wait()

	return result, nil
}

// localPathFor maps an object path below prefix to a path below destDir,
// rejecting paths that would escape destDir.
func localPathFor(destDir, prefix, objectPath string) (string, error) {
	rel := strings.TrimPrefix(objectPath, prefix)
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")
	if rel == "" || rel == "." {
		return "", fmt.Errorf("object path %q has no file name below prefix %q", objectPath, prefix)
	}
	return filepath.Join(destDir, filepath.FromSlash(rel)), nil
}
