// Package dataset implements the dataset hub client: authentication, file
// listing and downloads of files stored under <owner>/<dataset>/<file>.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/tabloader/tabloader/internal/config"
	apperrors "github.com/tabloader/tabloader/internal/errors"
	"github.com/tabloader/tabloader/internal/storage"
)

// authMarker is the object checked by Authenticate. Its absence is fine; only
// an access failure means the hub rejected the credentials.
const authMarker = ".tabloader-auth"

// Dataset hub errors.
var (
	ErrNotAuthenticated = apperrors.NewDatasetError(apperrors.CodeNotAuthenticated, "client is not authenticated", nil)
	ErrFileNotFound     = apperrors.NewDatasetError(apperrors.CodeFileNotFound, "dataset file not found", nil)
	ErrUnpackFailed     = apperrors.NewDatasetError(apperrors.CodeUnpackFailed, "failed to unpack dataset file", nil)
)

// FileInfo describes one file of a dataset.
type FileInfo struct {
	// Type is the lower-case file extension without the dot, empty when absent
	Type string `json:"type" yaml:"type"`
	// Size is the file size in bytes
	Size int64 `json:"size" yaml:"size"`
}

// Client talks to a dataset hub backed by object storage.
type Client struct {
	store         storage.ObjectStorage
	downloader    *storage.BatchDownloader
	logger        zerolog.Logger
	authenticated atomic.Bool
}

// NewClient creates a hub client over store. Parallel downloads are bounded
// by cfg.Concurrency.
func NewClient(store storage.ObjectStorage, cfg config.HubConfig, logger zerolog.Logger) *Client {
	return &Client{
		store:      store,
		downloader: storage.NewBatchDownloader(store, cfg.Concurrency),
		logger:     logger,
	}
}

// OpenHub opens the object storage configured for the hub.
func OpenHub(ctx context.Context, cfg config.HubConfig) (storage.ObjectStorage, error) {
	switch cfg.Type {
	case "", "local":
		return storage.NewLocalStorage(cfg.Path)
	case "s3":
		s3cfg := storage.DefaultS3Config()
		if cfg.S3.Region != "" {
			s3cfg.Region = cfg.S3.Region
		}
		s3cfg.Endpoint = cfg.S3.Endpoint
		s3cfg.UsePathStyle = cfg.S3.UsePathStyle
		return storage.NewS3Storage(ctx, cfg.S3.Bucket, s3cfg)
	default:
		return nil, fmt.Errorf("unsupported hub type: %s", cfg.Type)
	}
}

// Authenticate verifies that the hub accepts the client's credentials.
// Every other operation fails with ErrNotAuthenticated until it succeeds.
func (c *Client) Authenticate(ctx context.Context) error {
	if _, err := c.store.Exists(ctx, authMarker); err != nil {
		return apperrors.NewDatasetError(apperrors.CodeNotAuthenticated, "hub rejected credentials", err)
	}
	c.authenticated.Store(true)
	c.logger.Debug().Msg("authenticated against dataset hub")
	return nil
}

// Authenticated reports whether Authenticate has succeeded.
func (c *Client) Authenticated() bool {
	return c.authenticated.Load()
}

// ListFiles returns the files of a dataset keyed by file name.
func (c *Client) ListFiles(ctx context.Context, owner, dataset string) (map[string]FileInfo, error) {
	prefix, err := c.prefix(owner, dataset)
	if err != nil {
		return nil, err
	}

	objects, err := c.store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s/%s: %w", owner, dataset, err)
	}

	files := make(map[string]FileInfo, len(objects))
	for _, obj := range objects {
		name := strings.TrimPrefix(obj.Path, prefix)
		if name == "" {
			continue
		}
		files[name] = FileInfo{Type: fileType(name), Size: obj.Size}
	}
	return files, nil
}

// DownloadAll downloads every file of a dataset into saveDir and returns the
// resulting local paths, sorted. When unpack is set, archives are extracted
// and compressed files decompressed in place.
func (c *Client) DownloadAll(ctx context.Context, owner, dataset, saveDir string, unpack bool) ([]string, error) {
	prefix, err := c.prefix(owner, dataset)
	if err != nil {
		return nil, err
	}

	objects, err := c.store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s/%s: %w", owner, dataset, err)
	}
	if len(objects) == 0 {
		return nil, ErrFileNotFound.WithDetails(map[string]interface{}{"dataset": owner + "/" + dataset})
	}

	paths := make([]string, 0, len(objects))
	for _, obj := range objects {
		paths = append(paths, obj.Path)
	}

	result, err := c.downloader.Download(ctx, &storage.BatchRequest{
		ObjectPaths: paths,
		Prefix:      prefix,
		DestDir:     saveDir,
		Overwrite:   true,
	})
	if err != nil {
		return nil, err
	}
	if len(result.Errors) > 0 {
		errs := make([]error, 0, len(result.Errors))
		for p, e := range result.Errors {
			errs = append(errs, fmt.Errorf("%s: %w", p, c.translate(e)))
		}
		return nil, errors.Join(errs...)
	}

	c.logger.Info().
		Str("dataset", owner+"/"+dataset).
		Int("files", result.Downloads).
		Str("dir", saveDir).
		Msg("downloaded dataset")

	var local []string
	for _, p := range result.LocalPaths {
		out, err := c.finish(p, unpack)
		if err != nil {
			return nil, err
		}
		local = append(local, out...)
	}
	sort.Strings(local)
	return local, nil
}

// DownloadFile downloads a single dataset file into saveDir and returns the
// resulting local paths.
func (c *Client) DownloadFile(ctx context.Context, owner, dataset, file, saveDir string, unpack bool) ([]string, error) {
	prefix, err := c.prefix(owner, dataset)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(file) == "" {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidArgument, "file name is required")
	}

	objectPath := prefix + strings.TrimPrefix(path.Clean("/"+file), "/")
	localPath := filepath.Join(saveDir, filepath.Base(filepath.FromSlash(objectPath)))

	if err := c.store.Download(ctx, objectPath, localPath); err != nil {
		return nil, c.translate(err)
	}

	c.logger.Info().
		Str("dataset", owner+"/"+dataset).
		Str("file", file).
		Str("path", localPath).
		Msg("downloaded dataset file")

	out, err := c.finish(localPath, unpack)
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// Publish uploads a local file into a dataset under its base name.
func (c *Client) Publish(ctx context.Context, owner, dataset, localPath string) (string, error) {
	prefix, err := c.prefix(owner, dataset)
	if err != nil {
		return "", err
	}

	objectPath := prefix + filepath.Base(localPath)
	if err := c.store.Upload(ctx, localPath, objectPath); err != nil {
		return "", err
	}

	c.logger.Info().Str("object", objectPath).Msg("published dataset file")
	return objectPath, nil
}

func (c *Client) prefix(owner, dataset string) (string, error) {
	if !c.authenticated.Load() {
		return "", ErrNotAuthenticated
	}
	for _, part := range []string{owner, dataset} {
		if strings.TrimSpace(part) == "" || strings.ContainsAny(part, `/\`) || part == "." || part == ".." {
			return "", apperrors.Newf(apperrors.ErrCategoryValidation, apperrors.CodeInvalidArgument,
				"invalid dataset reference %q/%q", owner, dataset)
		}
	}
	return owner + "/" + dataset + "/", nil
}

func (c *Client) finish(localPath string, unpack bool) ([]string, error) {
	if !unpack {
		return []string{localPath}, nil
	}
	out, err := Unpack(localPath)
	if err != nil {
		return nil, err
	}
	if len(out) > 1 || (len(out) == 1 && out[0] != localPath) {
		c.logger.Debug().Str("path", localPath).Int("files", len(out)).Msg("unpacked")
	}
	return out, nil
}

func (c *Client) translate(err error) error {
	if errors.Is(err, storage.ErrObjectNotFound) {
		return apperrors.NewDatasetError(apperrors.CodeFileNotFound, "dataset file not found", err)
	}
	return err
}

func fileType(name string) string {
	ext := filepath.Ext(name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ensureDir creates dir when missing.
func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
