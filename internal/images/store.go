// Package images downloads post media to a local directory so records
// can carry durable file paths alongside the original URLs.
package images

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Config captures the parameters for the image store.
type Config struct {
	// Dir is the directory downloaded images are written to.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Store downloads images over HTTP and writes them under a base
// directory. A failed download is logged and skipped; the record keeps
// whatever subset succeeded.
type Store struct {
	dir    string
	client *resty.Client
	logger *zap.Logger
}

// New validates the base directory and builds a Store.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("image directory is required")
	}

	info, err := os.Stat(cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(cfg.Dir, 0o750); mkErr != nil {
				return nil, fmt.Errorf("failed to create image directory: %w", mkErr)
			}
		} else {
			return nil, fmt.Errorf("failed to stat image directory: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("image directory path is not a directory")
	}

	// Check for write permissions.
	testFile := filepath.Join(cfg.Dir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("image directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &Store{
		dir:    cfg.Dir,
		client: resty.New(),
		logger: logger,
	}, nil
}

// Fetch downloads each URL and returns the local paths of the copies
// that landed. Order follows the successful subset of the input.
func (s *Store) Fetch(ctx context.Context, urls []string) []string {
	var paths []string
	for _, raw := range urls {
		p, err := s.fetchOne(ctx, raw)
		if err != nil {
			s.logger.Warn("image download failed",
				zap.String("url", raw),
				zap.Error(err),
			)
			continue
		}
		paths = append(paths, p)
	}
	return paths
}

func (s *Store) fetchOne(ctx context.Context, rawURL string) (string, error) {
	res, err := s.client.R().
		SetContext(ctx).
		Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("get image: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("get image: status %d", res.StatusCode())
	}

	full := filepath.Join(s.dir, localName(rawURL))
	if err := os.WriteFile(full, res.Body(), 0o600); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return full, nil
}

// localName derives a stable filename from the source URL: a digest of
// the whole URL plus the original extension, so re-downloads overwrite
// instead of accumulating.
func localName(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	name := hex.EncodeToString(sum[:])

	ext := ".jpg"
	if u, err := url.Parse(rawURL); err == nil {
		if e := path.Ext(u.Path); e != "" {
			ext = e
		}
	}
	return name + ext
}
