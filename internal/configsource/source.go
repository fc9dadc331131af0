// Package configsource loads the raw reporting config from where it is
// published: a local file, a git repository or an object store bucket.
package configsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"bugomattic/api/internal/config"
)

// maxConfigBytes bounds how much of a config we read.
const maxConfigBytes = 8 << 20

var ErrTooLarge = errors.New("reporting config exceeds size limit")

// Source yields the raw reporting config. Callers normalize it.
type Source interface {
	Load(ctx context.Context) (json.RawMessage, error)
	String() string
}

// FromConfig builds the source selected by cfg.ConfigSource.
func FromConfig(cfg config.Config) (Source, error) {
	switch cfg.ConfigSource {
	case "", "file":
		return File{Path: cfg.ConfigPath}, nil
	case "git":
		return NewGit(cfg.ConfigRepoDir, cfg.ConfigRepoBranch, cfg.ConfigPath), nil
	case "s3":
		return NewObject(ObjectOptions{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Key:       cfg.ConfigPath,
			UseSSL:    cfg.S3UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown config source %q", cfg.ConfigSource)
	}
}

// File reads the config from the local filesystem.
type File struct {
	Path string
}

func (f File) Load(ctx context.Context) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open reporting config: %w", err)
	}
	defer file.Close()
	return readLimited(file)
}

func (f File) String() string { return "file:" + f.Path }

func readLimited(r io.Reader) (json.RawMessage, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxConfigBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read reporting config: %w", err)
	}
	if len(data) > maxConfigBytes {
		return nil, ErrTooLarge
	}
	return json.RawMessage(data), nil
}
