package configsource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bugomattic/api/internal/config"
)

const sampleConfig = `{"Widgets": {"features": {"Sprocket": {}}}}`

func TestFileLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reporting-config.json")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	raw, err := File{Path: path}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(raw) != sampleConfig {
		t.Fatalf("raw = %s", raw)
	}

	if _, err := (File{Path: filepath.Join(t.TempDir(), "missing.json")}).Load(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestFileLoadHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (File{Path: "unused"}).Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGitPublishAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "config-repo")
	src := NewGit(dir, "main", "./configs/reporting-config.json")
	ctx := context.Background()

	if _, err := src.Load(ctx); err == nil {
		t.Fatal("expected error before anything is published")
	}

	first, err := src.Publish(ctx, []byte(`{"Old": {}}`), "Avery Quinn", "Initial config")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	second, err := src.Publish(ctx, []byte(sampleConfig), "Avery Quinn", "Add sprocket")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if first.Hash == second.Hash || second.Message != "Add sprocket" || second.Author != "Avery Quinn" {
		t.Fatalf("revisions = %+v %+v", first, second)
	}

	raw, rev, err := src.LoadRevision(ctx)
	if err != nil {
		t.Fatalf("LoadRevision() error = %v", err)
	}
	if strings.TrimSpace(string(raw)) != sampleConfig || rev.Hash != second.Hash {
		t.Fatalf("raw = %s rev = %+v", raw, rev)
	}

	// The working tree is not what gets served.
	if err := os.WriteFile(filepath.Join(dir, "configs", "reporting-config.json"), []byte(`{"Dirty": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	raw, err = src.Load(ctx)
	if err != nil || strings.TrimSpace(string(raw)) != sampleConfig {
		t.Fatalf("Load() = %s, %v", raw, err)
	}
}

func TestGitLoadUnknownBranch(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	if _, err := NewGit(dir, "main", "rc.json").Publish(ctx, []byte(sampleConfig), "ci", "seed"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if _, err := NewGit(dir, "release", "rc.json").Load(ctx); err == nil || !strings.Contains(err.Error(), "release") {
		t.Fatalf("expected branch error, got %v", err)
	}
}

func fakeS3(t *testing.T, objects map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>%s</Key></Error>`, r.URL.Path)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		w.Header().Set("ETag", `"0123456789abcdef"`)
		w.Header().Set("Last-Modified", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat))
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestObjectLoad(t *testing.T) {
	server := fakeS3(t, map[string]string{"/bugomattic/configs/rc.json": sampleConfig})
	endpoint := strings.TrimPrefix(server.URL, "http://")

	src, err := NewObject(ObjectOptions{Endpoint: endpoint, AccessKey: "key", SecretKey: "secret", Bucket: "bugomattic", Key: "configs/rc.json", Region: "us-east-1"})
	if err != nil {
		t.Fatalf("NewObject() error = %v", err)
	}
	raw, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(raw) != sampleConfig {
		t.Fatalf("raw = %s", raw)
	}

	missing, err := NewObject(ObjectOptions{Endpoint: endpoint, Bucket: "bugomattic", Key: "nope.json", Region: "us-east-1"})
	if err != nil {
		t.Fatalf("NewObject() error = %v", err)
	}
	if _, err := missing.Load(context.Background()); err == nil {
		t.Fatal("expected error for a missing object")
	}
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		source string
		prefix string
	}{
		{source: "file", prefix: "file:"},
		{source: "", prefix: "file:"},
		{source: "git", prefix: "git:"},
		{source: "s3", prefix: "s3:"},
	}
	for _, tt := range tests {
		cfg := config.Config{ConfigSource: tt.source, ConfigPath: "rc.json", ConfigRepoDir: "repo", ConfigRepoBranch: "main", S3Endpoint: "localhost:9000", S3Bucket: "b"}
		src, err := FromConfig(cfg)
		if err != nil {
			t.Fatalf("FromConfig(%q) error = %v", tt.source, err)
		}
		if !strings.HasPrefix(src.String(), tt.prefix) {
			t.Fatalf("FromConfig(%q) = %s", tt.source, src)
		}
	}
	if _, err := FromConfig(config.Config{ConfigSource: "ftp"}); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestSanitizeEmail(t *testing.T) {
	if got := sanitizeEmail(" Avery Quinn!"); got != "avery.quinn" {
		t.Fatalf("sanitizeEmail() = %q", got)
	}
	if got := sanitizeEmail("!!!"); got != "bugomattic" {
		t.Fatalf("sanitizeEmail() = %q", got)
	}
}
