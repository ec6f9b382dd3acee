// Package loader imports the line-delimited JSON dataset dumps into the
// store: one metadata file that defines the package set, plus optional
// download-count and GitHub-snapshot files layered on top.
package loader

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkgscout/pkgscout/internal/domain"
	"github.com/pkgscout/pkgscout/internal/resolver"
	"github.com/pkgscout/pkgscout/internal/storage"
)

const (
	MetadataFile  = "metadata_lines.json"
	DownloadsFile = "downloads_lines.json"
	GithubFile    = "github_lines.json"
)

// maxLineSize accommodates packages with very long summaries or URL lists.
const maxLineSize = 1 << 20

// Loader reads dataset files and writes them through the store.
type Loader struct {
	store  storage.Storage
	logger *slog.Logger
}

// New creates a new Loader
func New(store storage.Storage, logger *slog.Logger) *Loader {
	return &Loader{store: store, logger: logger}
}

// Load imports a full dataset from dataDir. The metadata file is required
// and replaces the stored package set; the downloads and GitHub snapshot
// files are optional and skipped with a warning when absent.
func (l *Loader) Load(ctx context.Context, dataDir string) error {
	metaPath := filepath.Join(dataDir, MetadataFile)
	f, err := os.Open(metaPath)
	if err != nil {
		return fmt.Errorf("metadata file is required: %w", err)
	}
	count, err := l.LoadMetadata(ctx, f)
	f.Close()
	if err != nil {
		return err
	}
	l.logger.Info("loaded package metadata", "packages", count)

	if err := l.loadOptional(ctx, filepath.Join(dataDir, DownloadsFile), l.LoadDownloads); err != nil {
		return err
	}
	if err := l.loadOptional(ctx, filepath.Join(dataDir, GithubFile), l.LoadGithubSnapshot); err != nil {
		return err
	}

	return nil
}

func (l *Loader) loadOptional(ctx context.Context, path string, load func(context.Context, io.Reader) (int, error)) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		l.logger.Warn("optional dataset file missing, skipping", "file", filepath.Base(path))
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	count, err := load(ctx, f)
	if err != nil {
		return err
	}
	l.logger.Info("applied dataset file", "file", filepath.Base(path), "records", count)
	return nil
}

// metadataRecord mirrors one line of the metadata dump. Fields beyond these
// are ignored.
type metadataRecord struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	UploadTime  string   `json:"upload_time"`
	HomePage    string   `json:"home_page"`
	ProjectURLs []string `json:"project_urls"`
	Summary     string   `json:"summary"`
}

// LoadMetadata parses the metadata dump and replaces the stored package set.
// Each line becomes one package; the GitHub repository identity is resolved
// from the URL fields at this point and never again. Malformed lines are
// skipped with a warning.
func (l *Loader) LoadMetadata(ctx context.Context, r io.Reader) (int, error) {
	var pkgs []*domain.Package
	seen := make(map[string]bool)

	err := scanLines(r, func(lineNo int, line []byte) {
		var rec metadataRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.Name == "" {
			l.logger.Warn("skipping malformed metadata line", "line", lineNo)
			return
		}
		if seen[rec.Name] {
			return
		}
		seen[rec.Name] = true

		pkg := &domain.Package{
			Name:     rec.Name,
			Version:  rec.Version,
			HomePage: rec.HomePage,
			Summary:  rec.Summary,
		}
		pkg.UploadTime = parseUploadTime(rec.UploadTime)
		if owner, name, ok := resolver.Resolve(rec.HomePage, rec.ProjectURLs); ok {
			pkg.GithubOwner = owner
			pkg.GithubName = name
		}
		pkg.SetDerivedFields()
		pkgs = append(pkgs, pkg)
	})
	if err != nil {
		return 0, err
	}

	if err := l.store.ReplaceAll(ctx, pkgs); err != nil {
		return 0, err
	}
	return len(pkgs), nil
}

type downloadRecord struct {
	Name          string `json:"name"`
	DownloadCount int64  `json:"download_count"`
}

// LoadDownloads parses the download-count dump and applies the counts by
// normalized package name, so naming drift between datasets still matches.
func (l *Loader) LoadDownloads(ctx context.Context, r io.Reader) (int, error) {
	counts := make(map[string]int64)

	err := scanLines(r, func(lineNo int, line []byte) {
		var rec downloadRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.Name == "" {
			l.logger.Warn("skipping malformed downloads line", "line", lineNo)
			return
		}
		counts[domain.NormalizeName(rec.Name)] = rec.DownloadCount
	})
	if err != nil {
		return 0, err
	}

	if err := l.store.ApplyDownloads(ctx, counts); err != nil {
		return 0, err
	}
	return len(counts), nil
}

type githubSnapshotRecord struct {
	Name      string `json:"name"`
	Stars     int    `json:"stargazerCount"`
	Forks     int    `json:"forkCount"`
	URL       string `json:"url"`
	FetchedAt int64  `json:"timestamp"`
}

// LoadGithubSnapshot parses a previously exported GitHub stats dump and
// applies it by exact package name. Records without a fetch timestamp get
// the current time so they count as fetched.
func (l *Loader) LoadGithubSnapshot(ctx context.Context, r io.Reader) (int, error) {
	stats := make(map[string]domain.GithubStats)
	now := time.Now().Unix()

	err := scanLines(r, func(lineNo int, line []byte) {
		var rec githubSnapshotRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.Name == "" {
			l.logger.Warn("skipping malformed github snapshot line", "line", lineNo)
			return
		}
		st := domain.GithubStats{
			Stars:     rec.Stars,
			Forks:     rec.Forks,
			URL:       rec.URL,
			FetchedAt: rec.FetchedAt,
		}
		if st.FetchedAt == 0 {
			st.FetchedAt = now
		}
		stats[rec.Name] = st
	})
	if err != nil {
		return 0, err
	}

	if err := l.store.ApplyGithubStats(ctx, stats); err != nil {
		return 0, err
	}
	return len(stats), nil
}

// scanLines calls fn for every non-empty line of r.
func scanLines(r io.Reader, fn func(lineNo int, line []byte)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		fn(lineNo, line)
	}
	return scanner.Err()
}

// parseUploadTime accepts the dump's timestamp formats, falling back to the
// date prefix when the full form does not parse. A zero time marks records
// with no usable timestamp.
func parseUploadTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t
		}
	}
	return time.Time{}
}

// BackupStoreFile copies a file-backed store to path+".bak" before a reload
// overwrites it. Missing source is not an error: nothing to back up yet.
func BackupStoreFile(path string) error {
	src, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path + ".bak")
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Sync()
}
