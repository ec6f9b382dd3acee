package postgres

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/lib/pq"

	"github.com/pkgscout/pkgscout/internal/domain"
	apperrors "github.com/pkgscout/pkgscout/internal/errors"
	"github.com/pkgscout/pkgscout/internal/storage"
)

// postgresStorage implements the Storage interface for PostgreSQL
type postgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(connStr string) (storage.Storage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &postgresStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *postgresStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS packages (
		name TEXT PRIMARY KEY,
		name_normalized TEXT NOT NULL,
		name_lower TEXT NOT NULL,
		version TEXT NOT NULL DEFAULT '',
		upload_time TIMESTAMP,
		home_page TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		summary_lower TEXT NOT NULL DEFAULT '',
		downloads BIGINT NOT NULL DEFAULT 0,
		stars INTEGER NOT NULL DEFAULT 0,
		forks INTEGER NOT NULL DEFAULT 0,
		github_owner TEXT NOT NULL DEFAULT '',
		github_name TEXT NOT NULL DEFAULT '',
		github_url TEXT NOT NULL DEFAULT '',
		github_fetched_at BIGINT NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_packages_name_normalized ON packages(name_normalized);
	CREATE INDEX IF NOT EXISTS idx_packages_name_lower ON packages(name_lower);
	CREATE INDEX IF NOT EXISTS idx_packages_downloads ON packages(downloads);
	CREATE INDEX IF NOT EXISTS idx_packages_fetched_at ON packages(github_fetched_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const packageColumns = `name, name_normalized, name_lower, version, upload_time, home_page,
		summary, summary_lower, downloads, stars, forks,
		github_owner, github_name, github_url, github_fetched_at`

// ReplaceAll replaces the entire dataset in one transaction, carrying
// previously fetched GitHub stats forward onto incoming records whose
// resolved owner/name still match.
func (s *postgresStorage) ReplaceAll(ctx context.Context, pkgs []*domain.Package) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	prior, err := loadFetchedStats(ctx, tx)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM packages`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO packages (`+packageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (name) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, pkg := range pkgs {
		domain.CarryForwardStats(pkg, prior[pkg.Name])

		_, err = stmt.ExecContext(ctx,
			pkg.Name,
			pkg.NameNormalized,
			pkg.NameLower,
			pkg.Version,
			pkg.UploadTime,
			pkg.HomePage,
			pkg.Summary,
			pkg.SummaryLower,
			pkg.Downloads,
			pkg.Stars,
			pkg.Forks,
			pkg.GithubOwner,
			pkg.GithubName,
			pkg.GithubURL,
			pkg.GithubFetchedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// loadFetchedStats reads the records holding a completed GitHub fetch, for
// carry-forward across a reload.
func loadFetchedStats(ctx context.Context, tx *sql.Tx) (map[string]*domain.Package, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT name, github_owner, github_name, stars, forks, github_url, github_fetched_at
		FROM packages
		WHERE github_fetched_at > 0
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prior := make(map[string]*domain.Package)
	for rows.Next() {
		var p domain.Package
		if err := rows.Scan(&p.Name, &p.GithubOwner, &p.GithubName, &p.Stars, &p.Forks, &p.GithubURL, &p.GithubFetchedAt); err != nil {
			return nil, err
		}
		prior[p.Name] = &p
	}
	return prior, rows.Err()
}

// ApplyDownloads bulk-overwrites download counts by normalized name
func (s *postgresStorage) ApplyDownloads(ctx context.Context, counts map[string]int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `UPDATE packages SET downloads = $1 WHERE name_normalized = $2`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for name, count := range counts {
		if _, err := stmt.ExecContext(ctx, count, name); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ApplyGithubStats bulk-overwrites GitHub fields by exact name
func (s *postgresStorage) ApplyGithubStats(ctx context.Context, stats map[string]domain.GithubStats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE packages
		SET stars = $1, forks = $2, github_url = $3, github_fetched_at = $4
		WHERE name = $5
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for name, st := range stats {
		if _, err := stmt.ExecContext(ctx, st.Stars, st.Forks, st.URL, st.FetchedAt, name); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Search returns packages matching queryLower as a substring of the
// lowercased name or summary, capped at domain.MaxSearchResults, plus the
// total match count before truncation.
func (s *postgresStorage) Search(ctx context.Context, queryLower string) ([]*domain.Package, int, error) {
	pattern := "%" + escapeLike(queryLower) + "%"

	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM packages
		WHERE name_lower LIKE $1 OR summary_lower LIKE $1
	`, pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+packageColumns+`
		FROM packages
		WHERE name_lower LIKE $1 OR summary_lower LIKE $1
		ORDER BY name
		LIMIT $2
	`, pattern, domain.MaxSearchResults)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var pkgs []*domain.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, 0, err
		}
		pkgs = append(pkgs, p)
	}

	return pkgs, total, rows.Err()
}

// GetPackage retrieves a single package by exact name
func (s *postgresStorage) GetPackage(ctx context.Context, name string) (*domain.Package, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+packageColumns+`
		FROM packages
		WHERE name = $1
	`, name)

	p, err := scanPackage(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("package")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CountPackages returns the number of stored packages
func (s *postgresStorage) CountPackages(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM packages`).Scan(&count)
	return count, err
}

// Close closes the database connection
func (s *postgresStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPackage(row rowScanner) (*domain.Package, error) {
	var p domain.Package
	var uploadTime sql.NullTime

	err := row.Scan(
		&p.Name,
		&p.NameNormalized,
		&p.NameLower,
		&p.Version,
		&uploadTime,
		&p.HomePage,
		&p.Summary,
		&p.SummaryLower,
		&p.Downloads,
		&p.Stars,
		&p.Forks,
		&p.GithubOwner,
		&p.GithubName,
		&p.GithubURL,
		&p.GithubFetchedAt,
	)
	if err != nil {
		return nil, err
	}

	if uploadTime.Valid {
		p.UploadTime = uploadTime.Time
	}
	return &p, nil
}

// escapeLike escapes LIKE wildcards so a user query matches literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
