// Package library keeps whole translations on disk so lookups can be served
// without the network.
package library

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"github.com/IsraelGboluwaga/phosphora/internal/api"
	"github.com/IsraelGboluwaga/phosphora/internal/logger"
)

const baseURL = "https://bolls.life/static/translations"

// maxArchiveSize bounds a downloaded translation archive.
const maxArchiveSize = 64 << 20

var (
	ErrNotCached     = errors.New("library: translation not cached")
	ErrVerseNotFound = fmt.Errorf("library: verse %w", api.ErrNotFound)
	ErrNoJSON        = errors.New("library: no JSON file found in archive")
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS translations (
	name        TEXT PRIMARY KEY,
	imported_at INTEGER NOT NULL,
	verse_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS verses (
	translation TEXT    NOT NULL,
	book        INTEGER NOT NULL,
	chapter     INTEGER NOT NULL,
	verse       INTEGER NOT NULL,
	text        TEXT    NOT NULL,
	PRIMARY KEY (translation, book, chapter, verse)
);`

type Library struct {
	db         *sql.DB
	path       string
	baseURL    string
	httpClient *http.Client
	downloads  singleflight.Group
	logger     *slog.Logger
}

// Option configures a Library.
type Option func(*Library)

// WithBaseURL overrides the translation archive location.
func WithBaseURL(u string) Option {
	return func(l *Library) { l.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(l *Library) { l.httpClient = hc }
}

// WithLogger sets the library logger.
func WithLogger(lg *slog.Logger) Option {
	return func(l *Library) { l.logger = lg }
}

// DefaultPath returns the library database location under the user's cache directory.
func DefaultPath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "phosphora", "library.db"), nil
}

// Open opens (or creates) the library database at path.
func Open(path string, opts ...Option) (*Library, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(4)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	l := &Library{
		db:         db,
		path:       path,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logger.OrDiscard(l.logger)
	return l, nil
}

// Close releases the database.
func (l *Library) Close() error {
	return l.db.Close()
}

// IsCached checks if a translation is already imported
func (l *Library) IsCached(translation string) bool {
	var one int
	err := l.db.QueryRow("SELECT 1 FROM translations WHERE name = ?", translation).Scan(&one)
	return err == nil
}

// Download fetches and imports a translation unless it is already cached.
// Concurrent calls for the same translation share one download.
func (l *Library) Download(ctx context.Context, translation string) error {
	return l.download(ctx, translation, false)
}

// Refresh re-downloads a translation even when it is cached.
func (l *Library) Refresh(ctx context.Context, translation string) error {
	return l.download(ctx, translation, true)
}

func (l *Library) download(ctx context.Context, translation string, force bool) error {
	_, err, shared := l.downloads.Do(translation, func() (any, error) {
		if !force && l.IsCached(translation) {
			return nil, nil
		}
		return nil, l.fetchAndImport(ctx, translation)
	})
	if shared {
		l.logger.Debug("joined in-flight download", "translation", translation)
	}
	return err
}

func (l *Library) fetchAndImport(ctx context.Context, translation string) error {
	url := fmt.Sprintf("%s/%s.zip", l.baseURL, translation)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	l.logger.Info("downloading translation", "translation", translation)
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveSize))
	if err != nil {
		return err
	}

	verses, err := extractVerses(data)
	if err != nil {
		return err
	}
	return l.importVerses(ctx, translation, verses)
}

// extractVerses decodes the first JSON member of a translation archive.
func extractVerses(data []byte) ([]api.Verse, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	for _, f := range r.File {
		if !strings.EqualFold(filepath.Ext(f.Name), ".json") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		var verses []api.Verse
		if err := json.NewDecoder(rc).Decode(&verses); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Name, err)
		}
		return verses, nil
	}

	return nil, ErrNoJSON
}

func (l *Library) importVerses(ctx context.Context, translation string, verses []api.Verse) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM verses WHERE translation = ?", translation); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO verses (translation, book, chapter, verse, text) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range verses {
		if _, err := stmt.ExecContext(ctx, translation, v.Book, v.Chapter, v.Verse, v.Text); err != nil {
			return fmt.Errorf("insert %d:%d:%d: %w", v.Book, v.Chapter, v.Verse, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO translations (name, imported_at, verse_count) VALUES (?, ?, ?)",
		translation, time.Now().Unix(), len(verses)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	l.logger.Info("translation imported", "translation", translation, "verses", len(verses))
	return nil
}

// GetChapter retrieves a chapter from cached data
func (l *Library) GetChapter(ctx context.Context, translation string, book, chapter int) ([]api.Verse, error) {
	if !l.IsCached(translation) {
		return nil, fmt.Errorf("%w: %s", ErrNotCached, translation)
	}

	rows, err := l.db.QueryContext(ctx,
		"SELECT verse, text FROM verses WHERE translation = ? AND book = ? AND chapter = ? ORDER BY verse",
		translation, book, chapter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var verses []api.Verse
	for rows.Next() {
		v := api.Verse{Translation: translation, Book: book, Chapter: chapter}
		if err := rows.Scan(&v.Verse, &v.Text); err != nil {
			return nil, err
		}
		verses = append(verses, v)
	}
	return verses, rows.Err()
}

// GetVerse retrieves a single verse from cached data. A missing verse is
// ErrVerseNotFound, which also matches api.ErrNotFound.
func (l *Library) GetVerse(ctx context.Context, translation string, book, chapter, verse int) (*api.Verse, error) {
	if !l.IsCached(translation) {
		return nil, fmt.Errorf("%w: %s", ErrNotCached, translation)
	}

	v := api.Verse{Translation: translation, Book: book, Chapter: chapter, Verse: verse}
	err := l.db.QueryRowContext(ctx,
		"SELECT text FROM verses WHERE translation = ? AND book = ? AND chapter = ? AND verse = ?",
		translation, book, chapter, verse).Scan(&v.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVerseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListCached returns the imported translations, sorted by name.
func (l *Library) ListCached(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, "SELECT name FROM translations ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var translations []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		translations = append(translations, name)
	}
	return translations, rows.Err()
}

// Remove deletes a specific imported translation.
func (l *Library) Remove(ctx context.Context, translation string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM verses WHERE translation = ?", translation); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM translations WHERE name = ?", translation)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotCached, translation)
	}
	return tx.Commit()
}

// Size returns the on-disk size of the library database in bytes.
func (l *Library) Size() (int64, error) {
	var size int64
	for _, suffix := range []string{"", "-wal", "-shm"} {
		info, err := os.Stat(l.path + suffix)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		size += info.Size()
	}
	return size, nil
}
