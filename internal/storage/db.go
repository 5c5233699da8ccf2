package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Alexander-D-Karpov/campanula/internal/config"
	"github.com/Alexander-D-Karpov/campanula/internal/logger"
	"github.com/Alexander-D-Karpov/campanula/pkg/types"
)

var ErrClosed = errors.New("database is closed")

// cacheNamespace scopes the on-disk names of cached downloads.
var cacheNamespace = uuid.MustParse("0b5d3e8a-8c61-4f2e-9d0a-7f4c21e6b3d5")

// Database indexes downloaded covers and audio files kept in the cache
// directory. Playback state is never stored.
type Database struct {
	db       *sql.DB
	cacheDir string
	log      *zap.Logger
	mu       sync.RWMutex
	closed   bool
}

func NewDatabase(cfg *config.Config, log *zap.Logger) (*Database, error) {
	return Open(cfg.Storage.DatabasePath, cfg.Storage.CacheDir, cfg.Storage.EnableWAL, log)
}

func Open(dbPath, cacheDir string, enableWAL bool, log *zap.Logger) (*Database, error) {
	log = logger.OrNop(log).Named("storage")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := openDatabase(dbPath, enableWAL, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d := &Database{
		db:       db,
		cacheDir: cacheDir,
		log:      log,
	}

	if err := d.runMigrations(); err != nil {
		if closeErr := d.Close(); closeErr != nil {
			log.Warn("failed to close database after migration error", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return d, nil
}

func openDatabase(dbPath string, enableWAL bool, log *zap.Logger) (*sql.DB, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		log.Info("creating new database", zap.String("path", dbPath))
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA temp_store=memory",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=30000",
	}
	if enableWAL {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute pragma %s: %w", pragma, err)
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

func (d *Database) CacheDir() string {
	return d.cacheDir
}

func (d *Database) checkClosed() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	return nil
}

// GetCachedFile returns the local copy of url, or "" when none is cached. An
// entry whose file vanished from disk is dropped.
func (d *Database) GetCachedFile(ctx context.Context, url string) (string, error) {
	entry, err := d.CachedEntry(ctx, url)
	if err != nil || entry == nil {
		return "", err
	}

	if _, err := os.Stat(entry.LocalPath); os.IsNotExist(err) {
		d.log.Debug("cached file missing on disk", zap.String("url", url))
		if _, err := d.db.ExecContext(ctx, "DELETE FROM cached_files WHERE url = ?", url); err != nil {
			return "", fmt.Errorf("drop stale cache entry: %w", err)
		}
		return "", nil
	}

	if err := d.TouchCachedFile(ctx, url); err != nil {
		d.log.Warn("failed to touch cache entry", zap.String("url", url), zap.Error(err))
	}

	return entry.LocalPath, nil
}

func (d *Database) CachedEntry(ctx context.Context, url string) (*types.CacheEntry, error) {
	if err := d.checkClosed(); err != nil {
		return nil, err
	}

	var entry types.CacheEntry
	err := d.db.QueryRowContext(ctx,
		"SELECT url, local_path, size, accessed_at, created_at FROM cached_files WHERE url = ?", url,
	).Scan(&entry.URL, &entry.LocalPath, &entry.Size, &entry.AccessedAt, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached file: %w", err)
	}
	return &entry, nil
}

// SaveCachedFile copies data into the cache directory and records it under url.
func (d *Database) SaveCachedFile(ctx context.Context, url string, data io.Reader) (string, error) {
	if err := d.checkClosed(); err != nil {
		return "", err
	}

	localPath := filepath.Join(d.cacheDir, CacheFileName(url))
	tmp := localPath + ".part"

	file, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	size, err := io.Copy(file, data)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, localPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("commit file: %w", err)
	}

	now := time.Now()
	_, err = d.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO cached_files (url, local_path, size, accessed_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, url, localPath, size, now, now)
	if err != nil {
		_ = os.Remove(localPath)
		return "", fmt.Errorf("save cache entry: %w", err)
	}

	d.log.Debug("cached file saved",
		zap.String("url", url),
		zap.String("path", localPath),
		zap.Int64("size", size))

	return localPath, nil
}

func (d *Database) TouchCachedFile(ctx context.Context, url string) error {
	if err := d.checkClosed(); err != nil {
		return err
	}
	_, err := d.db.ExecContext(ctx, "UPDATE cached_files SET accessed_at = ? WHERE url = ?", time.Now(), url)
	if err != nil {
		return fmt.Errorf("touch cache entry: %w", err)
	}
	return nil
}

// Prune removes the least recently accessed files until the cache holds at
// most maxBytes. It returns the number of files removed.
func (d *Database) Prune(ctx context.Context, maxBytes int64) (int, error) {
	if err := d.checkClosed(); err != nil {
		return 0, err
	}

	var total int64
	if err := d.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(size), 0) FROM cached_files").Scan(&total); err != nil {
		return 0, fmt.Errorf("sum cache size: %w", err)
	}
	if total <= maxBytes {
		return 0, nil
	}

	rows, err := d.db.QueryContext(ctx, "SELECT url, local_path, size FROM cached_files ORDER BY accessed_at ASC")
	if err != nil {
		return 0, fmt.Errorf("list cache entries: %w", err)
	}

	type victim struct {
		url, path string
	}
	var victims []victim
	for rows.Next() && total > maxBytes {
		var v victim
		var size int64
		if err := rows.Scan(&v.url, &v.path, &size); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan cache entry: %w", err)
		}
		victims = append(victims, v)
		total -= size
	}
	if err := rows.Close(); err != nil {
		return 0, fmt.Errorf("close cache rows: %w", err)
	}

	for _, v := range victims {
		if err := os.Remove(v.path); err != nil && !os.IsNotExist(err) {
			d.log.Warn("failed to remove cached file", zap.String("path", v.path), zap.Error(err))
		}
		if _, err := d.db.ExecContext(ctx, "DELETE FROM cached_files WHERE url = ?", v.url); err != nil {
			return 0, fmt.Errorf("delete cache entry: %w", err)
		}
	}

	d.log.Info("cache pruned", zap.Int("removed", len(victims)), zap.Int64("max_bytes", maxBytes))
	return len(victims), nil
}

func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if d.db != nil {
		if _, err := d.db.Exec("PRAGMA optimize"); err != nil {
			d.log.Warn("failed to optimize database", zap.Error(err))
		}
		return d.db.Close()
	}
	return nil
}

// CacheFileName derives a stable file name for url, keeping its extension.
func CacheFileName(url string) string {
	name := uuid.NewSHA1(cacheNamespace, []byte(url)).String()

	ext := path.Ext(strings.SplitN(strings.SplitN(url, "?", 2)[0], "#", 2)[0])
	if len(ext) > 1 && len(ext) <= 6 && !strings.ContainsAny(ext, `/\ %`) {
		name += strings.ToLower(ext)
	}
	return name
}
