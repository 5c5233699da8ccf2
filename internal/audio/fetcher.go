package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Alexander-D-Karpov/campanula/internal/config"
	"github.com/Alexander-D-Karpov/campanula/internal/logger"
)

var ErrTooLarge = errors.New("remote file exceeds size limit")

// FileCache is the subset of storage.Database the fetcher needs.
type FileCache interface {
	GetCachedFile(ctx context.Context, url string) (string, error)
	SaveCachedFile(ctx context.Context, url string, data io.Reader) (string, error)
}

// Fetcher opens audio and image sources. Local paths are opened directly;
// remote ones are downloaded once, rate limited, and kept in the file cache.
type Fetcher struct {
	client    *retryablehttp.Client
	limiter   *rate.Limiter
	cache     FileCache
	userAgent string
	maxSize   int64
	log       *zap.Logger
}

type FetcherOptions struct {
	Timeout           time.Duration
	Retries           int
	RequestsPerSecond int
	BurstSize         int
	UserAgent         string
	MaxSize           int64
}

func OptionsFromConfig(cfg *config.Config) FetcherOptions {
	return FetcherOptions{
		Timeout:           time.Duration(cfg.Fetch.Timeout) * time.Second,
		Retries:           cfg.Fetch.Retries,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		BurstSize:         cfg.Fetch.BurstSize,
		UserAgent:         cfg.Fetch.UserAgent,
		MaxSize:           cfg.Fetch.MaxAudioSize,
	}
}

func NewFetcher(opts FetcherOptions, cache FileCache, log *zap.Logger) *Fetcher {
	log = logger.OrNop(log).Named("fetch")

	client := retryablehttp.NewClient()
	client.RetryMax = opts.Retries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	if opts.Timeout > 0 {
		client.HTTPClient.Timeout = opts.Timeout
	}
	client.Logger = leveledLogger{log.Sugar()}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := opts.BurstSize
	if burst <= 0 {
		burst = 1
	}

	return &Fetcher{
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		cache:     cache,
		userAgent: opts.UserAgent,
		maxSize:   opts.MaxSize,
		log:       log,
	}
}

// leveledLogger routes retryablehttp diagnostics into zap.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }

// ReadSeekCloser is what decoders need to support seeking.
type ReadSeekCloser interface {
	io.ReadSeeker
	io.Closer
}

type bytesSource struct {
	*bytes.Reader
}

func (bytesSource) Close() error { return nil }

// Open returns a seekable reader for source.
func (f *Fetcher) Open(ctx context.Context, source string) (ReadSeekCloser, error) {
	source = strings.TrimSpace(source)
	if path, ok := localPath(source); ok {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open local source: %w", err)
		}
		return file, nil
	}

	if f.cache != nil {
		cached, err := f.cache.GetCachedFile(ctx, source)
		if err != nil {
			f.log.Warn("cache lookup failed", zap.String("url", source), zap.Error(err))
		} else if cached != "" {
			if file, err := os.Open(cached); err == nil {
				f.log.Debug("serving from cache", zap.String("url", source))
				return file, nil
			}
		}
	}

	data, err := f.download(ctx, source)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		path, err := f.cache.SaveCachedFile(ctx, source, bytes.NewReader(data))
		if err != nil {
			f.log.Warn("failed to cache download", zap.String("url", source), zap.Error(err))
		} else if file, err := os.Open(path); err == nil {
			return file, nil
		}
	}

	return bytesSource{bytes.NewReader(data)}, nil
}

// Fetch returns the whole content of source.
func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	rc, err := f.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return data, nil
}

func (f *Fetcher) download(ctx context.Context, source string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	reader := io.Reader(resp.Body)
	if f.maxSize > 0 {
		if resp.ContentLength > f.maxSize {
			return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
		}
		reader = io.LimitReader(resp.Body, f.maxSize+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if f.maxSize > 0 && int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxSize)
	}

	f.log.Debug("downloaded",
		zap.String("url", source),
		zap.Int("bytes", len(data)),
		zap.Duration("took", time.Since(start)))

	return data, nil
}

func localPath(source string) (string, bool) {
	u, err := url.Parse(source)
	if err != nil {
		return source, true
	}
	switch u.Scheme {
	case "http", "https":
		return "", false
	case "file":
		return u.Path, true
	default:
		// Bare paths, including Windows drive letters parsed as schemes.
		return source, true
	}
}
