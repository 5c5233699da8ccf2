package media

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Alexander-D-Karpov/campanula/internal/logger"
)

var ErrNotImage = errors.New("content is not an image")

// Fetcher returns the bytes behind a cover locator.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

type CachedResource struct {
	resource   fyne.Resource
	lastAccess time.Time
	size       int64
	url        string
}

type LRUCache struct {
	capacity int
	cache    map[string]*list.Element
	list     *list.List
	mu       sync.Mutex
}

type lruEntry struct {
	key   string
	value *CachedResource
}

func NewLRUCache(capacity int) *LRUCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRUCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		list:     list.New(),
	}
}

func (lru *LRUCache) Get(key string) (*CachedResource, bool) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	elem, ok := lru.cache[key]
	if !ok {
		return nil, false
	}
	lru.list.MoveToFront(elem)
	entry := elem.Value.(*lruEntry)
	entry.value.lastAccess = time.Now()
	return entry.value, true
}

func (lru *LRUCache) Put(key string, value *CachedResource) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if elem, ok := lru.cache[key]; ok {
		lru.list.MoveToFront(elem)
		elem.Value.(*lruEntry).value = value
		return
	}

	lru.cache[key] = lru.list.PushFront(&lruEntry{key: key, value: value})
	for lru.list.Len() > lru.capacity {
		oldest := lru.list.Back()
		lru.list.Remove(oldest)
		delete(lru.cache, oldest.Value.(*lruEntry).key)
	}
}

// RemoveOlderThan drops entries not read since cutoff and reports how many went.
func (lru *LRUCache) RemoveOlderThan(cutoff time.Time) int {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	removed := 0
	for elem := lru.list.Back(); elem != nil; {
		prev := elem.Prev()
		entry := elem.Value.(*lruEntry)
		if entry.value.lastAccess.Before(cutoff) {
			lru.list.Remove(elem)
			delete(lru.cache, entry.key)
			removed++
		}
		elem = prev
	}
	return removed
}

func (lru *LRUCache) Len() int {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	return lru.list.Len()
}

func (lru *LRUCache) Clear() {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	lru.cache = make(map[string]*list.Element)
	lru.list = list.New()
}

type LoaderOptions struct {
	Capacity int
	Workers  int
	Timeout  time.Duration
	// Dispatch runs callbacks on the UI goroutine. Defaults to fyne.Do.
	Dispatch func(func())
}

type loadRequest struct {
	url      string
	callback func(fyne.Resource, error)
}

// ImageLoader resolves cover art into fyne resources. Decoded bytes stay in
// an in-memory LRU; the fetcher owns the on-disk cache.
type ImageLoader struct {
	fetcher   Fetcher
	lruCache  *LRUCache
	group     singleflight.Group
	timeout   time.Duration
	dispatch  func(func())
	log       *zap.Logger
	loadQueue chan *loadRequest
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewImageLoader(fetcher Fetcher, opts LoaderOptions, log *zap.Logger) *ImageLoader {
	if opts.Capacity <= 0 {
		opts.Capacity = 128
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Dispatch == nil {
		opts.Dispatch = fyne.Do
	}

	l := &ImageLoader{
		fetcher:   fetcher,
		lruCache:  NewLRUCache(opts.Capacity),
		timeout:   opts.Timeout,
		dispatch:  opts.Dispatch,
		log:       logger.OrNop(log).Named("images"),
		loadQueue: make(chan *loadRequest, 256),
		done:      make(chan struct{}),
	}

	for i := 0; i < opts.Workers; i++ {
		l.wg.Add(1)
		go l.worker()
	}
	l.wg.Add(1)
	go l.cleanupWorker()

	return l
}

// Placeholder is shown while a cover loads or when it cannot be loaded.
func Placeholder() fyne.Resource {
	return theme.MediaMusicIcon()
}

func (l *ImageLoader) worker() {
	defer l.wg.Done()
	for {
		select {
		case <-l.done:
			return
		case req := <-l.loadQueue:
			resource, err := l.GetResource(context.Background(), req.url)
			if req.callback != nil {
				req.callback(resource, err)
			}
		}
	}
}

func (l *ImageLoader) cleanupWorker() {
	defer l.wg.Done()
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			if n := l.lruCache.RemoveOlderThan(time.Now().Add(-30 * time.Minute)); n > 0 {
				l.log.Debug("evicted idle covers", zap.Int("count", n))
			}
		}
	}
}

// GetResource loads a cover synchronously. It always returns a usable
// resource, falling back to the placeholder on error.
func (l *ImageLoader) GetResource(ctx context.Context, imageURL string) (fyne.Resource, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return Placeholder(), nil
	}
	if cached, ok := l.lruCache.Get(imageURL); ok {
		return cached.resource, nil
	}

	v, err, _ := l.group.Do(imageURL, func() (interface{}, error) {
		return l.load(ctx, imageURL)
	})
	if err != nil {
		l.log.Warn("failed to load cover", zap.String("url", imageURL), zap.Error(err))
		return Placeholder(), err
	}
	return v.(fyne.Resource), nil
}

func (l *ImageLoader) load(ctx context.Context, imageURL string) (fyne.Resource, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	data, err := l.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch cover: %w", err)
	}
	if !isImage(data) {
		return nil, ErrNotImage
	}

	res := fyne.NewStaticResource(resourceName(imageURL), data)
	l.lruCache.Put(imageURL, &CachedResource{
		resource:   res,
		lastAccess: time.Now(),
		size:       int64(len(data)),
		url:        imageURL,
	})
	return res, nil
}

// GetResourceAsync loads a cover off the UI goroutine and hands the result
// back through the dispatcher.
func (l *ImageLoader) GetResourceAsync(imageURL string, callback func(fyne.Resource, error)) {
	deliver := func(res fyne.Resource, err error) {
		l.dispatch(func() { callback(res, err) })
	}

	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		deliver(Placeholder(), nil)
		return
	}
	if cached, ok := l.lruCache.Get(imageURL); ok {
		deliver(cached.resource, nil)
		return
	}

	req := &loadRequest{url: imageURL, callback: deliver}
	select {
	case l.loadQueue <- req:
	default:
		go func() {
			res, err := l.GetResource(context.Background(), imageURL)
			deliver(res, err)
		}()
	}
}

// Preload queues covers that are not yet in memory. Full queues drop requests.
func (l *ImageLoader) Preload(urls []string) {
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := l.lruCache.Get(u); ok {
			continue
		}
		select {
		case l.loadQueue <- &loadRequest{url: u}:
		default:
		}
	}
}

func (l *ImageLoader) CacheStats() (itemCount int, totalSize int64) {
	l.lruCache.mu.Lock()
	defer l.lruCache.mu.Unlock()
	for elem := l.lruCache.list.Front(); elem != nil; elem = elem.Next() {
		itemCount++
		totalSize += elem.Value.(*lruEntry).value.size
	}
	return
}

func (l *ImageLoader) ClearMemoryCache() {
	l.lruCache.Clear()
}

// Close stops the workers. Queued requests are dropped.
func (l *ImageLoader) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
		l.wg.Wait()
	})
}

func isImage(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	return strings.HasPrefix(http.DetectContentType(data), "image/")
}

func resourceName(imageURL string) string {
	name := path.Base(strings.SplitN(imageURL, "?", 2)[0])
	if name == "." || name == "/" || name == "" {
		return "cover"
	}
	return name
}
