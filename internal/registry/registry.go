// Package registry holds the read-only list of published works shown in the
// gallery, together with the banner and window metadata.
package registry

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Alexander-D-Karpov/campanula/internal/logger"
	"github.com/Alexander-D-Karpov/campanula/pkg/types"
)

type Registry struct {
	items  []types.WorkItem
	byID   map[types.ItemID]int
	banner types.Banner
	meta   types.SiteMeta
	log    *zap.Logger
}

// New assigns every item its identifier. Works that share title and album
// share an identifier; the first occurrence wins lookups.
func New(items []types.WorkItem, log *zap.Logger) *Registry {
	r := &Registry{
		items:  make([]types.WorkItem, 0, len(items)),
		byID:   make(map[types.ItemID]int, len(items)),
		banner: DefaultBanner,
		meta:   DefaultSiteMeta,
		log:    logger.OrNop(log).Named("registry"),
	}

	for _, item := range items {
		item.ID = types.NewItemID(item.Title, item.Album.Name)
		if _, dup := r.byID[item.ID]; dup {
			r.log.Warn("duplicate work identity",
				zap.String("title", item.Title),
				zap.String("album", item.Album.Name))
		} else {
			r.byID[item.ID] = len(r.items)
		}
		if err := item.Validate(); err != nil {
			r.log.Warn("work has no playable source", zap.String("title", item.Title))
		}
		r.items = append(r.items, item)
	}

	return r
}

// Default returns the built-in catalog.
func Default(log *zap.Logger) *Registry {
	return New(PublishedWorks(), log)
}

type catalogFile struct {
	Banner types.Banner     `mapstructure:"banner"`
	Site   types.SiteMeta   `mapstructure:"site"`
	Works  []types.WorkItem `mapstructure:"works"`
}

// Load reads a YAML catalog. An empty path or a missing file yields the
// built-in catalog.
func Load(path string, log *zap.Logger) (*Registry, error) {
	log = logger.OrNop(log)
	if path == "" {
		return Default(log), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Info("catalog not found, using built-in works", zap.String("path", path))
		return Default(log), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var file catalogFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	r := New(file.Works, log)
	if file.Banner.Name != "" || file.Banner.Description != "" {
		r.banner = file.Banner
	}
	if file.Site.Title != "" {
		r.meta = file.Site
	}

	r.log.Info("catalog loaded", zap.String("path", path), zap.Int("works", r.Len()))
	return r, nil
}

// Items returns a copy of the works in catalog order.
func (r *Registry) Items() []types.WorkItem {
	out := make([]types.WorkItem, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Registry) Len() int {
	return len(r.items)
}

func (r *Registry) Get(id types.ItemID) (types.WorkItem, bool) {
	i, ok := r.byID[id]
	if !ok {
		return types.WorkItem{}, false
	}
	return r.items[i], true
}

func (r *Registry) Banner() types.Banner {
	return r.banner
}

func (r *Registry) SiteMeta() types.SiteMeta {
	return r.meta
}

type scoredItem struct {
	index int
	score int
}

// Filter returns the works whose title or album name matches query. Matches
// are case-insensitive; substring hits rank before fuzzy ones and ties keep
// catalog order. An empty query returns every work.
func (r *Registry) Filter(query string) []types.WorkItem {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.Items()
	}
	q := strings.ToLower(query)

	var scored []scoredItem
	for i, item := range r.items {
		title := strings.ToLower(item.Title)
		album := strings.ToLower(item.Album.Name)

		score := 0
		if strings.Contains(title, q) {
			score += 10
		}
		if strings.Contains(album, q) {
			score += 5
		}
		if score == 0 {
			if rank := fuzzy.RankMatchFold(q, title); rank >= 0 {
				score = 2
			} else if fuzzy.MatchFold(q, album) {
				score = 1
			}
		}
		if score > 0 {
			scored = append(scored, scoredItem{index: i, score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	out := make([]types.WorkItem, 0, len(scored))
	for _, s := range scored {
		out = append(out, r.items[s.index])
	}
	return out
}
