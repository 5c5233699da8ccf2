package types

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptySource is returned when a work has no audio source to play.
var ErrEmptySource = errors.New("work has an empty audio source")

// itemNamespace scopes name-based item identifiers to this gallery.
var itemNamespace = uuid.MustParse("6f1c9a52-4f0e-4b7d-9a43-2c8e5d7b1a90")

// ItemID identifies a playable work for coordination purposes.
type ItemID string

func (id ItemID) String() string {
	return string(id)
}

type Album struct {
	Name        string `json:"name" mapstructure:"name"`
	Cover       string `json:"cover" mapstructure:"cover"`
	Description string `json:"description" mapstructure:"description"`
}

type WorkItem struct {
	ID           ItemID  `json:"-" mapstructure:"-"`
	Title        string  `json:"title" mapstructure:"title"`
	Album        Album   `json:"album" mapstructure:"album"`
	Source       string  `json:"source" mapstructure:"source"`
	TotalSeconds float64 `json:"total_seconds" mapstructure:"total_seconds"`
}

// NewItemID derives the identifier of a work from its title and album name.
// Works sharing both values share an identifier.
func NewItemID(title, albumName string) ItemID {
	return ItemID(uuid.NewSHA1(itemNamespace, []byte(title+"\x00"+albumName)).String())
}

// Key returns the item identifier, deriving it when the work was built by hand.
func (w WorkItem) Key() ItemID {
	if w.ID != "" {
		return w.ID
	}
	return NewItemID(w.Title, w.Album.Name)
}

func (w WorkItem) Validate() error {
	if strings.TrimSpace(w.Source) == "" {
		return ErrEmptySource
	}
	return nil
}

type Banner struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

type SiteMeta struct {
	Title       string `mapstructure:"title"`
	OgTitle     string `mapstructure:"og_title"`
	Description string `mapstructure:"description"`
	Site        string `mapstructure:"site"`
}

type CacheEntry struct {
	URL        string    `db:"url"`
	LocalPath  string    `db:"local_path"`
	Size       int64     `db:"size"`
	AccessedAt time.Time `db:"accessed_at"`
	CreatedAt  time.Time `db:"created_at"`
}
