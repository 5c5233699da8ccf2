package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/Alexander-D-Karpov/campanula/internal/config"
	"github.com/Alexander-D-Karpov/campanula/internal/handlers"
	masonry "github.com/Alexander-D-Karpov/campanula/internal/layout"
	"github.com/Alexander-D-Karpov/campanula/internal/logger"
	"github.com/Alexander-D-Karpov/campanula/internal/playback"
	"github.com/Alexander-D-Karpov/campanula/internal/registry"
	"github.com/Alexander-D-Karpov/campanula/internal/ui/components"
	"github.com/Alexander-D-Karpov/campanula/internal/ui/themes"
	"github.com/Alexander-D-Karpov/campanula/pkg/types"
)

// Deps are the collaborators the page shell is built from.
type Deps struct {
	Registry    *registry.Registry
	Coordinator *playback.Coordinator
	Factory     types.HandleFactory
	Covers      components.CoverLoader
	Logger      *zap.Logger
}

type App struct {
	fyneApp fyne.App
	window  fyne.Window
	ctx     context.Context
	cfg     *config.Config
	log     *zap.Logger

	registry *registry.Registry
	coord    *playback.Coordinator
	factory  types.HandleFactory
	covers   components.CoverLoader

	engine    *masonry.Engine
	grid      *fyne.Container
	banner    *components.Banner
	volumeCtl *playback.VolumeControl
	volume    *components.VolumeSlider
	volumeBox *fyne.Container
	search    *widget.Entry

	cards     map[string]*components.PlayerCard
	order     []string
	lastKey   string
	subs      []*handlers.Subscription
	closeOnce sync.Once
}

// LayoutOptions maps the layout section of the configuration onto the engine.
func LayoutOptions(cfg *config.Config) masonry.Options {
	return masonry.Options{
		MinColumnWidth:  cfg.Layout.MinColumnWidth,
		Gap:             cfg.Layout.Gap,
		ItemHeight:      cfg.Layout.ItemHeight,
		ResizeThreshold: cfg.Layout.ResizeThreshold,
		Debounce:        time.Duration(cfg.Layout.DebounceMs) * time.Millisecond,
	}
}

func NewApp(ctx context.Context, fyneApp fyne.App, cfg *config.Config, deps Deps) (*App, error) {
	if deps.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if deps.Coordinator == nil {
		return nil, errors.New("coordinator is required")
	}
	if deps.Factory == nil {
		return nil, errors.New("handle factory is required")
	}

	log := logger.OrNop(deps.Logger).Named("ui")
	fyneApp.Settings().SetTheme(themes.NewTheme(cfg.UI.Theme))

	window := fyneApp.NewWindow(WindowTitle(deps.Registry.SiteMeta()))
	window.Resize(fyne.NewSize(float32(cfg.UI.WindowWidth), float32(cfg.UI.WindowHeight)))
	window.CenterOnScreen()

	a := &App{
		fyneApp:  fyneApp,
		window:   window,
		ctx:      ctx,
		cfg:      cfg,
		log:      log,
		registry: deps.Registry,
		coord:    deps.Coordinator,
		factory:  deps.Factory,
		covers:   deps.Covers,
		engine:   masonry.NewEngine(LayoutOptions(cfg), log),
		cards:    make(map[string]*components.PlayerCard),
	}

	a.setupUI()
	a.setupEventHandlers()
	a.setupKeyboardShortcuts()

	log.Info("gallery ready",
		zap.Int("works", a.registry.Len()),
		zap.String("theme", cfg.UI.Theme))
	return a, nil
}

// WindowTitle renders the site metadata as a window title.
func WindowTitle(meta types.SiteMeta) string {
	switch {
	case meta.Title == "":
		return "Campanula"
	case meta.OgTitle == "":
		return meta.Title
	default:
		return fmt.Sprintf("%s - %s", meta.Title, meta.OgTitle)
	}
}

func (a *App) setupUI() {
	a.banner = components.NewBanner(a.registry.Banner(), a.registry.SiteMeta())

	a.search = widget.NewEntry()
	a.search.SetPlaceHolder("Filter works")
	a.search.ActionItem = widget.NewButtonWithIcon("", theme.CancelIcon(), func() {
		a.search.SetText("")
	})
	a.search.OnChanged = a.applyFilter

	a.grid = components.NewMasonryGrid(a.engine)
	a.applyFilter("")

	scroll := container.NewVScroll(container.NewPadded(
		container.NewBorder(container.NewVBox(a.banner.Container(), a.search), nil, nil, nil, a.grid),
	))

	a.volumeCtl = playback.NewVolumeControl(a.coord)
	a.volume = components.NewVolumeSlider(a.volumeCtl, a.coord.Bus())
	a.volumeBox = container.NewVBox(layout.NewSpacer(), container.NewPadded(a.volume.Container()))
	a.volumeBox.Hide()

	a.window.SetContent(container.NewStack(
		scroll,
		container.NewBorder(nil, nil, nil, a.volumeBox),
	))
	a.window.SetOnClosed(a.Close)
}

func (a *App) setupEventHandlers() {
	bus := a.coord.Bus()
	a.subs = append(a.subs, bus.Subscribe(handlers.EventActiveChanged, func(data interface{}) {
		if id, ok := data.(types.ItemID); ok && id != "" {
			a.log.Debug("active work changed", zap.String("item", id.String()))
		}
		fyne.Do(a.syncVolumeVisibility)
	}))
}

func (a *App) syncVolumeVisibility() {
	if a.coord.HasActive() {
		a.volumeBox.Show()
	} else {
		a.volumeBox.Hide()
	}
}

func (a *App) setupKeyboardShortcuts() {
	a.window.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		switch key.Name {
		case fyne.KeySpace:
			a.toggleLast()
		case fyne.KeyEscape:
			if a.window.FullScreen() {
				a.window.SetFullScreen(false)
				return
			}
			a.coord.Stop()
		case fyne.KeyF11:
			a.window.SetFullScreen(!a.window.FullScreen())
		case fyne.KeyM:
			a.volumeCtl.ToggleMute()
		}
	})

	a.window.Canvas().SetOnTypedRune(func(r rune) {
		if r == '/' {
			a.window.Canvas().Focus(a.search)
		}
	})
}

// toggleLast pauses the active work, or resumes the card played last.
func (a *App) toggleLast() {
	key := a.lastKey
	card, ok := a.cards[key]
	if !ok {
		return
	}
	go func() {
		err := card.Session().Toggle(a.ctx)
		if err != nil && !errors.Is(err, playback.ErrSuperseded) {
			a.log.Debug("shortcut toggle failed",
				zap.String("item", card.Session().ID().String()),
				zap.Error(err))
		}
	}()
}

// applyFilter shows the works matching query. Cards that leave the grid are
// closed; they are rebuilt when they come back.
func (a *App) applyFilter(query string) {
	visible := a.registry.Filter(strings.TrimSpace(query))

	seen := make(map[types.ItemID]int)
	keys := make([]string, 0, len(visible))
	objects := make([]fyne.CanvasObject, 0, len(visible))
	for _, item := range visible {
		id := item.Key()
		key := fmt.Sprintf("%s#%d", id, seen[id])
		seen[id]++

		card, ok := a.cards[key]
		if !ok {
			card = a.newCard(key, item)
			a.cards[key] = card
		}
		keys = append(keys, key)
		objects = append(objects, card)
	}

	keep := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keep[k] = struct{}{}
	}
	for k, card := range a.cards {
		if _, ok := keep[k]; !ok {
			card.Close()
			delete(a.cards, k)
		}
	}

	a.order = keys
	a.grid.Objects = objects
	a.grid.Refresh()
}

func (a *App) newCard(key string, item types.WorkItem) *components.PlayerCard {
	opts := []playback.SessionOption{}
	if ms := a.cfg.Audio.RetryDelayMs; ms > 0 {
		opts = append(opts, playback.WithRetryDelay(time.Duration(ms)*time.Millisecond))
	}
	session := playback.NewSession(item, a.coord, a.factory, a.log, opts...)
	card := components.NewPlayerCard(a.ctx, session, a.covers, a.log)

	card.SetOnChange(func(s playback.Snapshot) {
		if s.State == playback.StateLoading || s.IsPlaying {
			a.lastKey = key
		}
	})
	return card
}

// Cards returns the visible cards in grid order.
func (a *App) Cards() []*components.PlayerCard {
	out := make([]*components.PlayerCard, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, a.cards[k])
	}
	return out
}

func (a *App) Window() fyne.Window {
	return a.window
}

func (a *App) ShowAndRun() {
	a.window.ShowAndRun()
}

// Close stops playback and releases every card. It is safe to call twice.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.log.Info("shutting down gallery")
		a.coord.Stop()
		for _, s := range a.subs {
			s.Unsubscribe()
		}
		a.volume.Close()
		for k, card := range a.cards {
			card.Close()
			delete(a.cards, k)
		}
		a.engine.Close()
	})
}
