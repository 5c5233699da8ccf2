package components

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/Alexander-D-Karpov/campanula/internal/media"
)

// CoverLoader resolves cover locators; callbacks arrive on the UI goroutine.
type CoverLoader interface {
	GetResourceAsync(url string, callback func(fyne.Resource, error))
}

type CoverImage struct {
	widget.BaseWidget

	loader      CoverLoader
	image       *canvas.Image
	placeholder fyne.Resource
	minSize     fyne.Size

	mu      sync.Mutex
	url     string
	loading bool
}

func NewCoverImage(loader CoverLoader, size fyne.Size) *CoverImage {
	img := &CoverImage{
		loader:      loader,
		placeholder: media.Placeholder(),
		minSize:     size,
	}
	img.image = canvas.NewImageFromResource(img.placeholder)
	img.image.FillMode = canvas.ImageFillContain
	img.image.ScaleMode = canvas.ImageScaleSmooth
	img.image.SetMinSize(size)
	img.ExtendBaseWidget(img)
	return img
}

func (i *CoverImage) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(i.image)
}

func (i *CoverImage) MinSize() fyne.Size {
	return i.minSize
}

func (i *CoverImage) URL() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.url
}

func (i *CoverImage) IsLoading() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.loading
}

// SetURL starts loading url. Results for an earlier URL are discarded.
func (i *CoverImage) SetURL(url string) {
	i.mu.Lock()
	if url == i.url {
		i.mu.Unlock()
		return
	}
	i.url = url
	i.loading = url != ""
	i.mu.Unlock()

	if url == "" || i.loader == nil {
		i.apply(url, i.placeholder)
		return
	}

	i.loader.GetResourceAsync(url, func(res fyne.Resource, err error) {
		if err != nil || res == nil {
			res = i.placeholder
		}
		i.apply(url, res)
	})
}

func (i *CoverImage) apply(url string, res fyne.Resource) {
	i.mu.Lock()
	if i.url != url {
		i.mu.Unlock()
		return
	}
	i.loading = false
	i.mu.Unlock()

	i.image.Resource = res
	i.image.Refresh()
}

func (i *CoverImage) Resource() fyne.Resource {
	return i.image.Resource
}
