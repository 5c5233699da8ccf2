package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/Alexander-D-Karpov/campanula/pkg/types"
)

// Banner is the static header above the gallery.
type Banner struct {
	name        *widget.RichText
	description *widget.Label
	tagline     *widget.Label
	container   *fyne.Container
}

func NewBanner(b types.Banner, meta types.SiteMeta) *Banner {
	bn := &Banner{
		name:        widget.NewRichTextFromMarkdown("# " + b.Name),
		description: widget.NewLabel(b.Description),
		tagline:     widget.NewLabel(meta.Description),
	}
	bn.description.Wrapping = fyne.TextWrapWord
	bn.tagline.Importance = widget.LowImportance
	bn.tagline.TextStyle = fyne.TextStyle{Italic: true}
	if meta.Description == "" {
		bn.tagline.Hide()
	}

	bn.container = container.NewVBox(bn.name, bn.description, bn.tagline, widget.NewSeparator())
	return bn
}

func (b *Banner) Container() *fyne.Container {
	return b.container
}

func (b *Banner) Refresh() {
	b.container.Refresh()
}
