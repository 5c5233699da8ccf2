package themes

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

const (
	VariantLight = "light"
	VariantDark  = "dark"
	// VariantSystem follows the variant requested by the platform.
	VariantSystem = "system"
)

type CampanulaTheme struct {
	variant string
}

var _ fyne.Theme = (*CampanulaTheme)(nil)

func NewTheme(variant string) fyne.Theme {
	switch variant {
	case VariantDark, VariantSystem:
	default:
		variant = VariantLight
	}
	return &CampanulaTheme{variant: variant}
}

var darkColors = map[fyne.ThemeColorName]color.NRGBA{
	theme.ColorNameBackground:        {R: 22, G: 20, B: 28, A: 255},
	theme.ColorNameButton:            {R: 44, G: 40, B: 54, A: 255},
	theme.ColorNameDisabledButton:    {R: 32, G: 30, B: 40, A: 255},
	theme.ColorNameDisabled:          {R: 88, G: 84, B: 98, A: 255},
	theme.ColorNameError:             {R: 240, G: 98, B: 110, A: 255},
	theme.ColorNameFocus:             {R: 160, G: 140, B: 230, A: 255},
	theme.ColorNameForeground:        {R: 240, G: 236, B: 246, A: 255},
	theme.ColorNameHover:             {R: 56, G: 52, B: 70, A: 255},
	theme.ColorNameInputBackground:   {R: 34, G: 31, B: 42, A: 255},
	theme.ColorNameInputBorder:       {R: 70, G: 64, B: 86, A: 255},
	theme.ColorNameMenuBackground:    {R: 30, G: 27, B: 38, A: 255},
	theme.ColorNameOverlayBackground: {R: 26, G: 24, B: 34, A: 230},
	theme.ColorNamePressed:           {R: 76, G: 70, B: 94, A: 255},
	theme.ColorNamePrimary:           {R: 168, G: 146, B: 236, A: 255},
	theme.ColorNameScrollBar:         {R: 90, G: 84, B: 108, A: 255},
	theme.ColorNameSelection:         {R: 168, G: 146, B: 236, A: 80},
	theme.ColorNameShadow:            {R: 0, G: 0, B: 0, A: 140},
	theme.ColorNameSuccess:           {R: 110, G: 200, B: 150, A: 255},
	theme.ColorNameWarning:           {R: 240, G: 190, B: 90, A: 255},
	theme.ColorNameHyperlink:         {R: 190, G: 170, B: 250, A: 255},
	theme.ColorNamePlaceHolder:       {R: 126, G: 120, B: 140, A: 255},
	theme.ColorNameSeparator:         {R: 58, G: 54, B: 72, A: 255},
}

var lightColors = map[fyne.ThemeColorName]color.NRGBA{
	theme.ColorNameBackground:        {R: 250, G: 248, B: 252, A: 255},
	theme.ColorNameButton:            {R: 255, G: 255, B: 255, A: 255},
	theme.ColorNameDisabledButton:    {R: 240, G: 237, B: 245, A: 255},
	theme.ColorNameDisabled:          {R: 150, G: 144, B: 162, A: 255},
	theme.ColorNameError:             {R: 206, G: 60, B: 80, A: 255},
	theme.ColorNameFocus:             {R: 112, G: 88, B: 200, A: 255},
	theme.ColorNameForeground:        {R: 38, G: 34, B: 48, A: 255},
	theme.ColorNameHover:             {R: 238, G: 234, B: 246, A: 255},
	theme.ColorNameInputBackground:   {R: 255, G: 255, B: 255, A: 255},
	theme.ColorNameInputBorder:       {R: 212, G: 206, B: 224, A: 255},
	theme.ColorNameMenuBackground:    {R: 255, G: 255, B: 255, A: 255},
	theme.ColorNameOverlayBackground: {R: 255, G: 255, B: 255, A: 235},
	theme.ColorNamePressed:           {R: 222, G: 216, B: 236, A: 255},
	theme.ColorNamePrimary:           {R: 112, G: 88, B: 200, A: 255},
	theme.ColorNameScrollBar:         {R: 186, G: 180, B: 200, A: 255},
	theme.ColorNameSelection:         {R: 112, G: 88, B: 200, A: 60},
	theme.ColorNameShadow:            {R: 40, G: 20, B: 80, A: 40},
	theme.ColorNameSuccess:           {R: 46, G: 160, B: 96, A: 255},
	theme.ColorNameWarning:           {R: 230, G: 150, B: 20, A: 255},
	theme.ColorNameHyperlink:         {R: 96, G: 70, B: 190, A: 255},
	theme.ColorNamePlaceHolder:       {R: 140, G: 134, B: 154, A: 255},
	theme.ColorNameSeparator:         {R: 224, G: 220, B: 232, A: 255},
}

func (t *CampanulaTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	palette := lightColors
	switch {
	case t.variant == VariantDark:
		palette = darkColors
	case t.variant == VariantSystem && variant == theme.VariantDark:
		palette = darkColors
	}
	if c, ok := palette[name]; ok {
		return c
	}
	return theme.DefaultTheme().Color(name, variant)
}

func (t *CampanulaTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *CampanulaTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *CampanulaTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 6
	case theme.SizeNameInnerPadding:
		return 8
	case theme.SizeNameScrollBar:
		return 10
	case theme.SizeNameScrollBarSmall:
		return 4
	case theme.SizeNameSeparatorThickness:
		return 1
	case theme.SizeNameText:
		return 14
	case theme.SizeNameHeadingText:
		return 26
	case theme.SizeNameCaptionText:
		return 12
	case theme.SizeNameInputRadius, theme.SizeNameSelectionRadius:
		return 8
	default:
		return theme.DefaultTheme().Size(name)
	}
}
