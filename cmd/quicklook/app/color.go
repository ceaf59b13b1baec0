package app

import (
	"image/color"
	"math"
)

// ColorTheme names a predefined color scheme for signal visualization.
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"   // Blue to red transition
	GrayscaleTheme ColorTheme = "grayscale" // Black to white transition
	JungleTheme    ColorTheme = "jungle"    // Dark green to yellow transition
	ThermalTheme   ColorTheme = "thermal"   // Black to red to yellow to white
	MarineTheme    ColorTheme = "marine"    // Deep blue to cyan to white
	DefaultTheme   ColorTheme = "classic"

	colorMapSize = 256
)

// HSV represents a color in HSV (Hue, Saturation, Value) color space
type HSV struct {
	H float64 // Hue angle in degrees [0-360]
	S float64 // Saturation [0-1]
	V float64 // Value/Brightness [0-1]
}

// RGB converts HSV to RGB color space
func (hsv HSV) RGB() color.Color {
	if hsv.S <= 0.0 {
		v := uint8(hsv.V * 255)
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}

	h := hsv.H
	if h >= 360 {
		h -= 360
	}
	h /= 60

	i := int(h)
	f := h - float64(i)

	v := uint8(hsv.V * 255)
	p := uint8((hsv.V * (1 - hsv.S)) * 255)
	q := uint8((hsv.V * (1 - (hsv.S * f))) * 255)
	t := uint8((hsv.V * (1 - (hsv.S * (1 - f)))) * 255)

	switch i {
	case 0:
		return color.RGBA{R: v, G: t, B: p, A: 255}
	case 1:
		return color.RGBA{R: q, G: v, B: p, A: 255}
	case 2:
		return color.RGBA{R: p, G: v, B: t, A: 255}
	case 3:
		return color.RGBA{R: p, G: q, B: v, A: 255}
	case 4:
		return color.RGBA{R: t, G: p, B: v, A: 255}
	default:
		return color.RGBA{R: v, G: p, B: q, A: 255}
	}
}

func themeColor(theme ColorTheme, normalized float64) color.Color {
	normalized = math.Max(0, math.Min(1, normalized))

	switch theme {
	case GrayscaleTheme:
		v := uint8(math.Pow(normalized, 0.7) * 255)
		return color.RGBA{R: v, G: v, B: v, A: 255}

	case JungleTheme:
		return HSV{
			H: 120 - (normalized * 60),
			S: 1 - (normalized * 0.3),
			V: 0.2 + (normalized * 0.8),
		}.RGB()

	case MarineTheme:
		return HSV{
			H: 240 - (normalized * 60),
			S: 1 - math.Pow(normalized, 2),
			V: 0.3 + (normalized * 0.7),
		}.RGB()

	case ThermalTheme:
		switch {
		case normalized < 0.33:
			return color.RGBA{R: uint8((normalized * 3) * 255), A: 255}
		case normalized < 0.66:
			return color.RGBA{R: 255, G: uint8(((normalized - 0.33) * 3) * 255), A: 255}
		default:
			return color.RGBA{R: 255, G: 255, B: uint8(((normalized - 0.66) * 3) * 255), A: 255}
		}

	default:
		return HSV{
			H: 240 - (normalized * 240),
			S: 0.9 + (normalized * 0.1),
			V: math.Pow(normalized, 0.7),
		}.RGB()
	}
}

// colorMapper maps signal values onto a pre-computed gradient.
type colorMapper struct {
	colorMap      []color.Color
	boundsMin     float64
	valuePerIndex float64
}

func newColorMapper(theme ColorTheme, bounds SignalBounds) *colorMapper {
	cm := &colorMapper{colorMap: make([]color.Color, colorMapSize)}
	for i := range cm.colorMap {
		cm.colorMap[i] = themeColor(theme, float64(i)/float64(colorMapSize-1))
	}
	cm.boundsMin = bounds.Min
	cm.valuePerIndex = (bounds.Max - bounds.Min) / float64(colorMapSize-1)
	return cm
}

func (cm *colorMapper) color(value float64) color.Color {
	index := int((value - cm.boundsMin) / cm.valuePerIndex)
	if index < 0 {
		return cm.colorMap[0]
	}
	if index >= len(cm.colorMap) {
		return cm.colorMap[len(cm.colorMap)-1]
	}
	return cm.colorMap[index]
}
