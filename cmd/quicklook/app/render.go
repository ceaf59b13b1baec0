package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"time"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/noa-react/polly-scc/internal/polly"
)

const (
	dpi            = 120.0
	fontSize       = 12.0
	tickMarkLength = 5
	pixelsPerLabel = 120

	// Default border sizes in pixels
	topBorder    = 40
	leftBorder   = 80
	bottomBorder = 40
	rightBorder  = 40

	// binWidthMeters is the PollyXT range resolution per bin
	binWidthMeters = 7.5

	timeFormat     = "15:04"
	datetimeFormat = time.DateTime
)

// Quicklook holds the signal of one channel arranged for rendering: time on
// the horizontal axis, range bins on the vertical with bin zero at the
// bottom.
type Quicklook struct {
	Channel    int
	Start, End time.Time
	Bins       int
	Values     [][]float64 // [sample][bin], log scaled
	Bounds     SignalBounds
}

// NewQuicklook extracts one channel from an assembled window and log-scales
// it. Display bounds come from the value distribution.
func NewQuicklook(f *polly.File, channel, maxBin int) (*Quicklook, error) {
	if channel >= f.Channels() {
		return nil, fmt.Errorf("channel %d out of range, file has %d channels", channel, f.Channels())
	}

	bins := f.Bins()
	if maxBin > 0 && maxBin < bins {
		bins = maxBin
	}

	hist := newSignalHistogram()
	values := make([][]float64, f.Samples())
	for i := range values {
		values[i] = make([]float64, bins)
		for b := 0; b < bins; b++ {
			raw := f.Signal[i][b][channel]
			values[i][b] = logCounts(raw)
			hist.update(raw)
		}
	}

	return &Quicklook{
		Channel: channel,
		Start:   f.Start,
		End:     f.End,
		Bins:    bins,
		Values:  values,
		Bounds:  hist.percentileBounds(),
	}, nil
}

// Renderer draws quicklook images with optional scale annotations.
type Renderer struct {
	theme    ColorTheme
	fontFile string
	annotate bool
}

func NewRenderer(theme ColorTheme, fontFile string, annotate bool) *Renderer {
	return &Renderer{theme: theme, fontFile: fontFile, annotate: annotate}
}

// Render produces the image. With annotations enabled the plot is framed by
// a time scale below, an altitude scale on the left and an info bar on top.
func (r *Renderer) Render(q *Quicklook) (*image.RGBA, error) {
	width, height := len(q.Values), q.Bins

	var left, top, bottom, right int
	if r.annotate {
		left, top, bottom, right = leftBorder, topBorder, bottomBorder, rightBorder
	}

	img := image.NewRGBA(image.Rect(0, 0, width+left+right, height+top+bottom))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	cm := newColorMapper(r.theme, q.Bounds)
	for x, column := range q.Values {
		for b, v := range column {
			// Bin zero sits at the bottom edge of the plot area.
			img.Set(left+x, top+height-1-b, cm.color(v))
		}
	}

	if !r.annotate {
		return img, nil
	}

	ann, err := newAnnotator(r.fontFile)
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	if err := ann.annotate(img, q, left, top, width, height); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}
	return img, nil
}

type annotator struct {
	context  *freetype.Context
	fontFace font.Face
}

func newAnnotator(fontFile string) (*annotator, error) {
	fontBytes, err := os.ReadFile(fontFile)
	if err != nil {
		return nil, fmt.Errorf("reading font: %w", err)
	}

	parsedFont, err := freetype.ParseFont(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(fontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    fontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, q *Quicklook, left, top, width, height int) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawTimeScale(img, q, left, top, width, height); err != nil {
		return fmt.Errorf("drawing time scale: %w", err)
	}
	if err := a.drawAltitudeScale(img, q, left, top, height); err != nil {
		return fmt.Errorf("drawing altitude scale: %w", err)
	}
	if err := a.drawInfoBar(img, q, left, top); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}
	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, q *Quicklook, left, top, width, height int) error {
	duration := q.End.Sub(q.Start)
	step := niceTimeStep(duration, width)

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := top + height + tickMarkLength + fontHeight

	for t := q.Start.Truncate(step); !t.After(q.End); t = t.Add(step) {
		if t.Before(q.Start) {
			continue
		}

		ratio := t.Sub(q.Start).Seconds() / duration.Seconds()
		x := left + int(ratio*float64(width-1))

		for y := top + height; y < top+height+tickMarkLength; y++ {
			img.Set(x, y, color.Black)
		}

		label := t.UTC().Format(timeFormat)
		labelWidth := font.MeasureString(a.fontFace, label)
		pt := freetype.Pt(x-(labelWidth.Round()/2), textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return err
		}
	}
	return nil
}

func (a *annotator) drawAltitudeScale(img *image.RGBA, q *Quicklook, left, top, height int) error {
	step := niceAltitudeStep(float64(q.Bins)*binWidthMeters, height)

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	for alt := 0.0; alt <= float64(q.Bins)*binWidthMeters; alt += step {
		bin := int(alt / binWidthMeters)
		if bin >= q.Bins {
			break
		}
		y := top + height - 1 - bin

		for x := left - tickMarkLength; x < left; x++ {
			img.Set(x, y, color.Black)
		}

		label := fmt.Sprintf("%.1f km", alt/1000)
		textY := y + fontHeight/2 - metrics.Descent.Round()
		pt := freetype.Pt(10, textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return err
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, q *Quicklook, left, top int) error {
	info := fmt.Sprintf("Channel %d; %s - %s UTC; 1px = %.1fm",
		q.Channel,
		q.Start.UTC().Format(datetimeFormat),
		q.End.UTC().Format(datetimeFormat),
		binWidthMeters)

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := top - (top-fontHeight)/2 - metrics.Descent.Round()

	pt := freetype.Pt(left, textY)
	_, err := a.context.DrawString(info, pt)
	return err
}

func niceTimeStep(duration time.Duration, width int) time.Duration {
	intervals := []time.Duration{
		time.Minute,
		5 * time.Minute,
		10 * time.Minute,
		15 * time.Minute,
		30 * time.Minute,
		time.Hour,
		2 * time.Hour,
		4 * time.Hour,
	}

	target := duration / time.Duration(max(width/pixelsPerLabel, 2))
	for _, interval := range intervals {
		if target <= interval {
			return interval
		}
	}
	return 6 * time.Hour
}

func niceAltitudeStep(totalMeters float64, height int) float64 {
	steps := []float64{100, 250, 500, 1000, 2000, 5000, 10000}

	target := totalMeters / float64(max(height/pixelsPerLabel, 2))
	for _, step := range steps {
		if target <= step {
			return step
		}
	}
	return 20000
}
