package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/noa-react/polly-scc/internal/locations"
	"github.com/noa-react/polly-scc/internal/polly"
	"github.com/noa-react/polly-scc/internal/scc"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	locs, err := locations.Load(config.LocationFiles...)
	if err != nil {
		return err
	}

	loc, ok := locs[config.Location]
	if !ok {
		return fmt.Errorf("unknown location %q", config.Location)
	}

	repo, err := polly.NewRepository(config.InputPath, loc.DepolCalibrationZeroState)
	if err != nil {
		return err
	}

	start, end := repo.TimeSpan()
	if config.From != "" {
		if start, err = scc.ParseTimeOption(start, config.From); err != nil {
			return fmt.Errorf("invalid -from: %w", err)
		}
	}
	if config.To != "" {
		if end, err = scc.ParseTimeOption(start, config.To); err != nil {
			return fmt.Errorf("invalid -to: %w", err)
		}
	}

	logger.Info("reading raw data",
		slog.Int("files", len(repo.Files())),
		slog.String("from", start.Format(time.DateTime)),
		slog.String("to", end.Format(time.DateTime)))

	f, err := repo.FetchWindow(start, end)
	if err != nil {
		return err
	}

	q, err := NewQuicklook(f, config.Channel, config.MaxBin)
	if err != nil {
		return err
	}

	logger.Info("rendering quicklook",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.Int("width", len(q.Values)),
			slog.Int("height", q.Bins),
		))

	img, err := NewRenderer(config.Theme, config.FontFile, !config.NoAnnotations).Render(q)
	if err != nil {
		return fmt.Errorf("rendering quicklook: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{Quality: 98})
	default:
		err = png.Encode(out, img)
	}
	return err
}
