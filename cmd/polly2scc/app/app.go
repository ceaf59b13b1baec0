package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/noa-react/polly-scc/internal/journal"
	"github.com/noa-react/polly-scc/internal/locations"
	"github.com/noa-react/polly-scc/internal/polly"
	"github.com/noa-react/polly-scc/internal/scc"
	"github.com/noa-react/polly-scc/internal/sounding"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if config.History {
		return printHistory(ctx, config)
	}

	locs, err := locations.Load(config.LocationFiles...)
	if err != nil {
		return err
	}

	if config.ListLocations {
		for _, name := range locs.Names() {
			fmt.Println(name)
		}
		return nil
	}

	loc, ok := locs[config.Location]
	if !ok {
		return fmt.Errorf("unknown location %q, use -list-locations to see known stations", config.Location)
	}
	if config.SystemIDDay != 0 {
		loc.DaytimeConfiguration = config.SystemIDDay
	}
	if config.SystemIDNight != 0 {
		loc.NighttimeConfiguration = config.SystemIDNight
	}

	if err = os.MkdirAll(config.OutputPath, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	repo, err := polly.NewRepository(config.InputPath, loc.DepolCalibrationZeroState)
	if err != nil {
		return err
	}

	first, last := repo.TimeSpan()
	logger.Info("indexed raw data",
		slog.Int("files", len(repo.Files())),
		slog.Int("samples", repo.Len()),
		slog.String("from", first.Format(time.DateTime)),
		slog.String("to", last.Format(time.DateTime)))

	opts := scc.Options{
		OutputDir:       config.OutputPath,
		Interval:        config.Interval,
		Round:           config.Round,
		StartTime:       config.StartTime,
		EndTime:         config.EndTime,
		Atmosphere:      config.Atmosphere,
		SkipCalibration: config.NoCalibration,
	}
	if config.FixedCalibration {
		opts.Strategy = scc.CalibrationFixedPeriods
	}

	conv, err := scc.NewConverter(repo, loc, opts)
	if err != nil {
		return err
	}

	var provider sounding.Provider
	if config.Atmosphere == scc.AtmosphereRadiosonde {
		if provider, err = sounding.New(loc.SoundingProvider, config.WRFPath); err != nil {
			return err
		}
	}

	var produced []journal.Measurement
	for conv.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := conv.Current()
		size := fileSize(res.Path)

		attrs := []any{
			slog.String("id", res.ID),
			slog.String("file", filepath.Base(res.Path)),
			slog.String("size", humanize.Bytes(uint64(size))),
		}
		if res.Calibration {
			attrs = append(attrs, slog.String("wavelength", res.Wavelength.String()))
			logger.Info("created calibration file", attrs...)
		} else {
			logger.Info("created measurement file", attrs...)
		}

		produced = append(produced, journal.Measurement{
			MeasurementID: res.ID,
			Path:          res.Path,
			Start:         res.Start,
			Stop:          res.End,
			Calibration:   res.Calibration,
			Wavelength:    int(res.Wavelength),
			SizeBytes:     size,
		})

		if provider != nil && !res.Calibration {
			if err := writeSounding(provider, loc, res, config.OutputPath, logger); err != nil {
				return err
			}
		}
	}
	if err = conv.Err(); err != nil {
		return err
	}

	for _, w := range conv.SkippedWindows() {
		logger.Warn("no data in window, skipped",
			slog.String("from", w.Start.Format(time.DateTime)),
			slog.String("to", w.End.Format(time.DateTime)))
	}

	logger.Info("conversion finished", slog.Int("files", len(produced)))

	if config.NoJournal || len(produced) == 0 {
		return nil
	}
	return recordRun(ctx, config, produced)
}

// writeSounding creates the radiosonde companion file referenced by a
// measurement's Sounding_File_Name attribute. A missing profile is reported
// but does not abort the run: SCC rejects only the affected measurement.
func writeSounding(provider sounding.Provider, loc *locations.Location, res scc.Result, outputDir string, logger *slog.Logger) error {
	profile, err := provider.Profile(loc, res.Start, res.End)
	if err != nil {
		logger.Warn("no sounding profile", slog.String("id", res.ID), slog.String("reason", err.Error()))
		return nil
	}

	path := filepath.Join(outputDir, scc.SoundingFileName(res.ID))
	if err = sounding.WriteProfile(profile, loc, path); err != nil {
		return fmt.Errorf("writing sounding file: %w", err)
	}

	logger.Info("created sounding file",
		slog.String("file", filepath.Base(path)),
		slog.String("sounding", profile.Time.Format(time.DateTime)))
	return nil
}

func recordRun(ctx context.Context, config *Config, produced []journal.Measurement) (err error) {
	j := journal.New(config.JournalPath)
	defer func() {
		if cErr := j.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	runID, err := j.CreateRun(ctx, journal.Run{
		Location:   config.Location,
		InputPath:  config.InputPath,
		OutputPath: config.OutputPath,
		Interval:   config.Interval,
		Atmosphere: config.Atmosphere.String(),
	})
	if err != nil {
		return err
	}
	return j.RecordMeasurements(ctx, runID, produced)
}

func printHistory(ctx context.Context, config *Config) (err error) {
	if _, err = os.Stat(config.JournalPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("journal database '%s' does not exist: %w", config.JournalPath, err)
	}

	j := journal.New(config.JournalPath)
	defer func() {
		if cErr := j.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	runs, err := j.Runs(ctx)
	if err != nil {
		return err
	}

	for _, r := range runs {
		ms, err := j.RunMeasurements(ctx, r.ID)
		if err != nil {
			return err
		}

		var total int64
		calibrations := 0
		for _, m := range ms {
			total += m.SizeBytes
			if m.Calibration {
				calibrations++
			}
		}

		fmt.Printf("#%d %s (%s): %s, %d files (%d calibration), %s\n",
			r.ID, r.Location, humanize.Time(r.StartedAt),
			r.Atmosphere, len(ms), calibrations, humanize.Bytes(uint64(total)))
		for _, m := range ms {
			fmt.Printf("    %s %s - %s %s\n",
				m.MeasurementID,
				m.Start.Format(time.DateTime),
				m.Stop.Format(time.TimeOnly),
				filepath.Base(m.Path))
		}
	}
	return nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
