package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

type ImageFormat string

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

type Config struct {
	InputPath  string
	Location   string
	Channel    int
	OutputFile string
	Format     ImageFormat
	Theme      ColorTheme
	FontFile   string

	// From and To trim the rendered period, same formats as polly2scc
	From string
	To   string

	// MaxBin limits the altitude axis, zero renders all range bins
	MaxBin int

	NoAnnotations bool

	// Extra location files merged over the built-in stations
	LocationFiles []string
}

func NewConfig() *Config {
	return &Config{
		Format: ImagePNG,
		Theme:  DefaultTheme,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var imageFormat, theme, locationFiles string
	flag.StringVar(&c.InputPath, "in", "", "Directory with raw PollyXT netCDF files")
	flag.StringVar(&c.Location, "location", "", "Station name")
	flag.IntVar(&c.Channel, "channel", 0, "Raw signal channel index to render")
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output file")
	flag.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flag.StringVar(&theme, "theme", string(DefaultTheme), "Color theme. [classic, grayscale, jungle, thermal, marine]")
	flag.StringVar(&c.FontFile, "font", "", "Path to a TTF font used for annotations")
	flag.StringVar(&c.From, "from", "", "Trim data before this time (YYYY-MM-DD_HH:MM, HH:MM or XX:MM)")
	flag.StringVar(&c.To, "to", "", "Trim data after this time")
	flag.IntVar(&c.MaxBin, "max-bin", 0, "Highest range bin to render (0 for all)")
	flag.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable time and altitude scales")
	flag.StringVar(&locationFiles, "locations", "", "Comma separated list of extra location files")
	flag.Parse()

	if locationFiles != "" {
		for _, p := range strings.Split(locationFiles, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.LocationFiles = append(c.LocationFiles, p)
			}
		}
	}

	imageFormat = strings.ToLower(imageFormat)

	var err error
	if c.InputPath == "" {
		err = errors.New("input directory is required")
	} else if c.Location == "" {
		err = errors.New("location is required")
	} else if c.Channel < 0 {
		err = fmt.Errorf("invalid channel index: %d", c.Channel)
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if !c.NoAnnotations && c.FontFile == "" {
		err = errors.New("annotations need a font, pass -font or -no-annotations")
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.Theme = ColorTheme(strings.ToLower(theme))
	c.Format = ImageFormat(imageFormat)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
