package favicon

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultFaviconDim         = 64
	DefaultTextToImageRatio   = 2.0 / 3.0
	DefaultHighRezScaleFactor = 7
	DefaultNamespace          = "rh1"

	MinFaviconDim         = 16
	MaxFaviconDim         = 64
	MaxHighRezScaleFactor = 7

	IconExtension = ".ico"
)

var (
	// ErrInvalidConfig is matched by every *ValidationError.
	ErrInvalidConfig = errors.New("invalid favicon configuration")
	ErrFontNotFound  = fmt.Errorf("font file not found: %w", fs.ErrNotExist)
)

// ConfigLoadError reports a configuration file that could not be read or parsed.
type ConfigLoadError struct {
	Path string
	Err  error
}

func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("failed to load or parse TOML file at '%s': %v", e.Path, e.Err)
}

func (e *ConfigLoadError) Unwrap() error {
	return e.Err
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Config is a validated favicon configuration. Obtain one through New or
// LoadConfig; the zero value is not usable.
type Config struct {
	Text               string
	FontPath           string
	TextColor          color.NRGBA
	BackgroundColor    color.NRGBA
	WriteTo            string
	FaviconDim         int
	TextToImageRatio   float64
	HighRezScaleFactor int
}

// New fills in defaults for unset optional fields and validates the result.
func New(c Config) (*Config, error) {
	if c.FaviconDim == 0 {
		c.FaviconDim = DefaultFaviconDim
	}
	if c.TextToImageRatio == 0 {
		c.TextToImageRatio = DefaultTextToImageRatio
	}
	if c.HighRezScaleFactor == 0 {
		c.HighRezScaleFactor = DefaultHighRezScaleFactor
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the field bounds, the output extension, and that the font
// file exists.
func (c *Config) Validate() error {
	if c.FaviconDim < MinFaviconDim || c.FaviconDim > MaxFaviconDim {
		return &ValidationError{Field: "favicon_dim", Message: "Favicon dimension must be between 16 and 64"}
	}
	if !(c.TextToImageRatio > 0 && c.TextToImageRatio <= 1) {
		return &ValidationError{Field: "text_to_image_ratio", Message: "Text to image ratio must be between 0 and 1"}
	}
	if c.HighRezScaleFactor <= 0 || c.HighRezScaleFactor > MaxHighRezScaleFactor {
		return &ValidationError{Field: "high_rez_scale_factor", Message: "Scale factor must be between 0 and 7"}
	}
	if filepath.Ext(c.WriteTo) != IconExtension {
		return &ValidationError{Field: "write_to", Message: "Filename must end with .ico"}
	}

	info, err := os.Stat(c.FontPath)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w at %s", ErrFontNotFound, c.FontPath)
	}
	return nil
}

// CanvasSize is the side of the supersampled working canvas.
func (c *Config) CanvasSize() int {
	return c.FaviconDim << c.HighRezScaleFactor
}

type LoadOptions struct {
	// Namespace is the table under [tool] holding the favicon table.
	Namespace string
	// BaseDir resolves relative font and write_to paths. Defaults to the
	// working directory.
	BaseDir string
}

// LoadConfig reads [tool.rh1.favicon] from a TOML file such as pyproject.toml.
func LoadConfig(path string) (*Config, error) {
	return LoadConfigWithOptions(path, LoadOptions{})
}

func LoadConfigWithOptions(path string, opts LoadOptions) (*Config, error) {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.BaseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		opts.BaseDir = wd
	}

	var doc map[string]any
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, &ConfigLoadError{Path: path, Err: err}
	}

	section := table(table(table(doc, "tool"), opts.Namespace), "favicon")
	return fromTable(section, opts.BaseDir)
}

func table(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	t, _ := m[key].(map[string]any)
	return t
}

var requiredKeys = []string{"text", "font", "primary_color", "secondary_color", "write_to"}

func fromTable(section map[string]any, baseDir string) (*Config, error) {
	var missing []string
	for _, key := range requiredKeys {
		if _, ok := section[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Message: "Missing required configuration option: " + strings.Join(missing, ", ")}
	}

	var unknown []string
	for key := range section {
		switch key {
		case "text", "font", "primary_color", "secondary_color", "write_to",
			"favicon_dim", "text_to_image_ratio", "high_rez_scale_factor":
		default:
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &ValidationError{Message: "Unknown configuration option: " + strings.Join(unknown, ", ")}
	}

	c := Config{
		FaviconDim:         DefaultFaviconDim,
		TextToImageRatio:   DefaultTextToImageRatio,
		HighRezScaleFactor: DefaultHighRezScaleFactor,
	}

	var err error
	if c.Text, err = stringField(section, "text"); err != nil {
		return nil, err
	}
	font, err := stringField(section, "font")
	if err != nil {
		return nil, err
	}
	writeTo, err := stringField(section, "write_to")
	if err != nil {
		return nil, err
	}
	c.FontPath = resolve(baseDir, font)
	c.WriteTo = resolve(baseDir, writeTo)

	if c.TextColor, err = ParseColor(section["primary_color"]); err != nil {
		return nil, &ValidationError{Field: "primary_color", Message: err.Error()}
	}
	if c.BackgroundColor, err = ParseColor(section["secondary_color"]); err != nil {
		return nil, &ValidationError{Field: "secondary_color", Message: err.Error()}
	}

	if v, ok := section["favicon_dim"]; ok {
		if c.FaviconDim, err = intField("favicon_dim", v); err != nil {
			return nil, err
		}
	}
	if v, ok := section["high_rez_scale_factor"]; ok {
		if c.HighRezScaleFactor, err = intField("high_rez_scale_factor", v); err != nil {
			return nil, err
		}
	}
	if v, ok := section["text_to_image_ratio"]; ok {
		if c.TextToImageRatio, err = floatField("text_to_image_ratio", v); err != nil {
			return nil, err
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func resolve(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

func stringField(section map[string]any, key string) (string, error) {
	s, ok := section[key].(string)
	if !ok {
		return "", &ValidationError{Field: key, Message: "must be a string"}
	}
	return s, nil
}

func intField(key string, v any) (int, error) {
	n, ok := v.(int64)
	if !ok {
		return 0, &ValidationError{Field: key, Message: "must be an integer"}
	}
	return int(n), nil
}

func floatField(key string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	}
	return 0, &ValidationError{Field: key, Message: "must be a number"}
}
