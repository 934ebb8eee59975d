// Package config assembles the session configuration from defaults, an
// optional YAML tuning file and environment variables (optionally from .env).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/travisano/unite-heatmap/cluster"
	"github.com/travisano/unite-heatmap/heatmap"
	"github.com/travisano/unite-heatmap/imgproc"
	"github.com/travisano/unite-heatmap/utils"
)

var ErrInvalid = errors.New("invalid configuration")

type Session struct {
	SampleRate float64       `yaml:"sample_rate"` // frames per second
	Duration   time.Duration `yaml:"duration"`
	KeepFrames bool          `yaml:"keep_frames"`
	Workers    int           `yaml:"workers"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Display    int           `yaml:"display"`
}

// Frames is the number of samples a full session captures.
func (s Session) Frames() int {
	return int(math.Round(s.Duration.Seconds() * s.SampleRate))
}

// Period is the time between two captures.
func (s Session) Period() time.Duration {
	return time.Duration(float64(time.Second) / s.SampleRate)
}

type Paths struct {
	Resources string `yaml:"resources"`
	Map       string `yaml:"map"`
	Reference string `yaml:"reference"` // overrides Map when set
	Frames    string `yaml:"frames"`
	Output    string `yaml:"output"`
	History   string `yaml:"history"` // empty disables the session history
	Logs      string `yaml:"logs"`    // empty logs to the console only
}

// ReferencePath resolves the reference map image.
func (p Paths) ReferencePath() (string, error) {
	if p.Reference != "" {
		return p.Reference, nil
	}
	rel, err := utils.GetMapPath(p.Map)
	if err != nil {
		return "", err
	}
	return filepath.Join(p.Resources, rel), nil
}

type Clustering struct {
	Small cluster.Policy `yaml:"small"`
	Large cluster.Policy `yaml:"large"`
}

// Palette holds the heatmap color of each team
type Palette struct {
	TeamA imgproc.HSV `yaml:"team_a"`
	TeamB imgproc.HSV `yaml:"team_b"` // complement of TeamA when black
}

// Colors returns the overlay colors of both teams.
func (p Palette) Colors() (teamA, teamB color.RGBA) {
	b := p.TeamB
	if b.V == 0 {
		b = p.TeamA.Complement()
	}
	return p.TeamA.RGBA(), b.RGBA()
}

type Config struct {
	Session    Session        `yaml:"session"`
	Paths      Paths          `yaml:"paths"`
	Clustering Clustering     `yaml:"clustering"`
	Heatmap    heatmap.Style  `yaml:"heatmap"`
	Palette    Palette        `yaml:"palette"`
	Detection  imgproc.Config `yaml:"detection"`
}

func Default() Config {
	return Config{
		Session: Session{
			SampleRate: 1,
			Duration:   10 * time.Minute,
			Workers:    1,
			RetryDelay: 500 * time.Millisecond,
		},
		Paths: Paths{
			Resources: ".",
			Map:       "theia",
			Frames:    "tmp",
			Output:    "output",
			History:   filepath.Join("output", "history.db"),
		},
		Clustering: Clustering{
			Small: cluster.RadiusPolicy(),
			Large: cluster.FixedPolicy(15),
		},
		Heatmap: heatmap.DefaultStyle(),
		Palette: Palette{
			TeamA: imgproc.HSV{H: 36, S: 1, V: 1},    // #FF9A00
			TeamB: imgproc.HSV{H: 273, S: 0.7, V: 1}, // #AF4CFF
		},
		Detection: imgproc.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, the YAML file at path (if not
// empty) and the environment, reading .env from the working directory first
// when it exists.
func Load(path string) (Config, error) {
	return LoadFiles(path, ".env")
}

// LoadFiles is Load with an explicit env file. Variables already set in the
// environment win over the env file.
func LoadFiles(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return cfg, fmt.Errorf("loading %s: %w", envFile, err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// applyEnv overrides fields from HEATMAP_* variables. Values that do not
// parse are reported rather than ignored.
func (c *Config) applyEnv() error {
	env := &envReader{}

	s := &c.Session
	s.SampleRate = env.asFloat("HEATMAP_SAMPLE_RATE", s.SampleRate)
	s.Duration = env.asDuration("HEATMAP_DURATION", s.Duration)
	s.KeepFrames = env.asBool("HEATMAP_KEEP_FRAMES", s.KeepFrames)
	s.Workers = env.asInt("HEATMAP_WORKERS", s.Workers)
	s.RetryDelay = env.asDuration("HEATMAP_RETRY_DELAY", s.RetryDelay)
	s.Display = env.asInt("HEATMAP_DISPLAY", s.Display)

	p := &c.Paths
	p.Resources = getEnv("HEATMAP_RESOURCES", p.Resources)
	p.Map = getEnv("HEATMAP_MAP", p.Map)
	p.Reference = getEnv("HEATMAP_REFERENCE", p.Reference)
	p.Frames = getEnv("HEATMAP_FRAMES_DIR", p.Frames)
	p.Output = getEnv("HEATMAP_OUTPUT_DIR", p.Output)
	p.History = getEnv("HEATMAP_HISTORY_DB", p.History)
	p.Logs = getEnv("HEATMAP_LOG_DIR", p.Logs)

	return errors.Join(env.errs...)
}

func (c Config) Validate() error {
	var errs []error
	invalid := func(section string, err error) {
		errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalid, section, err))
	}

	s := c.Session
	if s.SampleRate <= 0 {
		invalid("session", fmt.Errorf("sample rate %v must be positive", s.SampleRate))
	}
	if s.Duration <= 0 {
		invalid("session", fmt.Errorf("duration %v must be positive", s.Duration))
	} else if s.SampleRate > 0 && s.Frames() < 1 {
		invalid("session", fmt.Errorf("duration %v at %v fps captures no frames", s.Duration, s.SampleRate))
	}
	if s.Workers < 1 {
		invalid("session", fmt.Errorf("workers %d must be at least 1", s.Workers))
	}
	if s.RetryDelay < 0 {
		invalid("session", fmt.Errorf("retry delay %v must not be negative", s.RetryDelay))
	}

	if c.Paths.Frames == "" {
		invalid("paths", errors.New("frames directory is required"))
	}
	if c.Paths.Output == "" {
		invalid("paths", errors.New("output directory is required"))
	}
	if _, err := c.Paths.ReferencePath(); err != nil {
		invalid("paths", err)
	}

	if err := c.Clustering.Small.Validate(); err != nil {
		invalid("clustering.small", err)
	}
	if err := c.Clustering.Large.Validate(); err != nil {
		invalid("clustering.large", err)
	}
	if err := c.Heatmap.Validate(); err != nil {
		invalid("heatmap", err)
	}
	if err := c.Detection.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed variables and collects the ones that do not parse
type envReader struct {
	errs []error
}

func (e *envReader) fail(key, value string) {
	e.errs = append(e.errs, fmt.Errorf("%w: %s=%q does not parse", ErrInvalid, key, value))
}

func (e *envReader) asInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		e.fail(key, value)
		return defaultValue
	}
	return intValue
}

func (e *envReader) asFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		e.fail(key, value)
		return defaultValue
	}
	return floatValue
}

func (e *envReader) asBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		e.fail(key, value)
		return defaultValue
	}
	return boolValue
}

// asDuration accepts Go durations ("90s") or plain seconds ("90")
func (e *envReader) asDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(seconds * float64(time.Second))
	}
	e.fail(key, value)
	return defaultValue
}
