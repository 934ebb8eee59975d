package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"
)

var ErrMissingReference = errors.New("reference map not found")

// Point is a single team position in reference map pixels.
type Point struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Frame int `json:"frame"`
}

// Entity is one clustered camp or landmark.
type Entity struct {
	ID            int    `json:"id"`
	Position      [2]int `json:"position"`
	UptimeSeconds int    `json:"uptime_seconds"`
	Uptime        string `json:"uptime"`
	Detections    int    `json:"detections"`
	FirstFrame    int    `json:"first_frame"`
	LastFrame     int    `json:"last_frame"`
	Zone          string `json:"zone,omitempty"`
}

type Metadata struct {
	SessionID       string    `json:"session_id"`
	Map             string    `json:"map,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	SampleRate      float64   `json:"sample_rate"`
	Frames          int       `json:"frames"`
	Analyzed        int       `json:"analyzed"`
	Interrupted     bool      `json:"interrupted"`
	Region          [4]int    `json:"region"`
	CaptureSize     [2]int    `json:"capture_size"`
	ReferenceSize   [2]int    `json:"reference_size"`
}

// Summary is the structured record written next to the rendered heatmap.
type Summary struct {
	TeamA     []Point  `json:"team_a"`
	TeamB     []Point  `json:"team_b"`
	Camps     []Entity `json:"camps"`
	Landmarks []Entity `json:"landmarks"`
	Metadata  Metadata `json:"metadata"`
}

// OutputDir writes timestamped session results into a directory.
type OutputDir struct {
	dir string
	now func() time.Time
}

func NewOutputDir(dir string) (*OutputDir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &OutputDir{dir: dir, now: time.Now}, nil
}

func (o *OutputDir) stamp() string {
	return o.now().Format("20060102_150405")
}

// WriteImage saves img as heatmap_final_<timestamp>.png and returns the path.
func (o *OutputDir) WriteImage(img gocv.Mat) (string, error) {
	path := filepath.Join(o.dir, fmt.Sprintf("heatmap_final_%s.png", o.stamp()))
	if !gocv.IMWrite(path, img) {
		return "", fmt.Errorf("writing %s", path)
	}
	return path, nil
}

// WriteSummary saves s as tracking_data_<timestamp>.json and returns the path.
func (o *OutputDir) WriteSummary(s Summary) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding summary: %w", err)
	}

	path := filepath.Join(o.dir, fmt.Sprintf("tracking_data_%s.json", o.stamp()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing summary: %w", err)
	}
	return path, nil
}

// ReadSummary loads a summary written by WriteSummary.
func ReadSummary(path string) (Summary, error) {
	var s Summary
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decoding %s: %w", path, err)
	}
	return s, nil
}

// LoadReference reads the reference map the heatmap is composited onto.
func LoadReference(path string) (gocv.Mat, error) {
	if _, err := os.Stat(path); err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %s", ErrMissingReference, path)
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), fmt.Errorf("decoding reference map %s", path)
	}
	return img, nil
}
