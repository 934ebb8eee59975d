package tracker

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/golang/geo/r2"

	"github.com/travisano/unite-heatmap/cluster"
	"github.com/travisano/unite-heatmap/heatmap"
	"github.com/travisano/unite-heatmap/store"
	"github.com/travisano/unite-heatmap/types"
	"github.com/travisano/unite-heatmap/utils"
)

// render clusters the features, composites the heatmap and writes the outputs.
func (c *Controller) render(ctx context.Context, session Session, frames []types.FrameDetections, interrupted bool) (*Result, error) {
	captureSize := session.Region.Size()
	if len(frames) > 0 && frames[0].Dimensions != (image.Point{}) {
		captureSize = frames[0].Dimensions
	}
	ref := c.deps.Reference
	refSize := image.Pt(ref.Cols(), ref.Rows())
	scale := heatmap.Scale(captureSize, refSize)

	var teamA, teamB []r2.Point
	var small, large []types.Detection
	summary := store.Summary{}
	for _, f := range frames {
		for _, m := range f.Markers {
			p := store.Point{X: int(m.Position.X * scale.X), Y: int(m.Position.Y * scale.Y), Frame: f.Index}
			switch m.Category {
			case types.TeamA:
				teamA = append(teamA, m.Position)
				summary.TeamA = append(summary.TeamA, p)
			case types.TeamB:
				teamB = append(teamB, m.Position)
				summary.TeamB = append(summary.TeamB, p)
			}
		}
		small = append(small, f.Small...)
		large = append(large, f.Large...)
	}

	camps := cluster.Run(small, c.opts.Small)
	landmarks := cluster.Run(large, c.opts.Large)
	summary.Camps = entities(camps, scale, session.SampleRate)
	summary.Landmarks = entities(landmarks, scale, session.SampleRate)
	c.log.Info("%d team A and %d team B positions, %d camps, %d landmarks",
		len(teamA), len(teamB), len(camps), len(landmarks))

	summary.Metadata = store.Metadata{
		SessionID:       session.ID.String(),
		Map:             c.opts.Map,
		StartedAt:       session.StartedAt,
		DurationSeconds: float64(session.Frames) / session.SampleRate,
		SampleRate:      session.SampleRate,
		Frames:          session.Frames,
		Analyzed:        len(frames),
		Interrupted:     interrupted,
		Region:          [4]int{session.Region.Min.X, session.Region.Min.Y, session.Region.Max.X, session.Region.Max.Y},
		CaptureSize:     [2]int{captureSize.X, captureSize.Y},
		ReferenceSize:   [2]int{refSize.X, refSize.Y},
	}
	if session.SampleRate <= 0 {
		summary.Metadata.DurationSeconds = 0
	}

	layers := []heatmap.Layer{
		{Name: string(types.TeamA), Color: c.opts.TeamA, Positions: teamA},
		{Name: string(types.TeamB), Color: c.opts.TeamB, Positions: teamB},
	}
	glyphs := make([]heatmap.Entity, 0, len(camps)+len(landmarks))
	for _, cl := range camps {
		glyphs = append(glyphs, heatmap.Entity{Position: cl.Centroid, Uptime: uptimeSeconds(cl, session.SampleRate), Class: types.SmallFeatures})
	}
	for _, cl := range landmarks {
		glyphs = append(glyphs, heatmap.Entity{Position: cl.Centroid, Uptime: uptimeSeconds(cl, session.SampleRate), Class: types.LargeFeatures})
	}

	img, err := c.deps.Renderer.Render(ref, captureSize, layers, glyphs)
	if err != nil {
		return nil, fmt.Errorf("rendering heatmap: %w", err)
	}
	defer img.Close()

	result := &Result{Session: session, Interrupted: interrupted, Analyzed: len(frames), Summary: summary}
	if result.ImagePath, err = c.deps.Sink.WriteImage(img); err != nil {
		return nil, fmt.Errorf("writing heatmap: %w", err)
	}
	if result.SummaryPath, err = c.deps.Sink.WriteSummary(summary); err != nil {
		return nil, fmt.Errorf("writing summary: %w", err)
	}
	c.log.Info("heatmap saved: %s", result.ImagePath)

	if c.deps.History != nil {
		if err := c.deps.History.RecordSession(ctx, summary, result.ImagePath, result.SummaryPath); err != nil {
			c.log.Error("recording session history: %v", err)
		}
	}
	return result, nil
}

// uptimeSeconds converts a cluster's sample count to seconds of footage
func uptimeSeconds(cl *cluster.Cluster, sampleRate float64) int {
	if sampleRate <= 0 {
		return cl.Uptime()
	}
	return int(math.Round(float64(cl.Uptime()) / sampleRate))
}

func entities(clusters []*cluster.Cluster, scale r2.Point, sampleRate float64) []store.Entity {
	out := make([]store.Entity, 0, len(clusters))
	for _, cl := range clusters {
		frames := cl.Frames()
		seconds := uptimeSeconds(cl, sampleRate)
		out = append(out, store.Entity{
			ID:            cl.ID,
			Position:      [2]int{int(cl.Centroid.X * scale.X), int(cl.Centroid.Y * scale.Y)},
			UptimeSeconds: seconds,
			Uptime:        utils.FormatUptime(seconds),
			Detections:    len(cl.Members),
			FirstFrame:    frames[0],
			LastFrame:     frames[len(frames)-1],
			Zone:          cl.Zone(),
		})
	}
	return out
}
