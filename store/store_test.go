package store

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func solid(v float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), 20, 30, gocv.MatTypeCV8UC3)
}

func testStores(t *testing.T) map[string]FrameStore {
	dir, err := NewDirStore(filepath.Join(t.TempDir(), "frames"))
	require.NoError(t, err)
	return map[string]FrameStore{"dir": dir, "mem": NewMemStore()}
}

func TestFrameStoreIteratesInSequenceOrder(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, seq := range []int{2, 0, 10, 1} {
				m := solid(float64(seq * 10))
				require.NoError(t, s.Persist(seq, m))
				m.Close()
			}
			assert.Equal(t, 4, s.Len())

			var seen []int
			err := s.Iterate(func(seq int, crop gocv.Mat) error {
				seen = append(seen, seq)
				assert.Equal(t, image.Pt(30, 20), image.Pt(crop.Cols(), crop.Rows()))
				assert.Equal(t, uint8(seq*10), crop.GetVecbAt(5, 5)[0])
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, []int{0, 1, 2, 10}, seen)

			require.NoError(t, s.Clear())
			assert.Zero(t, s.Len())
		})
	}
}

func TestFrameStoreStop(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			for seq := 0; seq < 3; seq++ {
				m := solid(0)
				require.NoError(t, s.Persist(seq, m))
				m.Close()
			}

			calls := 0
			err := s.Iterate(func(seq int, crop gocv.Mat) error {
				calls++
				return ErrStop
			})
			assert.NoError(t, err)
			assert.Equal(t, 1, calls)

			boom := errors.New("boom")
			err = s.Iterate(func(seq int, crop gocv.Mat) error { return boom })
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestDirStoreReopens(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	s, err := NewDirStore(dir)
	require.NoError(t, err)

	m := solid(50)
	defer m.Close()
	require.NoError(t, s.Persist(7, m))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0644))

	reopened, err := NewDirStore(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Len())
	assert.FileExists(t, filepath.Join(dir, "frame_00007.png"))

	require.NoError(t, reopened.Clear())
	assert.NoFileExists(t, filepath.Join(dir, "frame_00007.png"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}

func TestParseFrameName(t *testing.T) {
	seq, ok := parseFrameName("frame_00042.png")
	assert.True(t, ok)
	assert.Equal(t, 42, seq)

	for _, name := range []string{"frame_x.png", "screenshot_00001.png", "frame_00001.jpg"} {
		_, ok := parseFrameName(name)
		assert.False(t, ok, name)
	}
}

func TestOutputDir(t *testing.T) {
	out, err := NewOutputDir(t.TempDir())
	require.NoError(t, err)
	out.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }

	img := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
	defer img.Close()
	gocv.Circle(&img, image.Pt(5, 5), 2, color.RGBA{255, 0, 0, 255}, -1)

	imgPath, err := out.WriteImage(img)
	require.NoError(t, err)
	assert.Equal(t, "heatmap_final_20240309_140507.png", filepath.Base(imgPath))
	assert.FileExists(t, imgPath)

	summary := Summary{
		TeamA: []Point{{X: 1, Y: 2, Frame: 0}},
		Camps: []Entity{{ID: 0, Position: [2]int{10, 12}, UptimeSeconds: 65, Uptime: "01:05", Detections: 65}},
		Metadata: Metadata{
			SessionID: "abc",
			Frames:    3,
			StartedAt: time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC),
		},
	}
	sumPath, err := out.WriteSummary(summary)
	require.NoError(t, err)
	assert.Equal(t, "tracking_data_20240309_140507.json", filepath.Base(sumPath))

	read, err := ReadSummary(sumPath)
	require.NoError(t, err)
	assert.Equal(t, summary, read)
}

func TestLoadReference(t *testing.T) {
	_, err := LoadReference(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, ErrMissingReference)

	path := filepath.Join(t.TempDir(), "map.png")
	img := solid(90)
	defer img.Close()
	require.True(t, gocv.IMWrite(path, img))

	ref, err := LoadReference(path)
	require.NoError(t, err)
	defer ref.Close()
	assert.Equal(t, 30, ref.Cols())
	assert.Equal(t, 3, ref.Channels())
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	h, err := OpenHistory(path)
	require.NoError(t, err)

	base := time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second"} {
		s := Summary{
			TeamA:     []Point{{X: 1, Y: 1}, {X: 2, Y: 2}},
			TeamB:     []Point{{X: 3, Y: 3}},
			Camps:     []Entity{{ID: 0, Position: [2]int{5, 6}, UptimeSeconds: 70, Detections: 70}, {ID: 1}},
			Landmarks: []Entity{{ID: 0, Position: [2]int{50, 60}, UptimeSeconds: 9, Detections: 9, Zone: "top"}},
			Metadata: Metadata{
				SessionID:  id,
				Map:        "theia",
				StartedAt:  base.Add(time.Duration(i) * time.Minute),
				SampleRate: 1,
				Frames:     10 + i,
			},
		}
		require.NoError(t, h.RecordSession(ctx, s, "img.png", "data.json"))
	}
	require.NoError(t, h.Close())

	// reopening must not reapply migrations
	h, err = OpenHistory(path)
	require.NoError(t, err)
	defer h.Close()

	sessions, err := h.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "second", sessions[0].ID)
	assert.Equal(t, 11, sessions[0].Frames)
	assert.Equal(t, 2, sessions[0].TeamAPositions)
	assert.Equal(t, 2, sessions[0].Camps)
	assert.Equal(t, 1, sessions[0].Landmarks)
	assert.True(t, sessions[1].StartedAt.Equal(base))

	limited, err := h.ListSessions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	entities, err := h.Entities(ctx, "first")
	require.NoError(t, err)
	require.Len(t, entities, 3)
	assert.Equal(t, KindCamp, entities[0].Kind)
	assert.Equal(t, "01:10", entities[0].Uptime)
	assert.Equal(t, KindLandmark, entities[2].Kind)
	assert.Equal(t, "top", entities[2].Zone)

	// a duplicate session id is rejected as a whole
	err = h.RecordSession(ctx, Summary{Metadata: Metadata{SessionID: "first"}}, "", "")
	assert.Error(t, err)
}
