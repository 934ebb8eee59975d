// Package tracker runs a tracking session: find the minimap, sample it at a
// fixed rate, analyse the stored crops and render the results.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/travisano/unite-heatmap/capture"
	"github.com/travisano/unite-heatmap/cluster"
	"github.com/travisano/unite-heatmap/heatmap"
	"github.com/travisano/unite-heatmap/imgproc"
	"github.com/travisano/unite-heatmap/logger"
	"github.com/travisano/unite-heatmap/store"
	"github.com/travisano/unite-heatmap/types"
)

var (
	ErrNoFrames      = errors.New("no stored frames")
	ErrSourceEnded   = errors.New("frame source ended before the minimap was found")
	ErrMissingOutput = errors.New("renderer, reference map and output sink are required")
)

// Localizer finds the minimap in a full frame.
type Localizer interface {
	Locate(frame gocv.Mat) (types.Region, bool)
}

// Analyzer detects everything in one minimap crop. It must be safe for
// concurrent use when Workers > 1.
type Analyzer interface {
	Analyze(crop gocv.Mat, index int) types.FrameDetections
}

type Renderer interface {
	Render(base gocv.Mat, capture image.Point, layers []heatmap.Layer, entities []heatmap.Entity) (gocv.Mat, error)
}

// Sink receives the rendered image and the structured summary.
type Sink interface {
	WriteImage(img gocv.Mat) (string, error)
	WriteSummary(s store.Summary) (string, error)
}

// Recorder keeps a history of finished sessions.
type Recorder interface {
	RecordSession(ctx context.Context, s store.Summary, imagePath, summaryPath string) error
}

type Options struct {
	SampleRate float64 // frames per second
	Frames     int     // frames in a full session
	RetryDelay time.Duration
	Workers    int
	KeepFrames bool
	// Unpaced drops the sleep between samples, for sources that are not live
	Unpaced    bool
	Small      cluster.Policy
	Large      cluster.Policy
	TeamA      color.RGBA
	TeamB      color.RGBA
	Map        string
}

// Deps are the collaborators of a Controller. Source and Localizer are only
// needed by Run, and History may be nil.
type Deps struct {
	Source    capture.Source
	Localizer Localizer
	Analyzer  Analyzer
	Frames    store.FrameStore
	Renderer  Renderer
	Reference gocv.Mat
	Sink      Sink
	History   Recorder
	Log       *logger.Logger
}

// Session is the state of one tracking run. Region is set once.
type Session struct {
	ID         uuid.UUID
	Region     types.Region
	Frames     int
	Target     int
	SampleRate float64
	StartedAt  time.Time
}

type Result struct {
	Session     Session
	State       State
	Interrupted bool
	Analyzed    int
	Summary     store.Summary
	ImagePath   string
	SummaryPath string
}

// Controller drives a session through its states. Cancelling the context
// passed to Run is the user interrupt.
type Controller struct {
	opts Options
	deps Deps
	log  *logger.Logger

	// OnProgress is called after each analysed frame
	OnProgress func(done, total int)
	// OnState is called on every transition
	OnState func(State)

	mu    sync.Mutex
	state State
}

func NewController(opts Options, deps Deps) *Controller {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	return &Controller{opts: opts, deps: deps, log: log}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()

	c.log.Info("state: %s", s)
	if c.OnState != nil {
		c.OnState(s)
	}
}

func (c *Controller) newSession() Session {
	return Session{
		ID:         uuid.New(),
		Target:     c.opts.Frames,
		SampleRate: c.opts.SampleRate,
		StartedAt:  time.Now(),
	}
}

func (c *Controller) checkOutputs() error {
	if c.deps.Renderer == nil || c.deps.Reference.Empty() || c.deps.Sink == nil || c.deps.Analyzer == nil || c.deps.Frames == nil {
		return ErrMissingOutput
	}
	return nil
}

// Run executes a full session. An interrupt while searching, or while
// capturing before the first frame, aborts the session. A later interrupt
// still renders everything captured so far.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	if err := c.checkOutputs(); err != nil {
		return nil, err
	}
	if c.deps.Source == nil || c.deps.Localizer == nil {
		return nil, errors.New("a frame source and a localizer are required to track")
	}

	session := c.newSession()
	c.log.Info("session %s: %d frames at %.2f fps", session.ID, session.Target, session.SampleRate)

	c.setState(Searching)
	region, err := c.search(ctx)
	if err != nil {
		c.setState(Aborted)
		result := &Result{Session: session, State: Aborted, Interrupted: ctx.Err() != nil}
		if result.Interrupted {
			return result, nil
		}
		return result, err
	}
	session.Region = region
	c.log.Info("minimap found at %s", region)

	c.setState(Capturing)
	if err := c.capture(ctx, &session); err != nil {
		c.setState(Aborted)
		return &Result{Session: session, State: Aborted}, err
	}
	if session.Frames == 0 {
		c.setState(Aborted)
		return &Result{Session: session, State: Aborted, Interrupted: ctx.Err() != nil}, nil
	}

	// frames captured before an interrupt are all analysed
	procCtx := ctx
	interrupted := ctx.Err() != nil
	if interrupted {
		procCtx = context.WithoutCancel(ctx)
	}
	return c.processAndRender(ctx, procCtx, session, interrupted)
}

// ProcessStored analyses and renders the frames already in the frame store,
// for example those of an earlier session run with KeepFrames.
func (c *Controller) ProcessStored(ctx context.Context) (*Result, error) {
	if err := c.checkOutputs(); err != nil {
		return nil, err
	}
	if c.deps.Frames.Len() == 0 {
		return nil, ErrNoFrames
	}

	session := c.newSession()
	session.Frames = c.deps.Frames.Len()
	session.Target = session.Frames
	return c.processAndRender(ctx, ctx, session, false)
}

func (c *Controller) processAndRender(ctx, procCtx context.Context, session Session, interrupted bool) (*Result, error) {
	c.setState(Processing)
	frames, err := c.process(procCtx, session.Frames)
	if err != nil {
		c.setState(Aborted)
		return &Result{Session: session, State: Aborted, Interrupted: interrupted}, err
	}
	if procCtx.Err() != nil {
		interrupted = true
		c.log.Warning("interrupted while processing, rendering %d of %d frames", len(frames), session.Frames)
	}

	c.setState(Rendering)
	result, err := c.render(context.WithoutCancel(ctx), session, frames, interrupted)
	if err != nil {
		c.setState(Aborted)
		return &Result{Session: session, State: Aborted, Interrupted: interrupted}, err
	}

	if !c.opts.KeepFrames {
		if err := c.deps.Frames.Clear(); err != nil {
			c.log.Warning("clearing frames: %v", err)
		}
	}

	c.setState(Done)
	result.State = Done
	return result, nil
}

// search captures frames until the localizer accepts one.
func (c *Controller) search(ctx context.Context) (types.Region, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return types.Region{}, err
		}

		frame, err := c.deps.Source.CaptureFrame()
		if errors.Is(err, capture.ErrEndOfStream) {
			return types.Region{}, ErrSourceEnded
		}
		if err != nil {
			c.log.Warning("capture failed while searching: %v", err)
			if err := sleep(ctx, c.opts.RetryDelay); err != nil {
				return types.Region{}, err
			}
			continue
		}

		region, ok := c.deps.Localizer.Locate(frame)
		frame.Close()
		if ok && region.Valid() {
			return region, nil
		}
		if attempt%10 == 0 {
			c.log.Info("minimap not found after %d attempts", attempt)
		}
		if err := sleep(ctx, c.opts.RetryDelay); err != nil {
			return types.Region{}, err
		}
	}
}

// capture samples the fixed region once per period. A slow cycle shortens
// the next sleep instead of dropping a sample. Only persistence failures are
// returned; an interrupt or the end of the source just stops the loop.
func (c *Controller) capture(ctx context.Context, session *Session) error {
	period := time.Duration(float64(time.Second) / c.opts.SampleRate)

	for session.Frames < session.Target {
		if ctx.Err() != nil {
			return nil
		}
		start := time.Now()

		frame, err := c.deps.Source.CaptureFrame()
		if errors.Is(err, capture.ErrEndOfStream) {
			c.log.Info("source ended after %d frames", session.Frames)
			return nil
		}
		if err != nil {
			c.log.Warning("capture failed, retrying: %v", err)
			if sleep(ctx, c.opts.RetryDelay) != nil {
				return nil
			}
			continue
		}

		crop := imgproc.Crop(frame, session.Region.Rectangle)
		frame.Close()
		err = c.deps.Frames.Persist(session.Frames, crop)
		crop.Close()
		if err != nil {
			return fmt.Errorf("persisting frame %d: %w", session.Frames, err)
		}
		session.Frames++

		if session.Frames%60 == 0 {
			c.log.Info("captured %d/%d frames", session.Frames, session.Target)
		}
		if session.Frames == session.Target {
			return nil
		}
		if c.opts.Unpaced {
			continue
		}
		if elapsed := time.Since(start); elapsed > period {
			c.log.Warning("capture cycle took %v, longer than the %v period", elapsed, period)
		}
		if sleep(ctx, period-time.Since(start)) != nil {
			return nil
		}
	}
	return nil
}

// sleep waits for d or until ctx is done. Non-positive durations only check ctx.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
