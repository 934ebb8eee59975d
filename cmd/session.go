package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/travisano/unite-heatmap/heatmap"
	"github.com/travisano/unite-heatmap/imgproc"
	"github.com/travisano/unite-heatmap/store"
	"github.com/travisano/unite-heatmap/tracker"
	"github.com/travisano/unite-heatmap/utils"
)

// Options holds the flags shared by track and process
type Options struct {
	Map        string
	Reference  string
	FramesDir  string
	OutputDir  string
	Workers    int
	KeepFrames bool
	NoHistory  bool
}

func addSessionFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVarP(&opts.Map, "map", "m", "", "Map name used to pick the reference image (theia, remoat)")
	cmd.Flags().StringVar(&opts.Reference, "reference", "", "Reference map image, overrides --map")
	cmd.Flags().StringVar(&opts.FramesDir, "frames", "", "Directory for captured minimap crops")
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "", "Directory for the heatmap and summary")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "Parallel analysis workers")
	cmd.Flags().BoolVarP(&opts.KeepFrames, "keep-frames", "k", false, "Keep captured crops after rendering")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "Do not record the session in the history database")
}

// apply copies the flags the user actually set over the loaded configuration
func (o Options) apply(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("map") {
		cfg.Paths.Map = o.Map
	}
	if flags.Changed("reference") {
		cfg.Paths.Reference = o.Reference
	}
	if flags.Changed("frames") {
		cfg.Paths.Frames = o.FramesDir
	}
	if flags.Changed("output") {
		cfg.Paths.Output = o.OutputDir
	}
	if flags.Changed("workers") {
		cfg.Session.Workers = o.Workers
	}
	if flags.Changed("keep-frames") {
		cfg.Session.KeepFrames = o.KeepFrames
	}
	if o.NoHistory {
		cfg.Paths.History = ""
	}
}

// session owns everything a controller needs besides the frame source
type session struct {
	frames    *store.DirStore
	reference gocv.Mat
	history   *store.History
	bar       *progressbar.ProgressBar
}

func (s *session) Close() {
	s.reference.Close()
	if s.history != nil {
		s.history.Close()
	}
}

// openSession validates the configuration against the filesystem and builds
// the controller. Any failure here happens before a session starts.
func openSession() (*session, tracker.Options, tracker.Deps) {
	if err := cfg.Validate(); err != nil {
		utils.Die("Invalid configuration", err)
	}

	refPath, err := cfg.Paths.ReferencePath()
	if err != nil {
		utils.Die("Unknown map", err)
	}
	reference, err := store.LoadReference(refPath)
	if err != nil {
		utils.Die("Failed to load the reference map", err)
	}

	s := &session{reference: reference}
	s.frames, err = store.NewDirStore(cfg.Paths.Frames)
	if err != nil {
		utils.Die("Failed to open the frame directory", err)
	}
	sink, err := store.NewOutputDir(cfg.Paths.Output)
	if err != nil {
		utils.Die("Failed to open the output directory", err)
	}

	if cfg.Paths.History != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Paths.History), 0755); err != nil {
			utils.Die("Failed to create the history directory", err)
		}
		s.history, err = store.OpenHistory(cfg.Paths.History)
		if err != nil {
			// history is a convenience, a session can run without it
			log.Warning("session history disabled: %v", err)
		}
	}

	teamA, teamB := cfg.Palette.Colors()
	opts := tracker.Options{
		SampleRate: cfg.Session.SampleRate,
		Frames:     cfg.Session.Frames(),
		RetryDelay: cfg.Session.RetryDelay,
		Workers:    cfg.Session.Workers,
		KeepFrames: cfg.Session.KeepFrames,
		Small:      cfg.Clustering.Small,
		Large:      cfg.Clustering.Large,
		TeamA:      teamA,
		TeamB:      teamB,
		Map:        cfg.Paths.Map,
	}
	deps := tracker.Deps{
		Analyzer:  imgproc.NewAnalyzer(cfg.Detection),
		Frames:    s.frames,
		Renderer:  heatmap.NewRenderer(cfg.Heatmap),
		Reference: reference,
		Sink:      sink,
		Log:       log,
	}
	if s.history != nil {
		deps.History = s.history
	}
	return s, opts, deps
}

// watch hooks the progress bar and state messages onto a controller
func (s *session) watch(c *tracker.Controller) {
	c.OnState = func(st tracker.State) {
		if st == tracker.Processing || st.Terminal() {
			return
		}
		fmt.Printf("%s...\n", st)
	}
	c.OnProgress = func(done, total int) {
		if s.bar == nil {
			s.bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("📊 Analysing frames"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
			)
		}
		s.bar.Set(done)
	}
}

func printResult(result *tracker.Result, elapsed time.Duration) {
	if result.State == tracker.Aborted {
		fmt.Println("Session aborted, nothing was rendered.")
		return
	}
	if result.Interrupted {
		fmt.Printf("\nInterrupted: rendered %d of %d captured frames.\n", result.Analyzed, result.Session.Frames)
	}

	s := result.Summary
	fmt.Printf("\n✅ Session %s finished in %s\n", result.Session.ID, elapsed.Round(time.Second))
	fmt.Printf("   Team A positions: %d\n", len(s.TeamA))
	fmt.Printf("   Team B positions: %d\n", len(s.TeamB))
	fmt.Printf("   Camps:            %d\n", len(s.Camps))
	fmt.Printf("   Landmarks:        %d\n", len(s.Landmarks))
	fmt.Printf("   Heatmap:          %s\n", result.ImagePath)
	fmt.Printf("   Summary:          %s\n", result.SummaryPath)
}
