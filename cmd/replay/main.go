// Command replay feeds a recorded landmark capture through the realtime
// processor, optionally recording the session to SQLite and writing an
// HTML or PNG latency report.
//
// The capture is JSON lines, one pose.Frame per line:
//
//	{"timestamp_ms": 0, "landmarks": [{"x": 0.5, "y": 0.2, "z": 0, "visibility": 0.9, "presence": 0.9}, ...]}
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/motion.report/internal/biomech"
	"github.com/banshee-data/motion.report/internal/config"
	"github.com/banshee-data/motion.report/internal/monitoring"
	"github.com/banshee-data/motion.report/internal/pose"
	"github.com/banshee-data/motion.report/internal/realtime"
	"github.com/banshee-data/motion.report/internal/report"
	"github.com/banshee-data/motion.report/internal/storage/sqlite"
	"github.com/banshee-data/motion.report/internal/timeutil"
	"github.com/banshee-data/motion.report/internal/version"
)

// maxLineBytes bounds one JSON frame line.
const maxLineBytes = 1 << 20

type options struct {
	framesPath string
	configPath string
	dbPath     string
	reportPath string
	pngPath    string
	fps        float64
	quality    string
	debug      bool
}

func main() {
	var o options
	flag.StringVar(&o.framesPath, "frames", "", "JSON-lines landmark capture (required, - for stdin)")
	flag.StringVar(&o.configPath, "config", "", "Tuning config JSON (defaults built in)")
	flag.StringVar(&o.dbPath, "db", "", "Record the session to this SQLite file")
	flag.StringVar(&o.reportPath, "report", "", "Write an HTML report to this path")
	flag.StringVar(&o.pngPath, "png", "", "Write a PNG latency plot to this path")
	flag.Float64Var(&o.fps, "fps", 30, "Replay rate in frames per second (0 = as fast as possible)")
	flag.StringVar(&o.quality, "quality", "", "Pin the quality tier (HIGH, MEDIUM, LOW, MINIMAL) and disable adaptation")
	flag.BoolVar(&o.debug, "debug", false, "Log analysis and scheduling diagnostics")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if o.framesPath == "" {
		log.Fatal("-frames is required")
	}
	if o.debug {
		realtime.SetLegacyLogger(monitoring.Writer())
		biomech.SetLegacyLogger(monitoring.Writer())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, timeutil.RealClock{}, os.Stdout); err != nil {
		log.Fatalf("replay: %v", err)
	}
}

func run(ctx context.Context, o options, clock timeutil.Clock, out io.Writer) error {
	tc := config.DefaultTuningConfig()
	if o.configPath != "" {
		var err error
		if tc, err = config.LoadTuningConfig(o.configPath); err != nil {
			return err
		}
	}
	cfg, err := realtime.ConfigFromTuning(tc)
	if err != nil {
		return err
	}
	cfg.Clock = clock

	frames, err := loadFrames(o.framesPath)
	if err != nil {
		return err
	}
	monitoring.Logf("%s: loaded %d frames from %s", version.String(), len(frames), o.framesPath)

	var (
		store     *sqlite.Store
		sessionID string
		rec       *sqlite.Recorder
	)
	if o.dbPath != "" {
		if store, err = sqlite.Open(o.dbPath); err != nil {
			return err
		}
		defer store.Close()
		cfgJSON, _ := json.Marshal(tc)
		if sessionID, err = store.StartSession(ctx, o.framesPath, clock.Now(), string(cfgJSON)); err != nil {
			return err
		}
		rec = sqlite.NewRecorder(store, sessionID)
		cfg.TransitionSink = rec
	}

	p := realtime.New(ctx, cfg)
	if o.quality != "" {
		tier, err := biomech.ParseTier(o.quality)
		if err != nil {
			p.Stop()
			return err
		}
		if err := p.SetQualityLevel(tier, true); err != nil {
			p.Stop()
			return err
		}
	}

	series := report.New(o.framesPath, cfg.TargetLatency)
	var wg sync.WaitGroup
	live := p.Subscribe()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for r := range live.C() {
			series.Add(r)
		}
	}()
	if rec != nil {
		sub := p.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rec.Run(context.WithoutCancel(ctx), sub); err != nil {
				monitoring.Logf("recorder stopped: %v", err)
			}
		}()
	}

	replay(ctx, p, clock, frames, o.fps)
	drain(ctx, p)
	stats := p.Stats()
	p.Stop()
	wg.Wait()

	if err := printStats(out, stats, p.Transitions()); err != nil {
		return err
	}

	if store != nil {
		bg := context.WithoutCancel(ctx)
		if err := store.EndSession(bg, sessionID, clock.Now()); err != nil {
			return err
		}
		sum, err := store.SessionSummary(bg, sessionID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "session %s: %d results, %d transitions, mean latency %s, mean quality %.1f\n",
			sessionID, sum.Results, sum.Transitions, sum.MeanLatency, sum.MeanQuality)

		rows, err := store.ListResults(bg, sessionID, 0)
		if err != nil {
			return err
		}
		trs, err := store.ListTransitions(bg, sessionID)
		if err != nil {
			return err
		}
		series = report.FromRows(o.framesPath, cfg.TargetLatency, rows, trs)
	} else {
		series.Transitions = p.Transitions()
	}

	if o.reportPath != "" {
		if err := writeHTML(series, o.reportPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", o.reportPath)
	}
	if o.pngPath != "" {
		if err := series.SavePNG(o.pngPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", o.pngPath)
	}
	return nil
}

// replay submits frames at fps, or back to back when fps <= 0.
func replay(ctx context.Context, p *realtime.Processor, clock timeutil.Clock, frames []pose.Frame, fps float64) {
	var interval time.Duration
	if fps > 0 {
		interval = time.Duration(float64(time.Second) / fps)
	}
	for _, f := range frames {
		if ctx.Err() != nil {
			return
		}
		p.ProcessPose(f)
		if interval > 0 {
			clock.Sleep(interval)
		}
	}
}

// drain waits, up to a bound of wall time, for queued frames to finish.
func drain(ctx context.Context, p *realtime.Processor) {
	const step = 5 * time.Millisecond
	deadline := time.Now().Add(5 * time.Second)
	for ctx.Err() == nil && time.Now().Before(deadline) {
		s := p.Stats()
		if s.QueueDepth == 0 && !s.Busy {
			return
		}
		time.Sleep(step)
	}
}

func loadFrames(path string) ([]pose.Frame, error) {
	if path == "-" {
		return readFrames(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frames: %w", err)
	}
	defer f.Close()
	return readFrames(f)
}

// readFrames parses one JSON frame per line. Blank lines are skipped.
func readFrames(r io.Reader) ([]pose.Frame, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	var frames []pose.Frame
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var f pose.Frame
		if err := json.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("frames line %d: %w", line, err)
		}
		frames = append(frames, f)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read frames: %w", err)
	}
	if len(frames) == 0 {
		return nil, errors.New("read frames: capture is empty")
	}
	return frames, nil
}

func printStats(w io.Writer, s realtime.Statistics, trs []realtime.Transition) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		Statistics  realtime.Statistics   `json:"statistics"`
		Transitions []realtime.Transition `json:"transitions"`
	}{s, trs}); err != nil {
		return fmt.Errorf("print statistics: %w", err)
	}
	return nil
}

func writeHTML(s *report.Series, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := s.RenderHTML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
