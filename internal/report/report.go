// Package report renders a processed session as an HTML dashboard
// (go-echarts) or a static latency plot (gonum/plot).
package report

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/motion.report/internal/biomech"
	"github.com/banshee-data/motion.report/internal/realtime"
	"github.com/banshee-data/motion.report/internal/storage/sqlite"
)

// Point is one processed frame.
type Point struct {
	TimestampMs int64
	Latency     time.Duration
	Tier        biomech.Tier
	Quality     float64 // movement quality, 0-100
	Confidence  float64
}

// Series is the per-frame history of a session.
type Series struct {
	Title         string
	TargetLatency time.Duration
	Points        []Point
	Transitions   []realtime.Transition
}

// New returns an empty Series.
func New(title string, target time.Duration) *Series {
	return &Series{Title: title, TargetLatency: target}
}

// Add appends a live result.
func (s *Series) Add(r *biomech.Result) {
	s.Points = append(s.Points, Point{
		TimestampMs: r.TimestampMs,
		Latency:     r.ProcessingTime,
		Tier:        r.Tier,
		Quality:     r.Quality.Overall,
		Confidence:  r.Confidence,
	})
}

// FromRows builds a Series from recorded results.
func FromRows(title string, target time.Duration, rows []sqlite.ResultRow, transitions []realtime.Transition) *Series {
	s := New(title, target)
	s.Points = make([]Point, 0, len(rows))
	for _, r := range rows {
		s.Points = append(s.Points, Point{
			TimestampMs: r.TimestampMs,
			Latency:     r.ProcessingTime,
			Tier:        r.Tier,
			Quality:     r.QualityOverall,
			Confidence:  r.Confidence,
		})
	}
	s.Transitions = transitions
	return s
}

// Summary condenses a Series.
type Summary struct {
	Frames      int
	MeanLatency time.Duration
	P95Latency  time.Duration
	MaxLatency  time.Duration
	OverTarget  float64 // fraction of frames slower than the target
	MeanQuality float64
	TierFrames  map[biomech.Tier]int
}

// Summarize computes latency and quality statistics.
func (s *Series) Summarize() Summary {
	sum := Summary{Frames: len(s.Points), TierFrames: make(map[biomech.Tier]int)}
	if len(s.Points) == 0 {
		return sum
	}
	lat := make([]float64, len(s.Points))
	quality := make([]float64, len(s.Points))
	over := 0
	for i, p := range s.Points {
		lat[i] = float64(p.Latency)
		quality[i] = p.Quality
		sum.TierFrames[p.Tier]++
		if s.TargetLatency > 0 && p.Latency > s.TargetLatency {
			over++
		}
	}
	sort.Float64s(lat)
	sum.MeanLatency = time.Duration(stat.Mean(lat, nil))
	sum.P95Latency = time.Duration(stat.Quantile(0.95, stat.Empirical, lat, nil))
	sum.MaxLatency = time.Duration(lat[len(lat)-1])
	sum.OverTarget = float64(over) / float64(len(s.Points))
	sum.MeanQuality = stat.Mean(quality, nil)
	return sum
}

func (s *Series) xAxis() []string {
	x := make([]string, len(s.Points))
	for i, p := range s.Points {
		x[i] = fmt.Sprintf("%.2f", float64(p.TimestampMs)/1000)
	}
	return x
}

// RenderHTML writes a page with latency, tier and quality charts.
func (s *Series) RenderHTML(w io.Writer) error {
	sum := s.Summarize()
	x := s.xAxis()

	latency := make([]opts.LineData, len(s.Points))
	target := make([]opts.LineData, len(s.Points))
	tiers := make([]opts.LineData, len(s.Points))
	quality := make([]opts.LineData, len(s.Points))
	confidence := make([]opts.LineData, len(s.Points))
	targetMs := durationMs(s.TargetLatency)
	for i, p := range s.Points {
		latency[i] = opts.LineData{Value: durationMs(p.Latency)}
		target[i] = opts.LineData{Value: targetMs}
		tiers[i] = opts.LineData{Value: int(p.Tier)}
		quality[i] = opts.LineData{Value: p.Quality}
		confidence[i] = opts.LineData{Value: p.Confidence * 100}
	}

	latencyChart := newLineChart(
		"Processing latency",
		fmt.Sprintf("frames=%d mean=%s p95=%s over target=%.1f%%",
			sum.Frames, sum.MeanLatency, sum.P95Latency, sum.OverTarget*100),
		opts.YAxis{Name: "ms"},
	)
	latencyChart.SetXAxis(x).
		AddSeries("latency", latency, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})).
		AddSeries("target", target, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	tierChart := newLineChart(
		"Quality tier",
		fmt.Sprintf("0=MINIMAL 1=LOW 2=MEDIUM 3=HIGH, transitions=%d", len(s.Transitions)),
		opts.YAxis{Name: "tier", Min: 0, Max: 3},
	)
	tierChart.SetXAxis(x).
		AddSeries("tier", tiers, charts.WithLineChartOpts(opts.LineChart{Step: "end", ShowSymbol: opts.Bool(false)}))

	qualityChart := newLineChart(
		"Movement quality",
		fmt.Sprintf("mean=%.1f", sum.MeanQuality),
		opts.YAxis{Name: "score", Min: 0, Max: 100},
	)
	qualityChart.SetXAxis(x).
		AddSeries("quality", quality, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})).
		AddSeries("confidence x100", confidence, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	page := components.NewPage()
	page.SetPageTitle(s.Title)
	page.AddCharts(latencyChart, tierChart, qualityChart)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func newLineChart(title, subtitle string, y opts.YAxis) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "s"}),
		charts.WithYAxisOpts(y),
	)
	return line
}

// SavePNG writes a latency-over-time plot to path.
func (s *Series) SavePNG(path string) error {
	if len(s.Points) == 0 {
		return fmt.Errorf("save plot: no frames")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save plot: %w", err)
		}
	}

	p := plot.New()
	p.Title.Text = s.Title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Latency (ms)"

	pts := make(plotter.XYs, len(s.Points))
	for i, pt := range s.Points {
		pts[i] = plotter.XY{X: float64(pt.TimestampMs) / 1000, Y: durationMs(pt.Latency)}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("latency", line)

	if s.TargetLatency > 0 {
		targetMs := durationMs(s.TargetLatency)
		target := plotter.NewFunction(func(float64) float64 { return targetMs })
		target.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
		target.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(target)
		p.Legend.Add("target", target)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
