package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motion.report/internal/biomech"
	"github.com/banshee-data/motion.report/internal/realtime"
	"github.com/banshee-data/motion.report/internal/storage/sqlite"
)

func sampleSeries() *Series {
	s := New("squat session", 30*time.Millisecond)
	for i := 0; i < 20; i++ {
		tier := biomech.TierHigh
		latency := 20 * time.Millisecond
		if i >= 10 {
			tier = biomech.TierMedium
			latency = 40 * time.Millisecond
		}
		s.Add(&biomech.Result{
			TimestampMs:    int64(i) * 33,
			ProcessingTime: latency,
			Tier:           tier,
			Quality:        biomech.MovementQuality{Overall: 70},
			Confidence:     0.9,
		})
	}
	s.Transitions = []realtime.Transition{{From: biomech.TierHigh, To: biomech.TierMedium}}
	return s
}

func TestSummarize(t *testing.T) {
	sum := sampleSeries().Summarize()
	assert.Equal(t, 20, sum.Frames)
	assert.Equal(t, 30*time.Millisecond, sum.MeanLatency)
	assert.Equal(t, 40*time.Millisecond, sum.P95Latency)
	assert.Equal(t, 40*time.Millisecond, sum.MaxLatency)
	assert.Equal(t, 0.5, sum.OverTarget)
	assert.Equal(t, 70.0, sum.MeanQuality)
	assert.Equal(t, map[biomech.Tier]int{biomech.TierHigh: 10, biomech.TierMedium: 10}, sum.TierFrames)
}

func TestSummarize_Empty(t *testing.T) {
	sum := New("empty", 0).Summarize()
	assert.Zero(t, sum.Frames)
	assert.Zero(t, sum.MeanLatency)
	assert.Empty(t, sum.TierFrames)
}

func TestFromRows(t *testing.T) {
	rows := []sqlite.ResultRow{
		{TimestampMs: 0, Tier: biomech.TierLow, ProcessingTime: time.Millisecond, QualityOverall: 50, Confidence: 0.5},
		{TimestampMs: 33, Tier: biomech.TierHigh, ProcessingTime: 3 * time.Millisecond, QualityOverall: 90, Confidence: 0.8},
	}
	s := FromRows("recorded", 30*time.Millisecond, rows, nil)
	require.Len(t, s.Points, 2)
	assert.Equal(t, Point{TimestampMs: 33, Latency: 3 * time.Millisecond, Tier: biomech.TierHigh, Quality: 90, Confidence: 0.8}, s.Points[1])
	assert.Equal(t, 2*time.Millisecond, s.Summarize().MeanLatency)
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleSeries().RenderHTML(&buf))

	out := buf.String()
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "squat session")
	assert.Contains(t, out, "Processing latency")
	assert.Contains(t, out, "Quality tier")
	assert.Contains(t, out, "Movement quality")
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "latency.png")
	require.NoError(t, sampleSeries().SavePNG(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	assert.Error(t, New("empty", 0).SavePNG(filepath.Join(t.TempDir(), "x.png")))
}
