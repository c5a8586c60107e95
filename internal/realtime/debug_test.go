package realtime

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/motion.report/internal/testutil"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSetLogWriters_RoutesStreams(t *testing.T) {
	t.Cleanup(func() { SetLogWriters(LogWriters{}) })
	var ops, diag lockedBuffer
	SetLogWriters(LogWriters{Ops: &ops, Diag: &diag})

	opsf("ops %d", 1)
	diagf("diag %d", 2)
	tracef("trace %d", 3)

	assert.Contains(t, ops.String(), "[realtime] ")
	assert.Contains(t, ops.String(), "ops 1")
	assert.NotContains(t, ops.String(), "diag 2")
	assert.Contains(t, diag.String(), "diag 2")
	assert.NotContains(t, diag.String(), "trace 3")
}

func TestSetLogWriters_WhileProcessing(t *testing.T) {
	t.Cleanup(func() { SetLogWriters(LogWriters{}) })
	p, _ := newTestProcessor(t, nil)
	p.strategies = stubStrategies(instant)

	var out lockedBuffer
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				SetLegacyLogger(&out)
			} else {
				SetLogWriters(LogWriters{})
			}
		}
	}()

	for i := 0; i < 50; i++ {
		p.ProcessPose(testutil.NeutralFrame(int64(i)*33, 0.9))
	}
	<-done
	SetLegacyLogger(&out)
	p.Stop()
	assert.Contains(t, out.String(), "[realtime] ")
	assert.Contains(t, out.String(), "stopped: discarded")
}
