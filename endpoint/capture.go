package endpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lestrrat-go/strftime"
)

const capturePattern = "sofi-capture-%Y%m%d-%H.csv"

// captureRecorder implements modem.Recorder, writing one CSV line per
// classified window (sample count, detected symbol, strength) to a file
// named by a strftime pattern under cfg.CaptureDir, rotated by wall-clock
// time the same way the teacher's tq.go/xmit.go name timestamped files via
// strftime.Format(pattern, time.Time). The endpoint attaches one only when
// cfg.CaptureDir is set, whatever the debug level (SPEC_FULL.md supplement #3).
type captureRecorder struct {
	mu      sync.Mutex
	dir     string
	file    *os.File
	curName string
}

func newCaptureRecorder(dir string) (*captureRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("endpoint: capture dir: %w", err)
	}
	return &captureRecorder{dir: dir}, nil
}

// Record appends one row. Called from the demodulator worker goroutine,
// never from the realtime audio callback.
func (c *captureRecorder) Record(window []float32, symbol int, strength float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name, err := strftime.Format(capturePattern, time.Now())
	if err != nil {
		return // capture is best-effort diagnostics, never fatal
	}
	if name != c.curName {
		if c.file != nil {
			c.file.Close()
		}
		f, err := os.OpenFile(filepath.Join(c.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		c.file = f
		c.curName = name
	}

	fmt.Fprintf(c.file, "%d,%d,%.3f\n", len(window), symbol, strength)
}

func (c *captureRecorder) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	return c.file.Close()
}
