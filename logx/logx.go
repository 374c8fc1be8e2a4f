// Package logx wraps charmbracelet/log with the level-by-debug-level
// convention the teacher's log.go/textcolor.go use (increasing debug_level
// unlocks progressively more chatter), and a hard rule: nothing on the
// realtime audio callback's path may call into it. Counters accumulated on
// that path are drained and logged by a separate low-priority goroutine
// (see endpoint.statsLoop).
package logx

import (
	"os"

	"github.com/charmbracelet/log"
)

// New builds a logger whose verbosity follows spec.md's debug_level: 0 is
// warn-and-above only, 1 is info-and-above, 2+ is debug-and-above.
func New(debugLevel int) *log.Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
	})
	switch {
	case debugLevel <= 0:
		l.SetLevel(log.WarnLevel)
	case debugLevel == 1:
		l.SetLevel(log.InfoLevel)
	default:
		l.SetLevel(log.DebugLevel)
	}
	return l
}
