// Command sofi is the So-Fi endpoint: it pipes stdin to the speaker and
// microphone input to stdout over an M-ary FSK acoustic link. CLI surface
// grounded on the teacher's cmd/direwolf/main.go and src/appserver.go /
// src/kissutil.go, both of which build their flag sets with
// github.com/spf13/pflag.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/pflag"

	"github.com/shermpay/sofi/endpoint"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		receiver        = pflag.BoolP("receiver", "R", false, "Enable receive direction.")
		sender          = pflag.BoolP("sender", "S", false, "Enable send direction.")
		baud            = pflag.Float64P("baud", "b", 100, "Symbol rate.")
		freqs           = pflag.StringP("frequencies", "f", "2200,1200", `Symbol frequencies, e.g. "2200,1200". Count must be 2, 4, 16, or 256.`)
		sampleRate      = pflag.IntP("sample-rate", "s", 48000, "Audio sample rate, Hz.")
		window          = pflag.Float64P("window", "w", 0.2, "Listen-mode window factor.")
		gap             = pflag.Float64P("gap", "g", 2, "Inter-packet gap factor.")
		maxLength       = pflag.IntP("max-length", "l", 255, "Max bytes per outgoing packet (1-255).")
		keepOpen        = pflag.BoolP("keep-open", "k", false, "Do not close stdout on receiving a zero-length packet.")
		debugLevel      = pflag.IntP("debug-level", "d", 0, "Verbosity.")
		noCRC           = pflag.Bool("no-crc", false, "Disable the per-packet CRC-32.")
		configPath      = pflag.StringP("config", "c", "", "Optional YAML configuration file, applied before flags.")
		pttChip         = pflag.String("ptt-chip", "", "Optional GPIO chip device (e.g. gpiochip0) to key while transmitting.")
		pttLine         = pflag.Int("ptt-line", 0, "GPIO line offset for --ptt-chip.")
		pttActiveLow    = pflag.Bool("ptt-active-low", false, "Treat the PTT line as active-low.")
		captureDir      = pflag.String("capture-dir", "", "Optional directory for hourly CSV captures of demodulator windows (length, symbol, strength) for debugging.")
		statsInterval   = pflag.Float64("stats-interval", 0, "Seconds between channel stats log lines (0 disables).")
		adaptiveSquelch = pflag.Bool("adaptive-squelch", false, "Estimate the silence threshold from a moving median instead of the fixed default.")
		help            = pflag.BoolP("help", "h", false, "Print usage and exit.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Pipes stdin to the speaker and microphone input to stdout over an acoustic FSK link.")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return 0
	}

	cfg := endpoint.Default()
	if *configPath != "" {
		var err error
		cfg, err = endpoint.LoadYAML(cfg, *configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "sofi:", err)
			return 1
		}
	}

	frequencies, err := parseFrequencies(*freqs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sofi:", err)
		pflag.Usage()
		return 1
	}

	cfg.Frequencies = frequencies
	cfg.Baud = *baud
	cfg.SampleRate = *sampleRate
	cfg.RecvWindowFactor = *window
	cfg.InterpacketGapFactor = *gap
	cfg.MaxPacketLength = *maxLength
	cfg.KeepOpen = *keepOpen
	cfg.DebugLevel = *debugLevel
	cfg.CRC = !*noCRC
	cfg.PTTChip = *pttChip
	cfg.PTTLine = *pttLine
	cfg.PTTActiveLow = *pttActiveLow
	cfg.CaptureDir = *captureDir
	cfg.StatsInterval = time.Duration(*statsInterval * float64(time.Second))
	cfg.AdaptiveSquelch = *adaptiveSquelch

	if *receiver || *sender {
		cfg.Receiver = *receiver
		cfg.Sender = *sender
	} // else: neither flag given, both stay on per endpoint.Default/spec.md 6.

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "sofi:", err)
		pflag.Usage()
		return 1
	}

	if err := portaudio.Initialize(); err != nil {
		fmt.Fprintln(os.Stderr, "sofi: audio init failed:", err)
		return 1
	}
	defer portaudio.Terminate()

	h, err := endpoint.Init(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sofi: init failed:", err)
		return 1
	}
	defer h.Destroy()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errs := make(chan error, 2)
	running := 0

	if cfg.Sender {
		running++
		go func() { errs <- h.RunSender(ctx, os.Stdin) }()
	}
	if cfg.Receiver {
		running++
		go func() { errs <- h.RunReceiver(ctx, os.Stdout) }()
	}

	var firstErr error
	for i := 0; i < running; i++ {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil && firstErr != context.Canceled {
		fmt.Fprintln(os.Stderr, "sofi:", firstErr)
		return 1
	}
	return 0
}

func parseFrequencies(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid frequency %q: %w", p, err)
		}
		out = append(out, v)
	}
	switch len(out) {
	case 2, 4, 16, 256:
		return out, nil
	default:
		return nil, fmt.Errorf("frequency count must be 2, 4, 16, or 256, got %d", len(out))
	}
}
