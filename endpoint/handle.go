package endpoint

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/shermpay/sofi/audio"
	"github.com/shermpay/sofi/codec"
	"github.com/shermpay/sofi/logx"
	"github.com/shermpay/sofi/modem"
	"github.com/shermpay/sofi/ptt"
	"github.com/shermpay/sofi/queue"
	"github.com/shermpay/sofi/ring"
)

// messageRingCapacity is the message ring's slot count: a power of two, above
// the minimum spec.md 4.H calls for ("message ring capacity >= 2 slots").
const messageRingCapacity = 4

// recvQueueCapacity is RECV_QUEUE_CAP from spec.md scenario S5.
const recvQueueCapacity = 64

// shutdownSlack is the "small slack (a few tens of ms)" spec.md 4.H allows
// after the sender message ring drains, to let the final audio block flush.
const shutdownSlack = 30 * time.Millisecond

// Handle is the live endpoint: every component built from one Config,
// wired together, running for the process lifetime until Destroy.
type Handle struct {
	cfg Config

	log *log.Logger

	msgRing  *ring.Ring[codec.RawMessage]
	sampRing *ring.Ring[float32]
	recvQ    *queue.Queue

	modulator   *modem.Modulator
	demodulator *modem.Demodulator
	bridge      *audio.Bridge
	keyer       audio.Keyer
	capture     *captureRecorder

	demodCancel context.CancelFunc
	statsCancel context.CancelFunc
}

// Init builds all components from cfg (validated first), opens the audio
// stream, and spawns the demodulator worker if receiving. On any step's
// failure it rolls back everything already constructed, in reverse order,
// and returns an error — spec.md 4.H.
func Init(cfg Config) (h *Handle, err error) {
	if verr := cfg.Validate(); verr != nil {
		return nil, verr
	}

	h = &Handle{
		cfg: cfg,
		log: logx.New(cfg.DebugLevel),
	}

	rollback := func() {
		if h.statsCancel != nil {
			h.statsCancel()
		}
		if h.demodCancel != nil {
			h.demodCancel()
		}
		if h.bridge != nil {
			h.bridge.Close()
		}
		if h.keyer != nil {
			if l, ok := h.keyer.(*ptt.Line); ok {
				l.Close()
			}
		}
		if h.capture != nil {
			h.capture.Close()
		}
	}
	defer func() {
		if err != nil {
			rollback()
		}
	}()

	h.msgRing = ring.New[codec.RawMessage](messageRingCapacity)
	h.sampRing = ring.New[float32](sampleRingCapacity(cfg.SampleRate))
	h.recvQ = queue.New(recvQueueCapacity)

	mcfg := cfg.modemConfig()
	h.modulator = modem.NewModulator(mcfg, h.msgRing)
	h.demodulator = modem.NewDemodulator(mcfg, h.sampRing, h.recvQ)

	if cfg.CaptureDir != "" {
		rec, cerr := newCaptureRecorder(cfg.CaptureDir)
		if cerr != nil {
			return nil, cerr
		}
		h.capture = rec
		h.demodulator.SetRecorder(rec)
	}

	if cfg.PTTChip != "" {
		line, perr := ptt.Open(cfg.PTTChip, cfg.PTTLine, cfg.PTTActiveLow)
		if perr != nil {
			return nil, perr
		}
		h.keyer = line
	}

	bcfg := audio.Config{
		SampleRate:      float64(cfg.SampleRate),
		FramesPerBuffer: 0, // let portaudio choose a low-latency default
		Sender:          cfg.Sender,
		Receiver:        cfg.Receiver,
	}
	bridge, berr := audio.Open(bcfg, h.modulator, h.sampRing, h.keyer)
	if berr != nil {
		return nil, berr
	}
	h.bridge = bridge

	if cfg.Receiver {
		ctx, cancel := context.WithCancel(context.Background())
		h.demodCancel = cancel
		go h.demodulator.Run(ctx)
	}

	if cfg.StatsInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		h.statsCancel = cancel
		go h.statsLoop(ctx)
	}

	h.log.Info("sofi endpoint initialized",
		"sample_rate", cfg.SampleRate, "baud", cfg.Baud,
		"symbols", len(cfg.Frequencies), "sender", cfg.Sender, "receiver", cfg.Receiver)

	return h, nil
}

func sampleRingCapacity(sampleRate int) int {
	// At least 1 second of audio, rounded up to a power of two.
	n := 1
	for n < sampleRate {
		n <<= 1
	}
	return n
}

// Send serializes p and blocks, spin-waiting with a sleep proportional to
// one symbol time, until the message ring accepts it — spec.md 4.H.
func (h *Handle) Send(ctx context.Context, p codec.Packet) error {
	w, _ := h.cfg.SymbolWidth()
	raw := codec.ToRawMessage(p, h.cfg.CRC, w)

	symbolTime := time.Duration(float64(time.Second) / h.cfg.Baud)
	backoff := symbolTime / 4
	if backoff < time.Millisecond {
		backoff = time.Millisecond
	}

	for {
		if h.msgRing.Write([]codec.RawMessage{raw}) == 1 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// Recv dequeues raw messages until one decodes successfully (dropping
// corrupt ones silently per spec.md 4.F/7), or ctx is cancelled.
func (h *Handle) Recv(ctx context.Context) (codec.Packet, error) {
	for {
		msg, ok := h.recvQ.Dequeue(ctx)
		if !ok {
			return codec.Packet{}, ctx.Err()
		}
		pkt, err := codec.FromSymbols(msg.Symbols, h.cfg.CRC, mustWidth(h.cfg), h.cfg.MaxPacketLength)
		if err != nil {
			h.log.Debug("dropping corrupt packet", "error", err)
			continue
		}
		return pkt, nil
	}
}

func mustWidth(cfg Config) codec.Width {
	w, _ := cfg.SymbolWidth()
	return w
}

// Destroy cancels the demodulator worker, busy-waits for the sender message
// ring to drain (plus shutdownSlack for the final audio block to flush), then
// stops and closes the audio stream. It does not wait for the demodulator
// goroutine to return.
func (h *Handle) Destroy() error {
	if h.statsCancel != nil {
		h.statsCancel()
	}
	if h.demodCancel != nil {
		h.demodCancel()
	}

	if h.cfg.Sender {
		deadline := time.Now().Add(5 * time.Second)
		for h.msgRing.ReadAvailable() > 0 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		time.Sleep(shutdownSlack)
	}

	var err error
	if h.bridge != nil {
		err = h.bridge.Close()
	}
	if l, ok := h.keyer.(*ptt.Line); ok {
		l.Close()
	}
	if h.capture != nil {
		h.capture.Close()
	}
	return err
}

// QueueDropped exposes the receive queue's overflow counter for stats
// logging (spec.md scenario S5).
func (h *Handle) QueueDropped() uint64 {
	return h.recvQ.Dropped()
}
