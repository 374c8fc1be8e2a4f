package endpoint

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shermpay/sofi/codec"
	"github.com/shermpay/sofi/logx"
	"github.com/shermpay/sofi/queue"
	"github.com/shermpay/sofi/ring"
)

// newLoopbackHandle builds a Handle with no real audio/modem, wired so that
// Send's serialized messages are immediately re-decoded and pushed onto the
// receive queue, letting RunSender/RunReceiver be tested end-to-end without
// a sound device.
func newLoopbackHandle(t *testing.T, cfg Config) *Handle {
	t.Helper()
	h := &Handle{
		cfg:      cfg,
		log:      logx.New(0),
		msgRing:  ring.New[codec.RawMessage](messageRingCapacity),
		sampRing: ring.New[float32](16),
		recvQ:    queue.New(recvQueueCapacity),
	}
	stop := make(chan struct{})
	t.Cleanup(func() { close(stop) })
	go func() {
		buf := make([]codec.RawMessage, 1)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if h.msgRing.Read(buf) == 1 {
				h.recvQ.Enqueue(buf[0])
			} else {
				time.Sleep(time.Millisecond)
			}
		}
	}()
	return h
}

func TestRunSenderEmitsEOFMarker(t *testing.T) {
	cfg := Default()
	h := newLoopbackHandle(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := h.RunSender(ctx, strings.NewReader("hi"))
	require.NoError(t, err)

	w, _ := cfg.SymbolWidth()

	pkt1 := mustDequeueDecoded(t, h, w)
	assert.Equal(t, []byte("hi"), pkt1.Payload)

	pkt2 := mustDequeueDecoded(t, h, w)
	assert.Empty(t, pkt2.Payload)
}

func mustDequeueDecoded(t *testing.T, h *Handle, w codec.Width) codec.Packet {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, ok := h.recvQ.Dequeue(ctx)
	require.True(t, ok)
	pkt, err := codec.FromSymbols(msg.Symbols, h.cfg.CRC, w, h.cfg.MaxPacketLength)
	require.NoError(t, err)
	return pkt
}

func TestRunReceiverClosesOnZeroLengthPacket(t *testing.T) {
	cfg := Default()
	h := newLoopbackHandle(t, cfg)
	w, _ := cfg.SymbolWidth()

	h.recvQ.Enqueue(codec.ToRawMessage(codec.Packet{Payload: []byte("ab")}, cfg.CRC, w))
	h.recvQ.Enqueue(codec.ToRawMessage(codec.Packet{}, cfg.CRC, w))

	var out closeTrackingBuffer
	ctx := context.Background()
	err := h.RunReceiver(ctx, &out)
	require.NoError(t, err)
	assert.Equal(t, "ab", out.buf.String())
	assert.True(t, out.closed)
}

func TestRunReceiverKeepOpenDoesNotClose(t *testing.T) {
	cfg := Default()
	cfg.KeepOpen = true
	h := newLoopbackHandle(t, cfg)
	w, _ := cfg.SymbolWidth()

	h.recvQ.Enqueue(codec.ToRawMessage(codec.Packet{}, cfg.CRC, w))
	h.recvQ.Enqueue(codec.ToRawMessage(codec.Packet{Payload: []byte("x")}, cfg.CRC, w))

	var out closeTrackingBuffer
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := h.RunReceiver(ctx, &out)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "x", out.buf.String())
	assert.False(t, out.closed)
}

type closeTrackingBuffer struct {
	buf    bytes.Buffer
	closed bool
}

func (b *closeTrackingBuffer) Write(p []byte) (int, error) { return b.buf.Write(p) }
func (b *closeTrackingBuffer) Close() error                { b.closed = true; return nil }

var _ io.Writer = (*closeTrackingBuffer)(nil)
