package endpoint

import (
	"bufio"
	"context"
	"io"

	"github.com/shermpay/sofi/codec"
)

// RunSender reads r (typically stdin) in chunks of up to
// cfg.MaxPacketLength bytes and calls Send for each one, stopping at EOF
// (or an empty read) and emitting one zero-length packet as an
// end-of-stream marker, per spec.md 6; any other read error is returned
// without sending the marker. It is the cooperative, pollable
// read loop spec.md 9 asks for in place of the teacher's reliance on
// asynchronous thread cancellation to interrupt a blocking stdin read —
// ctx cancellation here is checked between chunks rather than used to
// cancel foreign code mid-read.
func (h *Handle) RunSender(ctx context.Context, r io.Reader) error {
	buf := make([]byte, h.cfg.MaxPacketLength)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := r.Read(buf)
		if n > 0 {
			if serr := h.Send(ctx, codec.Packet{Payload: append([]byte(nil), buf[:n]...)}); serr != nil {
				return serr
			}
		}
		if err != nil {
			if err == io.EOF {
				return h.Send(ctx, codec.Packet{})
			}
			return err
		}
		if n == 0 {
			return h.Send(ctx, codec.Packet{})
		}
	}
}

// RunReceiver dequeues decoded packets and writes their payloads to w
// (typically stdout), flushing after each one. On a zero-length packet it
// closes w (if it implements io.Closer) and returns, unless cfg.KeepOpen is
// set, per spec.md 6.
func (h *Handle) RunReceiver(ctx context.Context, w io.Writer) error {
	bw := bufio.NewWriter(w)
	for {
		pkt, err := h.Recv(ctx)
		if err != nil {
			return err
		}
		if len(pkt.Payload) == 0 {
			if !h.cfg.KeepOpen {
				if closer, ok := w.(io.Closer); ok {
					return closer.Close()
				}
				return nil
			}
			continue
		}
		if _, err := bw.Write(pkt.Payload); err != nil {
			return err
		}
		if err := bw.Flush(); err != nil {
			return err
		}
	}
}
