// Package nativemsg speaks the browser native messaging framing on a pair of
// streams: each message is a 32-bit little-endian length followed by that
// many bytes of UTF-8 JSON.
package nativemsg

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ruminaider/profilepop/internal/router"
	"go.uber.org/zap"
)

const (
	// MaxResponseBytes is the largest message a host may send to the
	// browser.
	MaxResponseBytes = 1 << 20
	// MaxRequestBytes bounds what we accept from the browser. The framing
	// allows up to 4 GiB; nothing we handle comes close.
	MaxRequestBytes = 64 << 20
)

// ErrTooLarge is returned for frames over the size limits.
var ErrTooLarge = errors.New("native message too large")

// Dispatcher handles one raw request.
type Dispatcher interface {
	HandleRaw(ctx context.Context, data []byte) router.Response
}

// ReadMessage reads one frame. It returns io.EOF when the stream ends
// cleanly between frames.
func ReadMessage(r io.Reader) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading frame length: %w", err)
	}
	if size > MaxRequestBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("reading frame body: %w", err)
	}
	return buf, nil
}

// WriteMessage encodes v as JSON and writes it as one frame.
func WriteMessage(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	if len(data) > MaxResponseBytes {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	frame := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// Serve answers frames from in on out until in is exhausted or ctx is
// cancelled. Requests are handled in arrival order.
func Serve(ctx context.Context, in io.Reader, out io.Writer, d Dispatcher, log *zap.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		data, err := ReadMessage(in)
		if errors.Is(err, io.EOF) {
			log.Info("native messaging stream closed")
			return nil
		}
		if err != nil {
			return err
		}

		resp := d.HandleRaw(ctx, data)
		err = WriteMessage(out, resp)
		if errors.Is(err, ErrTooLarge) {
			log.Warn("response over native messaging limit", zap.Error(err))
			err = WriteMessage(out, router.Response{Error: &router.Failure{
				Kind:    router.KindInternal,
				Message: "Response too large. Use export to a file instead.",
				Detail:  err.Error(),
			}})
		}
		if err != nil {
			return err
		}
	}
}
