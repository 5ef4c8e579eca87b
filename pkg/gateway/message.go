package gateway

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
)

// maxMessageSize bounds a single gateway message. Chunks are small; anything
// near this size is a malformed or hostile peer.
const maxMessageSize = 16 * 1024 * 1024

// WriteMessageWithContext writes a length-prefixed message to w: 4 bytes of
// content size as little-endian uint32, then the content. The write can be
// cancelled via the context.
func WriteMessageWithContext(ctx context.Context, w io.Writer, content []byte) error {
	done := make(chan error, 1)
	go func() {
		size := uint32(len(content))

		if err := binary.Write(w, binary.LittleEndian, size); err != nil {
			done <- fmt.Errorf("failed to write message size: %w", err)
			return
		}

		if _, err := w.Write(content); err != nil {
			done <- fmt.Errorf("failed to write message content: %w", err)
			return
		}

		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReadMessageWithContext reads one length-prefixed message from r. The read
// can be cancelled via the context.
func ReadMessageWithContext(ctx context.Context, r io.Reader) ([]byte, error) {
	type result struct {
		content []byte
		err     error
	}

	done := make(chan result, 1)
	go func() {
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			done <- result{err: fmt.Errorf("failed to read message size: %w", err)}
			return
		}
		if size > maxMessageSize {
			done <- result{err: fmt.Errorf("message size %d exceeds limit", size)}
			return
		}

		content := make([]byte, size)
		if _, err := io.ReadFull(r, content); err != nil {
			done <- result{err: fmt.Errorf("failed to read message content: %w", err)}
			return
		}
		done <- result{content: content}
	}()

	select {
	case res := <-done:
		return res.content, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
