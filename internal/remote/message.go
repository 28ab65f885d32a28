// Package remote implements the remote-control message protocol spoken
// between a running presentation and a detached controller.
//
// Every message on the stream is its tag, written as a wire string, followed
// by a variant-specific body. There is no length prefix around the body, so
// a reader that fails mid-message has lost track of where the next message
// begins and must drop the stream.
package remote

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gastownhall/presenter-remote/internal/wire"
)

// Tag identifies a message kind on the wire. Tags are never reassigned.
type Tag string

// Known message tags.
const (
	TagStateRequest   Tag = "sr"
	TagContent        Tag = "c"
	TagScroll         Tag = "sc"
	TagRecorderStatus Tag = "rs"
)

var (
	// ErrUnknownTag is matched by *UnknownTagError.
	ErrUnknownTag = errors.New("remote: unknown message tag")
	// ErrTooManyChannels is returned when recorder levels do not fit the
	// single signed byte channel count.
	ErrTooManyChannels = errors.New("remote: too many recorder channels")
	// ErrLengthMismatch is returned when content lines and tops differ in length.
	ErrLengthMismatch = errors.New("remote: lines and tops differ in length")
)

// UnknownTagError reports a tag with no registered decoder. The stream is
// desynchronized after this error.
type UnknownTagError struct {
	Tag Tag
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("remote: unknown message tag %q", string(e.Tag))
}

// Is reports ErrUnknownTag as a match.
func (e *UnknownTagError) Is(target error) bool {
	return target == ErrUnknownTag
}

// Message is implemented by every wire message.
type Message interface {
	// Tag returns the message's wire discriminator.
	Tag() Tag
	// WriteBody writes the variant payload, without the tag.
	WriteBody(w *wire.Writer) error
}

// Write frames m onto w: tag first, then body.
func Write(w *wire.Writer, m Message) error {
	if err := w.WriteString(string(m.Tag())); err != nil {
		return fmt.Errorf("write %s tag: %w", m.Tag(), err)
	}
	if err := m.WriteBody(w); err != nil {
		return fmt.Errorf("write %s body: %w", m.Tag(), err)
	}
	return nil
}

// Encode returns the complete framed bytes of m.
func Encode(m Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(wire.NewWriter(&buf), m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
