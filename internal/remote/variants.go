package remote

import (
	"fmt"
	"math"
	"slices"

	"github.com/gastownhall/presenter-remote/internal/wire"
)

// MaxLines bounds the line count accepted when decoding a ContentSnapshot.
const MaxLines = 1 << 16

// MaxChannels is the largest channel count the signed count byte can carry.
const MaxChannels = math.MaxInt8

// StateRequest asks the presentation for its full current state.
type StateRequest struct{}

// Tag returns TagStateRequest.
func (StateRequest) Tag() Tag { return TagStateRequest }

// WriteBody writes nothing; the request is its tag alone.
func (StateRequest) WriteBody(*wire.Writer) error { return nil }

// ReadStateRequest decodes a StateRequest body. It consumes no bytes.
func ReadStateRequest(*wire.Reader) (StateRequest, error) {
	return StateRequest{}, nil
}

// ContentSnapshot is the displayed content: one text line per entry, each
// with the vertical offset of its top edge.
type ContentSnapshot struct {
	lines []string
	tops  []float32
}

// NewContentSnapshot builds a snapshot from parallel slices. Both are copied.
func NewContentSnapshot(lines []string, tops []float32) (ContentSnapshot, error) {
	if len(lines) != len(tops) {
		return ContentSnapshot{}, fmt.Errorf("%w: %d lines, %d tops", ErrLengthMismatch, len(lines), len(tops))
	}
	if len(lines) > MaxLines {
		return ContentSnapshot{}, fmt.Errorf("remote: %d lines exceeds %d", len(lines), MaxLines)
	}
	for i, line := range lines {
		if len(line) > wire.MaxStringLen {
			return ContentSnapshot{}, fmt.Errorf("%w: line %d is %d bytes, limit %d", wire.ErrInvalidEncoding, i, len(line), wire.MaxStringLen)
		}
	}
	return ContentSnapshot{lines: slices.Clone(lines), tops: slices.Clone(tops)}, nil
}

// Tag returns TagContent.
func (ContentSnapshot) Tag() Tag { return TagContent }

// Len returns the number of lines.
func (c ContentSnapshot) Len() int { return len(c.lines) }

// Line returns the text and top offset of line i.
func (c ContentSnapshot) Line(i int) (string, float32) {
	return c.lines[i], c.tops[i]
}

// Lines returns a copy of the line texts.
func (c ContentSnapshot) Lines() []string { return slices.Clone(c.lines) }

// Tops returns a copy of the line offsets.
func (c ContentSnapshot) Tops() []float32 { return slices.Clone(c.tops) }

// Equal reports whether both snapshots hold the same lines and the same top
// bit patterns, so a NaN top equals itself.
func (c ContentSnapshot) Equal(o ContentSnapshot) bool {
	return slices.Equal(c.lines, o.lines) && slices.EqualFunc(c.tops, o.tops, func(a, b float32) bool {
		return math.Float32bits(a) == math.Float32bits(b)
	})
}

// WriteBody writes the line count then each (text, top) pair.
func (c ContentSnapshot) WriteBody(w *wire.Writer) error {
	if err := w.WriteInt32(int32(len(c.lines))); err != nil {
		return err
	}
	for i, line := range c.lines {
		if err := w.WriteString(line); err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
		if err := w.WriteFloat32(c.tops[i]); err != nil {
			return fmt.Errorf("line %d top: %w", i, err)
		}
	}
	return nil
}

// ReadContentSnapshot decodes a ContentSnapshot body.
func ReadContentSnapshot(r *wire.Reader) (ContentSnapshot, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return ContentSnapshot{}, fmt.Errorf("line count: %w", err)
	}
	if n < 0 || n > MaxLines {
		return ContentSnapshot{}, fmt.Errorf("%w: line count %d out of range", wire.ErrInvalidEncoding, n)
	}
	c := ContentSnapshot{
		lines: make([]string, 0, n),
		tops:  make([]float32, 0, n),
	}
	for i := range int(n) {
		line, err := r.ReadString()
		if err != nil {
			return ContentSnapshot{}, fmt.Errorf("line %d: %w", i, err)
		}
		top, err := r.ReadFloat32()
		if err != nil {
			return ContentSnapshot{}, fmt.Errorf("line %d top: %w", i, err)
		}
		c.lines = append(c.lines, line)
		c.tops = append(c.tops, top)
	}
	return c, nil
}

// ScrollDelta is a signed, relative scroll command.
type ScrollDelta struct {
	amount float32
}

// NewScrollDelta returns a ScrollDelta of the given amount.
func NewScrollDelta(amount float32) ScrollDelta {
	return ScrollDelta{amount: amount}
}

// Tag returns TagScroll.
func (ScrollDelta) Tag() Tag { return TagScroll }

// Amount returns the scroll offset.
func (s ScrollDelta) Amount() float32 { return s.amount }

// WriteBody writes the amount.
func (s ScrollDelta) WriteBody(w *wire.Writer) error {
	return w.WriteFloat32(s.amount)
}

// ReadScrollDelta decodes a ScrollDelta body.
func ReadScrollDelta(r *wire.Reader) (ScrollDelta, error) {
	amount, err := r.ReadFloat32()
	if err != nil {
		return ScrollDelta{}, fmt.Errorf("scroll amount: %w", err)
	}
	return ScrollDelta{amount: amount}, nil
}

// RecorderStatus reports whether the recorder is running and the current
// level of each audio channel, in caller-defined channel order.
type RecorderStatus struct {
	recording bool
	levels    []int8
}

// NewRecorderStatus builds a status. More than MaxChannels levels is an
// error rather than a silent truncation.
func NewRecorderStatus(recording bool, levels []int8) (RecorderStatus, error) {
	if len(levels) > MaxChannels {
		return RecorderStatus{}, fmt.Errorf("%w: %d > %d", ErrTooManyChannels, len(levels), MaxChannels)
	}
	return RecorderStatus{recording: recording, levels: slices.Clone(levels)}, nil
}

// Tag returns TagRecorderStatus.
func (RecorderStatus) Tag() Tag { return TagRecorderStatus }

// Recording reports whether the recorder is running.
func (s RecorderStatus) Recording() bool { return s.recording }

// Levels returns a copy of the per-channel levels.
func (s RecorderStatus) Levels() []int8 { return slices.Clone(s.levels) }

// Channels returns the number of channels.
func (s RecorderStatus) Channels() int { return len(s.levels) }

// Equal reports whether both statuses carry the same flag and levels.
func (s RecorderStatus) Equal(o RecorderStatus) bool {
	return s.recording == o.recording && slices.Equal(s.levels, o.levels)
}

// WriteBody writes the flag, the channel count and each level.
func (s RecorderStatus) WriteBody(w *wire.Writer) error {
	if err := w.WriteBool(s.recording); err != nil {
		return err
	}
	if err := w.WriteInt8(int8(len(s.levels))); err != nil {
		return err
	}
	for _, level := range s.levels {
		if err := w.WriteInt8(level); err != nil {
			return err
		}
	}
	return nil
}

// ReadRecorderStatus decodes a RecorderStatus body.
func ReadRecorderStatus(r *wire.Reader) (RecorderStatus, error) {
	recording, err := r.ReadBool()
	if err != nil {
		return RecorderStatus{}, fmt.Errorf("recording flag: %w", err)
	}
	count, err := r.ReadInt8()
	if err != nil {
		return RecorderStatus{}, fmt.Errorf("channel count: %w", err)
	}
	if count < 0 {
		return RecorderStatus{}, fmt.Errorf("%w: channel count %d", wire.ErrInvalidEncoding, count)
	}
	levels := make([]int8, count)
	for i := range levels {
		if levels[i], err = r.ReadInt8(); err != nil {
			return RecorderStatus{}, fmt.Errorf("channel %d: %w", i, err)
		}
	}
	return RecorderStatus{recording: recording, levels: levels}, nil
}
