package remote

import (
	"errors"
	"fmt"
	"io"

	"github.com/gastownhall/presenter-remote/internal/wire"
)

type decodeFunc func(*wire.Reader) (Message, error)

func decoder[M Message](read func(*wire.Reader) (M, error)) decodeFunc {
	return func(r *wire.Reader) (Message, error) {
		m, err := read(r)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// decoders maps each tag to the constructor that reads its body.
var decoders = map[Tag]decodeFunc{
	TagStateRequest:   decoder(ReadStateRequest),
	TagContent:        decoder(ReadContentSnapshot),
	TagScroll:         decoder(ReadScrollDelta),
	TagRecorderStatus: decoder(ReadRecorderStatus),
}

// Known reports whether tag has a registered decoder.
func Known(tag Tag) bool {
	_, ok := decoders[tag]
	return ok
}

// Parse reads exactly one message from r. On an unknown tag it returns an
// *UnknownTagError after consuming only the tag. Any codec error is returned
// unchanged apart from added context, so errors.Is against the wire
// sentinels still works.
//
// A source that is exhausted before the first byte of a tag yields an error
// matching both io.EOF and wire.ErrTruncatedInput. Truncation anywhere else
// never matches io.EOF.
func Parse(r *wire.Reader) (Message, error) {
	s, err := r.ReadString()
	if err != nil {
		if atBoundary(err) {
			return nil, fmt.Errorf("%w before tag: %w", io.EOF, err)
		}
		return nil, fmt.Errorf("read tag: %w", err)
	}
	tag := Tag(s)
	decode, ok := decoders[tag]
	if !ok {
		return nil, &UnknownTagError{Tag: tag}
	}
	m, err := decode(r)
	if err != nil {
		return nil, fmt.Errorf("read %s body: %w", tag, err)
	}
	return m, nil
}

func atBoundary(err error) bool {
	var te *wire.TruncatedError
	return errors.As(err, &te) && te.Field == wire.FieldStringLength && te.Got == 0
}

// ReadMessage parses one message from src. Callers reading a sequence of
// messages should keep a single wire.Reader and call Parse instead.
func ReadMessage(src io.Reader) (Message, error) {
	return Parse(wire.NewReader(src))
}
