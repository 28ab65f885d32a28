// Package content loads the displayed lines of a presentation from a TOML
// document and keeps them current while the document is edited.
//
// A document looks like:
//
//	title = "Amazing Grace"
//	line_height = 24.5
//	lines = ["Amazing grace, how sweet the sound", "That saved a wretch like me"]
//
// When tops is omitted, line i sits at i*line_height. When present it must
// have one entry per line. Every top must be finite.
package content

import (
	"fmt"
	"math"

	"github.com/BurntSushi/toml"

	"github.com/gastownhall/presenter-remote/internal/remote"
)

// DefaultLineHeight is used when a document sets neither tops nor line_height.
const DefaultLineHeight = 24

// Document is the on-disk form of presentation content.
type Document struct {
	Title      string    `toml:"title"`
	LineHeight float32   `toml:"line_height"`
	Lines      []string  `toml:"lines"`
	Tops       []float32 `toml:"tops"`
}

// Snapshot converts the document into a wire snapshot.
func (d Document) Snapshot() (remote.ContentSnapshot, error) {
	tops := d.Tops
	if len(tops) == 0 && len(d.Lines) > 0 {
		height := d.LineHeight
		if height <= 0 {
			height = DefaultLineHeight
		}
		tops = make([]float32, len(d.Lines))
		for i := range tops {
			tops[i] = float32(i) * height
		}
	}
	for i, top := range tops {
		if math.IsNaN(float64(top)) || math.IsInf(float64(top), 0) {
			return remote.ContentSnapshot{}, fmt.Errorf("line %d: top %v is not a finite number", i, top)
		}
	}
	return remote.NewContentSnapshot(d.Lines, tops)
}

// Decode parses a TOML document.
func Decode(data string) (Document, error) {
	var doc Document
	md, err := toml.Decode(data, &doc)
	if err != nil {
		return Document{}, fmt.Errorf("decode content: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Document{}, fmt.Errorf("decode content: unknown key %q", undecoded[0].String())
	}
	return doc, nil
}

// Load reads the document at path and converts it into a snapshot.
func Load(path string) (remote.ContentSnapshot, error) {
	var doc Document
	md, err := toml.DecodeFile(path, &doc)
	if err != nil {
		return remote.ContentSnapshot{}, fmt.Errorf("load content %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return remote.ContentSnapshot{}, fmt.Errorf("load content %s: unknown key %q", path, undecoded[0].String())
	}
	snap, err := doc.Snapshot()
	if err != nil {
		return remote.ContentSnapshot{}, fmt.Errorf("load content %s: %w", path, err)
	}
	return snap, nil
}
