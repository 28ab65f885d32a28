package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/gastownhall/presenter-remote/internal/remote"
)

func printContent(w io.Writer, c remote.ContentSnapshot) {
	_, _ = fmt.Fprintf(w, "content: %d lines\n", c.Len())
	for i := range c.Len() {
		line, top := c.Line(i)
		_, _ = fmt.Fprintf(w, "%8.1f  %s\n", top, line)
	}
}

func printRecorder(w io.Writer, s remote.RecorderStatus) {
	state := "stopped"
	if s.Recording() {
		state = "recording"
	}
	levels := make([]string, 0, s.Channels())
	for _, l := range s.Levels() {
		levels = append(levels, fmt.Sprintf("%d", l))
	}
	_, _ = fmt.Fprintf(w, "recorder: %s [%s]\n", state, strings.Join(levels, " "))
}

func printMessage(w io.Writer, m remote.Message) {
	switch v := m.(type) {
	case remote.ContentSnapshot:
		printContent(w, v)
	case remote.RecorderStatus:
		printRecorder(w, v)
	case remote.ScrollDelta:
		_, _ = fmt.Fprintf(w, "scroll: %g\n", v.Amount())
	default:
		_, _ = fmt.Fprintf(w, "%s\n", m.Tag())
	}
}
