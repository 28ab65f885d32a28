package session

import (
	"math"
	"testing"
	"time"

	"github.com/gastownhall/presenter-remote/internal/remote"
)

func content(t *testing.T, lines []string, tops []float32) remote.ContentSnapshot {
	t.Helper()
	c, err := remote.NewContentSnapshot(lines, tops)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewSessionIsEmpty(t *testing.T) {
	s := New()
	st := s.State()
	if st.Content.Len() != 0 || st.Recorder.Channels() != 0 || st.Offset != 0 {
		t.Fatalf("state = %+v, want empty", st)
	}

	id, ch := s.Subscribe()
	if !s.Resend(id) {
		t.Fatal("Resend() = false on an empty queue")
	}
	first, second := <-ch, <-ch
	if first.Tag() != remote.TagContent || second.Tag() != remote.TagRecorderStatus {
		t.Fatalf("Resend() tags = %s, %s", first.Tag(), second.Tag())
	}
}

func TestScrollClamps(t *testing.T) {
	s := New()
	s.SetContent(content(t, []string{"Amazing", "Grace", "how sweet"}, []float32{0, 24.5, 49}))

	cases := []struct {
		amount float32
		want   float32
	}{
		{amount: 10, want: 10},
		{amount: -3.5, want: 6.5},
		{amount: -100, want: 0},
		{amount: 1000, want: 49},
		{amount: float32(math.Inf(1)), want: 49},
		{amount: float32(math.NaN()), want: 49},
	}
	for _, tc := range cases {
		if got := s.Scroll(remote.NewScrollDelta(tc.amount)); got != tc.want {
			t.Fatalf("Scroll(%v) = %v, want %v", tc.amount, got, tc.want)
		}
	}
}

func TestSetContentReclampsOffset(t *testing.T) {
	s := New()
	s.SetContent(content(t, []string{"a", "b"}, []float32{0, 100}))
	s.Scroll(remote.NewScrollDelta(80))

	s.SetContent(content(t, []string{"a"}, []float32{20}))
	if got := s.State().Offset; got != 20 {
		t.Fatalf("offset = %v, want 20", got)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	s := New()
	id, live := s.Subscribe()

	c := content(t, []string{"Amazing"}, []float32{0})
	s.SetContent(c)
	r, err := remote.NewRecorderStatus(true, []int8{-20, -5})
	if err != nil {
		t.Fatal(err)
	}
	s.SetRecorder(r)

	for _, want := range []remote.Tag{remote.TagContent, remote.TagRecorderStatus} {
		select {
		case m := <-live:
			if m.Tag() != want {
				t.Fatalf("tag = %q, want %q", m.Tag(), want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %s", want)
		}
	}

	s.Unsubscribe(id)
	if _, ok := <-live; ok {
		t.Fatal("expected closed channel after Unsubscribe")
	}
	if s.Subscribers() != 0 {
		t.Fatalf("Subscribers() = %d, want 0", s.Subscribers())
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	s := New()
	_, _ = s.Subscribe()

	r, _ := remote.NewRecorderStatus(false, nil)
	done := make(chan struct{})
	go func() {
		for range subscriberBuffer * 2 {
			s.SetRecorder(r)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SetRecorder blocked on a full subscriber")
	}
}

func TestSetNotice(t *testing.T) {
	s := New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.SetNotice(Notice{ID: "disconnect", Text: "controller disconnected", At: at})

	n := s.State().Notice
	if n.ID != "disconnect" || n.Text != "controller disconnected" || !n.At.Equal(at) {
		t.Fatalf("notice = %+v", n)
	}
}

func TestResendQueuesStateInOrder(t *testing.T) {
	s := New()
	s.SetContent(content(t, []string{"a"}, []float32{0}))
	id, ch := s.Subscribe()

	if !s.Resend(id) {
		t.Fatal("Resend() = false, want true")
	}
	if m := <-ch; m.Tag() != remote.TagContent {
		t.Fatalf("first message = %s, want c", m.Tag())
	}
	if m := <-ch; m.Tag() != remote.TagRecorderStatus {
		t.Fatalf("second message = %s, want rs", m.Tag())
	}

	s.Unsubscribe(id)
	if s.Resend(id) {
		t.Fatal("Resend() after Unsubscribe = true, want false")
	}
}

func TestResendRefusesWhenFull(t *testing.T) {
	s := New()
	id, _ := s.Subscribe()
	for range subscriberBuffer - 1 {
		s.SetRecorder(remote.RecorderStatus{})
	}
	if s.Resend(id) {
		t.Fatal("Resend() with one free slot = true, want false")
	}
}
