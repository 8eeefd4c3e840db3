package link

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"
)

func pipe(t *testing.T, timeout time.Duration) (*Transport, net.Conn) {
	t.Helper()

	host, board := net.Pipe()
	t.Cleanup(func() {
		host.Close()
		board.Close()
	})

	return New(host, "pipe", timeout), board
}

func TestReadLine(t *testing.T) {
	tr, board := pipe(t, time.Second)

	go func() {
		// the firmware prefixes its frames with a blank line and splits
		// writes arbitrarily
		io.WriteString(board, "\nGAME_")
		io.WriteString(board, "WHITE\r\nMOVE_BEGIN\ne7e5\n")
	}()

	want := []string{"", "GAME_WHITE", "MOVE_BEGIN", "e7e5"}
	for _, w := range want {
		got, err := tr.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		if got != w {
			t.Fatalf("ReadLine() = %q, want %q", got, w)
		}
	}
}

func TestReadLineTimeout(t *testing.T) {
	tr, board := pipe(t, 50*time.Millisecond)

	start := time.Now()
	got, err := tr.ReadLine()
	if err != nil {
		t.Fatalf("timeout returned error %v", err)
	}
	if got != "" {
		t.Fatalf("timeout returned frame %q", got)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Fatalf("ReadLine returned before the timeout")
	}

	// a partial frame survives the timeout and completes on a later read
	go func() {
		io.WriteString(board, "NO")
		time.Sleep(120 * time.Millisecond)
		io.WriteString(board, "PE\n")
	}()

	if got, _ := tr.ReadLine(); got != "" {
		t.Fatalf("partial frame returned early: %q", got)
	}

	for i := 0; i < 10; i++ {
		got, err = tr.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		if got != "" {
			break
		}
	}

	if got != "NOPE" {
		t.Fatalf("ReadLine() = %q, want NOPE", got)
	}
}

// scriptedConn returns its reads in order, then times out forever.
type scriptedConn struct {
	reads []scriptedRead
	io.Writer
}

type scriptedRead struct {
	data string
	err  error
}

func (c *scriptedConn) Read(p []byte) (int, error) {
	if len(c.reads) == 0 {
		return 0, os.ErrDeadlineExceeded
	}

	r := c.reads[0]
	c.reads = c.reads[1:]
	return copy(p, r.data), r.err
}

func TestReadLineDataWithTimeout(t *testing.T) {
	tests := map[string][]scriptedRead{
		"frames with timeout": {
			{"MOVE_BEGIN\ne7e5\n", os.ErrDeadlineExceeded},
		},
		"split frame with timeout": {
			{"MOVE_BE", os.ErrDeadlineExceeded},
			{"GIN\ne7e5\n", os.ErrDeadlineExceeded},
		},
	}

	for name, reads := range tests {
		tr := New(&scriptedConn{reads: reads, Writer: io.Discard}, "script", time.Second)

		var got []string
		for i := 0; i < 4; i++ {
			frame, err := tr.ReadLine()
			if err != nil {
				t.Fatalf("%s: ReadLine: %v", name, err)
			}
			if frame != "" {
				got = append(got, frame)
			}
		}

		if strings.Join(got, ",") != "MOVE_BEGIN,e7e5" {
			t.Fatalf("%s: frames = %q, want [MOVE_BEGIN e7e5]", name, got)
		}
	}
}

func TestReadLineLinkError(t *testing.T) {
	tr, board := pipe(t, time.Second)
	board.Close()

	_, err := tr.ReadLine()
	if !IsLinkError(err) {
		t.Fatalf("closed connection returned %v, want *LinkError", err)
	}
}

func TestReadLineEOF(t *testing.T) {
	tr := New(&scriptedConn{
		reads:  []scriptedRead{{"", io.EOF}},
		Writer: io.Discard,
	}, "script", time.Second)

	_, err := tr.ReadLine()
	if !IsLinkError(err) {
		t.Fatalf("end of stream returned %v, want *LinkError", err)
	}
	if !errors.Is(err, io.EOF) {
		t.Fatalf("link error does not wrap io.EOF: %v", err)
	}
}

func TestReadLineDiscardsOverlongFrames(t *testing.T) {
	tr, board := pipe(t, time.Second)

	go func() {
		io.WriteString(board, strings.Repeat("x", 2*MaxFrameLength))
		io.WriteString(board, "\nREADY\n")
	}()

	// nothing of the overlong frame, its tail included, reaches the caller
	got, err := tr.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if got != "READY" {
		t.Fatalf("ReadLine() = %q, want READY", got)
	}
}

func TestWriteLine(t *testing.T) {
	tr, board := pipe(t, time.Second)

	lines := make(chan string, 2)
	go func() {
		scanner := bufio.NewScanner(board)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	if err := tr.WriteLine("READY"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if err := tr.WriteFrame("e2e4\n"); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	for _, want := range []string{"READY", "e2e4"} {
		if got := <-lines; got != want {
			t.Fatalf("board read %q, want %q", got, want)
		}
	}
}

func TestWriteFrameUnterminated(t *testing.T) {
	var buf bytes.Buffer
	tr := New(struct {
		io.Reader
		io.Writer
	}{strings.NewReader(""), &buf}, "buffer", time.Second)

	if err := tr.WriteFrame("e2e4"); !errors.Is(err, ErrUnterminated) {
		t.Fatalf("WriteFrame error = %v, want ErrUnterminated", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("unterminated frame was written: %q", buf.String())
	}
}

func TestWriteLinkError(t *testing.T) {
	tr, board := pipe(t, time.Second)
	board.Close()

	if err := tr.WriteLine("READY"); !IsLinkError(err) {
		t.Fatalf("write to closed connection returned %v, want *LinkError", err)
	}
}
