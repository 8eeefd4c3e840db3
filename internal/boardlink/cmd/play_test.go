package cmd

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"laptudirm.com/x/boardlink/pkg/config"
	"laptudirm.com/x/boardlink/pkg/link"
	"laptudirm.com/x/boardlink/pkg/oracle"
	"laptudirm.com/x/boardlink/pkg/session"
)

type board struct {
	frames  []string
	written []string
	closed  bool
}

func (b *board) ReadLine() (string, error) {
	if len(b.frames) == 0 {
		return "", &link.LinkError{Op: "read", Device: "script", Err: io.EOF}
	}

	frame := b.frames[0]
	b.frames = b.frames[1:]
	return frame, nil
}

func (b *board) WriteFrame(frame string) error {
	b.written = append(b.written, frame)
	return nil
}

func (b *board) Close() error {
	b.closed = true
	return nil
}

type searcher struct {
	newGames int
}

func (s *searcher) NewGame(context.Context) error {
	s.newGames++
	return nil
}

func (s *searcher) Search(context.Context, []string) (oracle.SearchResult, error) {
	return oracle.SearchResult{BestMove: "e7e5"}, nil
}

var errUnplugged = errors.New("unplugged")

// boards opens the given boards in order, then fails with errUnplugged.
func boards(list ...*board) (opener, *int) {
	opened := 0
	return func() (session.Transport, func() error, error) {
		if opened >= len(list) {
			opened++
			return nil, nil, errUnplugged
		}

		b := list[opened]
		opened++
		return b, b.Close, nil
	}, &opened
}

func flaky(failures int) (opener, *int) {
	calls := 0
	return func() (session.Transport, func() error, error) {
		calls++
		if calls <= failures {
			return nil, nil, &link.LinkError{Op: "open", Device: "flaky", Err: io.ErrUnexpectedEOF}
		}

		b := &board{}
		return b, b.Close, nil
	}, &calls
}

var retrying = config.Reconnect{Enabled: true, MaxTries: 5, MaxInterval: 20 * time.Millisecond}

func TestConnectRetriesLinkErrors(t *testing.T) {
	open, calls := flaky(2)

	transport, closer, err := connect(context.Background(), retrying, open)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if transport == nil || closer == nil {
		t.Fatalf("connect returned no connection")
	}
	if *calls != 3 {
		t.Fatalf("opened %d times, want 3", *calls)
	}
}

func TestConnectGivesUp(t *testing.T) {
	open, calls := flaky(10)

	if _, _, err := connect(context.Background(), retrying, open); !link.IsLinkError(err) {
		t.Fatalf("connect = %v, want a link error", err)
	}
	if *calls != int(retrying.MaxTries) {
		t.Fatalf("opened %d times, want %d", *calls, retrying.MaxTries)
	}
}

func TestConnectPermanentError(t *testing.T) {
	open, opened := boards()

	if _, _, err := connect(context.Background(), retrying, open); !errors.Is(err, errUnplugged) {
		t.Fatalf("connect = %v, want errUnplugged", err)
	}
	if *opened != 1 {
		t.Fatalf("retried a permanent error %d times", *opened-1)
	}
}

func TestConnectDisabled(t *testing.T) {
	open, calls := flaky(1)

	if _, _, err := connect(context.Background(), config.Reconnect{}, open); !link.IsLinkError(err) {
		t.Fatalf("connect = %v, want a link error", err)
	}
	if *calls != 1 {
		t.Fatalf("opened %d times without reconnection", *calls)
	}
}

func TestPlayReconnects(t *testing.T) {
	first := &board{frames: []string{"GAME_BLACK", "MOVE_BEGIN", "e2e4"}}
	second := &board{frames: []string{"GAME_BLACK"}}
	open, _ := boards(first, second)

	engine := &searcher{}
	cfg := config.Default()
	cfg.Reconnect = retrying

	err := play(context.Background(), cfg, oracle.New(engine, nil), open)
	if !errors.Is(err, errUnplugged) {
		t.Fatalf("play = %v, want errUnplugged", err)
	}

	if !first.closed || !second.closed {
		t.Fatalf("lost connections were not closed")
	}
	if len(first.written) != 2 || len(second.written) != 1 {
		t.Fatalf("boards received %q and %q", first.written, second.written)
	}
	if engine.newGames != 2 {
		t.Fatalf("engine saw %d new games, want 2", engine.newGames)
	}
}

func TestPlayWithoutReconnect(t *testing.T) {
	open, opened := boards(&board{frames: []string{"GAME_WHITE"}})

	err := play(context.Background(), config.Default(), oracle.New(&searcher{}, nil), open)
	if !link.IsLinkError(err) {
		t.Fatalf("play = %v, want a link error", err)
	}
	if *opened != 1 {
		t.Fatalf("reopened the board without reconnection")
	}
}
