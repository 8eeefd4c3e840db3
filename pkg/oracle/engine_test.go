package oracle

import (
	"bufio"
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"
)

// fakeEngine connects an Engine to a scripted UCI engine which answers each
// command with the lines returned by respond.
func fakeEngine(t *testing.T, config EngineConfig, respond func(command string) []string) (*Engine, <-chan string) {
	t.Helper()

	cmdR, cmdW := io.Pipe()
	outR, outW := io.Pipe()

	commands := make(chan string, 128)
	go func() {
		defer outW.Close()

		scanner := bufio.NewScanner(cmdR)
		for scanner.Scan() {
			command := scanner.Text()

			select {
			case commands <- command:
			default:
			}

			for _, line := range respond(command) {
				if _, err := io.WriteString(outW, line+"\n"); err != nil {
					return
				}
			}
		}
	}()

	t.Cleanup(func() {
		cmdW.Close()
		outR.Close()
	})

	return newEngine(outR, cmdW, config), commands
}

// stockfish answers the handshake commands and plays bestmove to every go.
func stockfish(bestmove string, info ...string) func(string) []string {
	return func(command string) []string {
		switch {
		case command == "uci":
			return []string{"id name Fakefish", "uciok"}
		case command == "isready":
			return []string{"readyok"}
		case strings.HasPrefix(command, "go"):
			return append(append([]string(nil), info...), "bestmove "+bestmove)
		}

		return nil
	}
}

func drain(commands <-chan string) []string {
	var got []string
	for {
		select {
		case command := <-commands:
			got = append(got, command)
		default:
			return got
		}
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}

	return false
}

func TestEngineInitialize(t *testing.T) {
	config := DefaultEngineConfig()
	config.Options = map[string]string{"Contempt": "0"}

	engine, commands := fakeEngine(t, config, stockfish("e2e4"))

	ctx := context.Background()
	if err := engine.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := engine.NewGame(ctx); err != nil {
		t.Fatalf("NewGame: %v", err)
	}

	sent := drain(commands)
	for _, want := range []string{
		"uci",
		"setoption name Threads value 4",
		"setoption name Hash value 2048",
		"setoption name Skill Level value 20",
		"setoption name MultiPV value 1",
		"setoption name UCI_ShowWDL value true",
		"setoption name Contempt value 0",
		"ucinewgame",
		"isready",
	} {
		if !contains(sent, want) {
			t.Errorf("engine never received %q; got %q", want, sent)
		}
	}
}

func TestEngineSearch(t *testing.T) {
	engine, commands := fakeEngine(t, DefaultEngineConfig(), stockfish(
		"e7e5 ponder g1f3",
		"info string NNUE evaluation enabled",
		"info depth 19 seldepth 25 multipv 1 score cp 20 wdl 50 900 50 nodes 10 pv e7e5",
		"info depth 20 seldepth 27 multipv 1 score cp -31 wdl 100 300 600 nodes 20 pv e7e5 g1f3",
	))

	result, err := engine.Search(context.Background(), []string{"e2e4"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if result.BestMove != "e7e5" {
		t.Errorf("BestMove = %q, want e7e5", result.BestMove)
	}
	if result.Depth != 20 || result.Score != "cp -31" {
		t.Errorf("Depth, Score = %d, %q; want 20, \"cp -31\"", result.Depth, result.Score)
	}
	if !result.HasWDL {
		t.Fatalf("search reported no wdl")
	}
	if math.Abs(result.WDL.Win-0.1) > 1e-9 || math.Abs(result.WDL.Loss-0.6) > 1e-9 {
		t.Errorf("WDL = %v, want W 10%% D 30%% L 60%%", result.WDL)
	}

	sent := drain(commands)
	for _, want := range []string{"position startpos moves e2e4", "go depth 20"} {
		if !contains(sent, want) {
			t.Errorf("engine never received %q; got %q", want, sent)
		}
	}
}

func TestEngineSearchNoMove(t *testing.T) {
	for _, bestmove := range []string{"(none)", "0000"} {
		engine, _ := fakeEngine(t, DefaultEngineConfig(), stockfish(bestmove))

		result, err := engine.Search(context.Background(), nil)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if result.BestMove != "" {
			t.Errorf("bestmove %s gave BestMove %q, want none", bestmove, result.BestMove)
		}
	}
}

func TestEngineExited(t *testing.T) {
	engine := newEngine(strings.NewReader(""), io.Discard, DefaultEngineConfig())

	if err := engine.Synchronize(context.Background()); !errors.Is(err, ErrEngineExited) {
		t.Fatalf("Synchronize on exited engine = %v, want ErrEngineExited", err)
	}
}

func TestEngineReadTimeout(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	engine := newEngine(r, io.Discard, DefaultEngineConfig())

	_, err := engine.Await(context.Background(), readyokRegex, 20*time.Millisecond)
	if !errors.Is(err, ErrReadTimeout) {
		t.Fatalf("Await = %v, want ErrReadTimeout", err)
	}
}

func TestEngineContextCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	engine := newEngine(r, io.Discard, DefaultEngineConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Await(ctx, readyokRegex, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("Await = %v, want context.Canceled", err)
	}
}

func TestParseInfo(t *testing.T) {
	tests := []struct {
		line   string
		hasWDL bool
		depth  int
		score  string
	}{
		{"info depth 12 score cp 40 wdl 300 600 100 pv e2e4", true, 12, "cp 40"},
		{"info depth 30 score mate 3 wdl 1000 0 0", true, 30, "mate 3"},
		{"info depth 8 multipv 2 score cp 10 wdl 1 2 3", false, 8, ""},
		{"info depth 9 score cp 10 wdl 0 0 0", false, 9, "cp 10"},
		{"info depth 9 score cp 10 wdl 1 x 3", false, 9, "cp 10"},
		{"info depth 5 pv e2e4 wdl 1 1 1", false, 5, ""},
		{"info string hello", false, 0, ""},
	}

	for _, test := range tests {
		var result SearchResult
		parseInfo(test.line, &result)

		if result.HasWDL != test.hasWDL || result.Depth != test.depth || result.Score != test.score {
			t.Errorf("parseInfo(%q) = %+v", test.line, result)
		}
	}
}

func TestEngineConfigValidate(t *testing.T) {
	config := DefaultEngineConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	config.Depth, config.MoveTime = 0, 0
	if err := config.Validate(); err == nil {
		t.Errorf("config without search limits accepted")
	}

	config = DefaultEngineConfig()
	config.SkillLevel = 21
	if err := config.Validate(); err == nil {
		t.Errorf("skill level 21 accepted")
	}
}

func TestGoCommand(t *testing.T) {
	config := DefaultEngineConfig()
	config.MoveTime = 1500 * time.Millisecond

	engine := &Engine{config: config}
	if got, want := engine.goCommand(), "go depth 20 movetime 1500"; got != want {
		t.Errorf("goCommand() = %q, want %q", got, want)
	}

	if got, want := positionCommand(nil), "position startpos"; got != want {
		t.Errorf("positionCommand(nil) = %q, want %q", got, want)
	}
}
