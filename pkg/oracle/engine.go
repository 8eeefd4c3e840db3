// Copyright © 2023 Rak Laptudirm <rak@laptudirm.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package oracle

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"laptudirm.com/x/boardlink/pkg/stats"
)

const (
	readyTimeout = 5 * time.Second
	quitTimeout  = time.Second
)

// EngineConfig configures a UCI engine process. The defaults match a
// full strength Stockfish with a large hash table.
type EngineConfig struct {
	Path string `yaml:"path" env:"PATH"`
	Args string `yaml:"args" env:"ARGS"`

	Threads    int  `yaml:"threads" env:"THREADS"`
	SkillLevel int  `yaml:"skill-level" env:"SKILL_LEVEL"`
	Hash       int  `yaml:"hash" env:"HASH"`
	MultiPV    int  `yaml:"multipv" env:"MULTIPV"`
	ShowWDL    bool `yaml:"show-wdl" env:"SHOW_WDL"`

	// Search limits; a zero value means no limit of that kind.
	Depth    int           `yaml:"depth" env:"DEPTH"`
	MoveTime time.Duration `yaml:"movetime" env:"MOVETIME"`

	// Extra options sent with setoption, like "Contempt: 0".
	Options map[string]string `yaml:"options"`
}

// DefaultEngineConfig returns the engine settings used unless configured
// otherwise.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Threads:    4,
		SkillLevel: 20,
		Hash:       2048,
		MultiPV:    1,
		ShowWDL:    true,
		Depth:      20,
	}
}

// Validate checks the option values before they are sent to the engine.
func (config EngineConfig) Validate() error {
	switch {
	case config.SkillLevel < 0 || config.SkillLevel > 20:
		return fmt.Errorf("skill level %d out of range 0-20", config.SkillLevel)
	case config.Hash <= 0:
		return fmt.Errorf("hash size must be > 0: %d", config.Hash)
	case config.MultiPV <= 0:
		return fmt.Errorf("multipv must be > 0: %d", config.MultiPV)
	case config.Depth <= 0 && config.MoveTime <= 0:
		return errors.New("no search limits specified")
	}

	return nil
}

var (
	ErrReadTimeout  = errors.New("engine: read i/o timeout")
	ErrEngineExited = errors.New("engine: process exited")
)

var (
	uciokRegex    = regexp.MustCompile(`^uciok$`)
	readyokRegex  = regexp.MustCompile(`^readyok$`)
	bestmoveRegex = regexp.MustCompile(`^bestmove`)
)

// Engine is a UCI engine process. All of its methods block until the
// engine has answered or a timeout elapses.
type Engine struct {
	config EngineConfig

	*exec.Cmd

	writer *bufio.Writer
	lines  chan string
	quit   chan struct{}

	err error // read error, valid once lines is closed

	logger *logrus.Entry
}

// StartEngine starts the configured engine, initializes it, and prepares
// it for a new game.
func StartEngine(ctx context.Context, config EngineConfig) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	process := exec.Command(config.Path, strings.Fields(config.Args)...)

	stdin, err := process.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := process.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := process.Start(); err != nil {
		return nil, fmt.Errorf("start engine: %w", err)
	}

	engine := newEngine(stdout, stdin, config)
	engine.Cmd = process

	if err := engine.Initialize(ctx); err != nil {
		_ = engine.Kill()
		return nil, err
	}

	if err := engine.NewGame(ctx); err != nil {
		_ = engine.Kill()
		return nil, err
	}

	return engine, nil
}

// newEngine wraps the given engine output and input streams.
func newEngine(r io.Reader, w io.Writer, config EngineConfig) *Engine {
	engine := &Engine{
		config: config,
		writer: bufio.NewWriter(w),
		lines:  make(chan string),
		quit:   make(chan struct{}),
		logger: logrus.WithField("engine", config.Path),
	}

	go func() {
		reader := bufio.NewReader(r)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				engine.err = err
				close(engine.lines)
				return
			}

			line = strings.Trim(line, " \n\t\r")

			engine.logger.Tracef("engine> %s", line)

			select {
			case engine.lines <- line:
			case <-engine.quit:
				return
			}
		}
	}()

	return engine
}

// Initialize initializes the engine on startup and applies its options.
func (engine *Engine) Initialize(ctx context.Context) error {
	if err := engine.Write("uci"); err != nil {
		return err
	}

	if _, err := engine.Await(ctx, uciokRegex, readyTimeout); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	for _, option := range engine.options() {
		if err := engine.Write("setoption name %s value %s", option[0], option[1]); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}

	return engine.Synchronize(ctx)
}

func (engine *Engine) options() [][2]string {
	threads := engine.config.Threads
	if threads <= 0 {
		threads = 1
	}

	options := [][2]string{
		{"Threads", strconv.Itoa(threads)},
		{"Hash", strconv.Itoa(engine.config.Hash)},
		{"Skill Level", strconv.Itoa(engine.config.SkillLevel)},
		{"MultiPV", strconv.Itoa(engine.config.MultiPV)},
		{"UCI_ShowWDL", strconv.FormatBool(engine.config.ShowWDL)},
	}

	// sort the extra options so the engine sees them in a stable order
	names := make([]string, 0, len(engine.config.Options))
	for name := range engine.config.Options {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		options = append(options, [2]string{name, engine.config.Options[name]})
	}

	return options
}

// NewGame prepares the engine for a new game of chess.
func (engine *Engine) NewGame(ctx context.Context) error {
	if err := engine.Write("ucinewgame"); err != nil {
		return err
	}

	return engine.Synchronize(ctx)
}

// Synchronize waits for the engine to complete some time consuming task
// and synchronizes the interface with it.
func (engine *Engine) Synchronize(ctx context.Context) error {
	if err := engine.Write("isready"); err != nil {
		return err
	}

	if _, err := engine.Await(ctx, readyokRegex, readyTimeout); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}

	return nil
}

// SearchResult is the outcome of a single search.
type SearchResult struct {
	// BestMove is empty if the engine reported no legal move.
	BestMove string

	WDL    stats.WDL // from the point of view of the side to move
	HasWDL bool

	Depth int
	Score string // "cp 34" or "mate -3"
}

// Search searches the position reached by playing the given moves from
// the starting position and returns the engine's best move.
func (engine *Engine) Search(ctx context.Context, moves []string) (SearchResult, error) {
	if err := engine.Write("%s", positionCommand(moves)); err != nil {
		return SearchResult{}, err
	}

	if err := engine.Synchronize(ctx); err != nil {
		return SearchResult{}, err
	}

	if err := engine.Write("%s", engine.goCommand()); err != nil {
		return SearchResult{}, err
	}

	timer := time.NewTimer(engine.searchTimeout())
	defer timer.Stop()

	var result SearchResult
	for {
		line, err := engine.next(ctx, timer.C)
		if err != nil {
			return SearchResult{}, fmt.Errorf("search: %w", err)
		}

		switch {
		case strings.HasPrefix(line, "info "):
			parseInfo(line, &result)

		case bestmoveRegex.MatchString(line):
			words := strings.Fields(line)
			if len(words) >= 2 && words[1] != "(none)" && words[1] != "0000" {
				result.BestMove = words[1]
			}

			return result, nil
		}
	}
}

func positionCommand(moves []string) string {
	if len(moves) == 0 {
		return "position startpos"
	}

	return "position startpos moves " + strings.Join(moves, " ")
}

func (engine *Engine) goCommand() string {
	words := []string{"go"}
	if engine.config.Depth > 0 {
		words = append(words, "depth", strconv.Itoa(engine.config.Depth))
	}

	if engine.config.MoveTime > 0 {
		words = append(words, "movetime", strconv.FormatInt(engine.config.MoveTime.Milliseconds(), 10))
	}

	return strings.Join(words, " ")
}

// searchTimeout bounds how long a search may take before the engine is
// considered hung.
func (engine *Engine) searchTimeout() time.Duration {
	if engine.config.MoveTime > 0 {
		return 3*engine.config.MoveTime + 2*time.Second
	}

	timeout := time.Duration(engine.config.Depth) * 3 * time.Second
	if timeout < 10*time.Second {
		timeout = 10 * time.Second
	}

	return timeout
}

// parseInfo records the depth, score, and wdl statistics of the principal
// variation from an info line into result.
func parseInfo(line string, result *SearchResult) {
	words := strings.Fields(line)

	for i := 1; i < len(words); i++ {
		switch words[i] {
		case "multipv":
			// only the principal variation is of interest
			if i+1 < len(words) && words[i+1] != "1" {
				return
			}

		case "depth":
			if i+1 < len(words) {
				if depth, err := strconv.Atoi(words[i+1]); err == nil {
					result.Depth = depth
				}
			}

		case "score":
			if i+2 < len(words) && (words[i+1] == "cp" || words[i+1] == "mate") {
				result.Score = words[i+1] + " " + words[i+2]
			}

		case "wdl":
			if i+3 >= len(words) {
				return
			}

			var counts [3]int
			for j := range counts {
				n, err := strconv.Atoi(words[i+1+j])
				if err != nil {
					return
				}
				counts[j] = n
			}

			if wdl, ok := stats.FromCounts(counts[0], counts[1], counts[2]); ok {
				result.WDL, result.HasWDL = wdl, true
			}

		case "pv":
			// the rest of the line is the variation itself
			return
		}
	}
}

// Kill asks the engine to quit and kills its process.
func (engine *Engine) Kill() error {
	_ = engine.Write("quit")

	select {
	case <-engine.quit:
		// already killed
	default:
		close(engine.quit)
	}

	if engine.Cmd == nil || engine.Process == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- engine.Wait() }()

	select {
	case <-done:
		return nil
	case <-time.After(quitTimeout):
		return engine.Process.Kill()
	}
}

// Await is a utility function which waits for a line matching the given
// pattern from the engine with a fixed timeout. Other lines are skipped.
func (engine *Engine) Await(ctx context.Context, pattern *regexp.Regexp, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		line, err := engine.next(ctx, timer.C)
		if err != nil {
			return "", err
		}

		if pattern.MatchString(line) {
			// line is the expected line
			return line, nil
		}
	}
}

// next returns the next line from the engine.
func (engine *Engine) next(ctx context.Context, timeout <-chan time.Time) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()

	case <-timeout:
		// timer ran out: wait timeout
		return "", ErrReadTimeout

	case line, ok := <-engine.lines:
		if !ok {
			if engine.err != nil && !errors.Is(engine.err, io.EOF) {
				return "", fmt.Errorf("%w: %v", ErrEngineExited, engine.err)
			}

			return "", ErrEngineExited
		}

		return line, nil
	}
}

// Write sends a command to the engine.
func (engine *Engine) Write(format string, a ...any) error {
	command := fmt.Sprintf(format, a...)
	engine.logger.Tracef("engine< %s", command)

	if _, err := fmt.Fprintln(engine.writer, command); err != nil {
		return err
	}

	return engine.writer.Flush()
}
