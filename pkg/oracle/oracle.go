// Copyright © 2024 Rak Laptudirm <rak@laptudirm.com>
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

// Package oracle decides the legality of moves played on the board and
// chooses the engine's replies. It keeps its own copy of the game which it
// synchronizes with the move history owned by the session.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"laptudirm.com/x/boardlink/pkg/stats"
)

// Verdict is the legality verdict of a move.
type Verdict bool

const (
	Illegal Verdict = false
	Legal   Verdict = true
)

func (verdict Verdict) String() string {
	if verdict {
		return "legal"
	}

	return "illegal"
}

// ErrIllegalReply is returned when the engine suggests a move which is not
// legal in the tracked position.
var ErrIllegalReply = errors.New("engine suggested an illegal move")

// Searcher finds the best move in a position. *Engine is a Searcher.
type Searcher interface {
	NewGame(ctx context.Context) error
	Search(ctx context.Context, moves []string) (SearchResult, error)
}

// Oracle wraps a Position, an engine, and an optional opening book.
type Oracle struct {
	position *Position
	engine   Searcher
	book     *Book

	wdl    stats.WDL
	hasWDL bool

	Logger *logrus.Entry
}

// New creates an Oracle at the starting position. book may be nil.
func New(engine Searcher, book *Book) *Oracle {
	return &Oracle{
		position: NewPosition(),
		engine:   engine,
		book:     book,

		Logger: logrus.WithField("component", "oracle"),
	}
}

// IsLegalAndApply synchronizes the tracked game with history and then
// checks mov. A legal move is played on the tracked game; an illegal one
// leaves it as it was. A failure inside the move generator is reported as
// an illegal move.
func (oracle *Oracle) IsLegalAndApply(history []string, mov string) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			oracle.Logger.WithField("move", mov).Errorf("legality check failed: %v", r)

			// the tracked game may be half updated; rebuild it next time
			oracle.position.Reset()
			verdict = Illegal
		}
	}()

	if err := oracle.sync(history); err != nil {
		oracle.Logger.WithError(err).Warn("Could not replay the move history")
		return Illegal
	}

	if err := oracle.position.MakeMove(mov); err != nil {
		return Illegal
	}

	return Legal
}

// sync brings the tracked game in line with history. A matching game is
// left alone, a game which is a prefix of history is extended, and any
// other game is rebuilt from the starting position.
func (oracle *Oracle) sync(history []string) error {
	moves := oracle.position.moves

	if !isPrefix(moves, history) {
		oracle.Logger.Debug("Tracked game diverged from history, replaying")
		oracle.position.Reset()
		moves = nil
	}

	for _, mov := range history[len(moves):] {
		if err := oracle.position.MakeMove(mov); err != nil {
			oracle.position.Reset()
			return fmt.Errorf("replay %q: %w", mov, err)
		}
	}

	return nil
}

func isPrefix(prefix, moves []string) bool {
	if len(prefix) > len(moves) {
		return false
	}

	for i := range prefix {
		if !strings.EqualFold(prefix[i], moves[i]) {
			return false
		}
	}

	return true
}

// BestReply returns the reply to play in the tracked position and applies
// it there. It returns false if the side to move has no legal move. The
// book is consulted first, then the engine, whose win/draw/loss estimate
// of the position is kept for WDLStats.
func (oracle *Oracle) BestReply(ctx context.Context) (string, bool, error) {
	// a snapshot only describes the position it was searched in
	oracle.wdl, oracle.hasWDL = stats.WDL{}, false

	if !oracle.position.HasLegalMoves() {
		return "", false, nil
	}

	moves := oracle.position.Moves()

	if mov, found := oracle.book.Lookup(moves); found {
		if oracle.position.MakeMove(mov) == nil {
			oracle.Logger.WithField("move", mov).Debug("Playing book move")
			return mov, true, nil
		}

		oracle.Logger.WithField("move", mov).Warn("Ignoring illegal book move")
	}

	result, err := oracle.engine.Search(ctx, moves)
	if err != nil {
		return "", false, fmt.Errorf("search: %w", err)
	}

	if result.BestMove == "" {
		return "", false, nil
	}

	if err := oracle.position.MakeMove(result.BestMove); err != nil {
		return "", false, fmt.Errorf("%w: %s", ErrIllegalReply, result.BestMove)
	}

	oracle.wdl, oracle.hasWDL = result.WDL, result.HasWDL

	oracle.Logger.WithFields(logrus.Fields{
		"move":  result.BestMove,
		"depth": result.Depth,
		"score": result.Score,
	}).Debug("Engine replied")

	return result.BestMove, true, nil
}

// WDLStats returns the win/draw/loss estimate of the engine search behind
// the last reply, from the engine's point of view. It reports false if the
// reply came from the book or the engine gave no estimate.
func (oracle *Oracle) WDLStats() (stats.WDL, bool) {
	return oracle.wdl, oracle.hasWDL
}

// Outcome classifies the tracked position.
func (oracle *Oracle) Outcome() Outcome {
	return oracle.position.Outcome()
}

// Result returns the PGN result of the tracked position.
func (oracle *Oracle) Result() string {
	return oracle.position.Result()
}

// Reset prepares the Oracle and its engine for a new game.
func (oracle *Oracle) Reset(ctx context.Context) error {
	oracle.position.Reset()
	oracle.wdl, oracle.hasWDL = stats.WDL{}, false
	return oracle.engine.NewGame(ctx)
}
