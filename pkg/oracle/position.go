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

package oracle

import (
	"errors"
	"strings"

	"laptudirm.com/x/mess/pkg/board"
	"laptudirm.com/x/mess/pkg/board/move"
)

var ErrIllegalMove = errors.New("illegal move")

// Outcome is the state of the game in the tracked position.
type Outcome uint8

const (
	Ongoing Outcome = iota
	Checkmate
	Stalemate

	// Draws which may be claimed, but which do not end the game on the
	// board by themselves.
	FiftyMoveRule
	ThreefoldRepetition
	InsufficientMaterial
)

// Terminal reports whether the side to move has no legal move left.
func (outcome Outcome) Terminal() bool {
	return outcome == Checkmate || outcome == Stalemate
}

func (outcome Outcome) String() string {
	switch outcome {
	case Ongoing:
		return "Ongoing"
	case Checkmate:
		return "Checkmate"
	case Stalemate:
		return "Stalemate"
	case FiftyMoveRule:
		return "50-move Rule"
	case ThreefoldRepetition:
		return "Threefold Repetition"
	case InsufficientMaterial:
		return "Insufficient Material"
	default:
		return "Unknown"
	}
}

// Position tracks a game of chess from the standard starting position and
// checks the legality of moves in coordinate notation.
type Position struct {
	board *board.Board
	legal []move.Move
	moves []string
}

// NewPosition returns a Position at the standard starting position.
func NewPosition() *Position {
	var position Position
	position.Reset()
	return &position
}

// Reset sets the Position back to the standard starting position.
func (position *Position) Reset() {
	position.board = board.New(board.FEN(board.StartFEN))
	position.legal = position.board.GenerateMoves(false)
	position.moves = position.moves[:0]
}

// MakeMove plays the given move if it is legal. An illegal move leaves
// the Position untouched and returns ErrIllegalMove.
func (position *Position) MakeMove(mov string) error {
	index, found := position.find(mov)
	if !found {
		return ErrIllegalMove
	}

	position.board.MakeMove(position.legal[index])
	position.legal = position.board.GenerateMoves(false)
	position.moves = append(position.moves, strings.ToLower(mov))
	return nil
}

// IsLegal reports whether the given move is legal in the Position.
func (position *Position) IsLegal(mov string) bool {
	_, found := position.find(mov)
	return found
}

func (position *Position) find(mov string) (int, bool) {
	for i, legal := range position.legal {
		if strings.EqualFold(legal.String(), mov) {
			return i, true
		}
	}

	return 0, false
}

// Moves returns the moves played to reach the Position.
func (position *Position) Moves() []string {
	return append([]string(nil), position.moves...)
}

// Ply returns the number of moves played to reach the Position.
func (position *Position) Ply() int {
	return len(position.moves)
}

// HasLegalMoves reports whether the side to move can make any move.
func (position *Position) HasLegalMoves() bool {
	return len(position.legal) > 0
}

// Outcome classifies the Position.
func (position *Position) Outcome() Outcome {
	switch {
	case len(position.legal) == 0:
		if position.board.IsInCheck(position.board.SideToMove) {
			return Checkmate
		}

		return Stalemate

	case position.board.DrawClock >= 100:
		return FiftyMoveRule
	case position.board.IsThreefoldRepetition():
		return ThreefoldRepetition
	case position.board.IsInsufficientMaterial():
		return InsufficientMaterial
	}

	return Ongoing
}

// Result returns the PGN result string of the Position: a checkmate is a
// loss for the side to move, a stalemate a draw, and anything else "*".
func (position *Position) Result() string {
	switch position.Outcome() {
	case Checkmate:
		if position.Ply()%2 == 0 {
			return "0-1" // white to move and mated
		}

		return "1-0"
	case Stalemate:
		return "1/2-1/2"
	default:
		return "*"
	}
}
