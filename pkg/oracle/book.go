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
	"fmt"
	"os"

	"github.com/corentings/chess/v2"
)

// Book is a polyglot opening book.
type Book struct {
	path  string
	book  *chess.PolyglotBook
	plies int
}

// LoadBook reads the polyglot book at the given path. Book moves are only
// played during the first plies half-moves of a game; zero means no limit.
func LoadBook(path string, plies int) (*Book, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open polyglot book %q: %w", path, err)
	}
	defer file.Close()

	book, err := chess.LoadFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("load polyglot book %q: %w", path, err)
	}

	return &Book{path: path, book: book, plies: plies}, nil
}

// Lookup returns the heaviest book move in the position reached by the
// given moves, in coordinate notation. The move still has to be checked
// for legality by the caller.
func (b *Book) Lookup(moves []string) (string, bool) {
	if b == nil || b.book == nil {
		return "", false
	}

	if b.plies > 0 && len(moves) >= b.plies {
		return "", false
	}

	game := chess.NewGame()
	for _, mov := range moves {
		if err := game.PushNotationMove(mov, chess.UCINotation{}, nil); err != nil {
			return "", false
		}
	}

	hashStr, err := chess.NewZobristHasher().HashPosition(game.FEN())
	if err != nil {
		return "", false
	}

	entries := b.book.FindMoves(chess.ZobristHashToUint64(hashStr))
	if len(entries) == 0 {
		return "", false
	}

	best := entries[0]
	for _, entry := range entries[1:] {
		if entry.Weight > best.Weight {
			best = entry
		}
	}

	return castling(chess.DecodeMove(best.Move).ToMove().String()), true
}

// castling converts polyglot's king-takes-rook castling moves into the
// king's two square move used everywhere else.
func castling(mov string) string {
	switch mov {
	case "e1h1":
		return "e1g1"
	case "e1a1":
		return "e1c1"
	case "e8h8":
		return "e8g8"
	case "e8a8":
		return "e8c8"
	default:
		return mov
	}
}
