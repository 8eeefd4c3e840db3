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

	"github.com/corentings/chess/v2"
)

// Record replays the given moves from the starting position and returns
// the game in PGN along with the moves in standard algebraic notation.
func Record(moves []string) (string, []string, error) {
	game := chess.NewGame()
	san := make([]string, 0, len(moves))

	for i, mov := range moves {
		position := game.Position()

		decoded, err := chess.UCINotation{}.Decode(position, mov)
		if err != nil {
			return "", nil, fmt.Errorf("move %d %q: %w", i+1, mov, err)
		}

		san = append(san, chess.AlgebraicNotation{}.Encode(position, decoded))

		if err := game.Move(decoded, nil); err != nil {
			return "", nil, fmt.Errorf("move %d %q: %w", i+1, mov, err)
		}
	}

	return game.String(), san, nil
}
