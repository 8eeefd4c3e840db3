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

package stats

import (
	"fmt"
	"math"
)

// WDL is a snapshot of the win, draw, and loss probabilities of a position
// from the point of view of one side. The probabilities sum to 1.
type WDL struct {
	Win, Draw, Loss float64
}

// FromCounts normalizes the given win, draw, and loss counts, like the
// per-mille values reported by UCI engines, into a WDL. It reports false if
// the counts are negative or add up to zero.
func FromCounts(ws, ds, ls int) (WDL, bool) {
	if ws < 0 || ds < 0 || ls < 0 {
		return WDL{}, false
	}

	N := float64(ws + ds + ls) // total number of outcomes
	if N == 0 {
		return WDL{}, false
	}

	return WDL{
		Win:  float64(ws) / N,
		Draw: float64(ds) / N,
		Loss: float64(ls) / N,
	}, true
}

// Score returns the expected score of the side, counting draws as half.
func (wdl WDL) Score() float64 {
	return wdl.Win + wdl.Draw/2
}

// Elo converts the expected score into an elo difference. Certain results
// have no finite elo and are reported as 0.
func (wdl WDL) Elo() float64 {
	return scoreToElo(wdl.Score())
}

func (wdl WDL) String() string {
	return fmt.Sprintf("W %.1f%% D %.1f%% L %.1f%%", wdl.Win*100, wdl.Draw*100, wdl.Loss*100)
}

func scoreToElo(x float64) float64 {
	switch {
	case x <= 0, x >= 1:
		return 0

	default:
		return -400 * math.Log10(1/x-1)
	}
}
