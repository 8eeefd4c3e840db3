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

// Package protocol contains the frame vocabulary of the board link and the
// encoder which turns moves and commands into wire frames.
//
// Every frame is a single line of ASCII text terminated by '\n'. Frames
// sent by the board are plain literals, while frames sent to the board are
// either moves, literals, or commands prefixed with '/'.
package protocol

// Frames sent by the board.
const (
	GameWhite = "GAME_WHITE" // start a game, the engine plays white
	GameBlack = "GAME_BLACK" // start a game, the engine plays black
	MoveBegin = "MOVE_BEGIN" // the next line is the opponent's move
)

// Frames sent to the board.
const (
	Ready = "READY" // handshake acknowledgement
	Nope  = "NOPE"  // the opponent's move was rejected

	// Mate is the payload of the command sent when the engine has no
	// legal reply. It is always sent as a command, i.e. "/MATE".
	Mate = "MATE"
)

// Statistics command prefixes, followed by an integer percentage.
const (
	StatWin  = "SW"
	StatDraw = "SD"
	StatLoss = "SL"
)

// Length limits of outgoing frames, excluding the prefix and newline.
const (
	MaxMoveLength    = 5   // the firmware reads at most 5 move characters
	MaxCommandLength = 128 // maximum payload of a '/' command
)

// CommandPrefix marks a frame as a command rather than a move.
const CommandPrefix = "/"
