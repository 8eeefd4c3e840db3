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

package session

// Side is the side the engine plays in a game.
type Side uint8

const (
	White Side = iota
	Black
)

func (side Side) String() string {
	if side == White {
		return "white"
	}

	return "black"
}

// State is the state of a session.
type State uint8

const (
	AwaitStart State = iota
	HandshakeSent
	AwaitOppMove
	Validating
	ReplySent
	Terminated
)

func (state State) String() string {
	switch state {
	case AwaitStart:
		return "AWAIT_START"
	case HandshakeSent:
		return "HANDSHAKE_SENT"
	case AwaitOppMove:
		return "AWAIT_OPP_MOVE"
	case Validating:
		return "VALIDATING"
	case ReplySent:
		return "REPLY_SENT"
	case Terminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// Framing is the state of move capture inside AwaitOppMove. A MOVE_BEGIN
// frame arms the capture and the next non-empty frame is the move.
type Framing uint8

const (
	Idle Framing = iota
	Armed
)

func (framing Framing) String() string {
	if framing == Armed {
		return "ARMED"
	}

	return "IDLE"
}
