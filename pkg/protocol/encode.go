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

package protocol

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrTooLong is returned when an outgoing move or command is longer than
// the board can read. It is never a protocol condition: the frame is not
// written and the caller has a bug.
var ErrTooLong = errors.New("protocol: frame too long")

// ErrMalformed is returned when a frame would contain a line break.
var ErrMalformed = errors.New("protocol: malformed frame")

// EncodeMove encodes a move frame.
func EncodeMove(move string) (string, error) {
	if len(move) > MaxMoveLength {
		return "", fmt.Errorf("%w: move %q has %d characters, max %d", ErrTooLong, move, len(move), MaxMoveLength)
	}

	return EncodeLine(move)
}

// EncodeCommand encodes a '/' command frame with the given payload.
func EncodeCommand(payload string) (string, error) {
	if len(payload) > MaxCommandLength {
		return "", fmt.Errorf("%w: command has %d bytes, max %d", ErrTooLong, len(payload), MaxCommandLength)
	}

	return EncodeLine(CommandPrefix + payload)
}

// EncodeLine encodes a literal frame such as READY or NOPE.
func EncodeLine(text string) (string, error) {
	if strings.ContainsAny(text, "\r\n") {
		return "", fmt.Errorf("%w: %q contains a line break", ErrMalformed, text)
	}

	return text + "\n", nil
}

// EncodeMate encodes the terminal "no legal move" command.
func EncodeMate() (string, error) {
	return EncodeCommand(Mate)
}

// EncodeStats encodes the win, draw, and loss probabilities as three
// commands, SW<pct>, SD<pct>, and SL<pct>, in that order. Percentages are
// truncated integers in the range 0-100.
func EncodeStats(w, d, l float64) ([]string, error) {
	stats := [3]struct {
		prefix string
		value  float64
	}{
		{StatWin, w},
		{StatDraw, d},
		{StatLoss, l},
	}

	frames := make([]string, 0, len(stats))
	for _, stat := range stats {
		frame, err := EncodeCommand(stat.prefix + strconv.Itoa(Percent(stat.value)))
		if err != nil {
			return nil, err
		}

		frames = append(frames, frame)
	}

	return frames, nil
}

// Percent converts a probability into a truncated integer percentage,
// clamped to the range 0-100.
func Percent(p float64) int {
	switch {
	case math.IsNaN(p), p <= 0:
		return 0
	case p >= 1:
		return 100
	default:
		// the epsilon keeps values like 0.29 from truncating to 28
		return int(math.Floor(p*100 + 1e-9))
	}
}
