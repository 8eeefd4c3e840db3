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

// Package session implements the protocol spoken with the board: the
// handshake, the exchange of moves, and the end of the game.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"laptudirm.com/x/boardlink/pkg/oracle"
	"laptudirm.com/x/boardlink/pkg/protocol"
	"laptudirm.com/x/boardlink/pkg/stats"
)

// DefaultOpening is the move played by the engine when it has white.
const DefaultOpening = "e2e4"

// Transport is the line transport to the board. *link.Transport is a
// Transport.
type Transport interface {
	// ReadLine returns "" and a nil error when no frame arrived in time.
	ReadLine() (string, error)
	WriteFrame(frame string) error
}

// Oracle judges the board's moves and picks the engine's replies.
// *oracle.Oracle is an Oracle.
type Oracle interface {
	IsLegalAndApply(history []string, move string) oracle.Verdict
	BestReply(ctx context.Context) (string, bool, error)
	WDLStats() (stats.WDL, bool)
	Outcome() oracle.Outcome
	Result() string
}

// Config configures a Session.
type Config struct {
	// Opening is played unchecked when the engine has white.
	Opening string `yaml:"opening" env:"OPENING"`

	// Stats enables sending win/draw/loss statistics before each reply.
	Stats bool `yaml:"stats" env:"STATS"`
}

// Game is the state of the game played over a session.
type Game struct {
	ID      string
	Side    Side
	History []string

	State   State
	Framing Framing
}

// Session plays a single game with the board. It owns its Transport for
// its whole lifetime.
type Session struct {
	transport Transport
	oracle    Oracle
	config    Config

	game    Game
	pending string // captured move waiting for validation

	Logger *logrus.Entry
}

// New creates a Session waiting for the board to start a game.
func New(transport Transport, oracle Oracle, config Config) *Session {
	if config.Opening == "" {
		config.Opening = DefaultOpening
	}

	return &Session{
		transport: transport,
		oracle:    oracle,
		config:    config,

		Logger: logrus.WithField("component", "session"),
	}
}

// Game returns a snapshot of the session's game.
func (s *Session) Game() Game {
	game := s.game
	game.History = append([]string(nil), s.game.History...)
	return game
}

// Run plays the game until it ends. It returns nil once the game is over,
// the *link.LinkError of a failed transport, the error of a failed engine,
// or the context's error if it is cancelled. The context is checked
// between reads of the transport.
func (s *Session) Run(ctx context.Context) error {
	for s.game.State != Terminated {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.step(ctx); err != nil {
			return err
		}
	}

	s.finish()
	return nil
}

// step performs the work of the current state and moves to the next one.
func (s *Session) step(ctx context.Context) error {
	switch s.game.State {
	case AwaitStart:
		return s.awaitStart()
	case HandshakeSent:
		return s.handshake()
	case AwaitOppMove:
		return s.awaitMove()
	case Validating:
		return s.validate(ctx)
	case ReplySent:
		s.afterReply()
		return nil
	default:
		return fmt.Errorf("session: unexpected state %v", s.game.State)
	}
}

func (s *Session) awaitStart() error {
	frame, err := s.transport.ReadLine()
	if err != nil {
		return err
	}

	switch frame {
	case protocol.GameWhite:
		s.start(White)
	case protocol.GameBlack:
		s.start(Black)
	case "":
		// timeout or blank line
	default:
		s.Logger.WithField("frame", frame).Debug("Ignoring frame before game start")
	}

	return nil
}

func (s *Session) start(side Side) {
	s.game = Game{
		ID:    uuid.NewString(),
		Side:  side,
		State: HandshakeSent,
	}

	s.Logger = s.Logger.WithFields(logrus.Fields{
		"session": s.game.ID,
		"side":    side,
	})

	s.Logger.Info("Game started")
}

func (s *Session) handshake() error {
	if err := s.write(protocol.EncodeLine(protocol.Ready)); err != nil {
		return err
	}

	if s.game.Side == White {
		frame, err := protocol.EncodeMove(s.config.Opening)
		if err != nil {
			return fmt.Errorf("encode opening: %w", err)
		}

		s.game.History = append(s.game.History, s.config.Opening)
		if err := s.transport.WriteFrame(frame); err != nil {
			return err
		}

		s.Logger.WithField("move", s.config.Opening).Debug("Played opening")
	}

	s.game.State = AwaitOppMove
	return nil
}

func (s *Session) awaitMove() error {
	frame, err := s.transport.ReadLine()
	if err != nil {
		return err
	}

	switch {
	case frame == "":
		// timeouts leave the framing as it is

	case frame == protocol.MoveBegin:
		s.game.Framing = Armed

	case s.game.Framing == Armed:
		s.pending = frame
		s.game.Framing = Idle
		s.game.State = Validating

	default:
		s.Logger.WithField("frame", frame).Debug("Ignoring frame outside a move")
	}

	return nil
}

func (s *Session) validate(ctx context.Context) error {
	move := strings.ToLower(s.pending)
	s.pending = ""

	logger := s.Logger.WithField("move", move)

	if s.oracle.IsLegalAndApply(s.game.History, move) == oracle.Illegal {
		logger.Info("Rejected illegal move")

		s.game.State = AwaitOppMove
		return s.write(protocol.EncodeLine(protocol.Nope))
	}

	s.game.History = append(s.game.History, move)
	logger.Debug("Accepted move")

	reply, found, err := s.oracle.BestReply(ctx)
	if err != nil {
		return fmt.Errorf("best reply: %w", err)
	}

	if !found {
		s.game.State = Terminated
		return s.write(protocol.EncodeMate())
	}

	frame, err := protocol.EncodeMove(reply)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}

	s.game.History = append(s.game.History, reply)

	// the board reads commands while it waits for a move, so the
	// statistics have to go out before the reply
	if err := s.sendStats(); err != nil {
		return err
	}

	if err := s.transport.WriteFrame(frame); err != nil {
		return err
	}

	logger.WithField("reply", reply).Debug("Sent reply")

	s.game.State = ReplySent
	return nil
}

func (s *Session) sendStats() error {
	if !s.config.Stats {
		return nil
	}

	wdl, ok := s.oracle.WDLStats()
	if !ok {
		return nil
	}

	frames, err := protocol.EncodeStats(wdl.Win, wdl.Draw, wdl.Loss)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}

	for _, frame := range frames {
		if err := s.transport.WriteFrame(frame); err != nil {
			return err
		}
	}

	return nil
}

func (s *Session) afterReply() {
	if s.oracle.Outcome().Terminal() {
		// the board sees the game is over from the reply itself
		s.game.State = Terminated
		return
	}

	s.game.State = AwaitOppMove
}

func (s *Session) finish() {
	fields := logrus.Fields{
		"outcome": s.oracle.Outcome(),
		"result":  s.oracle.Result(),
		"plies":   len(s.game.History),
	}

	logger := s.Logger.WithFields(fields)
	logger.Info("Game over")

	if pgn, _, err := oracle.Record(s.game.History); err == nil {
		logger.Debugf("Game record:\n%s", pgn)
	}
}

// write writes the frame returned by an encoder.
func (s *Session) write(frame string, err error) error {
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	return s.transport.WriteFrame(frame)
}
