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

package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"laptudirm.com/x/boardlink/pkg/config"
	"laptudirm.com/x/boardlink/pkg/link"
	"laptudirm.com/x/boardlink/pkg/oracle"
	"laptudirm.com/x/boardlink/pkg/session"
)

func Play() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play games against the engine on the board",
		Args:  cobra.NoArgs,
		Long: heredoc.Doc(`play opens the board's serial device and plays games on it
			until interrupted. The board starts a game by telling
			which side the engine plays and then sends the moves
			made on it, which are answered with the engine's moves.

			A device of the form tcp://host:port connects to a board
			simulator instead of a serial device. With --reconnect,
			a lost connection is reopened with exponential backoff.`),

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			applyPlayFlags(cmd, &cfg)

			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orc, engine, err := startOracle(ctx, cfg)
			if err != nil {
				return err
			}
			defer engine.Kill()

			err = play(ctx, cfg, orc, func() (session.Transport, func() error, error) {
				transport, err := link.Open(cfg.Link)
				if err != nil {
					return nil, nil, err
				}

				return transport, transport.Close, nil
			})

			if errors.Is(err, context.Canceled) {
				logrus.Info("Interrupted, shutting down")
				return nil
			}

			return err
		},
	}

	flags := cmd.Flags()
	flags.StringP("device", "d", "", "Serial device or tcp://host:port of the board")
	flags.StringP("oracle", "o", "", "Path to the UCI engine")
	flags.Int("baud", 0, "Baud rate of the serial device")
	flags.Int("depth", 0, "Search depth of the engine")
	flags.Bool("stats", false, "Send win/draw/loss statistics to the board")
	flags.String("book", "", "Polyglot opening book to play from")
	flags.Bool("reconnect", false, "Reopen the device when the connection is lost")

	return cmd
}

// applyPlayFlags overrides the configuration with the flags given.
func applyPlayFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("device") {
		cfg.Link.Device, _ = flags.GetString("device")
	}

	if flags.Changed("oracle") {
		cfg.Oracle.Path, _ = flags.GetString("oracle")
	}

	if flags.Changed("baud") {
		cfg.Link.Baud, _ = flags.GetInt("baud")
	}

	if flags.Changed("depth") {
		cfg.Oracle.Depth, _ = flags.GetInt("depth")
	}

	if flags.Changed("stats") {
		cfg.Session.Stats, _ = flags.GetBool("stats")
	}

	if flags.Changed("book") {
		cfg.Book.Path, _ = flags.GetString("book")
	}

	if flags.Changed("reconnect") {
		cfg.Reconnect.Enabled, _ = flags.GetBool("reconnect")
	}
}

// opener opens a connection to the board, returning the transport and a
// function which closes it.
type opener func() (session.Transport, func() error, error)

// game is the part of the oracle play needs between games.
type game interface {
	session.Oracle
	Reset(ctx context.Context) error
}

var _ game = (*oracle.Oracle)(nil)

// play plays games on the board until the context is cancelled or the
// connection fails for good. Lost connections are reopened if enabled.
func play(ctx context.Context, cfg config.Config, orc game, open opener) error {
	for {
		transport, closer, err := connect(ctx, cfg.Reconnect, open)
		if err != nil {
			return err
		}

		err = serve(ctx, cfg.Session, transport, orc)
		_ = closer()

		if !link.IsLinkError(err) || !cfg.Reconnect.Enabled || ctx.Err() != nil {
			return err
		}

		logrus.WithError(err).Warn("Lost the connection to the board")
	}
}

// serve plays games one after another over a single connection.
func serve(ctx context.Context, cfg session.Config, transport session.Transport, orc game) error {
	for {
		if err := orc.Reset(ctx); err != nil {
			return err
		}

		logrus.Info("Waiting for the board to start a game...")

		s := session.New(transport, orc, cfg)
		if err := s.Run(ctx); err != nil {
			return err
		}
	}
}

// connect opens the connection, retrying link errors with exponential
// backoff when reconnection is enabled.
func connect(ctx context.Context, cfg config.Reconnect, open opener) (session.Transport, func() error, error) {
	if !cfg.Enabled {
		return open()
	}

	type connection struct {
		transport session.Transport
		closer    func() error
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	if cfg.MaxInterval > 0 {
		policy.MaxInterval = cfg.MaxInterval
		policy.InitialInterval = min(policy.InitialInterval, cfg.MaxInterval)
	}

	conn, err := backoff.Retry(ctx,
		func() (connection, error) {
			transport, closer, err := open()
			if err != nil && !link.IsLinkError(err) {
				// configuration mistakes do not go away by retrying
				return connection{}, backoff.Permanent(err)
			}

			return connection{transport, closer}, err
		},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(cfg.MaxTries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logrus.WithError(err).Warnf("Could not open the board, retrying in %s", next.Round(time.Millisecond))
		}),
	)

	return conn.transport, conn.closer, err
}
