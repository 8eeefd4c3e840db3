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
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"laptudirm.com/x/boardlink/pkg/oracle"
	"laptudirm.com/x/boardlink/pkg/protocol"
)

func Analyse() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyse [moves...]",
		Short: "Ask the engine for its reply to a list of moves",
		Args:  cobra.ArbitraryArgs,
		Long: heredoc.Doc(`analyse plays the given moves, in coordinate notation,
			from the starting position and prints the reply the board
			would receive for them along with the engine's win, draw,
			and loss statistics. It is useful for checking the engine
			setup without a board.`),

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			applyPlayFlags(cmd, &cfg)
			if err := cfg.Oracle.Validate(); err != nil {
				return err
			}

			orc, engine, err := startOracle(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer engine.Kill()

			history := make([]string, 0, len(args)+1)
			for _, mov := range args {
				mov = strings.ToLower(mov)
				if orc.IsLegalAndApply(history, mov) == oracle.Illegal {
					return fmt.Errorf("illegal move %s after %q", mov, history)
				}

				history = append(history, mov)
			}

			out := cmd.OutOrStdout()

			reply, found, err := orc.BestReply(cmd.Context())
			if err != nil {
				return err
			}

			if !found {
				frame, _ := protocol.EncodeMate()
				fmt.Fprintf(out, "Outcome: %s %s\n", orc.Outcome(), orc.Result())
				fmt.Fprintf(out, "Frame:   %s", frame)
			} else {
				history = append(history, reply)
				fmt.Fprintf(out, "Reply:   %s\n", reply)

				if wdl, ok := orc.WDLStats(); ok {
					frames, err := protocol.EncodeStats(wdl.Win, wdl.Draw, wdl.Loss)
					if err != nil {
						return err
					}

					fmt.Fprintf(out, "WDL:     %s (elo %+.0f)\n", wdl, wdl.Elo())
					fmt.Fprintf(out, "Stats:   %s\n", strings.Join(strings.Fields(strings.Join(frames, "")), " "))
				}
			}

			pgn, _, err := oracle.Record(history)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "PGN:     %s\n", pgn)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringP("oracle", "o", "", "Path to the UCI engine")
	flags.Int("depth", 0, "Search depth of the engine")
	flags.String("book", "", "Polyglot opening book to play from")

	return cmd
}
