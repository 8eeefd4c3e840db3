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
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"laptudirm.com/x/boardlink/pkg/config"
)

func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "boardlink",
		Short: "Play chess on a physical board against a UCI engine",
		Long: heredoc.Doc(`boardlink connects a chess board's controller to a UCI
			engine over a serial line. The board reports the moves
			played on it and boardlink answers each one with the
			engine's reply, or rejects it if it is illegal.

			The configuration is read from $XDG_CONFIG_HOME/boardlink/config.yaml
			and BOARDLINK_ environment variables, and can be overridden
			with flags.`),
		Args: cobra.NoArgs,

		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// If --verbose or --trace is provided, raise the logging level.
			if cmd.Flag("verbose").Changed {
				logrus.SetLevel(logrus.DebugLevel)
			}

			if cmd.Flag("trace").Changed {
				logrus.SetLevel(logrus.TraceLevel)
			}
		},
	}

	// global flags
	root.PersistentFlags().BoolP("help", "h", false, "Show Help Information")
	root.PersistentFlags().BoolP("version", "v", false, "Show boardlink's Version")
	root.PersistentFlags().BoolP("trace", "t", false, "Show Trace Information")
	root.PersistentFlags().Bool("verbose", false, "Show Debug Information")
	root.PersistentFlags().StringP("config", "c", "", "Configuration file to use")

	versionStr := "v0.1.0\n"
	root.SetVersionTemplate(versionStr)
	root.Version = versionStr

	// Register the various commands.
	root.AddCommand(Play())
	root.AddCommand(Analyse())
	root.AddCommand(Configuration())
	root.AddCommand(Devices())

	return root
}

// loadConfig loads the configuration file selected with --config.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}

	return config.Load(path)
}
