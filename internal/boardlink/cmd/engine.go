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
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"laptudirm.com/x/boardlink/pkg/config"
	"laptudirm.com/x/boardlink/pkg/oracle"
)

const SPIN = 14

// startOracle starts the configured engine and loads the opening book.
func startOracle(ctx context.Context, cfg config.Config) (*oracle.Oracle, *oracle.Engine, error) {
	logrus.WithField("engine", cfg.Oracle.Path).Info("Starting the engine...")

	// the spinner would garble debug logs and non terminal output
	if term.IsTerminal(int(os.Stderr.Fd())) && !logrus.IsLevelEnabled(logrus.DebugLevel) {
		s := spinner.New(spinner.CharSets[SPIN], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Start()
		defer s.Stop()
	}

	engine, err := oracle.StartEngine(ctx, cfg.Oracle)
	if err != nil {
		return nil, nil, err
	}

	var book *oracle.Book
	if cfg.Book.Path != "" {
		if book, err = oracle.LoadBook(cfg.Book.Path, cfg.Book.Plies); err != nil {
			_ = engine.Kill()
			return nil, nil, err
		}

		logrus.WithField("book", cfg.Book.Path).Debug("Loaded opening book")
	}

	return oracle.New(engine, book), engine, nil
}
