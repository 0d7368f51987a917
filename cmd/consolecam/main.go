/*
ConsoleCam
Copyright (c) 2026 The ConsoleCam Project Contributors.
SPDX-License-Identifier: GPL-3.0-or-later

This file is part of ConsoleCam.

ConsoleCam is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

ConsoleCam is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with ConsoleCam.  If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ConsoleCamProject/consolecam-core/pkg/config"
	"github.com/ConsoleCamProject/consolecam-core/pkg/console"
	"github.com/ConsoleCamProject/consolecam-core/pkg/convert"
	"github.com/ConsoleCamProject/consolecam-core/pkg/cycle"
	"github.com/ConsoleCamProject/consolecam-core/pkg/frame"
	"github.com/ConsoleCamProject/consolecam-core/pkg/helpers"
	"github.com/ConsoleCamProject/consolecam-core/pkg/transfer"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	configDir := flag.String("config", ".", "directory containing "+config.CfgFile)
	outDir := flag.String("out", "", "override the local output directory")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.NewConfig(*configDir, config.BaseDefaults)
	if err != nil {
		return err
	}
	if *outDir != "" {
		cfg.SetOutputDir(*outDir)
	}
	if *debug {
		cfg.SetDebugLogging(true)
	}

	reportPath := filepath.Join(*configDir, config.ReportFile)
	err = helpers.InitLogging(reportPath, cfg.DebugLogging(), []io.Writer{
		zerolog.ConsoleWriter{Out: os.Stderr},
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	clock := clockwork.NewRealClock()
	fs := afero.NewOsFs()
	executor := &helpers.RealCommandExecutor{}

	serialCfg := cfg.Serial()
	tgt := cfg.Target()
	opts := console.Options{
		Port:           serialCfg.Port,
		BaudRate:       serialCfg.BaudRate,
		Username:       tgt.Username,
		Password:       tgt.Password,
		LoginPrompt:    tgt.LoginPrompt,
		PasswordPrompt: tgt.PasswordPrompt,
		ShellPrompts:   tgt.ShellPrompts,
	}

	controller := cycle.NewController(cycle.Deps{
		Config: cfg,
		Clock:  clock,
		NewSession: func() cycle.Session {
			return console.NewSession(opts, console.DefaultPortFactory, clock)
		},
		Retriever: transfer.NewRetriever(executor, fs, clock, cfg.OutputDir(), cfg.TransferTimeout()),
		Repairer:  frame.NewRepairer(fs),
		Converter: convert.NewConverter(executor, fs, cfg.ConvertTimeout()),
	})

	result := controller.Run()
	if !result.OK {
		log.Error().Err(result.Err).Str("phase", string(result.Phase)).Msg("capture cycle failed")
		return fmt.Errorf("capture cycle failed in %s phase: %w", result.Phase, result.Err)
	}

	log.Info().Str("image", result.ImagePath).Msg("capture cycle succeeded")
	fmt.Println(result.ImagePath)
	return nil
}
