/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/engine"
	"github.com/friendsincode/playcore/internal/events"
	"github.com/friendsincode/playcore/internal/player"
)

var (
	playStart   float64
	playVolume  float64
	playLoop    string
	playPause   bool
	playObserve []string
	playSet     []string
)

var playCmd = &cobra.Command{
	Use:   "play <url>...",
	Short: "Play files and exit when the playlist is done",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlay,
}

func init() {
	playCmd.Flags().Float64Var(&playStart, "start", -1, "start position in seconds")
	playCmd.Flags().Float64Var(&playVolume, "volume", -1, "volume (0-1000)")
	playCmd.Flags().StringVar(&playLoop, "loop-playlist", "", "playlist passes: no, inf or a count")
	playCmd.Flags().BoolVar(&playPause, "pause", false, "start paused")
	playCmd.Flags().StringSliceVar(&playObserve, "observe", nil, "properties to print when they change")
	playCmd.Flags().StringArrayVar(&playSet, "set", nil, "set any option as name=value (repeatable)")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	var cleanup closers
	defer cleanup.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flags := cmd.Flags()
	opts := map[string]any{}
	if flags.Changed("start") {
		opts["start"] = playStart
	}
	if flags.Changed("volume") {
		opts["volume"] = playVolume
	}
	if flags.Changed("loop-playlist") {
		opts["loop-playlist"] = playLoop
	}
	if flags.Changed("pause") {
		opts["pause"] = playPause
	}
	for _, kv := range playSet {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !slices.Contains(player.OptionNames(), name) {
			return fmt.Errorf("--set %q: expected name=value with name one of %s", kv, strings.Join(player.OptionNames(), ", "))
		}
		opts[name] = value
	}
	playerOpts := cfg.PlayerOptions()
	for name, v := range opts {
		if err := playerOpts.Set(name, v); err != nil {
			return fmt.Errorf("option %s: %s", name, engine.ErrorString(apierr.From(err, apierr.OptionError)))
		}
	}

	eng, err := buildEngine(ctx, playerOpts, &cleanup)
	if err != nil {
		return err
	}
	if err := eng.Append(args...); err != nil {
		return err
	}

	cli, err := eng.CreateClient("cli")
	if err != nil {
		return err
	}
	for i, name := range playObserve {
		if err := cli.ObserveProperty(uint64(i+1), name); err != nil {
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}

	if err := eng.Initialize(); err != nil {
		return err
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-eng.Done():
			return
		}
		terminateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = eng.Terminate(terminateCtx)
	}()

	failed := watchPlayback(cli)

	terminateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := eng.Terminate(terminateCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn().Err(err).Msg("terminate")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

// watchPlayback reports progress until the core shuts down and returns the
// number of files that ended with an error.
func watchPlayback(cli *engine.Client) int {
	failed := 0
	for {
		ev := cli.WaitEvent(engine.WaitForever)
		switch ev.Kind {
		case events.StartFile:
			data, _ := ev.Data.(events.StartFileData)
			logger.Info().Str("entry", data.EntryID).Msg("starting file")
		case events.FileLoaded:
			if path, err := cli.GetProperty(context.Background(), "path"); err == nil {
				logger.Info().Interface("path", path).Msg("playing")
			}
		case events.EndFile:
			data, _ := ev.Data.(events.EndFileData)
			l := logger.Info()
			if data.Reason == events.ReasonError {
				failed++
				l = logger.Error().Str("error", apierr.String(data.Error))
			}
			l.Str("reason", data.Reason.String()).Msg("file ended")
		case events.PropertyChange:
			data, _ := ev.Data.(events.PropertyData)
			fmt.Fprintf(os.Stdout, "%s: %v\n", data.Name, data.Value)
		case events.Shutdown:
			return failed
		}
	}
}
