/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/Seednode/armoury/buttons"
)

const logDate string = `2006-01-02T15:04:05.000-07:00`

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func source(cfg *Config) buttons.Source {
	switch {
	case cfg.dial != "":
		return &buttons.DialSource{Addr: cfg.dial}
	case cfg.device != "":
		return buttons.DeviceSource{Path: cfg.device}
	default:
		return buttons.NewReaderSource("stdin", os.Stdin)
	}
}

func forward(ctx context.Context, cfg *Config) error {
	logf(cfg, "START: armoury-buttons v%s", releaseVersion)

	verbose := func(format string, args ...any) {
		logf(cfg, format, args...)
	}

	f := buttons.NewForwarder(
		buttons.NewClient(cfg.server, cfg.timeout),
		cfg.playerMap(),
		buttons.NewDebouncer(cfg.debounce),
		buttons.WithQueue(cfg.queue),
		buttons.WithLogf(verbose),
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = f.Run(ctx)
	}()

	src := source(cfg)
	logf(cfg, "SERVE: Forwarding presses from %s to %s", src, cfg.server)

	err := buttons.Listen(ctx, src, buttons.Backoff{Base: cfg.backoffBase, Max: cfg.backoffMax}, func(line string) {
		f.HandleLine(line)
	}, verbose)

	f.Close()
	wg.Wait()

	logf(cfg, "STOP: Shutting down")

	return err
}
