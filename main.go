package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/jlarvor/playhead/internal/cast"
	"github.com/jlarvor/playhead/internal/config"
	"github.com/jlarvor/playhead/internal/download"
)

func main() {
	var (
		discoverFor = flag.Duration("discover", 10*time.Second, "how long to scan for cast devices")
		listLocal   = flag.Bool("downloads", false, "list indexed offline downloads and exit")
		verbose     = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
	if *verbose {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	if err := run(log, *discoverFor, *listLocal); err != nil {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

func run(log zerolog.Logger, discoverFor time.Duration, listLocal bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if listLocal {
		return printDownloads()
	}

	if cfg.HasServerConfig() {
		log.Info().Str("server", cfg.Server.URL).Str("user", cfg.Server.UserID).Msg("server configured")
	} else {
		log.Warn().Msg("no server configured, sessions will be local-only")
	}

	return discoverDevices(log, cfg, discoverFor)
}

// discoverDevices scans the local network and prints every device set
// update until the window elapses.
func discoverDevices(log zerolog.Logger, cfg *config.Config, window time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), window)
	defer cancel()

	coordinator := cast.NewCoordinator(nil, cast.Identity{
		UserID:   cfg.Server.UserID,
		ServerID: cfg.Server.ID,
		DeviceID: cfg.Device.ID,
	}, log)
	sub := coordinator.Subscribe()
	coordinator.StartDiscovery(ctx)

	log.Info().Dur("window", window).Msg("scanning for cast devices")

	var last []cast.Target
	for {
		select {
		case devices := <-sub.Devices:
			if len(devices) != len(last) {
				log.Info().Int("count", len(devices)).Msg("device set updated")
			}
			last = devices
		case <-ctx.Done():
			printTargets(last)
			coordinator.Shutdown()
			return nil
		}
	}
}

func printTargets(targets []cast.Target) {
	if len(targets) == 0 {
		fmt.Println("no cast devices found")
		return
	}
	for _, t := range targets {
		kind := "video"
		if t.AudioOnly {
			kind = "audio-only"
		}
		fmt.Printf("%-30s %-21s %s\n", t.Name, t.Addr(), kind)
	}
}

func printDownloads() error {
	store, err := download.Open()
	if err != nil {
		return fmt.Errorf("open download index: %w", err)
	}
	defer store.Close()

	entries, err := store.List()
	if err != nil {
		return fmt.Errorf("list downloads: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("no downloads indexed")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-36s %-40s %d bytes\n", e.ItemID, e.Filename, e.Size)
	}
	return nil
}
