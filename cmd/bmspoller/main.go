package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/bms-poller/internal/catalog"
	"github.com/tamzrod/bms-poller/internal/config"
	"github.com/tamzrod/bms-poller/internal/metrics"
	"github.com/tamzrod/bms-poller/internal/poller"
	"github.com/tamzrod/bms-poller/internal/status"
	"github.com/tamzrod/bms-poller/internal/writer"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: bmspoller <config.yaml>")
		os.Exit(2)
	}
	if err := run(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "bmspoller: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	p := cfg.Poller

	log := newLogger(os.Stderr, p.Log)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Register tables
	// --------------------

	cat, err := loadCatalog(p.Catalog, log)
	if err != nil {
		return err
	}

	// --------------------
	// Metrics
	// --------------------

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	if p.Metrics.Listen != "" {
		srv := &http.Server{
			Addr:              p.Metrics.Listen,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "listen", p.Metrics.Listen, "err", err)
			}
		}()
		defer srv.Close()
	}

	// --------------------
	// Output
	// --------------------

	out, closeOut, err := writer.Build(p.Output, log)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	defer closeOut()

	// --------------------
	// Build per-device pipelines
	// --------------------

	_, pollers, closeTransports, err := poller.Build(cfg, cat, poller.DialModbus, log, m)
	if err != nil {
		return fmt.Errorf("poller build failed: %w", err)
	}
	defer closeTransports()

	var wg sync.WaitGroup
	for _, pl := range pollers {
		results := make(chan poller.PollResult)

		wg.Add(2)
		go func(pl *poller.Poller) {
			defer wg.Done()
			pl.Run(ctx, results)
		}(pl)
		go func(id string) {
			defer wg.Done()
			orchestrate(ctx, id, results, out, log)
		}(pl.Device().ID())
	}

	log.Info("polling", "devices", len(pollers), "channels", len(p.Channels))
	<-ctx.Done()
	wg.Wait()
	log.Info("stopped")
	return nil
}

// orchestrate owns the status of one device: it folds poll results into it,
// ticks seconds-in-error at 1 Hz and delivers every snapshot.
func orchestrate(ctx context.Context, id string, results <-chan poller.PollResult, out writer.Writer, log *slog.Logger) {
	tracker := status.NewTracker(id)

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	// Initial write so consumers see the device before its first poll.
	if err := out.Write(tracker.Snapshot()); err != nil {
		log.Warn("status write failed on start", "device", id, "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-results:
			snap, changed := tracker.Observe(res)
			if changed && res.Err != nil {
				log.Warn("poll failed", "device", id, "code", snap.LastErrorCode, "err", res.Err)
			}
			if err := out.Write(snap); err != nil {
				log.Warn("writer error", "device", id, "err", err)
			}

		case <-secTicker.C:
			// Tick 1 Hz while not OK.
			if tracker.Tick() {
				if err := out.Write(tracker.Snapshot()); err != nil {
					log.Warn("status seconds tick write failed", "device", id, "err", err)
				}
			}
		}
	}
}

func loadCatalog(path string, log *slog.Logger) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	cat, warns, err := catalog.LoadFile(path)
	if err != nil {
		return nil, err
	}
	for _, w := range warns {
		log.Warn("register table entry skipped", "version", w.Version, "name", w.Name, "reason", w.Reason)
	}
	return cat, nil
}
