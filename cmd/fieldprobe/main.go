// fieldprobe connects to the gateway like a field device would: it holds
// a realtime connection, prints incoming events, and drops to REST
// polling when the realtime path fails for good.
//
// Usage: go run ./cmd/fieldprobe --url http://localhost:8080 --token <jwt> --farm 1
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nabekah/farmkonnect-production-sub012/internal/api"
	"github.com/nabekah/farmkonnect-production-sub012/internal/client"
	"github.com/nabekah/farmkonnect-production-sub012/internal/event"
	"github.com/nabekah/farmkonnect-production-sub012/internal/poller"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "gateway base URL")
	token := flag.String("token", "", "credential token")
	farmID := flag.Int64("farm", 1, "farm id for the polling fallback")
	pollInterval := flag.Duration("poll", 30*time.Second, "polling fallback interval")
	verbose := flag.Bool("verbose", false, "print full event JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *token == "" {
		logger.Error("a credential token is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	wsURL := "ws" + strings.TrimPrefix(*baseURL, "http") + "/ws"
	cfg := client.DefaultManagerConfig(wsURL, func(ctx context.Context) (string, error) {
		return *token, nil
	})

	mgr := client.NewManager(cfg, logger)
	registerPrinters(mgr, *verbose)

	// The polling fallback starts only when the realtime path gives up.
	restClient := api.NewClient(*baseURL, *token, api.WithLogger(logger))
	p := poller.New(
		poller.Config{Interval: *pollInterval},
		restClient,
		*farmID,
		func(collection string, data []byte) {
			fmt.Printf("[POLL %s] %s\n", strings.ToUpper(collection), data)
		},
		logger,
	)

	var pollOnce sync.Once
	mgr.OnStateChange(func(old, new client.State) {
		fmt.Printf("[STATE] %s -> %s\n", old, new)
		if new == client.StateFailedPermanent {
			pollOnce.Do(func() {
				logger.Info("realtime path failed, starting polling fallback")
				p.Start(ctx)
			})
		}
	})

	if err := mgr.Start(ctx); err != nil {
		logger.Error("failed to start connection manager", "error", err)
		os.Exit(1)
	}

	logger.Info("fieldprobe running - press Ctrl+C to stop")
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	mgr.Stop(shutdownCtx)
	p.Stop(shutdownCtx)
	logger.Info("shutdown complete")
}

// registerPrinters subscribes console printers for every event the
// gateway can push.
func registerPrinters(mgr *client.Manager, verbose bool) {
	types := []event.Type{
		event.TypeConnectionEstablished,
		event.TypeTaskAssigned,
		event.TypeActivityApproved,
		event.TypeActivityRejected,
		event.TypeActivityUpdate,
		event.TypeLocationUpdate,
		event.TypeUrgentAlert,
		event.TypeWeatherAlert,
		event.TypeEquipmentAlert,
		event.TypeExpenseCreated,
		event.TypeExpenseUpdated,
		event.TypeRevenueCreated,
		event.TypeRevenueUpdated,
		event.TypeFinancialRefresh,
		event.TypePong,
	}
	for _, t := range types {
		mgr.On(t, func(env event.Envelope) { printEvent(env, verbose) })
	}
}

func printEvent(env event.Envelope, verbose bool) {
	tag := strings.ToUpper(string(env.Type))
	if verbose {
		data, _ := json.MarshalIndent(env, "", "  ")
		fmt.Printf("[%s] %s\n", tag, data)
		return
	}
	at := time.UnixMilli(env.Timestamp).Format(time.TimeOnly)
	fmt.Printf("[%s] at=%s data=%s\n", tag, at, env.Data)
}
