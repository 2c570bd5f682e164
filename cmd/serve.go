package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/cairnkernel/internal/bus"
	"github.com/nextlevelbuilder/cairnkernel/internal/httpapi"
	"github.com/nextlevelbuilder/cairnkernel/internal/workermanager"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Worker Manager and HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

// runServe wires the Store, Worker Manager, event bus, and HTTP surface
// together and blocks until SIGINT/SIGTERM, mirroring the teacher's
// runGateway: graceful-shutdown goroutine, then block on the listener.
func runServe() error {
	logger := setupLogging()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	workerExe := cfg.Worker.Exe
	if workerExe == "" {
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve worker executable: %w", err)
		}
		workerExe = self
	}
	workerArgs := append(append([]string{}, cfg.Worker.Args...), "worker")

	// Lifecycle events feed the debug ring GET /v1/debug serves — the HTTP
	// surface's only consumer of the bus (SPEC_FULL.md §4.C).
	msgBus := bus.New()
	msgBus.Subscribe("debug-ring", func(event bus.Event) {
		_ = st.AddDebugMessage(fmt.Sprintf("%s %v", event.Name, event.Payload))
	})

	manager := workermanager.New(st, msgBus, workerExe, workerArgs, cfg.Worker.LogDir, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go manager.MonitorLoop(ctx)

	handler := httpapi.NewHandler(
		httpapi.NewTasksHandler(st, manager),
		httpapi.NewDebugHandler(st),
		cfg.Server.Token,
	)
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: handler.Mux(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("cairnkernel: graceful shutdown initiated", "signal", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
		manager.Cleanup(context.Background())
		cancel()
	}()

	logger.Info("cairnkernel: serving", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
