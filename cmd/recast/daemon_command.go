package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"recast/internal/api"
	"recast/internal/captions"
	"recast/internal/daemon"
	"recast/internal/generate"
	"recast/internal/logging"
	"recast/internal/mediafetch"
	"recast/internal/pipeline"
	"recast/internal/proxy"
	"recast/internal/quota"
	"recast/internal/services/assemblyai"
	"recast/internal/services/gemini"
	"recast/internal/services/metadata"
	"recast/internal/store"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the recast daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(ctx)
		},
	}
}

func runDaemonProcess(ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("recast-%s.log", runID))
	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return err
	}
	defer st.Close()

	proxies := proxy.NewPool(cfg.Proxies, time.Now().UnixNano())

	captionClient := captions.NewClient(cfg.Captions, proxies)
	titleClient := metadata.NewClient(cfg.Metadata)
	acquirer := captions.NewAcquirer(captionClient, titleClient, cfg.Captions.PreferredLanguages, logger)

	fetcher := mediafetch.NewFetcher(cfg.MediaFetch, cfg.Paths.WorkDir, proxies, logger)
	transcriber := assemblyai.NewClient(cfg.Transcription)
	fanout := generate.NewFanOut(gemini.NewClient(cfg.Generation), logger)

	orchestrator := pipeline.NewOrchestrator(st, acquirer, fetcher, transcriber, fanout, logger)
	manager := pipeline.NewManager(cfg, st, orchestrator, logger)

	guard := quota.NewGuard(st, cfg.Quota)
	service := api.NewService(st, guard, fanout, logger)

	d, err := daemon.New(cfg, st, service, manager, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Stop()

	if err := d.Start(signalCtx); err != nil {
		return err
	}
	if addr := d.Addr(); addr != "" {
		fmt.Fprintf(os.Stdout, "recast daemon listening on %s\n", addr)
	}

	<-signalCtx.Done()
	logger.Info("recast daemon shutting down")
	return nil
}
