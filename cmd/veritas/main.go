// veritas is the fact-check investigation server. It classifies a claim,
// gathers evidence through search, vision, and video agents, and streams an
// incremental verdict to the caller.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"veritas/internal/config"
	"veritas/internal/inference"
	"veritas/internal/logging"
	"veritas/internal/search"
	"veritas/internal/server"
	"veritas/internal/store"
	"veritas/internal/swarm"
	"veritas/internal/video"
)

var (
	configPath string
	verbose    bool
	listenAddr string
)

var rootCmd = &cobra.Command{
	Use:   "veritas",
	Short: "Veritas Protocol - streaming multi-agent fact checker",
	Long: `Veritas Protocol accepts a claim as text, an image, or a video or
social media URL, runs a swarm of evidence-gathering agents over it, and
streams the investigation back as newline-delimited JSON ending in a
REAL / FAKE / UNVERIFIED verdict.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(verbose)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the investigation HTTP server",
	RunE:  serve,
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.Get(logging.CategoryBoot)
	log.Infow("starting veritas", "addr", cfg.Server.ListenAddr, "model", cfg.Inference.Model)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infClient, err := inference.NewGeminiClient(ctx, inference.GeminiConfig{
		APIKey:  cfg.Inference.APIKey,
		Model:   cfg.Inference.Model,
		Timeout: cfg.GetInferenceTimeout(),
	})
	if err != nil {
		return fmt.Errorf("inference client: %w", err)
	}

	var recorder swarm.Recorder
	var history server.HistoryLister
	if cfg.History.Enabled {
		h, err := store.Open(cfg.History.DatabasePath)
		if err != nil {
			return fmt.Errorf("history store: %w", err)
		}
		defer h.Close()
		recorder = h
		history = h
	}

	orch := swarm.NewOrchestrator(swarm.Providers{
		Search: search.NewClient(search.Config{
			BaseURL:    cfg.Search.BaseURL,
			MaxResults: cfg.Search.MaxResults,
			MaxRetries: cfg.Search.MaxRetries,
			Timeout:    cfg.GetSearchTimeout(),
		}),
		Video: video.NewClient(video.Config{
			OEmbedBaseURL:    cfg.Video.OEmbedBaseURL,
			TimedTextBaseURL: cfg.Video.TimedTextBaseURL,
			TranscriptLimit:  cfg.Video.TranscriptLimit,
			Timeout:          cfg.GetVideoTimeout(),
		}),
		Inference: infClient,
		Images:    swarm.NewHTTPImageFetcher(10*time.Second, int64(cfg.Server.MaxUploadMB)<<20),
	}, recorder, swarm.Config{
		HeartbeatInterval: cfg.GetHeartbeatInterval(),
		EventBuffer:       cfg.Swarm.EventBuffer,
	})

	srv := server.New(cfg, orch, history)
	if err := srv.Serve(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	log.Infow("shutdown complete")
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "veritas.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "addr", "", "Listen address override")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
