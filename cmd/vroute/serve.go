package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/vroute/internal/config"
	"github.com/vango-dev/vroute/internal/devserver"
	"github.com/vango-dev/vroute/pkg/lazy"
	"github.com/vango-dev/vroute/pkg/navmetrics"
)

func serveCmd(flags *projectFlags) *cobra.Command {
	var (
		port  int
		host  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the development server",
		Long: `Start a server that renders the route manifest in real browsers.

Each browser tab gets its own router over a WebSocket; the page shell
is served for every path a route matches.

Features:
  • Manifest reload on file change (--watch)
  • Lazy modules from a directory or an S3 bucket
  • Prometheus metrics at the configured metrics path

Examples:
  vroute serve
  vroute serve --port=8080 --watch
  vroute serve --host=0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject(flags)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if watch {
				cfg.Server.Watch = true
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from vroute.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from vroute.json)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the manifest when it changes")

	return cmd
}

func runServe(cfg *config.Config) error {
	logger := newLogger(os.Stderr, cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := prometheus.NewRegistry()
	server, err := devserver.New(devserver.Options{
		Config:   cfg,
		Logger:   logger,
		Recorder: navmetrics.New(navmetrics.WithRegistry(registry)),
		Gatherer: registry,
		Loader:   moduleLoader(cfg),
	})
	if err != nil {
		return err
	}

	printBanner(os.Stdout)
	fmt.Println("  serve")
	fmt.Println()
	success(os.Stdout, "Serving %s", cfg.URL())
	info(os.Stdout, "Manifest: %s", cfg.ManifestPath())
	if cfg.Server.MetricsPath != "" {
		info(os.Stdout, "Metrics:  %s%s", cfg.URL(), cfg.Server.MetricsPath)
	}
	fmt.Println()

	if cfg.Server.Watch {
		go func() {
			if err := server.Watch(ctx, devserver.DefaultDebounce); err != nil {
				logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	fmt.Println("\n\n  Shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	return server.Shutdown(shutdownCtx)
}

// moduleLoader builds the lazy module source named by the config.
func moduleLoader(cfg *config.Config) lazy.Loader {
	switch cfg.Modules.Source {
	case config.ModulesS3:
		opts := s3.Options{
			Region:       cfg.Modules.Region,
			Credentials:  envCredentials(),
			UsePathStyle: cfg.Modules.Endpoint != "",
		}
		if cfg.Modules.Endpoint != "" {
			opts.BaseEndpoint = aws.String(cfg.Modules.Endpoint)
		}
		return lazy.NewS3Loader(s3.New(opts), cfg.Modules.Bucket, cfg.Modules.Prefix)
	default:
		return lazy.NewFSLoader(os.DirFS(cfg.ModulesPath()))
	}
}

// envCredentials reads static credentials from the standard AWS
// environment variables, falling back to anonymous access for public
// buckets.
func envCredentials() aws.CredentialsProvider {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.AnonymousCredentials{}
	}
	creds := aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "Environment",
	}
	return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return creds, nil
	})
}
