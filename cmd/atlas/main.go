package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/fra-atlas/internal/api"
	"github.com/joeblew999/fra-atlas/internal/server"
)

// Options defines all CLI flags and env vars for the atlas server.
// Flags: --host, --port, --data-dir, --log-level, --seed, --uploads-per-minute
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, ...
type Options struct {
	Host             string `doc:"Host to bind to" default:"0.0.0.0"`
	Port             int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir          string `doc:"Directory for the DuckDB file; empty keeps claims in memory" default:""`
	LogLevel         string `doc:"Log level (debug, info, warn, error)" default:"info"`
	Seed             int    `doc:"Seed for random layer colors; 0 seeds from the clock" default:"0"`
	UploadsPerMinute int    `doc:"Layer uploads allowed per minute; 0 disables the limit" default:"30"`
}

func newLogger(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	return config.Build()
}

func newServer(opts *Options, log *zap.Logger) (*server.Server, error) {
	return server.New(server.Config{
		Host:        opts.Host,
		Port:        fmt.Sprintf("%d", opts.Port),
		DataDir:     opts.DataDir,
		Seed:        uint64(opts.Seed),
		UploadRate:  float64(opts.UploadsPerMinute) / 60,
		UploadBurst: max(opts.UploadsPerMinute/6, 1),
		Logger:      log,
	})
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	// A missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		log, err := newLogger(opts.LogLevel)
		if err != nil {
			fatal("%v", err)
		}
		srv, err := newServer(opts, log)
		if err != nil {
			fatal("Error starting server: %v", err)
		}
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
			Handler:           srv,
			ReadHeaderTimeout: 10 * time.Second,
		}

		hooks.OnStart(func() {
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("fra-atlas server starting...\n")
			fmt.Printf("  Atlas:   %s/\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal("server error", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(ctx)
			srv.Close()
			log.Sync()
		})
	})

	cli.Root().Use = "atlas"
	cli.Root().Short = "Forest rights claim atlas"
	cli.Root().Version = api.Version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newServer(opts, zap.NewNop())
			if err != nil {
				fatal("Error building server: %v", err)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal("Error marshaling spec: %v", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	cli.Root().AddCommand(landUseCmd(), changesCmd())

	cli.Run()
}
