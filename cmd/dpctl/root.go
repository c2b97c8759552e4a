package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/nucleus/dp-connector/internal/config"
	"github.com/nucleus/dp-connector/pkg/donorperfect"
)

// app carries the persistent flags and the lazily built client.
type app struct {
	envFile string
	json    bool
	verbose bool
	trace   bool

	cfg      *config.ClientConfig
	client   *donorperfect.Client
	logger   *slog.Logger
	shutdown func(context.Context) error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:               "dpctl <command> [flags]",
		Short:             "DonorPerfect XML API client",
		Long:              `Query, call and export DonorPerfect data from the command line.`,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.shutdown == nil {
				return nil
			}
			return a.shutdown(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", "", "Load DP_ variables from this file (default .env)")
	cmd.PersistentFlags().BoolVar(&a.json, "json", false, "Print records as JSON")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log every API call to stderr")
	cmd.PersistentFlags().BoolVar(&a.trace, "trace", false, "Print trace spans to stderr")

	cmd.AddCommand(NewSQLCmd(a))
	cmd.AddCommand(NewCallCmd(a))
	cmd.AddCommand(NewProceduresCmd(a))
	cmd.AddCommand(NewTablesCmd(a))
	cmd.AddCommand(NewColumnsCmd(a))
	cmd.AddCommand(NewRowCountsCmd(a))
	cmd.AddCommand(NewDonorCmd(a))
	cmd.AddCommand(NewDonorsCmd(a))
	cmd.AddCommand(NewCodesCmd(a))
	cmd.AddCommand(NewExportCmd(a))

	return cmd
}

// connect loads configuration and builds the client on first use.
func (a *app) connect() (*donorperfect.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	cfg, err := config.LoadClientConfig(a.envFile)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := []donorperfect.Option{donorperfect.WithLogger(a.logger)}
	if cfg.CatalogFile != "" {
		catalog, err := donorperfect.LoadCatalogFile(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, donorperfect.WithCatalog(catalog))
	}
	if a.trace {
		tp, err := newTracerProvider(os.Stderr)
		if err != nil {
			return nil, err
		}
		a.shutdown = tp.Shutdown
		opts = append(opts, donorperfect.WithTracerProvider(tp))
	}

	client, err := donorperfect.New(cfg.DonorPerfect(), opts...)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	a.client = client
	return client, nil
}

func newTracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)), nil
}
