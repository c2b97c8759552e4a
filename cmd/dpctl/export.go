package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nucleus/dp-connector/internal/sink"
	"github.com/nucleus/dp-connector/pkg/donorperfect"
)

// exportTarget is one dataset named on the export command line.
type exportTarget struct {
	dataset string
	field   string
}

func NewExportCmd(a *app) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "export <donors|codes:FIELD>...",
		Short: "Export datasets to Postgres or an S3 bucket",
		Long: `Export full snapshots of donor and code datasets.

The sink is a postgres:// DSN, written as dp_<dataset> tables, or an
s3://bucket/prefix URL, written as gzip JSON lines. It defaults to DP_SINK_DSN.`,
		Example: "  dpctl export donors codes:GL_CODE --sink postgres://localhost/warehouse",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := make([]exportTarget, len(args))
			for i, arg := range args {
				t, err := parseTarget(arg)
				if err != nil {
					return err
				}
				targets[i] = t
			}

			client, err := a.connect()
			if err != nil {
				return err
			}
			if dsn == "" {
				dsn = a.cfg.SinkDSN
			}
			if dsn == "" {
				return errors.New("no sink: pass --sink or set DP_SINK_DSN")
			}

			ctx := cmd.Context()
			s, err := sink.Open(ctx, dsn, a.logger)
			if err != nil {
				return err
			}
			defer s.Close()

			for _, t := range targets {
				records, err := t.fetch(ctx, client)
				if err != nil {
					return fmt.Errorf("fetch %s: %w", t.dataset, err)
				}
				if err := s.Write(ctx, t.dataset, records); err != nil {
					return fmt.Errorf("write %s: %w", t.dataset, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", keyStyle.Render(t.dataset), mutedStyle.Render(fmt.Sprintf("%d rows", len(records))))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "sink", "", "Destination DSN (postgres:// or s3://)")
	return cmd
}

// parseTarget maps "donors" and "codes:FIELD" onto dataset names such as
// codes_gl_code.
func parseTarget(arg string) (exportTarget, error) {
	if arg == "donors" {
		return exportTarget{dataset: "donors"}, nil
	}
	field, ok := strings.CutPrefix(arg, "codes:")
	if !ok || field == "" {
		return exportTarget{}, fmt.Errorf("unknown dataset %q: want donors or codes:FIELD", arg)
	}
	t := exportTarget{dataset: "codes_" + strings.ToLower(field), field: field}
	if err := sink.ValidateDataset(t.dataset); err != nil {
		return exportTarget{}, err
	}
	return t, nil
}

func (t exportTarget) fetch(ctx context.Context, client *donorperfect.Client) ([]donorperfect.Record, error) {
	if t.field == "" {
		return client.ListDonors(ctx)
	}
	return client.FieldValues(ctx, t.field)
}
