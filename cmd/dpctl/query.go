package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nucleus/dp-connector/pkg/donorperfect"
)

func NewSQLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sql <query>",
		Short: "Run a SQL statement through the API",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.connect()
			if err != nil {
				return err
			}
			res, err := client.CallSQL(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res, a.json)
		},
	}
}

func NewCallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "call <procedure> [name=value...]",
		Short: "Call a catalog procedure",
		Long: `Call a procedure from the catalog. Arguments are name=value pairs
without the @ prefix; a value of NULL sends NULL.`,
		Example: "  dpctl call dp_donorsearch last_name=Smith",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			client, err := a.connect()
			if err != nil {
				return err
			}
			res, err := client.Procedure(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res, a.json)
		},
	}
}

func NewProceduresCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "procedures",
		Short: "List catalog procedures and their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.connect()
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), procedureRecords(client.Catalog()), a.json)
		},
	}
}

// parseParams reads name=value arguments.
func parseParams(args []string) (donorperfect.Params, error) {
	params := make(donorperfect.Params, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimPrefix(strings.TrimSpace(name), "@")
		if !ok || name == "" {
			return nil, fmt.Errorf("argument %q is not name=value", arg)
		}
		if value == "NULL" {
			params[name] = nil
			continue
		}
		params[name] = value
	}
	return params, nil
}

func procedureRecords(catalog *donorperfect.Catalog) []donorperfect.Record {
	names := catalog.Names()
	records := make([]donorperfect.Record, 0, len(names))
	for _, name := range names {
		proc, _ := catalog.Lookup(name)
		var params []string
		for _, rule := range proc.Params {
			if rule.Kind == donorperfect.KindLiteral {
				continue
			}
			params = append(params, rule.Name+":"+rule.Kind.String())
		}
		records = append(records, donorperfect.NewRecord(
			donorperfect.Field{Name: "procedure", Value: name},
			donorperfect.Field{Name: "params", Value: strings.Join(params, " ")},
		))
	}
	return records
}
