package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nucleus/dp-connector/pkg/donorperfect"
)

func NewTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List user tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.connect()
			if err != nil {
				return err
			}
			records, err := client.Tables(cmd.Context())
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), records, a.json)
		},
	}
}

func NewColumnsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "columns <table>",
		Short: "Describe the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.connect()
			if err != nil {
				return err
			}
			records, err := client.Columns(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), records, a.json)
		},
	}
}

func NewRowCountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "row-counts",
		Short: "Count the rows of every user table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.connect()
			if err != nil {
				return err
			}
			records, err := client.TableRowCounts(cmd.Context())
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), records, a.json)
		},
	}
}

func NewDonorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "donor <id>",
		Short: "Show one donor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("donor id %q is not an integer", args[0])
			}
			client, err := a.connect()
			if err != nil {
				return err
			}
			donor, ok, err := client.Donor(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("donor %d not found", id)
			}
			return printResult(cmd.OutOrStdout(), donorperfect.RecordResult{Record: donor}, a.json)
		},
	}
}

func NewDonorsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "donors",
		Short: "List active donors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.connect()
			if err != nil {
				return err
			}
			records, err := client.ListDonors(cmd.Context())
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), records, a.json)
		},
	}
}

func NewCodesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "codes <field>",
		Short:   "List the code values of a field",
		Example: "  dpctl codes GL_CODE",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.connect()
			if err != nil {
				return err
			}
			records, err := client.FieldValues(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), records, a.json)
		},
	}
}
