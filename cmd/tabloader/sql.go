package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tabloader/tabloader/internal/query/compose"
)

func newSQLCmd(c *cli) *cobra.Command {
	var dialect string

	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Print composed SQL statements without touching a database",
	}
	cmd.PersistentFlags().StringVar(&dialect, "dialect", "", "SQL dialect: postgres or sqlite3 (default from database.driver)")

	resolve := func() (compose.Dialect, error) {
		name := dialect
		if name == "" {
			name = c.cfg.Database.Driver
		}
		d, ok := compose.DialectFor(name)
		if !ok {
			return nil, fmt.Errorf("unknown dialect: %s", name)
		}
		return d, nil
	}

	cmd.AddCommand(
		newSQLCreateCmd(resolve),
		newSQLInsertCmd(resolve),
		newSQLSelectCmd(resolve),
	)
	return cmd
}

func newSQLCreateCmd(resolve func() (compose.Dialect, error)) *cobra.Command {
	var columns []string

	cmd := &cobra.Command{
		Use:   "create <table>",
		Short: "Compose CREATE TABLE from name:type column pairs",
		Example: `  tabloader sql create people --column id:int64 --column name:object
  tabloader sql create events --column at:timestamp --column wait:interval`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolve()
			if err != nil {
				return err
			}

			names := make([]string, len(columns))
			typeNames := make([]string, len(columns))
			for i, col := range columns {
				idx := strings.LastIndex(col, ":")
				if idx < 0 {
					return fmt.Errorf("column %q must be given as name:type", col)
				}
				names[i], typeNames[i] = col[:idx], col[idx+1:]
			}

			stmt, err := compose.CreateTableFromTypes(d, args[0], names, typeNames)
			if err != nil {
				return err
			}
			return printStatement(cmd.OutOrStdout(), stmt)
		},
	}

	cmd.Flags().StringArrayVar(&columns, "column", nil, "Column as name:type, repeatable")
	return cmd
}

func newSQLInsertCmd(resolve func() (compose.Dialect, error)) *cobra.Command {
	var columns string

	cmd := &cobra.Command{
		Use:   "insert <table>",
		Short: "Compose a parameterized INSERT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolve()
			if err != nil {
				return err
			}
			stmt, err := compose.Insert(d, args[0], splitList(columns))
			if err != nil {
				return err
			}
			return printStatement(cmd.OutOrStdout(), stmt)
		},
	}

	cmd.Flags().StringVarP(&columns, "columns", "c", "", "Comma-separated columns")
	return cmd
}

func newSQLSelectCmd(resolve func() (compose.Dialect, error)) *cobra.Command {
	var (
		columns string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "select <table>",
		Short: "Compose a SELECT with an optional LIMIT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolve()
			if err != nil {
				return err
			}
			stmt, err := compose.Select(d, args[0], splitList(columns), limitFlag(limit))
			if err != nil {
				return err
			}
			return printStatement(cmd.OutOrStdout(), stmt)
		},
	}

	cmd.Flags().StringVarP(&columns, "columns", "c", "", "Comma-separated columns")
	cmd.Flags().IntVarP(&limit, "limit", "l", -1, "Maximum rows, -1 for no limit")
	return cmd
}

// printStatement writes the SQL text followed by one line per placeholder.
func printStatement(w io.Writer, stmt *compose.Statement) error {
	if _, err := fmt.Fprintln(w, stmt.SQL); err != nil {
		return err
	}
	for _, p := range stmt.Placeholders {
		if _, err := fmt.Fprintf(w, "  %s -> %s\n", p.Name, p.Column); err != nil {
			return err
		}
	}
	return nil
}
