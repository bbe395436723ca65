package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tabloader/tabloader/internal/pipeline"
	"github.com/tabloader/tabloader/internal/query/compose"
	"github.com/tabloader/tabloader/internal/tabular"
)

func newHeadCmd(c *cli) *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "head <file>",
		Short: "Print the first lines of a file unaltered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rows <= 0 {
				rows = c.cfg.Files.HeadRows
			}
			lines, err := tabular.Head(args[0], rows)
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprint(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&rows, "rows", "n", 0, "Number of lines (default from config)")
	return cmd
}

func newLoadCmd(c *cli) *cobra.Command {
	var (
		table     string
		delimiter string
		skipRows  int
		noHeader  bool
		indexCol  int
	)

	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Load a delimited file into a table, creating it when missing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := tabular.ReadOptions{
				SkipRows: skipRows,
				Header:   !noHeader,
				IndexCol: indexCol,
			}
			if delimiter != "" {
				c.cfg.Files.Delimiter = delimiter
			}

			p, cleanup, err := c.pipeline(cmd.Context(), true, false)
			if err != nil {
				return err
			}
			defer cleanup()

			opts.Delimiter = c.cfg.Files.DelimiterRune()
			res, err := p.Load(cmd.Context(), pipeline.LoadRequest{Path: args[0], Table: table, Options: opts})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d rows into %s (%d columns, run %s)\n",
				res.Rows, res.Table, len(res.Columns), res.RunID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&table, "table", "t", "", "Target table")
	cmd.Flags().StringVarP(&delimiter, "delimiter", "d", "", "Field delimiter (default from config)")
	cmd.Flags().IntVar(&skipRows, "skip-rows", 0, "Lines to skip before parsing")
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "First parsed row is data, columns are named 0..n-1")
	cmd.Flags().IntVar(&indexCol, "index-col", tabular.NoIndex, "Position of the index column, -1 for none")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func newExtractCmd(c *cli) *cobra.Command {
	var (
		table   string
		columns string
		limit   int
		out     string
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Select columns from a table and save them to a delimited file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cleanup, err := c.pipeline(cmd.Context(), true, false)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := p.Extract(cmd.Context(), pipeline.ExtractRequest{
				Table:   table,
				Columns: splitList(columns),
				Limit:   limitFlag(limit),
				Path:    out,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&table, "table", "t", "", "Source table")
	cmd.Flags().StringVarP(&columns, "columns", "c", "", "Comma-separated columns to select")
	cmd.Flags().IntVarP(&limit, "limit", "l", -1, "Maximum rows, -1 for no limit")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("columns")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// limitFlag maps the --limit flag to a row limit; -1 means no limit.
func limitFlag(n int) compose.Limit {
	if n == -1 {
		return compose.NoLimit
	}
	return compose.LimitOf(n)
}
