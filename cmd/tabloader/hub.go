package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tabloader/tabloader/internal/pipeline"
)

func newFilesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "files <owner>/<dataset>",
		Short: "List the files of a hub dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, err := splitDataset(args[0])
			if err != nil {
				return err
			}

			client, err := c.hub(cmd.Context())
			if err != nil {
				return err
			}
			files, err := client.ListFiles(cmd.Context(), owner, name)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(files))
			for n := range files {
				names = append(names, n)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tSIZE")
			for _, n := range names {
				fmt.Fprintf(w, "%s\t%s\t%d\n", n, files[n].Type, files[n].Size)
			}
			return w.Flush()
		},
	}
}

func newDownloadCmd(c *cli) *cobra.Command {
	var (
		unpack bool
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "download <owner>/<dataset> [file]",
		Short: "Download every file of a hub dataset, or a single file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, err := splitDataset(args[0])
			if err != nil {
				return err
			}
			if dir != "" {
				c.cfg.Hub.DownloadDir = dir
			}

			p, cleanup, err := c.pipeline(cmd.Context(), false, true)
			if err != nil {
				return err
			}
			defer cleanup()

			req := pipeline.FetchRequest{Owner: owner, Dataset: name, Unpack: unpack}
			if len(args) == 2 {
				req.File = args[1]
			}

			paths, err := p.Fetch(cmd.Context(), req)
			if err != nil {
				return err
			}
			for _, path := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&unpack, "unpack", true, "Extract .zip archives and decompress .sz files")
	cmd.Flags().StringVar(&dir, "dir", "", "Directory to save files into (default from config)")
	return cmd
}
