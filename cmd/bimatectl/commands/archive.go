package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/bimate/backend/internal/infrastructure/storage"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const (
	archiveCmdUse     = "archive"
	archiveCmdShort   = "Inspect artifacts archived in object storage"
	archiveListUse    = "list [prefix]"
	archiveListShort  = "List archived artifacts, optionally under a key prefix"
	archiveURLUse     = "url <key>"
	archiveURLShort   = "Print a presigned download URL for an archived artifact"
	limitFlag         = "limit"
	limitUsage        = "maximum number of keys to list"
	defaultListLimit  = 50
	expiresFlag       = "expires"
	expiresUsage      = "lifetime of the URL, defaults to storage.presign_expires"
	archiveListMaxArg = 1
	archiveURLArgs    = 1
)

// NewArchiveCommand groups the archive subcommands.
func NewArchiveCommand(verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   archiveCmdUse,
		Short: archiveCmdShort,
	}
	cmd.AddCommand(newArchiveListCommand(verbose), newArchiveURLCommand(verbose))
	return cmd
}

func newArchiveListCommand(verbose *bool) *cobra.Command {
	var limit int32

	cmd := &cobra.Command{
		Use:   archiveListUse,
		Short: archiveListShort,
		Args:  cobra.MaximumNArgs(archiveListMaxArg),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}

			rt, err := newRuntime(*verbose)
			if err != nil {
				return err
			}
			defer rt.Close()

			archive, err := rt.archive()
			if err != nil {
				return err
			}
			objects, err := archive.List(cmd.Context(), prefix, limit)
			if err != nil {
				return err
			}
			writeObjects(cmd.OutOrStdout(), objects)
			return nil
		},
	}

	cmd.Flags().Int32Var(&limit, limitFlag, defaultListLimit, limitUsage)

	return cmd
}

func newArchiveURLCommand(verbose *bool) *cobra.Command {
	var expires time.Duration

	cmd := &cobra.Command{
		Use:   archiveURLUse,
		Short: archiveURLShort,
		Args:  cobra.ExactArgs(archiveURLArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(*verbose)
			if err != nil {
				return err
			}
			defer rt.Close()

			archive, err := rt.archive()
			if err != nil {
				return err
			}
			url, until, err := archive.DownloadURL(cmd.Context(), args[0], expires)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			fmt.Fprintf(cmd.ErrOrStderr(), "valid until %s\n", until.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().DurationVar(&expires, expiresFlag, 0, expiresUsage)

	return cmd
}

func writeObjects(w io.Writer, objects []storage.ArchivedObject) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Key", "Size", "Modified"})
	var total int64
	for _, o := range objects {
		tbl.AppendRow(table.Row{o.Key, o.Size, o.LastModified.Format(time.DateTime)})
		total += o.Size
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("%d objects", len(objects)), total, ""})
	tbl.Render()
}
