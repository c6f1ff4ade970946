package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"petrovisor/internal/blob"
	"petrovisor/pkg/petrovisor"
)

func newFilesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage workspace files and mirror them to other stores",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List workspace file names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			names, err := c.Files().Names(cmd.Context())
			if err != nil {
				return err
			}
			return a.printNames(cmd, "File", names)
		},
	})

	var getOut string
	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Download a workspace file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			data, err := c.Files().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if getOut == "" || getOut == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(getOut, data, 0o644)
		},
	}
	get.Flags().StringVar(&getOut, "out", "", "write to this path instead of stdout")
	cmd.AddCommand(get)

	var uploadName string
	upload := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			name := uploadName
			if name == "" {
				name = filepath.Base(args[0])
			}
			fh, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer fh.Close()
			if err := c.Files().UploadReader(cmd.Context(), name, fh); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", name)
			return err
		},
	}
	upload.Flags().StringVar(&uploadName, "name", "", "workspace file name (default the base name)")
	cmd.AddCommand(upload)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a workspace file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.Files().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return err
		},
	})

	var prefix string
	mirror := &cobra.Command{
		Use:   "mirror <src> <dst>",
		Short: "Copy objects between stores",
		Long: `Copies every object of src under --prefix to dst, skipping objects
whose size already matches. Stores are URLs:

  petrovisor://                  files of the workspace
  s3://bucket/prefix?region=...  S3 or an S3 compatible endpoint
  file:///dir or a plain path    local directory
  mem://                         in-memory store`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.store(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			dst, err := a.store(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			n, err := blob.Mirror(cmd.Context(), dst, src, prefix)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "copied %d objects from %s to %s\n", n, src.Driver(), dst.Driver())
			return err
		},
	}
	mirror.Flags().StringVar(&prefix, "prefix", "", "only objects under this key prefix")
	cmd.AddCommand(mirror)
	return cmd
}

// store opens a blob store, connecting to the workspace only when the URL
// refers to it.
func (a *app) store(ctx context.Context, rawURL string) (blob.Store, error) {
	var c *petrovisor.Client
	if strings.HasPrefix(rawURL, "petrovisor://") || strings.HasPrefix(rawURL, "pv://") {
		var err error
		if c, err = a.connect(ctx); err != nil {
			return nil, err
		}
	}
	return blob.Open(ctx, rawURL, c)
}
