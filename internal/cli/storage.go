package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/me/hackloud/pkg/hackloud"
	"github.com/me/hackloud/pkg/model"
	"github.com/spf13/cobra"
)

// findItem lists the user's storage and returns the item with id.
func findItem(ctx context.Context, id, token string) (model.StorageItem, error) {
	items, err := client.ListStorage(ctx, token)
	if err != nil {
		return model.StorageItem{}, describe("list storage", err)
	}
	it, ok := model.FindItem(items, id)
	if !ok {
		return model.StorageItem{}, fmt.Errorf("no file or folder with id %s", id)
	}
	return it, nil
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls [folder_id]",
		Aliases: []string{"list"},
		Short:   "List folders and files",
		Long:    "List every folder, and the files at the root or inside folder_id.",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tok, err := requireSession(ctx)
			if err != nil {
				return err
			}
			items, err := client.ListStorage(ctx, tok)
			if err != nil {
				return describe("list storage", err)
			}
			folderID := ""
			if len(args) == 1 {
				folderID = args[0]
				if it, ok := model.FindItem(items, folderID); !ok || !it.IsFolder() {
					return fmt.Errorf("no folder with id %s", folderID)
				}
			}

			listing := append(model.Folders(items), model.FilesIn(items, folderID)...)
			return render(cmd.OutOrStdout(), listing, func(w io.Writer) error {
				if len(listing) == 0 {
					fmt.Fprintln(w, "No files found.")
					return nil
				}
				tw := newTable(w)
				fmt.Fprintln(tw, "ID\tTYPE\tNAME\tSIZE\tMODIFIED\tSHARED")
				for _, it := range listing {
					shared := ""
					if it.IsShared() {
						shared = "yes"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						it.ID, it.Type, it.Name, size(it), humanize.Time(it.ModifiedAt), shared)
				}
				return tw.Flush()
			})
		},
	}
}

func newMkdirCmd() *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "mkdir <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tok, err := requireSession(ctx)
			if err != nil {
				return err
			}
			id, err := client.CreateFolder(ctx, hackloud.CreateFolderInput{Name: args[0], FolderID: parent}, tok)
			if err != nil {
				return describe("create folder", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Folder created: %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "Parent folder id")
	return cmd
}

func newUploadCmd() *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tok, err := requireSession(ctx)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return fmt.Errorf("stat %s: %w", args[0], err)
			}

			id, err := client.UploadFile(ctx, f.Name(), f, folder, tok)
			if err != nil {
				return describe("upload", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%s): %s\n", info.Name(), humanize.Bytes(uint64(info.Size())), id)
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "Destination folder id")
	return cmd
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <new_name>",
		Short: "Rename a file or folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tok, err := requireSession(ctx)
			if err != nil {
				return err
			}
			it, err := findItem(ctx, args[0], tok)
			if err != nil {
				return err
			}
			if err := client.RenameItem(ctx, it.Type, it.ID, args[1], tok); err != nil {
				return describe("rename", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", it.Name, args[1])
			return nil
		},
	}
}

func newRemoveCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a file, or a folder with everything in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tok, err := requireSession(ctx)
			if err != nil {
				return err
			}
			it, err := findItem(ctx, args[0], tok)
			if err != nil {
				return err
			}
			if !confirmDelete(cmd, yes, fmt.Sprintf("%s %q", it.Type, it.Name)) {
				return nil
			}
			if err := client.DeleteItem(ctx, it.Type, it.ID, tok); err != nil {
				return describe("delete", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", it.Name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
