package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/storegate/client"
)

var grantPutFile string

var grantCmd = &cobra.Command{
	Use:   "grant <container> <object>",
	Short: "Issue a write grant for an object",
	Long: `Issue a write-only access grant for <object> in <container>. The grant
expires ten minutes after issuance. The container must exist; the object
need not.

Examples:
  storegate grant uploads reports/q1.pdf
  storegate grant -q uploads avatar.png
  storegate grant --put ./q1.pdf uploads reports/q1.pdf`,
	Args: cobra.ExactArgs(2),
	RunE: runGrant,
}

func init() {
	grantCmd.Flags().StringVar(&grantPutFile, "put", "", "upload this local file through the issued grant")

	rootCmd.AddCommand(grantCmd)
}

func runGrant(cmd *cobra.Command, args []string) error {
	service, cleanup, err := serviceFor(cmd, need{objects: true})
	if err != nil {
		return err
	}
	defer cleanup()

	grant, err := service.IssueGrant(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}

	formatter := getFormatter()
	if err := formatter.FormatGrant(os.Stdout, grant); err != nil {
		return err
	}

	if grantPutFile == "" {
		return nil
	}

	f, err := os.Open(grantPutFile)
	if err != nil {
		return fmt.Errorf("open %s: %w", grantPutFile, err)
	}
	defer func() { _ = f.Close() }()

	uploader, err := client.New(endpoint)
	if err != nil {
		return err
	}

	etag, err := uploader.UploadWithGrant(cmd.Context(), grant.URI, f)
	if err != nil {
		return err
	}

	if !quiet && !jsonOutput {
		fmt.Printf("Uploaded through grant: %s\n", grant.Object)
		if etag != "" {
			fmt.Printf("  ETag: %s\n", etag)
		}
	}

	return nil
}
