package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sagarc03/storegate"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <container> <local-path> [object]",
	Short: "Upload a file into a container",
	Long: `Stream a local file into <container>. The object name defaults to the
file's base name. Use "-" as <local-path> to read from stdin, in which case
[object] is required.

Empty payloads are rejected.

Examples:
  storegate upload uploads ./report.pdf
  storegate upload uploads ./report.pdf reports/2025/report.pdf
  tar cz ./logs | storegate upload backups - logs.tar.gz`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	container, localPath := args[0], args[1]

	object := filepath.Base(localPath)
	if len(args) == 3 {
		object = args[2]
	} else if localPath == "-" {
		return fmt.Errorf("upload: %w: object name is required when reading from stdin", storegate.ErrInvalidInput)
	}

	var payload io.Reader = os.Stdin
	if localPath != "-" {
		f, err := os.Open(localPath)
		if err != nil {
			return fmt.Errorf("open %s: %w", localPath, err)
		}
		defer func() { _ = f.Close() }()
		payload = f
	}

	service, cleanup, err := serviceFor(cmd, need{objects: true})
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := service.Upload(cmd.Context(), container, object, payload)
	if err != nil {
		return err
	}

	return getFormatter().FormatUpload(os.Stdout, result)
}
