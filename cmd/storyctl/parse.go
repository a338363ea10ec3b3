package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"storyforge-api/internal/application/scriptparse"
)

func parseCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Preview how a script splits into scenes",
		Long: `Split a script file into scene blocks using the same rules as
POST /api/v1/projects/:pid/scripts/:sid/parse, without touching the database.

Pass "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readScript(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return writeBlocks(cmd.OutOrStdout(), scriptparse.Parse(content), asJSON)
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	return cmd
}

func readScript(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read script: %w", err)
	}
	return string(data), nil
}

func writeBlocks(out io.Writer, blocks []scriptparse.Block, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(blocks)
	}

	if len(blocks) == 0 {
		fmt.Fprintln(out, "No scenes found")
		return nil
	}
	for i, b := range blocks {
		fmt.Fprintf(out, "%d. %s\n", i+1, b.Title)
		fmt.Fprintf(out, "   %s\n", b.Description)
	}
	fmt.Fprintf(out, "\n%d scenes\n", len(blocks))
	return nil
}
