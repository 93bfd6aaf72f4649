package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dlvery/internal/signature"
)

func signatureCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "signature",
		Short: "Signature pad tools",
	}
	c.AddCommand(renderCmd())
	return c
}

func renderCmd() *cobra.Command {
	var file, out string
	var width, height int

	c := &cobra.Command{
		Use:   "render",
		Short: "Replay recorded strokes and write the signature PNG",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			var strokes [][]signature.Point
			if err := json.Unmarshal(raw, &strokes); err != nil {
				return fmt.Errorf("parse strokes: %w", err)
			}

			png, err := signature.Replay(width, height, strokes)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, png, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d strokes, %d bytes)\n", out, len(strokes), len(png))
			return nil
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "", "JSON array of strokes, each an array of {x,y} points (required)")
	c.Flags().StringVarP(&out, "out", "o", "signature.png", "Output PNG path")
	c.Flags().IntVar(&width, "width", signature.DefaultWidth, "Canvas width in pixels")
	c.Flags().IntVar(&height, "height", 0, "Canvas height in pixels (0 uses the pad default)")
	_ = c.MarkFlagRequired("file")
	return c
}
