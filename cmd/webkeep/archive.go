package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/use-agent/webkeep/cleaner"
	"github.com/use-agent/webkeep/models"
)

func newArchiveCmd(a *app) *cobra.Command {
	var (
		dest   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "archive <url>",
		Short: "Archive one page and print where it was saved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.build(); err != nil {
				return err
			}

			res, err := a.archiver.Execute(cmd.Context(), args[0], dest)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				resp := models.NewArchiveResponse(args[0], res)
				resp.Document = ""
				resp.Tokens.DocumentEstimate = cleaner.EstimateTokens(res.Document)
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			fmt.Fprintf(out, "document: %s\n", res.DocumentPath)
			fmt.Fprintf(out, "images:   %d of %d saved\n", len(res.ImageFilenames), res.DiscoveredImages)
			for _, f := range res.ImageFilenames {
				fmt.Fprintf(out, "  %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dest, "dest", "d", models.DefaultDestination, "destination directory name or absolute path")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
