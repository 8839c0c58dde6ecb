package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:   "check <scene.bild>",
	Short: "Evaluate a scene without solving it",
	Long: `Evaluate a scene file, report any errors with their source location
and print a one-line summary of the grid, palette and constraints.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		source, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read scene: %w", err)
		}

		res := app.Check(string(source))
		out := cmd.OutOrStdout()
		if checkJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
		} else {
			for _, e := range res.Errors {
				fmt.Fprintf(out, "%s:%d:%d: %s\n", args[0], e.Line, e.Col, e.Message)
			}
			if len(res.Errors) == 0 {
				fmt.Fprintf(out, "%s: %s\n", args[0], res.Summary)
			}
		}
		if len(res.Errors) > 0 {
			return fmt.Errorf("%s: %d error(s)", args[0], len(res.Errors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "output as JSON")
}
