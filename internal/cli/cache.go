package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear cached dioramas",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache size and item count",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			stats := app.Dioramas.Stats(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Size:  %s\nItems: %d\n", stats.Size, stats.Count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached diorama image",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Dioramas.ClearAll(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	})
	return cmd
}

// NewKeyCmd creates the key command
func NewKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the saved Gemini API key",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <api-key>",
		Short: "Save a Gemini API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			app.State.SetAPIKey(args[0])
			app.State.SetUseCustomKey(true)
			fmt.Fprintln(cmd.OutOrStdout(), "API key saved")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget the saved Gemini API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			app.State.SetAPIKey("")
			app.State.SetUseCustomKey(false)
			fmt.Fprintln(cmd.OutOrStdout(), "API key cleared")
			return nil
		},
	})
	return cmd
}
