package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/i474232898/sky-diorama/internal/cli"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "sky-diorama",
		Short: "Weather-driven isometric city dioramas",
		Long: `SkyDiorama - look up the current weather for a city and turn it into an
isometric miniature diorama with an image generation model.

Cities, weather and diorama metadata are saved between runs. Generated images
are cached per city.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands
	rootCmd.AddCommand(cli.NewServeCmd())
	rootCmd.AddCommand(cli.NewSearchCmd())
	rootCmd.AddCommand(cli.NewWeatherCmd())
	rootCmd.AddCommand(cli.NewCitiesCmd())
	rootCmd.AddCommand(cli.NewPromptCmd())
	rootCmd.AddCommand(cli.NewGenerateCmd())
	rootCmd.AddCommand(cli.NewCacheCmd())
	rootCmd.AddCommand(cli.NewKeyCmd())

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
