package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/i474232898/sky-diorama/internal/diorama"
	"github.com/i474232898/sky-diorama/internal/weather"
)

// NewPromptCmd creates the prompt command
func NewPromptCmd() *cobra.Command {
	var (
		country     string
		condition   string
		temperature int
		night       bool
	)

	cmd := &cobra.Command{
		Use:   "prompt <city>",
		Short: "Print the image prompt for a city and weather",
		Long: `Print the image prompt that would be sent for a city and weather, without
calling any upstream.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cond := weather.Condition(strings.ToLower(condition))
			if !cond.Valid() {
				return fmt.Errorf("unknown condition %q", condition)
			}
			city := strings.Join(args, " ")
			fmt.Fprintln(cmd.OutOrStdout(), diorama.BuildPrompt(city, country, cond, temperature, !night))
			return nil
		},
	}

	cmd.Flags().StringVar(&country, "country", "", "country name")
	cmd.Flags().StringVar(&condition, "condition", string(weather.ConditionSunny), "weather condition")
	cmd.Flags().IntVar(&temperature, "temp", 20, "temperature in °C")
	cmd.Flags().BoolVar(&night, "night", false, "render a night scene")
	return cmd
}

// NewGenerateCmd creates the generate command
func NewGenerateCmd() *cobra.Command {
	var (
		lat, lon float64
		outDir   string
	)

	cmd := &cobra.Command{
		Use:   "generate [city]",
		Short: "Generate a weather diorama and save it to disk",
		Long: `Generate an isometric diorama of a city showing its current weather.

The city is selected the same way as in the weather command. The image is
cached and also written to --out as skydiorama-<city>-<timestamp>.<ext>.
A Gemini API key is required: set GEMINI_API_KEY or run 'sky-diorama key set'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			useCoords := cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon")
			if !useCoords && len(args) == 0 {
				return fmt.Errorf("provide a city name or --lat and --lon")
			}

			app, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			loc, snap, err := selectCity(cmd.Context(), app, args, useCoords, lat, lon)
			if err != nil {
				return err
			}
			printWeather(out, loc, snap)

			fmt.Fprintln(out, "Generating diorama...")
			meta, err := app.Dioramas.Generate(cmd.Context(), loc.ID)
			if err != nil {
				return err
			}

			art, err := app.Dioramas.Image(cmd.Context(), loc.ID)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output dir: %w", err)
			}
			path := filepath.Join(outDir, art.Filename)
			if err := os.WriteFile(path, art.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write image: %w", err)
			}

			fmt.Fprintf(out, "Saved %s\n", path)
			if meta.AltText != "" {
				fmt.Fprintf(out, "  %s\n", meta.AltText)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	cmd.MarkFlagsRequiredTogether("lat", "lon")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write the image to")
	return cmd
}
