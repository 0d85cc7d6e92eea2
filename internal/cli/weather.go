package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/i474232898/sky-diorama/internal/weather"
)

// NewWeatherCmd creates the weather command
func NewWeatherCmd() *cobra.Command {
	var lat, lon float64

	cmd := &cobra.Command{
		Use:   "weather [city]",
		Short: "Show current weather for a city or coordinates",
		Long: `Show current weather for a city.

The first search result is selected and saved as the current city. With --lat
and --lon the coordinates are reverse geocoded instead; when that lookup fails
the place is saved as "Current Location".`,
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

			loc, snap, err := selectCity(cmd.Context(), app, args, useCoords, lat, lon)
			if err != nil {
				return err
			}
			printWeather(cmd.OutOrStdout(), loc, snap)
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	cmd.MarkFlagsRequiredTogether("lat", "lon")
	return cmd
}

// NewCitiesCmd creates the cities command
func NewCitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cities",
		Short: "List saved cities",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			cur, _ := app.State.Current()
			cities := app.State.Cities()
			if len(cities) == 0 {
				fmt.Fprintln(out, "No saved cities")
				return nil
			}
			for _, c := range cities {
				marker := " "
				if c.ID == cur.ID {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-24s %-20s %s\n", marker, c.ID, c.Name, c.Country)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a saved city with its weather and diorama metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if !app.State.RemoveCity(args[0]) {
				return fmt.Errorf("no saved city with id %q", args[0])
			}
			if err := app.Dioramas.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	})
	return cmd
}

// selectCity picks the first search match, or reverse geocodes coordinates.
func selectCity(ctx context.Context, app *App, args []string, useCoords bool, lat, lon float64) (weather.Location, weather.WeatherSnapshot, error) {
	if useCoords {
		return app.Weather.Locate(ctx, lat, lon)
	}

	query := strings.Join(args, " ")
	results := app.Weather.SearchCities(ctx, query)
	if len(results) == 0 {
		return weather.Location{}, weather.WeatherSnapshot{}, fmt.Errorf("no cities found for %q", query)
	}
	return app.Weather.Select(ctx, results[0])
}

func printWeather(out io.Writer, loc weather.Location, snap weather.WeatherSnapshot) {
	place := loc.Name
	if loc.Country != "" {
		place += ", " + loc.Country
	}
	fmt.Fprintf(out, "%s %s\n", snap.Icon, place)
	fmt.Fprintf(out, "  %s, %d°C (feels like %d°C)\n", snap.Description, snap.Temperature, snap.FeelsLike)
	fmt.Fprintf(out, "  Humidity %.0f%%, wind %d km/h\n", snap.Humidity, snap.WindSpeed)
	fmt.Fprintf(out, "  Updated %s\n", snap.UpdatedAt.Local().Format("2006-01-02 15:04"))
}
