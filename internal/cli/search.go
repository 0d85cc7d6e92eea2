package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/i474232898/sky-diorama/internal/search"
	"github.com/i474232898/sky-diorama/internal/weather"
)

// NewSearchCmd creates the search command
func NewSearchCmd() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search for cities by name",
		Long: `Search for cities by name and print up to five candidates.

With --interactive, every line read from stdin is treated as a keystroke in a
search box: lookups only run after the input has been quiet for the configured
debounce delay.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if interactive {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			if interactive {
				return runInteractiveSearch(cmd.Context(), app, cmd.InOrStdin(), out)
			}

			query := strings.Join(args, " ")
			printResults(out, query, app.Weather.SearchCities(cmd.Context(), query))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "read queries from stdin and debounce them")
	return cmd
}

func runInteractiveSearch(ctx context.Context, app *App, in io.Reader, out io.Writer) error {
	results := make(chan string, 1)
	d := search.NewDebouncer(ctx, app.Config.SearchDebounce, app.Weather.SearchCities,
		func(query string, found []weather.GeocodingResult) {
			var b strings.Builder
			printResults(&b, query, found)
			select {
			case results <- b.String():
			case <-ctx.Done():
			}
		})
	defer d.Stop()

	done := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			d.Type(scanner.Text())
		}
		d.Flush()
		done <- scanner.Err()
	}()

	for {
		select {
		case r := <-results:
			fmt.Fprint(out, r)
		case err := <-done:
			// Flush runs synchronously, so its output is already queued.
			select {
			case r := <-results:
				fmt.Fprint(out, r)
			default:
			}
			return err
		case <-ctx.Done():
			return nil
		}
	}
}

func printResults(out io.Writer, query string, results []weather.GeocodingResult) {
	if len(results) == 0 {
		fmt.Fprintf(out, "No cities found for %q\n", query)
		return
	}
	fmt.Fprintf(out, "Results for %q:\n", query)
	for i, r := range results {
		place := r.Name
		if r.Admin1 != "" {
			place += ", " + r.Admin1
		}
		if r.Country != "" {
			place += ", " + r.Country
		}
		fmt.Fprintf(out, "  %d. %s (%.4f, %.4f)\n", i+1, place, r.Latitude, r.Longitude)
	}
}
