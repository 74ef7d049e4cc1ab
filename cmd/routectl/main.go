// Command routectl runs the route planner from the command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/smartroute/smartroute/internal/bootstrap"
	"github.com/smartroute/smartroute/internal/config"
	"github.com/smartroute/smartroute/internal/planner"
	"github.com/smartroute/smartroute/pkg/polyline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "routectl",
		Short:        "Plan Turkish road trips from free-text prompts",
		Long:         "routectl parses a travel prompt, fetches route alternatives and adjusts their durations for holidays, weather and traffic.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv(config.EnvConfigPath), "path to a TOML config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newPlanCmd(opts),
		newEstimateCmd(opts),
		newHolidayCmd(opts),
		newPolylineCmd(),
	)
	return root
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <prompt>",
		Short: "Parse a prompt into a travel intent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.build(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			intent, err := app.Planner.AnalyzePrompt(cmd.Context(), promptText(args))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), intent)
		},
	}
}

func newPlanCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <prompt>",
		Short: "Plan ranked routes for a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.build(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			plan, err := app.Planner.PlanRoute(cmd.Context(), promptText(args))
			if plan != nil {
				if writeErr := writeJSON(cmd.OutOrStdout(), plan); writeErr != nil {
					return writeErr
				}
			}
			return err
		},
	}
}

func newEstimateCmd(opts *options) *cobra.Command {
	var from, to, date, clock string

	cmd := &cobra.Command{
		Use:     "estimate",
		Short:   "Estimate travel time between two coordinates",
		Example: `  routectl estimate --from 41.0082,28.9784 --to 39.9334,32.8597 --date 2026-10-29 --time 09:00`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			origin, err := parsePoint(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			dest, err := parsePoint(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			app, err := opts.build(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			est, err := app.Planner.Estimate(cmd.Context(), planner.EstimateRequest{
				FromLat: origin.Lat,
				FromLng: origin.Lng,
				ToLat:   dest.Lat,
				ToLng:   dest.Lng,
				Date:    date,
				Time:    clock,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), est)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "origin as lat,lng")
	cmd.Flags().StringVar(&to, "to", "", "destination as lat,lng")
	cmd.Flags().StringVar(&date, "date", "", "travel date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&clock, "time", "", "departure time (HH:MM)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newHolidayCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "holiday <date>",
		Short: "Show the holiday and weekend multiplier for a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.build(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			info := app.Planner.Holiday(args[0])
			if info == nil {
				return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				*planner.HolidayInfo
				TrafficLevel string `json:"trafficLevel"`
			}{info, planner.TrafficLevel(info.TrafficMultiplier)})
		},
	}
}

func newPolylineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "polyline",
		Short: "Encode or decode polylines",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "encode <lat,lng>...",
		Short: "Encode coordinates into a polyline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points := make([]polyline.Point, 0, len(args))
			for _, arg := range args {
				p, err := parsePoint(arg)
				if err != nil {
					return err
				}
				points = append(points, p)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), polyline.Encode(points))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "decode <polyline>",
		Short: "Decode a polyline and report its length",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := polyline.Decode(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				Points   []polyline.Point `json:"points"`
				LengthKm float64          `json:"lengthKm"`
			}{points, polyline.Length(points) / 1000})
		},
	})

	return cmd
}

func (o *options) build(cmd *cobra.Command) (*bootstrap.App, error) {
	level := zerolog.WarnLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		Level(level).
		With().
		Timestamp().
		Logger()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	return bootstrap.Build(cmd.Context(), bootstrap.Options{Config: cfg, Logger: log})
}

func promptText(args []string) string {
	return strings.Join(args, " ")
}

func parsePoint(s string) (polyline.Point, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return polyline.Point{}, fmt.Errorf("expected lat,lng, got %q", s)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return polyline.Point{}, fmt.Errorf("latitude %q: %w", lat, err)
	}
	ln, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return polyline.Point{}, fmt.Errorf("longitude %q: %w", lng, err)
	}
	return polyline.Point{Lat: la, Lng: ln}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
