package transits

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shipnoise/shipnoise-go/internal/conf"
	"github.com/shipnoise/shipnoise-go/internal/logging"
	"github.com/shipnoise/shipnoise-go/internal/pipeline"
)

// Command creates the transits command, extracting vessel transits from one
// station-day of raw AIS captures.
func Command(settings *conf.Settings) *cobra.Command {
	var site, date string

	cmd := &cobra.Command{
		Use:   "transits",
		Short: "Extract vessel transits from raw AIS captures",
		Long:  "Read a station-day of raw AIS position reports and write the qualified transits table.",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := pipeline.New(settings, nil, logging.ForService("transits"))
			return runner.RunTransits(cmd.Context(), site, date)
		},
	}

	cmd.Flags().StringVar(&site, "site", "", "Station name, e.g. Bush_Point")
	cmd.Flags().StringVar(&date, "date", pipeline.DefaultDay(), "UTC day to process, yyyymmdd")
	if err := cmd.MarkFlagRequired("site"); err != nil {
		fmt.Printf("error marking flag required: %v\n", err)
		os.Exit(1)
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures the extraction tuning flags.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().Float64Var(&settings.Extractor.RadiusM, "radius", viper.GetFloat64("extractor.radiusm"), "Retention radius around the hydrophone in meters")
	cmd.Flags().Float64Var(&settings.Extractor.CPAMaxM, "cpamax", viper.GetFloat64("extractor.cpamaxm"), "Maximum closest-point-of-approach distance in meters")
	cmd.Flags().Float64Var(&settings.Extractor.MinSogKt, "minsog", viper.GetFloat64("extractor.minsogkt"), "Minimum speed over ground in knots")
	cmd.Flags().IntVar(&settings.Extractor.MinPoints, "minpoints", viper.GetInt("extractor.minpoints"), "Minimum position reports per transit")
	cmd.Flags().IntVar(&settings.Extractor.MinDwellSec, "mindwell", viper.GetInt("extractor.mindwellsec"), "Minimum dwell time in seconds")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
