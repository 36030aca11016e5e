package match

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shipnoise/shipnoise-go/internal/conf"
	"github.com/shipnoise/shipnoise-go/internal/logging"
	"github.com/shipnoise/shipnoise-go/internal/pipeline"
)

// Command creates the match command, windowing extracted transits against
// the day's audio segment index.
func Command(settings *conf.Settings) *cobra.Command {
	var site, date string

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match transits against recorded audio segments",
		Long:  "Find the audio segments overlapping each transit's closest-approach window and write the windowed table.",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := pipeline.New(settings, nil, logging.ForService("match"))
			return runner.RunMatch(cmd.Context(), site, date)
		},
	}

	cmd.Flags().StringVar(&site, "site", "", "Station name, e.g. Bush_Point")
	cmd.Flags().StringVar(&date, "date", pipeline.DefaultDay(), "UTC day to process, yyyymmdd")
	if err := cmd.MarkFlagRequired("site"); err != nil {
		fmt.Printf("error marking flag required: %v\n", err)
		os.Exit(1)
	}

	cmd.Flags().IntVar(&settings.Window.HalfWindowSec, "window", viper.GetInt("window.halfwindowsec"), "Search half-window around CPA in seconds")
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}
