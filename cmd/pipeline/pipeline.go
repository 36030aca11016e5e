package pipeline

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shipnoise/shipnoise-go/internal/conf"
	"github.com/shipnoise/shipnoise-go/internal/datastore"
	"github.com/shipnoise/shipnoise-go/internal/logging"
	"github.com/shipnoise/shipnoise-go/internal/pipeline"
)

// Command creates the pipeline command, running all stages for a station.
func Command(settings *conf.Settings) *cobra.Command {
	var site, date string
	var all bool

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run all stages for a station",
		Long:  "Run extraction, matching, merging and acoustic analysis for one day or every available day of a station.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.ForService("pipeline")
			store := datastore.New(settings)
			if store != nil {
				if err := store.Open(); err != nil {
					return fmt.Errorf("opening detection store: %w", err)
				}
				defer func() {
					if err := store.Close(); err != nil {
						log.Error("closing detection store", "error", err)
					}
				}()
			}

			runner := pipeline.New(settings, store, log)
			if all {
				return runner.RunAll(cmd.Context(), site)
			}
			return runner.RunDay(cmd.Context(), site, date)
		},
	}

	cmd.Flags().StringVar(&site, "site", "", "Station name, e.g. Bush_Point")
	cmd.Flags().StringVar(&date, "date", pipeline.DefaultDay(), "UTC day to process, yyyymmdd")
	cmd.Flags().BoolVar(&all, "all", false, "Process every day directory found for the station")
	if err := cmd.MarkFlagRequired("site"); err != nil {
		fmt.Printf("error marking flag required: %v\n", err)
		os.Exit(1)
	}

	return cmd
}
