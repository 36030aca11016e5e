package merge

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shipnoise/shipnoise-go/internal/conf"
	"github.com/shipnoise/shipnoise-go/internal/logging"
	"github.com/shipnoise/shipnoise-go/internal/pipeline"
)

// Command creates the merge command, filtering and deduplicating the day's
// windowed tables into one detection candidate table.
func Command(settings *conf.Settings) *cobra.Command {
	var site, date string

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge windowed tables into detection candidates",
		Long:  "Apply the acoustic relevance filter, deduplicate by vessel and write the merged table.",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := pipeline.New(settings, nil, logging.ForService("merge"))
			return runner.RunMerge(cmd.Context(), site, date)
		},
	}

	cmd.Flags().StringVar(&site, "site", "", "Station name, e.g. Bush_Point")
	cmd.Flags().StringVar(&date, "date", pipeline.DefaultDay(), "UTC day to process, yyyymmdd")
	if err := cmd.MarkFlagRequired("site"); err != nil {
		fmt.Printf("error marking flag required: %v\n", err)
		os.Exit(1)
	}

	return cmd
}
