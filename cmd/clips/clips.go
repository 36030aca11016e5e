package clips

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shipnoise/shipnoise-go/internal/conf"
	"github.com/shipnoise/shipnoise-go/internal/datastore"
	"github.com/shipnoise/shipnoise-go/internal/logging"
	"github.com/shipnoise/shipnoise-go/internal/pipeline"
)

// Command creates the clips command, running acoustic analysis for the day's
// merged detection candidates.
func Command(settings *conf.Settings) *cobra.Command {
	var site, date string

	cmd := &cobra.Command{
		Use:   "clips",
		Short: "Fetch audio, classify and store detections",
		Long:  "Download the candidate audio segments, assemble and classify clips, and write the summary table and database rows.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.ForService("clips")
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
			return runner.RunClips(cmd.Context(), site, date)
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

// setupFlags configures clip assembly flags.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Clips.Mode, "mode", viper.GetString("clips.mode"), "Clip assembly mode (adjacent/strict)")
	cmd.Flags().StringVar(&settings.Clips.FfmpegPath, "ffmpeg", viper.GetString("clips.ffmpegpath"), "Path to the ffmpeg binary")
	cmd.Flags().IntVar(&settings.Clips.SampleRate, "samplerate", viper.GetInt("clips.samplerate"), "Clip sample rate in Hz")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
