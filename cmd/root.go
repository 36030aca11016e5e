package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shipnoise/shipnoise-go/cmd/clips"
	"github.com/shipnoise/shipnoise-go/cmd/match"
	"github.com/shipnoise/shipnoise-go/cmd/merge"
	"github.com/shipnoise/shipnoise-go/cmd/pipeline"
	"github.com/shipnoise/shipnoise-go/cmd/transits"
	"github.com/shipnoise/shipnoise-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shipnoise",
		Short: "ShipNoise CLI",
		Long:  "Correlate AIS vessel transits with hydrophone audio and classify ship noise detections.",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		transits.Command(settings),
		match.Command(settings),
		merge.Command(settings),
		clips.Command(settings),
		pipeline.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags configures the global flags for the root command.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Data.Root, "dataroot", viper.GetString("data.root"), "Root of the station data tree")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}
}
