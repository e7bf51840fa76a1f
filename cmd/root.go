package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/soundscape-go/cmd/devices"
	"github.com/tphakala/soundscape-go/cmd/realtime"
	"github.com/tphakala/soundscape-go/cmd/zonecheck"
	"github.com/tphakala/soundscape-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "soundscape",
		Short: "Soundscape-Go CLI",
		Long:  "Turn depth maps into a continuous spatial soundscape.",
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	subcommands := []*cobra.Command{
		realtime.Command(settings),
		devices.Command(),
		zonecheck.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().Float64Var(&settings.Audio.MasterVolume, "volume", viper.GetFloat64("audio.mastervolume"), "Master output volume between 0.0 and 1.0")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
