package realtime

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/soundscape-go/internal/conf"
	"github.com/tphakala/soundscape-go/internal/logging"
	"github.com/tphakala/soundscape-go/internal/observability"
	"github.com/tphakala/soundscape-go/internal/soundscape"
)

// Command creates the command that runs the live depth-to-sound loop.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Render the soundscape in realtime mode",
		Long:  "Continuously map incoming depth frames to looping sound sources and mix them to the playback device.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRealtime(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the realtime command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Audio.Backend, "backend", viper.GetString("audio.backend"), "Audio backend (\"stereo\" or \"spatial\")")
	cmd.Flags().StringVar(&settings.Audio.Device, "device", viper.GetString("audio.device"), "Playback device name, empty for system default")
	cmd.Flags().StringVar(&settings.Mapper.Type, "mapper", viper.GetString("mapper.type"), "Mapper type (\"zone\" or \"tone\")")
	cmd.Flags().IntVar(&settings.Mapper.GridSize, "gridsize", viper.GetInt("mapper.gridsize"), "Depth map sampling grid resolution")
	cmd.Flags().IntVar(&settings.Realtime.FrameRate, "framerate", viper.GetInt("realtime.framerate"), "Depth frames consumed per second")
	cmd.Flags().StringVar(&settings.Realtime.Provider, "provider", viper.GetString("realtime.provider"), "Depth provider (\"synthetic\" or \"file\")")
	cmd.Flags().StringVar(&settings.Realtime.FramePath, "framepath", viper.GetString("realtime.framepath"), "Raw frame file for the \"file\" provider")
	cmd.Flags().BoolVar(&settings.Realtime.Telemetry.Enabled, "telemetry", viper.GetBool("realtime.telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Realtime.Telemetry.Listen, "listen", viper.GetString("realtime.telemetry.listen"), "Listen address and port of telemetry endpoint")

	// Bind flags to the viper settings
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}

// runRealtime builds the pipeline and runs it until SIGINT or SIGTERM.
func runRealtime(settings *conf.Settings) error {
	s, err := soundscape.New(settings)
	if err != nil {
		return err
	}

	if settings.Debug {
		s.SetObserver(func(events []soundscape.SourceEvent) {
			for _, ev := range events {
				logging.Debug("active source", "zone", ev.ZoneID,
					"x", ev.Pos.X, "y", ev.Pos.Y, "z", ev.Pos.Z)
			}
		})
	}

	if settings.Realtime.Telemetry.Enabled {
		stopTelemetry := observability.StartTelemetry(settings.Realtime.Telemetry.Listen)
		defer stopTelemetry()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.Run(ctx)
}
