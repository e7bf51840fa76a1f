package devices

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/soundscape-go/internal/render"
)

// Command creates the command that lists the available playback devices.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available playback devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := render.ListPlaybackDevices()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("No playback devices found.")
				return nil
			}
			fmt.Println("Available playback devices:")
			for _, d := range infos {
				fmt.Printf("  %d: %s\n", d.Index, d.Name)
			}
			return nil
		},
	}
}
