package zonecheck

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/soundscape-go/internal/conf"
	"github.com/tphakala/soundscape-go/internal/samplebank"
	"github.com/tphakala/soundscape-go/internal/zones"
)

// Command creates the command that validates the zone catalog and reports
// which zone samples decode.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "zones",
		Short: "Validate the sound zone catalog",
		Long:  "Check zone intervals and volumes, then try to decode every zone sample.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkZones(settings)
		},
	}
}

func checkZones(settings *conf.Settings) error {
	catalog, err := zones.NewCatalog(settings.Zones)
	if err != nil {
		return err
	}

	fmt.Printf("Zone catalog: %d zones\n", len(settings.Zones))
	for _, z := range settings.Zones {
		fmt.Printf("  %-12s closeness [%.2f, %.2f]  volume %.2f  fade %.2f  %s\n",
			z.ID, z.MinCloseness, z.MaxCloseness, z.BaseVolume, z.FadeDistance, z.SampleFile)
	}

	bank := samplebank.NewBank(settings.Audio.SampleRate)
	failures := 0
	for _, file := range catalog.SampleFiles() {
		if _, err := os.Stat(file); err != nil {
			fmt.Printf("  MISSING  %s\n", file)
			failures++
			continue
		}
		sample, err := bank.Load(file)
		if err != nil {
			fmt.Printf("  BROKEN   %s: %v\n", file, err)
			failures++
			continue
		}
		fmt.Printf("  OK       %s (%.1fs at %d Hz)\n", file, sample.Duration.Seconds(), sample.SampleRate)
	}

	if failures > 0 {
		return fmt.Errorf("%d zone sample(s) unavailable", failures)
	}
	return nil
}
