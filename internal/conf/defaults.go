// defaults.go default values for viper and the default zone catalog
package conf

import "github.com/spf13/viper"

// setDefaultConfig sets the default values for each configuration parameter.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "Soundscape-Go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "soundscape.log")

	viper.SetDefault("audio.backend", BackendStereo)
	viper.SetDefault("audio.device", "")
	viper.SetDefault("audio.samplerate", DefaultSampleRate)
	viper.SetDefault("audio.bufferframes", 1024)
	viper.SetDefault("audio.maxvoices", DefaultMaxVoices)
	viper.SetDefault("audio.fadeoutms", 120)
	viper.SetDefault("audio.gainrampms", 30)
	viper.SetDefault("audio.mastervolume", 1.0)

	viper.SetDefault("mapper.type", MapperZone)
	viper.SetDefault("mapper.gridsize", DefaultGridSize)
	viper.SetDefault("mapper.mindepth", 0.0)
	viper.SetDefault("mapper.maxdepth", 1.0)
	viper.SetDefault("mapper.inverse", true)
	viper.SetDefault("mapper.minloudness", 0.05)
	viper.SetDefault("mapper.depthscale", 1.0)
	viper.SetDefault("mapper.basefrequency", 220.0)
	viper.SetDefault("mapper.frequencyspan", 660.0)

	viper.SetDefault("realtime.framerate", 15)
	viper.SetDefault("realtime.provider", ProviderSynthetic)
	viper.SetDefault("realtime.framepath", "")
	viper.SetDefault("realtime.telemetry.enabled", false)
	viper.SetDefault("realtime.telemetry.listen", "0.0.0.0:8090")
}

// DefaultZones returns the built-in soundscape: ocean far, wind in the
// middle, footsteps near. Intervals deliberately overlap so neighboring
// zones cross-fade.
func DefaultZones() []ZoneSettings {
	return []ZoneSettings{
		{
			ID:           "ocean",
			MinCloseness: 0.0,
			MaxCloseness: 0.3,
			SampleFile:   "sounds/ocean.wav",
			BaseVolume:   0.8,
			FadeDistance: 0.2,
		},
		{
			ID:           "wind",
			MinCloseness: 0.2,
			MaxCloseness: 0.7,
			SampleFile:   "sounds/wind.wav",
			BaseVolume:   0.6,
			FadeDistance: 0.3,
		},
		{
			ID:           "footsteps",
			MinCloseness: 0.6,
			MaxCloseness: 1.0,
			SampleFile:   "sounds/footsteps.wav",
			BaseVolume:   1.0,
			FadeDistance: 0.2,
		},
	}
}
