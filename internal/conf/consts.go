// conf/consts.go hard coded constants
package conf

const (
	NumChannels = 2 // stereo output frames produced by the mixer

	DefaultSampleRate = 44100 // engine target sample rate in Hz
	DefaultGridSize   = 10    // mapper grid resolution
	DefaultMaxVoices  = 32    // simultaneous voice ceiling

	BackendStereo  = "stereo"  // panned stereo mixing, no special hardware
	BackendSpatial = "spatial" // positional mixing with distance attenuation

	MapperZone = "zone" // zone catalog based mapper
	MapperTone = "tone" // legacy frequency based mapper

	ProviderSynthetic = "synthetic" // generated depth frames, no hardware needed
	ProviderFile      = "file"      // replay of a recorded raw frame stream
)
