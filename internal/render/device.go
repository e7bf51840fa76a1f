package render

import (
	"encoding/binary"
	"encoding/hex"
	"runtime"
	"strings"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/soundscape-go/internal/conf"
	"github.com/tphakala/soundscape-go/internal/errors"
)

// playbackDevice owns the malgo context and device for a started engine.
type playbackDevice struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	mixBuf []float32
}

// osBackends picks the platform's native audio backend, as miniaudio's
// auto-select occasionally prefers the wrong one on Linux.
func osBackends() []malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return []malgo.Backend{malgo.BackendAlsa}
	case "windows":
		return []malgo.Backend{malgo.BackendWasapi}
	case "darwin":
		return []malgo.Backend{malgo.BackendCoreaudio}
	default:
		return nil
	}
}

// Start opens the playback device and begins streaming. The render
// callback pulls interleaved stereo from RenderBlock and converts to
// 16-bit PCM for the device.
func (e *Engine) Start() error {
	if e.device != nil {
		return errors.Newf("engine already started").
			Component("render").
			Category(errors.CategoryState).
			Build()
	}

	ctx, err := malgo.InitContext(osBackends(), malgo.ContextConfig{}, func(message string) {
		if e.logger != nil {
			e.logger.Debug("miniaudio", "message", strings.TrimSpace(message))
		}
	})
	if err != nil {
		return errors.Newf("failed to initialize audio context: %v", err).
			Component("render").
			Category(errors.CategoryAudioDevice).
			Build()
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = conf.NumChannels
	deviceConfig.SampleRate = uint32(e.sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if e.deviceName != "" {
		infos, err := ctx.Devices(malgo.Playback)
		if err != nil {
			_ = ctx.Uninit()
			return errors.Newf("failed to enumerate playback devices: %v", err).
				Component("render").
				Category(errors.CategoryAudioDevice).
				Build()
		}
		found := false
		for i := range infos {
			if strings.Contains(infos[i].Name(), e.deviceName) {
				deviceConfig.Playback.DeviceID = infos[i].ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			_ = ctx.Uninit()
			return errors.Newf("playback device %q not found", e.deviceName).
				Component("render").
				Category(errors.CategoryAudioDevice).
				Build()
		}
	}

	pd := &playbackDevice{ctx: ctx}

	onSendFrames := func(pOutput, pInput []byte, framecount uint32) {
		samples := int(framecount) * conf.NumChannels
		if cap(pd.mixBuf) < samples {
			pd.mixBuf = make([]float32, samples)
		}
		buf := pd.mixBuf[:samples]
		e.RenderBlock(buf)
		for i, s := range buf {
			binary.LittleEndian.PutUint16(pOutput[2*i:], uint16(int16(s*32767)))
		}
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSendFrames,
	})
	if err != nil {
		_ = ctx.Uninit()
		return errors.Newf("failed to initialize playback device: %v", err).
			Component("render").
			Category(errors.CategoryAudioDevice).
			Build()
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		return errors.Newf("failed to start playback device: %v", err).
			Component("render").
			Category(errors.CategoryAudioDevice).
			Build()
	}

	pd.device = device
	e.device = pd

	if e.logger != nil {
		backend := "stereo"
		if e.spatial {
			backend = "spatial"
		}
		e.logger.Info("audio output started",
			"backend", backend,
			"sample_rate", e.sampleRate,
			"max_voices", e.maxVoices)
	}
	return nil
}

// Stop halts the device and releases every voice. The device stop blocks
// until the in-flight render tick completes, so voices are drained only
// after the render path has gone quiet.
func (e *Engine) Stop() {
	if e.device == nil {
		e.DrainVoices()
		return
	}
	_ = e.device.device.Stop()
	e.device.device.Uninit()
	_ = e.device.ctx.Uninit()
	e.device = nil
	e.DrainVoices()
	if e.logger != nil {
		e.logger.Info("audio output stopped")
	}
}

// DeviceInfo describes one playback device.
type DeviceInfo struct {
	Index int
	Name  string
	ID    string
}

// ListPlaybackDevices enumerates the playback devices of the platform
// backend.
func ListPlaybackDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(osBackends(), malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.Newf("failed to initialize audio context: %v", err).
			Component("render").
			Category(errors.CategoryAudioDevice).
			Build()
	}
	defer ctx.Uninit() //nolint:errcheck

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, errors.Newf("failed to enumerate playback devices: %v", err).
			Component("render").
			Category(errors.CategoryAudioDevice).
			Build()
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i := range infos {
		id, err := hexToASCII(infos[i].ID.String())
		if err != nil {
			id = infos[i].ID.String()
		}
		devices = append(devices, DeviceInfo{Index: i, Name: infos[i].Name(), ID: id})
	}
	return devices, nil
}

func hexToASCII(hexStr string) (string, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\x00"), nil
}
