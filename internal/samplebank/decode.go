package samplebank

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/tphakala/flac"
)

// decodeFile decodes the PCM content of an audio file into interleaved
// float32 samples in [-1,1], returning the native sample rate and channel
// count. Supported formats: WAV, FLAC, MP3 and Ogg Vorbis, chosen by file
// extension.
func decodeFile(path string) (pcm []float32, rate, channels int, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer file.Close() //nolint:errcheck

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(file)
	case ".flac":
		return decodeFLAC(file)
	case ".mp3":
		return decodeMP3(file)
	case ".ogg":
		return decodeOgg(file)
	default:
		return nil, 0, 0, fmt.Errorf("unsupported audio format: %s", filepath.Ext(path))
	}
}

// getAudioDivisor returns the int-to-float32 conversion divisor for the
// given bit depth.
func getAudioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported audio bit depth: %d", bitDepth)
	}
}

func decodeWAV(file *os.File) ([]float32, int, int, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("input is not a valid WAV audio file")
	}

	divisor, err := getAudioDivisor(int(decoder.BitDepth))
	if err != nil {
		return nil, 0, 0, err
	}

	channels := int(decoder.NumChans)
	rate := int(decoder.SampleRate)

	var pcm []float32
	buf := &audio.IntBuffer{
		Data:   make([]int, 8192),
		Format: &audio.Format{SampleRate: rate, NumChannels: channels},
	}
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, 0, 0, err
		}
		if n == 0 {
			break
		}
		for _, sample := range buf.Data[:n] {
			pcm = append(pcm, float32(sample)/divisor)
		}
	}

	return pcm, rate, channels, nil
}

func decodeFLAC(file *os.File) ([]float32, int, int, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return nil, 0, 0, err
	}

	divisor, err := getAudioDivisor(decoder.BitsPerSample)
	if err != nil {
		return nil, 0, 0, err
	}

	bytesPerSample := decoder.BitsPerSample / 8

	var pcm []float32
	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, 0, 0, err
		}

		for i := 0; i+bytesPerSample <= len(frame); i += bytesPerSample {
			var sample int32
			switch decoder.BitsPerSample {
			case 16:
				sample = int32(int16(binary.LittleEndian.Uint16(frame[i:])))
			case 24:
				sample = int32(frame[i]) | int32(frame[i+1])<<8 | int32(int8(frame[i+2]))<<16
			case 32:
				sample = int32(binary.LittleEndian.Uint32(frame[i:]))
			}
			pcm = append(pcm, float32(sample)/divisor)
		}
	}

	return pcm, decoder.SampleRate, decoder.NChannels, nil
}

func decodeMP3(file *os.File) ([]float32, int, int, error) {
	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return nil, 0, 0, err
	}

	// go-mp3 always emits 16-bit little-endian stereo
	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, 0, err
	}

	pcm := make([]float32, len(raw)/2)
	for i := range pcm {
		sample := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		pcm[i] = float32(sample) / 32768.0
	}

	return pcm, decoder.SampleRate(), 2, nil
}

func decodeOgg(file *os.File) ([]float32, int, int, error) {
	pcm, format, err := oggvorbis.ReadAll(file)
	if err != nil {
		return nil, 0, 0, err
	}
	return pcm, format.SampleRate, format.Channels, nil
}
