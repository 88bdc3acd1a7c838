package audio

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFormatPCM is the WAVE_FORMAT_PCM format tag.
const wavFormatPCM = 1

// Recorder is a Tap that writes the host-rate stream to a 16-bit stereo
// WAV file.
type Recorder struct {
	f   *os.File
	enc *wav.Encoder
	buf *goaudio.IntBuffer
}

// NewRecorder creates the WAV file at path.
func NewRecorder(path string, hostRate int) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	return newRecorder(f, hostRate), nil
}

func newRecorder(f *os.File, hostRate int) *Recorder {
	return &Recorder{
		f:   f,
		enc: wav.NewEncoder(f, hostRate, 16, 2, wavFormatPCM),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 2, SampleRate: hostRate},
			SourceBitDepth: 16,
		},
	}
}

// WriteFrames encodes a batch of packed frames.
func (r *Recorder) WriteFrames(frames []uint32) error {
	data := r.buf.Data[:0]
	for _, v := range frames {
		l, rr := UnpackFrame(v)
		data = append(data, int(l), int(rr))
	}
	r.buf.Data = data
	if err := r.enc.Write(r.buf); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	return nil
}

// Close finalizes the WAV header and closes the file.
func (r *Recorder) Close() error {
	encErr := r.enc.Close()
	if err := r.f.Close(); err != nil && encErr == nil {
		encErr = err
	}
	return encErr
}

// ReadWAV decodes a 16-bit WAV stream into interleaved samples. It is the
// inverse of Recorder and is used to inspect recordings.
func ReadWAV(rs io.ReadSeeker) (samples []int16, rate, channels int, err error) {
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("not a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode wav: %w", err)
	}
	samples = make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	return samples, int(dec.SampleRate), int(dec.NumChans), nil
}
