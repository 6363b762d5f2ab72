// Package audio binds the YM2149's pull-based sample ring to an oto/v3
// player, grounded on the teacher's OtoPlayer (atomic chip pointer,
// pre-allocated sample buffer, mutex only for setup/control).
package audio

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

const bytesPerFloat32 = 4

// SampleSource is the pull interface the core exposes: "give me the next
// sample, or the last value repeated on underrun" (§6).
type SampleSource interface {
	ReadSample() float32
}

// Sink wraps an oto.Context/Player pulling mono float32 samples from a
// SampleSource on oto's own callback goroutine.
type Sink struct {
	ctx       *oto.Context
	player    *oto.Player
	source    atomic.Pointer[SampleSource]
	sampleBuf []float32

	started bool
	mu      sync.Mutex
}

// NewSink opens an oto context at sampleRate for single-channel float32
// playback. The returned Sink has no player until Bind is called.
func NewSink(sampleRate int) (*Sink, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   4,
	}
	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, err
	}
	<-ready
	return &Sink{ctx: ctx}, nil
}

// Bind attaches the sample source and allocates the player. Safe to call
// again to rebind after a reset.
func (s *Sink) Bind(source SampleSource) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.source.Store(&source)
	if s.player == nil {
		s.player = s.ctx.NewPlayer(s)
		s.sampleBuf = make([]float32, 4096)
	}
}

// Read implements io.Reader for oto.Player: it is called on oto's audio
// callback goroutine and must not block on the emulator thread.
func (s *Sink) Read(p []byte) (int, error) {
	srcPtr := s.source.Load()
	if srcPtr == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	source := *srcPtr

	numSamples := len(p) / bytesPerFloat32
	if numSamples == 0 {
		return 0, nil
	}
	if len(s.sampleBuf) < numSamples {
		s.sampleBuf = make([]float32, numSamples)
	}
	samples := s.sampleBuf[:numSamples]
	for i := range samples {
		samples[i] = source.ReadSample()
	}

	copy(p, (*[1 << 30]byte)(unsafe.Pointer(&samples[0]))[:len(p)])
	return len(p), nil
}

// Start begins playback; a no-op if already started or unbound.
func (s *Sink) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started && s.player != nil {
		s.player.Play()
		s.started = true
	}
}

// Stop halts playback without releasing the player.
func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started && s.player != nil {
		s.player.Pause()
		s.started = false
	}
}

// Close releases the player and stops playback permanently.
func (s *Sink) Close() {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Close()
		s.player = nil
	}
}

// IsStarted reports whether playback is currently active.
func (s *Sink) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}
