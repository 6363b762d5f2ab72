// Package system implements the InterruptArbiter and the per-scanline
// FrameLoop that drives the CPU and every peripheral in lockstep, per
// §4.4/§4.9.
package system

import (
	"errors"
	"log"
	"time"

	"github.com/thebitculture/ase/video"
)

const (
	scanlinesPerFrame = 313
	firstVisibleLine  = 63
	lastVisibleLine   = 263 // exclusive

	cyclesPerLineA = 448
	cyclesPerLineB = 64
	aciaCyclesPerLine = 512

	frameHz = 50
)

// CPUExecutor runs CPU cycles in bounded batches.
type CPUExecutor interface {
	ExecuteFor(budget int) int
}

// CycleSync advances a chip by a count of elapsed CPU cycles.
type CycleSync interface {
	Sync(cpuCycles int)
}

// TimerSync is the MFP's cycle-driven timer update entry point, plus the
// two exogenous event-count tick callbacks.
type TimerSync interface {
	UpdateTimers(cpuCycles int)
	TickEventCountA()
	TickEventCountB()
}

// VideoBus is the subset of bus.Bus the frame loop needs to latch/advance
// the video counter and hand the shifter its scanline source.
type VideoBus interface {
	VideoBase() uint32
	VideoCounter() uint32
	SetVideoCounter(addr uint32)
}

// ScanlineSource is the bus capability BlitLine needs, kept separate from
// VideoBus so FrameLoop can accept any type implementing both.
type ScanlineSource = video.ScanlineSource

// Shifter decodes one scanline into a destination row.
type Shifter interface {
	BlitLine(src ScanlineSource, videoCounter uint32, dst []uint32) error
}

// Frame is one completed ARGB8888 640x200 framebuffer.
type Frame struct {
	Pixels []uint32 // len == video.ScreenWidth * video.VisibleLines
	Width  int
	Height int
}

// FrameLoop is the single emulator-thread master loop.
type FrameLoop struct {
	cpu      CPUExecutor
	ym       CycleSync
	mfp      TimerSync
	acia     CycleSync
	arbiter  *InterruptArbiter
	shifter  Shifter
	videoBus VideoBus
	source   ScanlineSource

	maxSpeed bool
	frames   chan *Frame

	running bool

	Logger *log.Logger

	lastGoodLine         []uint32
	loggedUnsupportedRes bool
}

// NewFrameLoop builds a FrameLoop wired to every device it drives per scanline.
func NewFrameLoop(cpu CPUExecutor, ym CycleSync, mfp TimerSync, acia CycleSync,
	arbiter *InterruptArbiter, shifter Shifter, videoBus VideoBus, source ScanlineSource) *FrameLoop {
	return &FrameLoop{
		cpu: cpu, ym: ym, mfp: mfp, acia: acia,
		arbiter: arbiter, shifter: shifter, videoBus: videoBus, source: source,
		frames: make(chan *Frame, 2),
		Logger: log.Default(),
	}
}

// SetMaxSpeed disables the 50Hz pacing sleep.
func (f *FrameLoop) SetMaxSpeed(v bool) { f.maxSpeed = v }

// Frames is the channel frame-complete signals are published on.
func (f *FrameLoop) Frames() <-chan *Frame { return f.frames }

// Stop requests the run loop to exit after its current frame.
func (f *FrameLoop) Stop() { f.running = false }

// Run drives frames until Stop is called or stopCh is closed.
func (f *FrameLoop) Run(stopCh <-chan struct{}) {
	f.running = true
	anchor := time.Now()
	framePeriod := time.Second / time.Duration(frameHz)

	for f.running {
		select {
		case <-stopCh:
			return
		default:
		}

		frame := f.runOneFrame()
		select {
		case f.frames <- frame:
		default:
			// Drop the frame rather than block the emulator thread; the
			// consumer reads no faster than its own display refresh.
		}

		if !f.maxSpeed {
			anchor = pace(anchor, framePeriod)
		}
	}
}

func pace(anchor time.Time, period time.Duration) time.Time {
	next := anchor.Add(period)
	remaining := time.Until(next)
	if remaining > 100*time.Millisecond {
		// Slipped badly (debugger pause, host hiccup); resync instead of
		// trying to catch up all at once.
		return time.Now()
	}
	for remaining > 2*time.Millisecond {
		time.Sleep(time.Millisecond)
		remaining = time.Until(next)
	}
	for time.Until(next) > 0 {
		// tight busy-wait for sub-millisecond precision
	}
	return next
}

func (f *FrameLoop) runOneFrame() *Frame {
	videoCounter := f.videoBus.VideoBase()
	frame := &Frame{
		Pixels: make([]uint32, video.ScreenWidth*video.VisibleLines),
		Width:  video.ScreenWidth,
		Height: video.VisibleLines,
	}

	for scanline := 0; scanline < scanlinesPerFrame; scanline++ {
		f.cpu.ExecuteFor(cyclesPerLineA)
		f.ym.Sync(cyclesPerLineA)
		f.mfp.UpdateTimers(cyclesPerLineA)

		f.cpu.ExecuteFor(cyclesPerLineB)
		f.ym.Sync(cyclesPerLineB)
		f.mfp.UpdateTimers(cyclesPerLineB)

		f.arbiter.RaiseHBL()
		f.acia.Sync(aciaCyclesPerLine)

		if scanline >= firstVisibleLine && scanline < lastVisibleLine {
			f.videoBus.SetVideoCounter(videoCounter)
			rowStart := (scanline - firstVisibleLine) * video.ScreenWidth
			row := frame.Pixels[rowStart : rowStart+video.ScreenWidth]
			if err := f.shifter.BlitLine(f.source, videoCounter, row); err != nil {
				if errors.Is(err, video.ErrUnsupportedResolution) && !f.loggedUnsupportedRes {
					f.loggedUnsupportedRes = true
					if f.Logger != nil {
						f.Logger.Printf("system: %v; repeating last good scanline", err)
					}
				}
				if f.lastGoodLine != nil {
					copy(row, f.lastGoodLine)
				}
			} else {
				if f.lastGoodLine == nil {
					f.lastGoodLine = make([]uint32, video.ScreenWidth)
				}
				copy(f.lastGoodLine, row)
			}
			videoCounter = (videoCounter + 160) & 0x00FFFFFF
			f.mfp.TickEventCountA()
			f.mfp.TickEventCountB()
		}
	}

	f.arbiter.RaiseVBL()
	return frame
}
