package system

import (
	"testing"

	"github.com/thebitculture/ase/video"
)

type fakeCPU struct {
	total int
	ipl   uint8
}

func (f *fakeCPU) ExecuteFor(budget int) int { f.total += budget; return budget }
func (f *fakeCPU) SetIPL(level uint8)        { f.ipl = level }

type fakeSync struct{ total int }

func (f *fakeSync) Sync(cpuCycles int) { f.total += cpuCycles }

type fakeTimerSync struct {
	updateTotal  int
	eventATicks  int
	eventBTicks  int
}

func (f *fakeTimerSync) UpdateTimers(cpuCycles int) { f.updateTotal += cpuCycles }
func (f *fakeTimerSync) TickEventCountA()           { f.eventATicks++ }
func (f *fakeTimerSync) TickEventCountB()           { f.eventBTicks++ }

type fakeVideoBus struct {
	base      uint32
	counter   uint32
	setCalls  int
}

func (f *fakeVideoBus) VideoBase() uint32       { return f.base }
func (f *fakeVideoBus) VideoCounter() uint32    { return f.counter }
func (f *fakeVideoBus) SetVideoCounter(a uint32) { f.counter = a; f.setCalls++ }

type fakeScanlineSource struct{}

func (fakeScanlineSource) ReadBytes(addr uint32, n int) []byte { return make([]byte, n) }
func (fakeScanlineSource) Palette() [16]uint16                 { return [16]uint16{} }
func (fakeScanlineSource) Resolution() uint8                   { return 0 }

type fakeShifter struct{ blitCount int }

func (f *fakeShifter) BlitLine(src ScanlineSource, videoCounter uint32, dst []uint32) error {
	f.blitCount++
	return nil
}

type failingShifter struct{ blitCount int }

func (f *failingShifter) BlitLine(src ScanlineSource, videoCounter uint32, dst []uint32) error {
	f.blitCount++
	if f.blitCount == 1 {
		for i := range dst {
			dst[i] = 0x11223344
		}
		return nil
	}
	return video.ErrUnsupportedResolution
}

func newTestLoop() (*FrameLoop, *fakeCPU, *fakeSync, *fakeTimerSync, *fakeVideoBus, *fakeShifter) {
	cpu := &fakeCPU{}
	ym := &fakeSync{}
	mfp := &fakeTimerSync{}
	acia := &fakeSync{}
	arbiter := New(cpu)
	shifter := &fakeShifter{}
	vbus := &fakeVideoBus{}
	loop := NewFrameLoop(cpu, ym, mfp, acia, arbiter, shifter, vbus, fakeScanlineSource{})
	return loop, cpu, acia, mfp, vbus, shifter
}

func TestRunOneFrameExecutesFullScanlineCount(t *testing.T) {
	loop, cpu, acia, mfp, _, _ := newTestLoop()
	loop.runOneFrame()

	wantCPU := scanlinesPerFrame * (cyclesPerLineA + cyclesPerLineB)
	if cpu.total != wantCPU {
		t.Fatalf("cpu total cycles = %d, want %d", cpu.total, wantCPU)
	}
	wantACIA := scanlinesPerFrame * aciaCyclesPerLine
	if acia.total != wantACIA {
		t.Fatalf("acia total cycles = %d, want %d", acia.total, wantACIA)
	}
	wantMFPUpdate := scanlinesPerFrame * (cyclesPerLineA + cyclesPerLineB)
	if mfp.updateTotal != wantMFPUpdate {
		t.Fatalf("mfp updateTotal = %d, want %d", mfp.updateTotal, wantMFPUpdate)
	}
}

func TestRunOneFrameBlitsOnlyVisibleLines(t *testing.T) {
	loop, _, _, mfp, vbus, shifter := newTestLoop()
	loop.runOneFrame()

	wantVisible := lastVisibleLine - firstVisibleLine
	if shifter.blitCount != wantVisible {
		t.Fatalf("blitCount = %d, want %d", shifter.blitCount, wantVisible)
	}
	if mfp.eventATicks != wantVisible || mfp.eventBTicks != wantVisible {
		t.Fatalf("eventA=%d eventB=%d, want both %d", mfp.eventATicks, mfp.eventBTicks, wantVisible)
	}
	if vbus.setCalls != wantVisible {
		t.Fatalf("SetVideoCounter calls = %d, want %d", vbus.setCalls, wantVisible)
	}
}

func TestRunOneFrameAdvancesVideoCounterBy160PerVisibleLine(t *testing.T) {
	loop, _, _, _, vbus, _ := newTestLoop()
	vbus.base = 0x10000
	loop.runOneFrame()

	wantVisible := lastVisibleLine - firstVisibleLine
	// The counter is written back at the start of each visible line, so the
	// last write is the start address of the final visible line.
	want := (0x10000 + uint32(wantVisible-1)*160) & 0x00FFFFFF
	if vbus.counter != want {
		t.Fatalf("final video counter = %#x, want %#x", vbus.counter, want)
	}
}

func TestRunOneFrameRaisesVBLAtEnd(t *testing.T) {
	loop, cpu, _, _, _, _ := newTestLoop()
	_ = cpu
	loop.runOneFrame()
	if !loop.arbiter.vbl {
		t.Fatal("expected VBL flag raised after a full frame")
	}
}

func TestRunOneFrameRepeatsLastGoodLineOnUnsupportedResolution(t *testing.T) {
	cpu := &fakeCPU{}
	ym := &fakeSync{}
	mfp := &fakeTimerSync{}
	acia := &fakeSync{}
	arbiter := New(cpu)
	shifter := &failingShifter{}
	vbus := &fakeVideoBus{}
	loop := NewFrameLoop(cpu, ym, mfp, acia, arbiter, shifter, vbus, fakeScanlineSource{})

	frame := loop.runOneFrame()

	want := uint32(0x11223344)
	for i, px := range frame.Pixels {
		if px != want {
			t.Fatalf("pixel %d = %#x, want %#x (last good scanline repeated)", i, px, want)
		}
	}
	if !loop.loggedUnsupportedRes {
		t.Fatal("expected the unsupported-resolution condition to be logged")
	}
}
