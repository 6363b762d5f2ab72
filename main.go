// Command ase is a cycle-driven Atari ST (STF) emulation core: a 68000
// CPU, video shifter, YM2149 sound chip, MFP68901 timer/interrupt block,
// WD1772+DMA floppy controller, and ACIA/IKBD input pipeline, driven by a
// single per-scanline frame loop (§4.9).
package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/thebitculture/ase/audio"
	"github.com/thebitculture/ase/bus"
	"github.com/thebitculture/ase/config"
	"github.com/thebitculture/ase/cpu68k"
	"github.com/thebitculture/ase/fdc"
	"github.com/thebitculture/ase/floppy"
	"github.com/thebitculture/ase/ikbd"
	"github.com/thebitculture/ase/mfp"
	"github.com/thebitculture/ase/system"
	"github.com/thebitculture/ase/video"
	"github.com/thebitculture/ase/videoout"
	"github.com/thebitculture/ase/ym"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags, err := config.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if flags.Help {
		return 0
	}

	altPath := ""
	if flags.AltConfigPath != nil {
		altPath = *flags.AltConfigPath
	}
	cfgPath, err := config.Path(altPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "resolving config path:", err)
		return 1
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg = config.Apply(cfg, flags)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	rom, err := os.ReadFile(cfg.TOSPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "reading TOS ROM:", err)
		return 1
	}

	mach, err := buildMachine(cfg, rom)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	mach.cpu.Trace = cfg.DebugMode
	if cfg.DebugMode {
		mach.cpu.TraceWidth = traceWidth()
	}

	if cfg.FloppyImagePath != "" {
		img, err := floppy.Load(cfg.FloppyImagePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if cfg.WriteProtectOverride != nil {
			img.WriteProtected = *cfg.WriteProtectOverride
		}
		fdcImg := fdc.Image(img.ToFDCImage())
		mach.fdc.LoadImage(&fdcImg)
	}

	mach.frameLoop.SetMaxSpeed(cfg.MaxSpeed)
	mach.audioSink.Start()
	defer mach.audioSink.Close()

	stopCh := make(chan struct{})
	go mach.frameLoop.Run(stopCh)

	win := videoout.New(mach.frameLoop.Frames(), mach.ikbd, mach.ikbd, mach.ikbd)
	if err := win.Run("Atari ST"); err != nil {
		fmt.Fprintln(os.Stderr, "video output:", err)
	}
	close(stopCh)

	return 0
}

// traceWidth detects the width of a raw stdout terminal for --debug
// instruction tracing (§6), grounded on the teacher's terminal_host.go
// use of golang.org/x/term. Piping stdout to a file, as most --debug
// sessions do, yields a non-tty fd and a width of 0 (compact trace).
func traceWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}

// machine owns every device wired into a single running emulator session.
type machine struct {
	cpu       *cpu68k.CPU
	bus       *bus.Bus
	mfp       *mfp.MFP
	ym        *ym.Chip
	fdc       *fdc.Controller
	ikbd      *ikbd.Controller
	shifter   *video.Shifter
	arbiter   *system.InterruptArbiter
	frameLoop *system.FrameLoop
	audioSink *audio.Sink
}

// buildMachine wires every peripheral to the bus and to each other per
// §4.1-§4.9, mirroring the single-owning-container wiring pattern
// described for the frame loop.
func buildMachine(cfg config.Config, rom []byte) (*machine, error) {
	b, err := bus.New(cfg.RAMBytes(), rom)
	if err != nil {
		return nil, err
	}

	cpu := cpu68k.NewCPU(b)
	cpu.Reset()

	arbiter := system.New(cpu)
	cpu.AttachIRQAck(arbiter)

	m := mfp.New()
	m.AttachIRQLine(arbiter)
	arbiter.AttachMFP(m)

	sink, err := audio.NewSink(cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("opening audio sink: %w", err)
	}
	chip := ym.New(cfg.SampleRate)
	sink.Bind(chip)

	fd := fdc.New()
	fd.AttachMFP(m)
	fd.AttachBus(b)
	chip.AttachDriveSelector(fd)

	kbd := ikbd.New(cfg.MouseXSensitivity, cfg.MouseYSensitivity)
	kbd.AttachMFP(m)
	ikbd.SetScancodeMapping(videoout.BuildScancodeTable())

	b.AttachFDC(fd)
	b.AttachYM(chip)
	b.AttachMFP(m)
	b.AttachACIA(kbd)
	b.AttachFaulter(cpu)

	shifter := video.New(video.ModeAuto)

	loop := system.NewFrameLoop(cpu, chip, m, kbd, arbiter, shifter, b, b)

	return &machine{
		cpu: cpu, bus: b, mfp: m, ym: chip, fdc: fd, ikbd: kbd,
		shifter: shifter, arbiter: arbiter, frameLoop: loop, audioSink: sink,
	}, nil
}
