// Package bus implements the Atari ST 24-bit memory bus: RAM/ROM/I-O
// address decode, big-endian accessors, and synthetic bus-error
// injection for restricted regions.
package bus

import (
	"fmt"
	"log"
)

const (
	AddrMask = 0x00FFFFFF

	TosBaseSTF = 0x00FC0000 // 192 KiB TOS
	TosSizeSTF = 192 * 1024
	TosBaseSTE = 0x00E00000 // 256 KiB TOS
	TosSizeSTE = 256 * 1024

	IOStart = 0xFF8000
	IOEnd   = 0xFFFFFF

	mmuConfigAddr = 0xFF8001

	videoBaseHiAddr    = 0xFF8201
	videoBaseMidAddr   = 0xFF8203
	videoCounterHiAddr = 0xFF8205
	videoCounterMidAddr = 0xFF8207
	videoCounterLoAddr = 0xFF8209
	syncModeAddr       = 0xFF820A
	paletteStart       = 0xFF8240
	paletteEnd         = 0xFF825F
	resolutionAddr     = 0xFF8260

	fdcStart = 0xFF8604
	fdcEnd   = 0xFF860D

	ymSelectAddr = 0xFF8800
	ymWriteAddr  = 0xFF8802

	mfpStart = 0xFFFA00
	mfpEnd   = 0xFFFA25

	aciaStatusAddr = 0xFFFC00
	aciaDataAddr   = 0xFFFC02
)

// busErrorRegion is a range that always synthesizes a bus error: STE DMA
// sound, blitter, and STE extended joystick registers, none of which
// exist on a plain STF.
type busErrorRegion struct{ start, end uint32 }

var busErrorRegions = []busErrorRegion{
	{0xFF8900, 0xFF8924}, // STE DMA sound
	{0xFF8A00, 0xFF8A3C}, // Blitter
	{0xFF9200, 0xFF9222}, // STE extended joystick
}

// Peripheral is a device mapped into the I/O region that understands its
// own register addressing within the range it is registered for.
type Peripheral interface {
	Read8(addr uint32) uint8
	Write8(addr uint32, v uint8)
	Read16(addr uint32) uint16
	Write16(addr uint32, v uint16)
}

// Faulter receives notice that an access must raise a 68000 bus error.
// The bus records the fault and returns a dummy value; per §4.1/§9 the
// CPU core checks the pending flag immediately after the memory callback
// returns and raises the exception before committing the instruction.
type Faulter interface {
	ScheduleBusError(addr uint32, size uint8, write bool, data uint32)
}

// Bus is the Atari ST 24-bit address space: RAM, TOS ROM, and the
// mapped I/O registers in 0xFF8000-0xFFFFFF.
type Bus struct {
	Logger *log.Logger

	ram []byte
	rom []byte

	tosBase uint32
	tosSize uint32

	mmuConfig uint8

	videoBaseHi, videoBaseMid              uint8
	videoCounterHi, videoCounterMid, videoCounterLo uint8
	syncMode                                uint8
	palette                                 [16]uint16
	resolution                              uint8

	fdc  Peripheral
	ym   Peripheral
	mfp  Peripheral
	acia Peripheral

	faulter Faulter
}

// New builds a bus with ramSize bytes of RAM and the given TOS ROM image
// loaded at its natural base (192 KiB -> 0xFC0000, 256 KiB -> 0xE00000).
func New(ramSize int, rom []byte) (*Bus, error) {
	var base, size uint32
	switch len(rom) {
	case TosSizeSTF:
		base, size = TosBaseSTF, TosSizeSTF
	case TosSizeSTE:
		base, size = TosBaseSTE, TosSizeSTE
	default:
		return nil, fmt.Errorf("bus: unsupported TOS image size %d bytes", len(rom))
	}
	b := &Bus{
		ram:     make([]byte, ramSize),
		rom:     rom,
		tosBase: base,
		tosSize: size,
		Logger:  log.Default(),
	}
	return b, nil
}

// AttachFaulter registers the CPU's bus-error sink. Must be called before
// any I/O access that might touch a restricted region.
func (b *Bus) AttachFaulter(f Faulter) { b.faulter = f }

// AttachFDC, AttachYM, AttachMFP, AttachACIA wire the devices that own the
// corresponding I/O register ranges. Each device decodes its own offset
// within the range it is given.
func (b *Bus) AttachFDC(p Peripheral)  { b.fdc = p }
func (b *Bus) AttachYM(p Peripheral)   { b.ym = p }
func (b *Bus) AttachMFP(p Peripheral)  { b.mfp = p }
func (b *Bus) AttachACIA(p Peripheral) { b.acia = p }

func mask(addr uint32) uint32 { return addr & AddrMask }

// decode classifies a masked address per §4.1's decode order: (a) first
// 8 bytes mirror ROM, (b) RAM, (c) TOS ROM, (d) I/O, (e) open bus.
type region int

const (
	regionROMVectors region = iota
	regionRAM
	regionROM
	regionIO
	regionOpen
)

func (b *Bus) decode(addr uint32) region {
	switch {
	case addr < 8:
		return regionROMVectors
	case addr < uint32(len(b.ram)):
		return regionRAM
	case addr >= b.tosBase && addr < b.tosBase+b.tosSize:
		return regionROM
	case addr >= IOStart && addr <= IOEnd:
		return regionIO
	default:
		return regionOpen
	}
}

func (b *Bus) romOffset(addr uint32) uint32 {
	if addr < 8 {
		return addr
	}
	return addr - b.tosBase
}

func (b *Bus) isBusErrorRegion(addr uint32) bool {
	for _, r := range busErrorRegions {
		if addr >= r.start && addr <= r.end {
			return true
		}
	}
	return false
}

func (b *Bus) fault(addr uint32, size uint8, write bool, data uint32) {
	if b.faulter != nil {
		b.faulter.ScheduleBusError(addr, size, write, data)
	}
}

// Read8 reads one byte, honoring the §4.1 decode order.
func (b *Bus) Read8(addr uint32) uint8 {
	addr = mask(addr)
	switch b.decode(addr) {
	case regionROMVectors, regionROM:
		return b.rom[b.romOffset(addr)]
	case regionRAM:
		return b.ram[addr]
	case regionIO:
		return b.readIO8(addr)
	default:
		return 0xFF
	}
}

// Write8 writes one byte. Writes to ROM are silently ignored.
func (b *Bus) Write8(addr uint32, v uint8) {
	addr = mask(addr)
	switch b.decode(addr) {
	case regionROMVectors, regionROM:
		if b.Logger != nil {
			b.Logger.Printf("bus: write8 to ROM at 0x%06X ignored", addr)
		}
	case regionRAM:
		b.ram[addr] = v
	case regionIO:
		b.writeIO8(addr, v)
	}
}

// Read16 reads a big-endian 16-bit value.
func (b *Bus) Read16(addr uint32) uint16 {
	addr = mask(addr)
	switch b.decode(addr) {
	case regionROMVectors, regionROM:
		off := b.romOffset(addr)
		return uint16(b.rom[off])<<8 | uint16(b.rom[off+1])
	case regionRAM:
		return uint16(b.ram[addr])<<8 | uint16(b.ram[addr+1])
	case regionIO:
		return b.readIO16(addr)
	default:
		return 0xFFFF
	}
}

// Write16 writes a big-endian 16-bit value.
func (b *Bus) Write16(addr uint32, v uint16) {
	addr = mask(addr)
	switch b.decode(addr) {
	case regionROMVectors, regionROM:
		if b.Logger != nil {
			b.Logger.Printf("bus: write16 to ROM at 0x%06X ignored", addr)
		}
	case regionRAM:
		b.ram[addr] = uint8(v >> 8)
		b.ram[addr+1] = uint8(v)
	case regionIO:
		b.writeIO16(addr, v)
	}
}

// Read32 reads a big-endian 32-bit value as two big-endian 16-bit halves.
func (b *Bus) Read32(addr uint32) uint32 {
	hi := b.Read16(addr)
	lo := b.Read16(addr + 2)
	return uint32(hi)<<16 | uint32(lo)
}

// Write32 writes a big-endian 32-bit value as two big-endian 16-bit halves.
func (b *Bus) Write32(addr uint32, v uint32) {
	b.Write16(addr, uint16(v>>16))
	b.Write16(addr+2, uint16(v))
}

func (b *Bus) readIO8(addr uint32) uint8 {
	if b.isBusErrorRegion(addr) {
		b.fault(addr, 1, false, 0)
		return 0xFF
	}
	switch {
	case addr == mmuConfigAddr:
		return b.mmuConfig
	case addr == videoBaseHiAddr:
		return b.videoBaseHi
	case addr == videoBaseMidAddr:
		return b.videoBaseMid
	case addr == videoCounterHiAddr:
		return b.videoCounterHi
	case addr == videoCounterMidAddr:
		return b.videoCounterMid
	case addr == videoCounterLoAddr:
		return b.videoCounterLo
	case addr == syncModeAddr:
		return b.syncMode
	case addr >= paletteStart && addr <= paletteEnd:
		return b.readPaletteByte(addr)
	case addr == resolutionAddr:
		return b.resolution
	case addr >= fdcStart && addr <= fdcEnd:
		if b.fdc != nil {
			return b.fdc.Read8(addr)
		}
	case addr >= mfpStart && addr <= mfpEnd:
		if b.mfp != nil {
			return b.mfp.Read8(addr)
		}
	case addr == aciaStatusAddr || addr == aciaDataAddr:
		if b.acia != nil {
			return b.acia.Read8(addr)
		}
	}
	return 0xFF
}

func (b *Bus) writeIO8(addr uint32, v uint8) {
	if b.isBusErrorRegion(addr) {
		b.fault(addr, 1, true, uint32(v))
		return
	}
	switch {
	case addr == mmuConfigAddr:
		b.mmuConfig = v
	case addr == videoBaseHiAddr:
		b.videoBaseHi = v
	case addr == videoBaseMidAddr:
		b.videoBaseMid = v
	case addr == videoCounterHiAddr:
		b.videoCounterHi = v
	case addr == videoCounterMidAddr:
		b.videoCounterMid = v
	case addr == videoCounterLoAddr:
		b.videoCounterLo = v
	case addr == syncModeAddr:
		b.syncMode = v
	case addr >= paletteStart && addr <= paletteEnd:
		b.writePaletteByte(addr, v)
	case addr == resolutionAddr:
		b.resolution = v
	case addr >= fdcStart && addr <= fdcEnd:
		if b.fdc != nil {
			b.fdc.Write8(addr, v)
		}
	case addr >= mfpStart && addr <= mfpEnd:
		if b.mfp != nil {
			b.mfp.Write8(addr, v)
		}
	case addr == aciaStatusAddr || addr == aciaDataAddr:
		if b.acia != nil {
			b.acia.Write8(addr, v)
		}
	case addr == ymSelectAddr || addr == ymWriteAddr:
		if b.ym != nil {
			b.ym.Write8(addr, v)
		}
	}
}

func (b *Bus) readIO16(addr uint32) uint16 {
	if b.isBusErrorRegion(addr) {
		b.fault(addr, 2, false, 0)
		return 0xFFFF
	}
	switch {
	case addr >= fdcStart && addr <= fdcEnd:
		if b.fdc != nil {
			return b.fdc.Read16(addr)
		}
		return 0xFFFF
	case addr >= paletteStart && addr <= paletteEnd:
		return b.palette[(addr-paletteStart)/2]
	}
	return uint16(b.readIO8(addr))<<8 | uint16(b.readIO8(addr+1))
}

func (b *Bus) writeIO16(addr uint32, v uint16) {
	if b.isBusErrorRegion(addr) {
		b.fault(addr, 2, true, uint32(v))
		return
	}
	switch {
	case addr >= fdcStart && addr <= fdcEnd:
		if b.fdc != nil {
			b.fdc.Write16(addr, v)
		}
		return
	case addr >= paletteStart && addr <= paletteEnd:
		b.palette[(addr-paletteStart)/2] = v & 0x1FF
		return
	case addr == ymWriteAddr || addr == ymSelectAddr:
		if b.ym != nil {
			b.ym.Write16(addr, v)
		}
		return
	}
	b.writeIO8(addr, uint8(v>>8))
	b.writeIO8(addr+1, uint8(v))
}

func (b *Bus) readPaletteByte(addr uint32) uint8 {
	word := b.palette[(addr-paletteStart)/2]
	if (addr-paletteStart)%2 == 0 {
		return uint8(word >> 8)
	}
	return uint8(word)
}

func (b *Bus) writePaletteByte(addr uint32, v uint8) {
	idx := (addr - paletteStart) / 2
	word := b.palette[idx]
	if (addr-paletteStart)%2 == 0 {
		word = uint16(v)<<8 | (word & 0x00FF)
	} else {
		word = (word & 0xFF00) | uint16(v)
	}
	b.palette[idx] = word & 0x1FF
}

// VideoBase returns the 24-bit video base address latched from
// 0xFF8201/0xFF8203 (the low byte is always zero: video base is aligned
// to a 256-byte boundary on real STF hardware).
func (b *Bus) VideoBase() uint32 {
	return uint32(b.videoBaseHi)<<16 | uint32(b.videoBaseMid)<<8
}

// VideoCounter returns the current 24-bit video (shifter) address counter.
func (b *Bus) VideoCounter() uint32 {
	return uint32(b.videoCounterHi)<<16 | uint32(b.videoCounterMid)<<8 | uint32(b.videoCounterLo)
}

// SetVideoCounter writes the 24-bit video counter back to its three
// registers, as the frame loop does once per visible scanline (§4.9).
func (b *Bus) SetVideoCounter(addr uint32) {
	addr &= AddrMask
	b.videoCounterHi = uint8(addr >> 16)
	b.videoCounterMid = uint8(addr >> 8)
	b.videoCounterLo = uint8(addr)
}

// Resolution returns the raw resolution register (0=low,1=medium,2=high).
func (b *Bus) Resolution() uint8 { return b.resolution }

// Palette returns the 16 raw 9-bit STF palette words.
func (b *Bus) Palette() [16]uint16 { return b.palette }

// RAM exposes the raw RAM slice for DMA transfers (WD1772) and direct
// framebuffer reads (VideoShifter), both of which must bypass the 68000
// addressing shim for throughput.
func (b *Bus) RAM() []byte { return b.ram }

// ReadBytes returns up to n bytes of RAM starting at a masked bus address,
// used by WD1772 DMA and VideoShifter scanline fetch. The result is a
// slice of RAM itself, not a copy, and is shortened at the end of RAM.
func (b *Bus) ReadBytes(addr uint32, n int) []byte {
	addr = mask(addr)
	if int(addr)+n > len(b.ram) {
		n = len(b.ram) - int(addr)
		if n < 0 {
			n = 0
		}
	}
	return b.ram[addr : addr+uint32(n)]
}

// WriteBytes copies data directly into RAM at a masked bus address.
func (b *Bus) WriteBytes(addr uint32, data []byte) {
	addr = mask(addr)
	n := len(data)
	if int(addr)+n > len(b.ram) {
		n = len(b.ram) - int(addr)
	}
	if n > 0 {
		copy(b.ram[addr:addr+uint32(n)], data[:n])
	}
}
