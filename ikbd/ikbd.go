// Package ikbd emulates the 6850-style ACIA wired to the Atari ST's
// intelligent keyboard/mouse/joystick controller: a byte-paced receive
// pipeline into the CPU, and a command parser/packetizer running the
// other direction for mouse, joystick, and keyboard events.
package ikbd

import "sync"

const (
	StatusAddr = 0xFFFC00
	DataAddr   = 0xFFFC02

	CyclesPerByte = 10240 // 7812.5 baud @ 8 MHz
)

// 6850 status bits.
const (
	statRDRF    = 1 << 0
	statTDRE    = 1 << 1
	statOverrun = 1 << 5
	statFraming = 1 << 4
	statIRQ     = 1 << 7
)

// MFPLine is the GPIO line the ACIA drives on byte arrival/consumption.
type MFPLine interface {
	SetGPIO(bit int, level bool)
}

var commandLengths = map[uint8]int{
	0x07: 2,
	0x08: 1,
	0x09: 5,
	0x0A: 3,
	0x12: 1,
	0x14: 1,
	0x15: 1,
	0x16: 1,
	0x1A: 1,
	0x1C: 1,
	0x80: 2,
}

// Controller is the ACIA + IKBD pipeline.
type Controller struct {
	mu sync.Mutex

	status uint8
	latch  uint8

	rxQueue           []byte
	cyclesUntilNext   int

	cmdBuf []uint8

	mouseEnabled    bool
	mouseAbsolute   bool
	mouseButtons    uint8
	joystickEnabled bool
	lastJoyState    uint8

	sensitivityX, sensitivityY int

	txQueue []byte

	mfp MFPLine
}

// New builds an ACIA/IKBD pipeline with the given mouse sensitivity.
func New(sensitivityX, sensitivityY int) *Controller {
	if sensitivityX < 1 {
		sensitivityX = 1
	}
	if sensitivityY < 1 {
		sensitivityY = 1
	}
	return &Controller{sensitivityX: sensitivityX, sensitivityY: sensitivityY, status: statTDRE}
}

func (c *Controller) AttachMFP(m MFPLine) { c.mfp = m }

// Sync advances the receive pipeline by the elapsed CPU cycles, per the
// scanline-driven pacing in §4.7.
func (c *Controller) Sync(cpuCycles int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status&statRDRF != 0 {
		return // latch occupied: back-pressure
	}
	if len(c.rxQueue) == 0 {
		c.cyclesUntilNext = 0
		return
	}
	c.cyclesUntilNext -= cpuCycles
	for c.cyclesUntilNext <= 0 && len(c.rxQueue) > 0 {
		c.latch = c.rxQueue[0]
		c.rxQueue = c.rxQueue[1:]
		c.status |= statRDRF | statIRQ
		if c.mfp != nil {
			c.mfp.SetGPIO(4, false)
		}
		c.cyclesUntilNext += CyclesPerByte
	}
}

func (c *Controller) Read8(addr uint32) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch addr {
	case StatusAddr:
		return c.status
	case DataAddr:
		v := c.latch
		c.status &^= statRDRF | statIRQ | statOverrun | statFraming
		if c.mfp != nil {
			c.mfp.SetGPIO(4, true)
		}
		return v
	}
	return 0
}

func (c *Controller) Write8(addr uint32, v uint8) {
	c.mu.Lock()
	switch addr {
	case StatusAddr:
		if v&0x03 == 0x03 {
			c.resetLocked()
		}
		c.mu.Unlock()
		return
	case DataAddr:
		c.mu.Unlock()
		c.feedCommandByte(v)
		return
	}
	c.mu.Unlock()
}

func (c *Controller) Read16(addr uint32) uint16 {
	return uint16(c.Read8(addr))<<8 | uint16(c.Read8(addr+1))
}

func (c *Controller) Write16(addr uint32, v uint16) {
	c.Write8(addr, uint8(v>>8))
	c.Write8(addr+1, uint8(v))
}

func (c *Controller) resetLocked() {
	c.status = statTDRE
	c.latch = 0
	c.rxQueue = nil
	c.cmdBuf = nil
	c.cyclesUntilNext = 0
	c.mouseEnabled = false
	c.mouseAbsolute = false
	c.mouseButtons = 0
	c.joystickEnabled = false
	c.lastJoyState = 0
	c.txQueue = nil
}

// feedCommandByte accumulates a byte sent by the CPU toward the IKBD,
// executing the command once its documented length is reached.
func (c *Controller) feedCommandByte(v uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cmdBuf) == 0 {
		if _, known := commandLengths[v]; !known {
			return // NOP on unknown first byte
		}
	}
	c.cmdBuf = append(c.cmdBuf, v)

	want, ok := commandLengths[c.cmdBuf[0]]
	if !ok {
		c.cmdBuf = nil
		return
	}
	if len(c.cmdBuf) < want {
		return
	}
	c.executeCommandLocked(c.cmdBuf)
	c.cmdBuf = nil
}

func (c *Controller) executeCommandLocked(cmd []uint8) {
	switch cmd[0] {
	case 0x08:
		c.mouseEnabled = true
		c.mouseAbsolute = false
	case 0x09:
		c.mouseEnabled = true
		c.mouseAbsolute = true
	case 0x0A:
		c.mouseEnabled = true
	case 0x12:
		c.mouseEnabled = false
	case 0x14:
		c.joystickEnabled = true
		c.enqueueLocked(0xFF, c.lastJoyState)
	case 0x15:
		c.joystickEnabled = false
	case 0x16:
		c.enqueueLocked(0xFD, 0, c.lastJoyState)
	case 0x1A:
		c.joystickEnabled = false
	case 0x1C:
		c.enqueueLocked(0xFC, 0, 0, 0, 0, 0, 0)
	case 0x80:
		if len(cmd) == 2 && cmd[1] == 0x01 {
			c.mouseEnabled = true
			c.mouseAbsolute = false
			c.joystickEnabled = true
			c.enqueueLocked(0xF0, 0xF1)
		}
	case 0x07:
		// set button action: accepted, state not otherwise modeled
	}
}

func (c *Controller) enqueueLocked(bytes ...uint8) {
	c.rxQueue = append(c.rxQueue, bytes...)
}

// Enqueue pushes bytes into the host->CPU queue; exported for host-side
// injection and tests (the packetization helpers below use the locked
// enqueueLocked directly).
func (c *Controller) Enqueue(bytes ...uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enqueueLocked(bytes...)
}

func clamp127(v int) int8 {
	if v > 127 {
		v = 127
	}
	if v < -127 {
		v = -127
	}
	return int8(v)
}

// MouseMove packetizes relative host motion scaled by the configured
// sensitivity, per §4.7's event packetization rules.
func (c *Controller) MouseMove(dx, dy int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mouseEnabled {
		return
	}
	sdx := clamp127(dx / c.sensitivityX)
	sdy := clamp127(dy / c.sensitivityY)
	header := 0xF8 | c.mouseButtons
	c.enqueueLocked(header, uint8(sdx), uint8(sdy))
}

// MouseButton sets left (bit 1) or right (bit 0) button state.
func (c *Controller) MouseButton(left, down bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if left {
		if down {
			c.mouseButtons |= 1 << 1
		} else {
			c.mouseButtons &^= 1 << 1
		}
	} else {
		if down {
			c.mouseButtons |= 1 << 0
		} else {
			c.mouseButtons &^= 1 << 0
		}
	}
}

// JoystickDirection toggles one of the four direction bits (0=up,
// 1=down, 2=left, 3=right) and, when joystick reporting is enabled and
// the state changed, pushes {0xFF, state}. It does not touch
// mouse_buttons; the fire alias lives in JoystickFire.
func (c *Controller) JoystickDirection(bit int, pressed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.lastJoyState
	if pressed {
		c.lastJoyState |= 1 << uint(bit)
	} else {
		c.lastJoyState &^= 1 << uint(bit)
	}
	if c.lastJoyState != prev && c.joystickEnabled {
		c.enqueueLocked(0xFF, c.lastJoyState)
	}
}

// JoystickFire routes fire to mouse_buttons bit 0 (compatibility hack)
// as well as the joystick state's bit 7 convention used by real IKBD
// firmware, reporting a state change to joystick auto-report listeners.
func (c *Controller) JoystickFire(down bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if down {
		c.mouseButtons |= 1 << 0
	} else {
		c.mouseButtons &^= 1 << 0
	}
	prev := c.lastJoyState
	if down {
		c.lastJoyState |= 1 << 7
	} else {
		c.lastJoyState &^= 1 << 7
	}
	if c.lastJoyState != prev && c.joystickEnabled {
		c.enqueueLocked(0xFF, c.lastJoyState)
	}
}

// scancodeTable maps host scancodes (e.g. as reported by the videoout
// package's keyboard backend) to ST scancodes. Unmapped entries are 0,
// which this core treats as "no corresponding ST key".
var scancodeTable [256]uint8

// SetScancodeMapping installs the host->ST scancode table; kept as a
// setter so videoout can supply a platform-specific mapping without this
// package depending on any particular host keyboard library.
func SetScancodeMapping(table [256]uint8) { scancodeTable = table }

// KeyEvent pushes a key-down (the mapped scancode) or key-up (scancode
// with bit 7 set) byte into the receive queue.
func (c *Controller) KeyEvent(hostScancode uint8, down bool) {
	st := scancodeTable[hostScancode]
	if st == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if down {
		c.enqueueLocked(st)
	} else {
		c.enqueueLocked(st | 0x80)
	}
}
