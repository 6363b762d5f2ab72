// Package cpu68k is the 68000 instruction core consumed by the frame
// loop through the narrow interface described in spec §4.2/§9: reset,
// execute-for-cycle-budget, register access, IPL input, supervisor-mode
// control, and an IRQ-acknowledge callback returning an autovector or a
// device vector. The rest of the emulator never reaches into its
// internals — it is wired exactly as if it were an external library.
//
// Per §1's Non-goals ("cycle-exact instruction timing below scanline
// granularity"), per-instruction cycle accounting is approximate; the
// frame loop only ever requests bounded cycle budgets and tolerates the
// one-instruction overshoot §4.2 allows for.
package cpu68k

import (
	"errors"
	"fmt"
	"log"
)

// Bus is the memory interface the core reads instructions and operands
// through. Implemented by package bus.
type Bus interface {
	Read8(addr uint32) uint8
	Write8(addr uint32, v uint8)
	Read16(addr uint32) uint16
	Write16(addr uint32, v uint16)
	Read32(addr uint32) uint32
	Write32(addr uint32, v uint32)
}

// IRQAcknowledger resolves an interrupt level to an exception vector
// number during the CPU's interrupt-acknowledge cycle (§4.2's irq_ack).
type IRQAcknowledger interface {
	IRQAck(level uint8) uint8
}

// Status register bits.
const (
	srCarry     = 1 << 0
	srOverflow  = 1 << 1
	srZero      = 1 << 2
	srNegative  = 1 << 3
	srExtend    = 1 << 4
	srIPMask    = 7 << 8
	srSupervisor = 1 << 13
	srTrace     = 1 << 15
)

const (
	vectorReset0        = 0
	vectorReset1        = 1
	vectorBusError      = 2
	vectorAddressError  = 3
	vectorIllegalInstr  = 4
	vectorZeroDivide    = 5
	vectorPrivViolation = 8
	vectorTrapBase      = 32 // TRAP #0..15 -> vectors 32..47
	vectorSpurious      = 24
	vectorAutoBase      = 24 // autovector N -> 24+N
)

// CPU is the 68000 execution core.
type CPU struct {
	D [8]uint32
	A [8]uint32 // A[7] mirrors the active stack pointer (SSP or USP)

	PC uint32
	SR uint16

	SSP uint32
	USP uint32

	bus    Bus
	irqAck IRQAcknowledger

	ipl uint8 // current interrupt priority level input, 0..7

	pendingFault      bool
	faultAddr         uint32
	faultSize         uint8
	faultWrite        bool
	faultData         uint32
	faultIsInstrFetch bool

	stopped bool // STOP instruction executed; resumes on interrupt
	Trace   bool // debug-mode instruction trace

	// Logger receives one line per instruction while Trace is set,
	// defaulting to log.Default() (AMBIENT STACK: plain `log`, no
	// structured logging library). TraceWidth narrows the line to fit
	// a host terminal (0 means "untruncated", the non-tty case).
	Logger     *log.Logger
	TraceWidth int

	cyclesRun uint64
}

// NewCPU constructs a CPU wired to bus. Call Reset before first use.
func NewCPU(b Bus) *CPU {
	return &CPU{bus: b, SR: srSupervisor | srIPMask, Logger: log.Default()}
}

// AttachIRQAck wires the component that resolves interrupt levels to
// vectors (the InterruptArbiter/MFP pair in package system).
func (c *CPU) AttachIRQAck(a IRQAcknowledger) { c.irqAck = a }

// Reset reproduces 68000 power-up: reads the initial SSP from vector 0
// and the initial PC from vector 1, forces supervisor mode, and clears
// the trace bit.
func (c *CPU) Reset() {
	c.D = [8]uint32{}
	c.A = [8]uint32{}
	c.SR = srSupervisor | srIPMask
	c.SSP = c.bus.Read32(0)
	c.A[7] = c.SSP
	c.PC = c.bus.Read32(4)
	c.stopped = false
	c.pendingFault = false
	c.ipl = 0
}

// SetIPL sets the interrupt priority level presented to the CPU, 0..7,
// per §4.4's InterruptArbiter output.
func (c *CPU) SetIPL(level uint8) { c.ipl = level & 7 }

// Supervisor reports whether the CPU is currently in supervisor mode.
func (c *CPU) Supervisor() bool { return c.SR&srSupervisor != 0 }

// SetSupervisor forces the supervisor-mode bit, swapping the active
// stack pointer between SSP and USP as real hardware does on a mode
// change (§4.2's narrow capability set names this as one of the six
// operations the external core must expose).
func (c *CPU) SetSupervisor(supervisor bool) {
	if supervisor == c.Supervisor() {
		return
	}
	c.swapStackPointer(supervisor)
	if supervisor {
		c.SR |= srSupervisor
	} else {
		c.SR &^= srSupervisor
	}
}

func (c *CPU) swapStackPointer(enteringSupervisor bool) {
	if enteringSupervisor {
		c.USP = c.A[7]
		c.A[7] = c.SSP
	} else {
		c.SSP = c.A[7]
		c.A[7] = c.USP
	}
}

// ScheduleBusError implements bus.Faulter: the bus calls this when an
// access touches a restricted region. Per §4.1/§9 the callback just
// records the fault; the core raises the group-0 exception at the next
// safe boundary (the end of the current instruction's ExecuteFor step).
func (c *CPU) ScheduleBusError(addr uint32, size uint8, write bool, data uint32) {
	c.pendingFault = true
	c.faultAddr = addr
	c.faultSize = size
	c.faultWrite = write
	c.faultData = data
}

// RegisterD and RegisterA are the generic register-access operations
// named in §4.2 ("read_register/write_register").
func (c *CPU) RegisterD(n int) uint32  { return c.D[n&7] }
func (c *CPU) SetRegisterD(n int, v uint32) { c.D[n&7] = v }
func (c *CPU) RegisterA(n int) uint32  { return c.A[n&7] }
func (c *CPU) SetRegisterA(n int, v uint32) { c.A[n&7] = v }

// ExecuteFor runs instructions until at least budget cycles have been
// consumed, returning the actual number consumed. The core may overshoot
// by at most one instruction (§4.2).
func (c *CPU) ExecuteFor(budget int) int {
	spent := 0
	for spent < budget {
		if lvl := c.pendingInterruptLevel(); lvl > 0 {
			c.takeInterrupt(lvl)
			spent += 44
			continue
		}
		if c.stopped {
			// Parked until an interrupt arrives; consume the whole
			// remaining budget in one step so the loop terminates.
			return budget
		}
		cost := c.step()
		spent += cost
		c.cyclesRun += uint64(cost)
	}
	return spent
}

// pendingInterruptLevel returns the level to service now, or 0 if none:
// level 7 is non-maskable, others must exceed the current SR interrupt
// mask.
func (c *CPU) pendingInterruptLevel() uint8 {
	if c.ipl == 0 {
		return 0
	}
	mask := uint8((c.SR & srIPMask) >> 8)
	if c.ipl == 7 || c.ipl > mask {
		return c.ipl
	}
	return 0
}

func (c *CPU) takeInterrupt(level uint8) {
	var vector uint8 = vectorSpurious
	if c.irqAck != nil {
		vector = c.irqAck.IRQAck(level)
	}
	oldSR := c.SR
	c.SetSupervisor(true)
	c.SR = (c.SR &^ srIPMask) | (uint16(level) << 8)
	c.SR &^= srTrace
	c.pushExceptionFrame(oldSR, c.PC, 0)
	c.PC = c.bus.Read32(uint32(vector) * 4)
	c.stopped = false
}

// step fetches, decodes and executes exactly one instruction (or raises
// the pending exception in its place) and returns the cycles charged.
func (c *CPU) step() int {
	if c.pendingFault {
		c.raiseBusError()
		return 34
	}
	startPC := c.PC
	opcode := c.fetch16()
	cost, err := c.execute(opcode)
	if c.pendingFault {
		c.PC = startPC
		c.raiseBusError()
		return 34
	}
	if err != nil {
		vector := uint8(vectorIllegalInstr)
		if errors.Is(err, errPrivilegeViolation) {
			vector = vectorPrivViolation
		}
		c.PC = startPC
		c.raiseException(vector, startPC)
		return 34
	}
	if c.Trace {
		c.traceLine(startPC, opcode, cost)
	}
	return cost
}

// traceLine emits one instruction-trace line per §6's --debug option. A
// wide enough terminal (TraceWidth, from the host's raw-terminal size)
// gets the full data/address register file; anything narrower, or a
// non-tty TraceWidth of 0, gets PC/opcode/cycles only.
func (c *CPU) traceLine(pc uint32, opcode uint16, cost int) {
	if c.Logger == nil {
		return
	}
	if c.TraceWidth >= 100 {
		c.Logger.Printf("PC=%06X OP=%04X cyc=%d D=%08X,%08X,%08X,%08X,%08X,%08X,%08X,%08X A=%08X,%08X,%08X,%08X,%08X,%08X,%08X,%08X SR=%04X",
			pc, opcode, cost,
			c.D[0], c.D[1], c.D[2], c.D[3], c.D[4], c.D[5], c.D[6], c.D[7],
			c.A[0], c.A[1], c.A[2], c.A[3], c.A[4], c.A[5], c.A[6], c.A[7], c.SR)
		return
	}
	c.Logger.Printf("PC=%06X OP=%04X cyc=%d", pc, opcode, cost)
}

func (c *CPU) fetch16() uint16 {
	v := c.bus.Read16(c.PC)
	c.PC += 2
	return v
}

func (c *CPU) fetch32() uint32 {
	v := c.bus.Read32(c.PC)
	c.PC += 4
	return v
}

// raiseBusError synthesizes the 68000 group-0 exception: a 14-byte stack
// frame {function-code/RW word, fault address, instruction register, SR,
// PC}, forcing supervisor mode first, per §4.1's bus-error protocol.
func (c *CPU) raiseBusError() {
	c.pendingFault = false
	oldSR := c.SR
	faultPC := c.PC
	c.SetSupervisor(true)
	c.SR &^= srTrace

	ssw := uint16(0)
	if !c.faultWrite {
		ssw |= 1 << 8
	}
	if c.faultIsInstrFetch {
		ssw |= 1 << 3 // function code: supervisor program space
	} else {
		ssw |= 1 << 0 // function code: supervisor data space
	}

	sp := c.A[7]
	sp -= 2
	c.bus.Write16(sp, 0) // instruction register placeholder (unknown at fault time)
	sp -= 4
	c.bus.Write32(sp, c.faultAddr)
	sp -= 2
	c.bus.Write16(sp, ssw)
	sp -= 2
	c.bus.Write16(sp, oldSR)
	sp -= 4
	c.bus.Write32(sp, faultPC)
	c.SSP = sp
	c.A[7] = sp

	vecAddr := uint32(vectorBusError) * 4
	handler := c.bus.Read32(vecAddr)
	if handler == 0 {
		// Guarded skip: no handler installed, don't actually jump.
		return
	}
	c.PC = handler
}

// raiseException pushes the standard short (group 1/2) 6-byte exception
// frame {SR, PC} and jumps to the vector's handler.
func (c *CPU) raiseException(vector uint8, faultPC uint32) {
	oldSR := c.SR
	c.SetSupervisor(true)
	c.SR &^= srTrace
	c.pushExceptionFrame(oldSR, faultPC, vector)
	c.PC = c.bus.Read32(uint32(vector) * 4)
}

func (c *CPU) pushExceptionFrame(oldSR uint16, pc uint32, vector uint8) {
	sp := c.A[7]
	sp -= 4
	c.bus.Write32(sp, pc)
	sp -= 2
	c.bus.Write16(sp, oldSR)
	c.SSP = sp
	c.A[7] = sp
}

// execRTE pops the short exception frame and resumes; the RTE opcode
// dispatches here.
func (c *CPU) execRTE() {
	sp := c.A[7]
	sr := c.bus.Read16(sp)
	sp += 2
	pc := c.bus.Read32(sp)
	sp += 4
	wasSupervisor := c.Supervisor()
	c.SR = sr
	if wasSupervisor && !c.Supervisor() {
		// SetSupervisor would swap A[7] again; set the raw bit and fix
		// up the stack pointers by hand since we already popped from
		// the supervisor stack.
		c.SSP = sp
		c.A[7] = c.USP
	} else {
		c.A[7] = sp
		if c.Supervisor() {
			c.SSP = sp
		} else {
			c.USP = sp
		}
	}
	c.PC = pc
}

func (c *CPU) String() string {
	return fmt.Sprintf("PC=%08X SR=%04X D=%08X A=%08X", c.PC, c.SR, c.D, c.A)
}
