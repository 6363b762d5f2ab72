package cpu68k

import (
	"errors"
	"fmt"
)

// errUnsupportedMode marks an addressing-mode/size combination this
// trimmed core does not decode. Surfaced to the caller as an illegal
// instruction exception rather than panicking, matching §7's "result
// valued, caught at the batch boundary" propagation style.
var errUnsupportedMode = errors.New("cpu68k: unsupported addressing mode")

// errPrivilegeViolation marks an attempt to execute a supervisor-only
// instruction from user mode (vector 8).
var errPrivilegeViolation = errors.New("cpu68k: privilege violation")

// operand is a decoded effective-address reference: either a register
// (isReg set) or a memory location the caller must route through the
// bus at the given size.
type operand struct {
	isReg   bool
	isAReg  bool
	reg     int
	addr    uint32
	deferred bool // (An)/(An)+/-(An)/(An,d16) style - needs read-modify-write via addr
}

// decodeEA resolves a mode/register field pair into an operand, advancing
// PC past any extension words it consumes (displacements, absolute
// addresses, immediates). size is in bytes (1, 2, or 4).
func (c *CPU) decodeEA(mode, reg uint16, size int) (operand, error) {
	switch mode {
	case 0:
		return operand{isReg: true, reg: int(reg)}, nil
	case 1:
		return operand{isReg: true, isAReg: true, reg: int(reg)}, nil
	case 2:
		return operand{addr: c.A[reg]}, nil
	case 3:
		a := c.A[reg]
		inc := uint32(size)
		if reg == 7 && size == 1 {
			inc = 2 // A7 stays word-aligned
		}
		c.A[reg] += inc
		return operand{addr: a}, nil
	case 4:
		dec := uint32(size)
		if reg == 7 && size == 1 {
			dec = 2
		}
		c.A[reg] -= dec
		return operand{addr: c.A[reg]}, nil
	case 5:
		disp := int16(c.fetch16())
		return operand{addr: uint32(int32(c.A[reg]) + int32(disp))}, nil
	case 7:
		switch reg {
		case 0:
			return operand{addr: uint32(c.fetch16())}, nil
		case 1:
			return operand{addr: c.fetch32()}, nil
		case 2:
			base := c.PC
			disp := int16(c.fetch16())
			return operand{addr: uint32(int32(base) + int32(disp))}, nil
		case 4:
			switch size {
			case 1:
				return operand{isReg: true, reg: -1, addr: uint32(c.fetch16() & 0xFF)}, nil
			case 2:
				return operand{isReg: true, reg: -1, addr: uint32(c.fetch16())}, nil
			case 4:
				return operand{isReg: true, reg: -1, addr: c.fetch32()}, nil
			}
		}
	}
	return operand{}, fmt.Errorf("%w: mode=%d reg=%d", errUnsupportedMode, mode, reg)
}

// read loads the operand's value at the given size (1, 2, or 4 bytes).
func (c *CPU) read(op operand, size int) uint32 {
	if op.isReg {
		if op.reg == -1 { // immediate
			return op.addr
		}
		var v uint32
		if op.isAReg {
			v = c.A[op.reg]
		} else {
			v = c.D[op.reg]
		}
		switch size {
		case 1:
			return v & 0xFF
		case 2:
			return v & 0xFFFF
		default:
			return v
		}
	}
	switch size {
	case 1:
		return uint32(c.bus.Read8(op.addr))
	case 2:
		return uint32(c.bus.Read16(op.addr))
	default:
		return c.bus.Read32(op.addr)
	}
}

// write stores v into the operand at the given size, preserving the
// untouched high bits of a data register on sub-longword writes.
func (c *CPU) write(op operand, size int, v uint32) {
	if op.isReg {
		if op.isAReg {
			// Address-register writes are always sign-extended to 32
			// bits regardless of operation size.
			if size == 2 {
				c.A[op.reg] = uint32(int32(int16(v)))
			} else {
				c.A[op.reg] = v
			}
			return
		}
		switch size {
		case 1:
			c.D[op.reg] = (c.D[op.reg] &^ 0xFF) | (v & 0xFF)
		case 2:
			c.D[op.reg] = (c.D[op.reg] &^ 0xFFFF) | (v & 0xFFFF)
		default:
			c.D[op.reg] = v
		}
		return
	}
	switch size {
	case 1:
		c.bus.Write8(op.addr, uint8(v))
	case 2:
		c.bus.Write16(op.addr, uint16(v))
	default:
		c.bus.Write32(op.addr, v)
	}
}

func signExtend(v uint32, size int) int32 {
	switch size {
	case 1:
		return int32(int8(v))
	case 2:
		return int32(int16(v))
	default:
		return int32(v)
	}
}

func msb(size int) uint32 {
	switch size {
	case 1:
		return 0x80
	case 2:
		return 0x8000
	default:
		return 0x80000000
	}
}

func sizeMask(size int) uint32 {
	switch size {
	case 1:
		return 0xFF
	case 2:
		return 0xFFFF
	default:
		return 0xFFFFFFFF
	}
}
