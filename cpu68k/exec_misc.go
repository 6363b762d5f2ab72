package cpu68k

// execGroup4 handles the 0100-group "miscellaneous" instructions: the
// single-operand ALU ops (CLR/NEG/NOT/TST), address-register loads
// (LEA/PEA), stack frame helpers (LINK/UNLK), subroutine/jump transfers
// (JSR/JMP), block register transfer (MOVEM), SWAP/EXT, the
// status-register moves, and the zero-operand control instructions
// (NOP/RESET/STOP/RTE/RTS/RTR/TRAP/TRAPV).
func (c *CPU) execGroup4(opcode uint16) (int, error) {
	switch opcode {
	case 0x4E71:
		return 4, nil // NOP
	case 0x4E70:
		if !c.Supervisor() {
			return 0, errPrivilegeViolation
		}
		return 4, nil // RESET: no external devices modeled to reset
	case 0x4E72:
		if !c.Supervisor() {
			return 0, errPrivilegeViolation
		}
		c.SR = c.fetch16()
		c.stopped = true
		return 4, nil
	case 0x4E73:
		if !c.Supervisor() {
			return 0, errPrivilegeViolation
		}
		c.execRTE()
		return 20, nil
	case 0x4E75:
		c.execRTS()
		return 16, nil
	case 0x4E76:
		if c.flag(srOverflow) {
			c.raiseException(7, c.PC)
		}
		return 4, nil
	case 0x4E77:
		// RTR: pops CCR then PC; the system byte of SR is left unchanged.
		ccr := c.bus.Read16(c.A[7])
		c.A[7] += 2
		c.PC = c.bus.Read32(c.A[7])
		c.A[7] += 4
		c.SR = (c.SR &^ 0xFF) | (ccr & 0xFF)
		return 20, nil
	}

	if opcode&0xFFF0 == 0x4E40 {
		vector := uint8(vectorTrapBase) + uint8(opcode&0xF)
		c.raiseException(vector, c.PC)
		return 34, nil
	}
	if opcode&0xFFF8 == 0x4E50 {
		reg := opcode & 7
		disp := int16(c.fetch16())
		c.A[7] -= 4
		c.bus.Write32(c.A[7], c.A[reg])
		c.A[reg] = c.A[7]
		c.A[7] = uint32(int32(c.A[7]) + int32(disp))
		return 16, nil
	}
	if opcode&0xFFF8 == 0x4E58 {
		reg := opcode & 7
		c.A[7] = c.A[reg]
		c.A[reg] = c.bus.Read32(c.A[7])
		c.A[7] += 4
		return 12, nil
	}
	if opcode&0xFFC0 == 0x4E80 {
		ea, err := c.decodeEA((opcode>>3)&7, opcode&7, 4)
		if err != nil {
			return 0, err
		}
		c.A[7] -= 4
		c.bus.Write32(c.A[7], c.PC)
		c.PC = ea.addr
		return 18, nil
	}
	if opcode&0xFFC0 == 0x4EC0 {
		ea, err := c.decodeEA((opcode>>3)&7, opcode&7, 4)
		if err != nil {
			return 0, err
		}
		c.PC = ea.addr
		return 8, nil
	}
	if opcode&0xF1C0 == 0x41C0 {
		reg := (opcode >> 9) & 7
		ea, err := c.decodeEA((opcode>>3)&7, opcode&7, 4)
		if err != nil {
			return 0, err
		}
		c.A[reg] = ea.addr
		return 4, nil
	}
	if opcode&0xFF00 == 0x4200 {
		return c.execUnaryALU(opcode, opClr)
	}
	if opcode&0xFF00 == 0x4400 {
		return c.execUnaryALU(opcode, opNeg)
	}
	if opcode&0xFF00 == 0x4600 {
		return c.execUnaryALU(opcode, opNot)
	}
	if opcode&0xFF00 == 0x4A00 {
		return c.execUnaryALU(opcode, opTst)
	}
	if opcode&0xFFF8 == 0x4840 {
		reg := opcode & 7
		v := c.D[reg]
		c.D[reg] = (v << 16) | (v >> 16)
		c.setFlagsNZ(c.D[reg], 4)
		return 4, nil
	}
	if opcode&0xFFF8 == 0x4880 {
		reg := opcode & 7
		c.D[reg] = (c.D[reg] &^ 0xFFFF) | uint32(uint16(int16(int8(c.D[reg]))))
		c.setFlagsNZ(c.D[reg]&0xFFFF, 2)
		return 4, nil
	}
	if opcode&0xFFF8 == 0x48C0 {
		reg := opcode & 7
		c.D[reg] = uint32(int32(int16(c.D[reg])))
		c.setFlagsNZ(c.D[reg], 4)
		return 4, nil
	}
	if opcode&0xFFC0 == 0x4840 {
		mode := (opcode >> 3) & 7
		if mode == 0 || mode == 1 || mode == 3 || mode == 4 {
			return 0, errUnsupportedMode // not a valid PEA addressing mode
		}
		ea, err := c.decodeEA(mode, opcode&7, 4)
		if err != nil {
			return 0, err
		}
		c.A[7] -= 4
		c.bus.Write32(c.A[7], ea.addr)
		return 12, nil
	}
	if opcode&0xFFC0 == 0x46C0 {
		if !c.Supervisor() {
			return 0, errPrivilegeViolation
		}
		ea, err := c.decodeEA((opcode>>3)&7, opcode&7, 2)
		if err != nil {
			return 0, err
		}
		c.SR = uint16(c.read(ea, 2))
		return 12, nil
	}
	if opcode&0xFFC0 == 0x44C0 {
		ea, err := c.decodeEA((opcode>>3)&7, opcode&7, 2)
		if err != nil {
			return 0, err
		}
		c.SR = (c.SR &^ 0xFF) | uint16(c.read(ea, 2)&0xFF)
		return 12, nil
	}
	if opcode&0xFFC0 == 0x40C0 {
		ea, err := c.decodeEA((opcode>>3)&7, opcode&7, 2)
		if err != nil {
			return 0, err
		}
		c.write(ea, 2, uint32(c.SR))
		return 8, nil
	}
	if opcode&0xFB80 == 0x4880 {
		return c.execMovem(opcode, false)
	}
	if opcode&0xFB80 == 0x4C80 {
		return c.execMovem(opcode, true)
	}
	return 0, errUnsupportedMode
}

func (c *CPU) execRTS() {
	c.PC = c.bus.Read32(c.A[7])
	c.A[7] += 4
}

type unaryOp int

const (
	opClr unaryOp = iota
	opNeg
	opNot
	opTst
)

func (c *CPU) execUnaryALU(opcode uint16, op unaryOp) (int, error) {
	size := opSize((opcode >> 6) & 3)
	ea, err := c.decodeEA((opcode>>3)&7, opcode&7, size)
	if err != nil {
		return 0, err
	}
	switch op {
	case opClr:
		c.write(ea, size, 0)
		c.setFlagsNZ(0, size)
	case opNeg:
		v := c.read(ea, size)
		result := (-int32(v)) & int32(sizeMask(size))
		c.write(ea, size, uint32(result))
		c.subFlags(0, v, uint32(result), size)
	case opNot:
		v := c.read(ea, size)
		result := (^v) & sizeMask(size)
		c.write(ea, size, result)
		c.setFlagsNZ(result, size)
	case opTst:
		v := c.read(ea, size)
		c.setFlagsNZ(v, size)
	}
	return 4, nil
}

// execMovem handles MOVEM <reg-list>,<ea> and MOVEM <ea>,<reg-list>.
// toRegs selects the direction; the register-list mask word always
// precedes the instruction's addressing extension words.
func (c *CPU) execMovem(opcode uint16, toRegs bool) (int, error) {
	size := 2
	if opcode&0x0040 != 0 {
		size = 4
	}
	mask := c.fetch16()
	mode := (opcode >> 3) & 7
	reg := opcode & 7

	if mode == 4 { // -(An): predecrement, register order reversed (bit 0 = A7 ... bit 15 = D0)
		addr := c.A[reg]
		for i := 0; i < 16; i++ {
			if mask&(1<<uint(i)) == 0 {
				continue
			}
			addr -= uint32(size)
			var v uint32
			if i < 8 {
				v = c.A[7-i]
			} else {
				v = c.D[15-i]
			}
			if size == 2 {
				c.bus.Write16(addr, uint16(v))
			} else {
				c.bus.Write32(addr, v)
			}
		}
		c.A[reg] = addr
		return 8, nil
	}

	ea, err := c.decodeEA(mode, reg, 4)
	if err != nil {
		return 0, err
	}
	addr := ea.addr
	for i := 0; i < 16; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		if toRegs {
			var v uint32
			if size == 2 {
				v = uint32(int32(int16(c.bus.Read16(addr))))
			} else {
				v = c.bus.Read32(addr)
			}
			if i < 8 {
				c.D[i] = v
			} else {
				c.A[i-8] = v
			}
		} else {
			var v uint32
			if i < 8 {
				v = c.D[i]
			} else {
				v = c.A[i-8]
			}
			if size == 2 {
				c.bus.Write16(addr, uint16(v))
			} else {
				c.bus.Write32(addr, v)
			}
		}
		addr += uint32(size)
	}
	if mode == 3 { // (An)+ updates the pointer to the final address
		c.A[reg] = addr
	}
	return 8, nil
}
