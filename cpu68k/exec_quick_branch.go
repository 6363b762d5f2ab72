package cpu68k

// execGroup5 handles ADDQ/SUBQ #imm,<ea>, Scc <ea>, and DBcc Dn,label
// (all share the 0101 top nibble; the size field value 3 repurposes the
// encoding for Scc/DBcc).
func (c *CPU) execGroup5(opcode uint16) (int, error) {
	sizeBits := (opcode >> 6) & 3
	mode := (opcode >> 3) & 7
	reg := opcode & 7

	if sizeBits == 3 {
		cond := uint8((opcode >> 8) & 0xF)
		if mode == 1 {
			return c.execDBcc(cond, reg)
		}
		return c.execScc(cond, mode, reg)
	}

	size := opSize(sizeBits)
	data := (opcode >> 9) & 7
	if data == 0 {
		data = 8
	}
	subtract := opcode&0x0100 != 0

	ea, err := c.decodeEA(mode, reg, size)
	if err != nil {
		return 0, err
	}
	dst := c.read(ea, size)
	var result uint32
	if subtract {
		result = dst - uint32(data)
		if mode != 1 {
			c.subFlags(dst, uint32(data), result, size)
		}
	} else {
		result = dst + uint32(data)
		if mode != 1 {
			c.addFlags(dst, uint32(data), result, size)
		}
	}
	c.write(ea, size, result)
	return 4, nil
}

func (c *CPU) execScc(cond uint8, mode, reg uint16) (int, error) {
	ea, err := c.decodeEA(mode, reg, 1)
	if err != nil {
		return 0, err
	}
	if c.checkCondition(cond) {
		c.write(ea, 1, 0xFF)
	} else {
		c.write(ea, 1, 0x00)
	}
	return 4, nil
}

func (c *CPU) execDBcc(cond uint8, reg uint16) (int, error) {
	disp := int16(c.fetch16())
	branchPC := c.PC - 2
	if c.checkCondition(cond) {
		return 10, nil
	}
	v := int16(c.D[reg] & 0xFFFF)
	v--
	c.D[reg] = (c.D[reg] &^ 0xFFFF) | uint32(uint16(v))
	if v != -1 {
		c.PC = uint32(int32(branchPC) + int32(disp))
		return 10, nil
	}
	return 14, nil
}

// execGroup6 handles Bcc/BRA/BSR (top nibble 0110). The 8-bit
// displacement in the opcode's low byte is used unless it is zero, in
// which case a 16-bit displacement follows.
func (c *CPU) execGroup6(opcode uint16) (int, error) {
	cond := uint8((opcode >> 8) & 0xF)
	branchPC := c.PC
	disp := int32(int8(opcode & 0xFF))
	if disp == 0 {
		disp = int32(int16(c.fetch16()))
	}
	target := uint32(int32(branchPC) + disp)

	if cond == 1 { // BSR
		c.A[7] -= 4
		c.bus.Write32(c.A[7], c.PC)
		c.PC = target
		return 18, nil
	}
	if cond == 0 || c.checkCondition(cond) { // BRA or Bcc taken
		c.PC = target
		return 10, nil
	}
	return 8, nil
}
