package cpu68k

// execMove handles the MOVE.b/.w/.l family (top nibbles 0001/0011/0010).
// Encoding: 00 ss DDD MMM mmm rrr — dest register/mode precede source
// mode/register, both decoded through the same decodeEA as every other
// instruction.
func (c *CPU) execMove(opcode uint16, size int) (int, error) {
	destReg := (opcode >> 9) & 7
	destMode := (opcode >> 6) & 7
	srcMode := (opcode >> 3) & 7
	srcReg := opcode & 7

	src, err := c.decodeEA(srcMode, srcReg, size)
	if err != nil {
		return 0, err
	}
	v := c.read(src, size)

	dst, err := c.decodeEA(destMode, destReg, size)
	if err != nil {
		return 0, err
	}
	c.write(dst, size, v)
	if destMode != 1 { // MOVEA does not affect flags
		c.setFlagsNZ(v, size)
	}
	return 8, nil
}

// execMoveq handles MOVEQ #imm,Dn (group 0111).
func (c *CPU) execMoveq(opcode uint16) (int, error) {
	reg := (opcode >> 9) & 7
	imm := int32(int8(opcode & 0xFF))
	c.D[reg] = uint32(imm)
	c.setFlagsNZ(uint32(imm), 4)
	return 4, nil
}
