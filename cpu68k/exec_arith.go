package cpu68k

// execGroup9 handles ADD/ADDA (top nibble 1101) and SUB/SUBA (top nibble
// 1001), which share an identical opmode layout:
//   opmode 000/001/010 - <ea> + Dn -> Dn   (byte/word/long)
//   opmode 011         - <ea> + An -> An   (word, sign-extended: ADDA/SUBA)
//   opmode 100/101/110 - Dn + <ea> -> <ea> (byte/word/long, memory dest)
//   opmode 111         - <ea> + An -> An   (long: ADDA/SUBA)
//
// The register/predecrement repurposing of opmodes 100-110 into
// ADDX/SUBX is not decoded by this trimmed core (§1 excludes full
// opcode-table completeness).
func (c *CPU) execGroup9(opcode uint16, isAdd bool) (int, error) {
	reg := (opcode >> 9) & 7
	opmode := (opcode >> 6) & 7
	mode := (opcode >> 3) & 7
	eaReg := opcode & 7

	if opmode == 3 || opmode == 7 {
		size := 2
		if opmode == 7 {
			size = 4
		}
		ea, err := c.decodeEA(mode, eaReg, size)
		if err != nil {
			return 0, err
		}
		v := uint32(int32(signExtend(c.read(ea, size), size)))
		if isAdd {
			c.A[reg] += v
		} else {
			c.A[reg] -= v
		}
		return 8, nil
	}

	size := opSize(opmode & 3)
	reverse := opmode >= 4

	ea, err := c.decodeEA(mode, eaReg, size)
	if err != nil {
		return 0, err
	}
	eaVal := c.read(ea, size)
	dReg := operand{isReg: true, reg: int(reg)}
	dVal := c.read(dReg, size)

	var dst, src uint32
	var target operand
	if reverse {
		dst, src, target = eaVal, dVal, ea
	} else {
		dst, src, target = dVal, eaVal, dReg
	}

	var result uint32
	if isAdd {
		result = dst + src
		c.write(target, size, result)
		c.addFlags(dst, src, result, size)
	} else {
		result = dst - src
		c.write(target, size, result)
		c.subFlags(dst, src, result, size)
	}
	return 4, nil
}

// execGroup8 handles OR <ea>,Dn / Dn,<ea> (top nibble 1000); DIVU/DIVS
// (opmode 011/111) are not decoded by this trimmed core.
func (c *CPU) execGroup8(opcode uint16) (int, error) {
	reg := (opcode >> 9) & 7
	opmode := (opcode >> 6) & 7
	mode := (opcode >> 3) & 7
	eaReg := opcode & 7
	if opmode == 3 || opmode == 7 {
		return 0, errUnsupportedMode // DIVU/DIVS
	}
	size := opSize(opmode & 3)
	reverse := opmode >= 4
	ea, err := c.decodeEA(mode, eaReg, size)
	if err != nil {
		return 0, err
	}
	eaVal := c.read(ea, size)
	dReg := operand{isReg: true, reg: int(reg)}
	dVal := c.read(dReg, size)
	result := dVal | eaVal
	if reverse {
		c.write(ea, size, result)
	} else {
		c.write(dReg, size, result)
	}
	c.setFlagsNZ(result, size)
	return 4, nil
}

// execGroupC handles AND <ea>,Dn / Dn,<ea> and EXG Rx,Ry (top nibble
// 1100); MULU/MULS and ABCD are not decoded by this trimmed core.
func (c *CPU) execGroupC(opcode uint16) (int, error) {
	reg := (opcode >> 9) & 7
	opmode := (opcode >> 6) & 7
	mode := (opcode >> 3) & 7
	eaReg := opcode & 7

	if opmode == 5 && (mode == 0 || mode == 1) {
		return c.execExg(opcode)
	}
	if opmode == 3 || opmode == 7 {
		return 0, errUnsupportedMode // MULU/MULS
	}
	size := opSize(opmode & 3)
	reverse := opmode >= 4
	ea, err := c.decodeEA(mode, eaReg, size)
	if err != nil {
		return 0, err
	}
	eaVal := c.read(ea, size)
	dReg := operand{isReg: true, reg: int(reg)}
	dVal := c.read(dReg, size)
	result := dVal & eaVal
	if reverse {
		c.write(ea, size, result)
	} else {
		c.write(dReg, size, result)
	}
	c.setFlagsNZ(result, size)
	return 4, nil
}

func (c *CPU) execExg(opcode uint16) (int, error) {
	rx := (opcode >> 9) & 7
	ry := opcode & 7
	mode := (opcode >> 3) & 7
	if mode == 0 { // Dx,Dy
		c.D[rx], c.D[ry] = c.D[ry], c.D[rx]
	} else { // Ax,Ay
		c.A[rx], c.A[ry] = c.A[ry], c.A[rx]
	}
	return 6, nil
}

// execGroupB handles CMP/CMPA (top nibble 1011, opmode forms identical
// to ADD/SUB's forward forms) and EOR Dn,<ea>; CMPM and the
// register-to-register EOR-on-same-ea edge cases are not decoded.
func (c *CPU) execGroupB(opcode uint16) (int, error) {
	reg := (opcode >> 9) & 7
	opmode := (opcode >> 6) & 7
	mode := (opcode >> 3) & 7
	eaReg := opcode & 7

	if opmode == 3 || opmode == 7 {
		size := 2
		if opmode == 7 {
			size = 4
		}
		ea, err := c.decodeEA(mode, eaReg, size)
		if err != nil {
			return 0, err
		}
		v := uint32(int32(signExtend(c.read(ea, size), size)))
		result := c.A[reg] - v
		c.subFlags(c.A[reg], v, result, 4)
		return 6, nil
	}
	if opmode >= 4 {
		size := opSize(opmode & 3)
		ea, err := c.decodeEA(mode, eaReg, size)
		if err != nil {
			return 0, err
		}
		eaVal := c.read(ea, size)
		dVal := c.read(operand{isReg: true, reg: int(reg)}, size)
		result := eaVal ^ dVal
		c.write(ea, size, result)
		c.setFlagsNZ(result, size)
		return 4, nil
	}
	size := opSize(opmode & 3)
	ea, err := c.decodeEA(mode, eaReg, size)
	if err != nil {
		return 0, err
	}
	eaVal := c.read(ea, size)
	dVal := c.read(operand{isReg: true, reg: int(reg)}, size)
	result := dVal - eaVal
	c.subFlags(dVal, eaVal, result, size)
	return 4, nil
}
