package videoout

import "github.com/hajimehoshi/ebiten/v2"

// hostScancodeTable maps the host keys videoout polls to Atari ST
// keyboard scancodes, per the standard ST keyboard matrix. Only the keys
// an emulator session realistically needs are covered; anything missing
// here is silently dropped by pollKeyboard.
var hostScancodeTable = map[ebiten.Key]uint8{
	ebiten.KeyEscape: 0x01,
	ebiten.KeyDigit1: 0x02, ebiten.KeyDigit2: 0x03, ebiten.KeyDigit3: 0x04,
	ebiten.KeyDigit4: 0x05, ebiten.KeyDigit5: 0x06, ebiten.KeyDigit6: 0x07,
	ebiten.KeyDigit7: 0x08, ebiten.KeyDigit8: 0x09, ebiten.KeyDigit9: 0x0A,
	ebiten.KeyDigit0: 0x0B,
	ebiten.KeyMinus:  0x0C, ebiten.KeyEqual: 0x0D,
	ebiten.KeyBackspace: 0x0E,
	ebiten.KeyTab:       0x0F,
	ebiten.KeyQ: 0x10, ebiten.KeyW: 0x11, ebiten.KeyE: 0x12, ebiten.KeyR: 0x13,
	ebiten.KeyT: 0x14, ebiten.KeyY: 0x15, ebiten.KeyU: 0x16, ebiten.KeyI: 0x17,
	ebiten.KeyO: 0x18, ebiten.KeyP: 0x19,
	ebiten.KeyBracketLeft: 0x1A, ebiten.KeyBracketRight: 0x1B,
	ebiten.KeyEnter:        0x1C,
	ebiten.KeyControlLeft:  0x1D,
	ebiten.KeyA: 0x1E, ebiten.KeyS: 0x1F, ebiten.KeyD: 0x20, ebiten.KeyF: 0x21,
	ebiten.KeyG: 0x22, ebiten.KeyH: 0x23, ebiten.KeyJ: 0x24, ebiten.KeyK: 0x25,
	ebiten.KeyL: 0x26,
	ebiten.KeySemicolon: 0x27, ebiten.KeyApostrophe: 0x28, ebiten.KeyBackquote: 0x29,
	ebiten.KeyShiftLeft:   0x2A,
	ebiten.KeyBackslash:   0x2B,
	ebiten.KeyZ: 0x2C, ebiten.KeyX: 0x2D, ebiten.KeyC: 0x2E, ebiten.KeyV: 0x2F,
	ebiten.KeyB: 0x30, ebiten.KeyN: 0x31, ebiten.KeyM: 0x32,
	ebiten.KeyComma: 0x33, ebiten.KeyPeriod: 0x34, ebiten.KeySlash: 0x35,
	ebiten.KeyShiftRight: 0x36,
	ebiten.KeyAltLeft:     0x38,
	ebiten.KeySpace:       0x39,
	ebiten.KeyCapsLock:    0x3A,
	ebiten.KeyHome:        0x47,
	ebiten.KeyArrowUp:     0x48,
	ebiten.KeyArrowLeft:   0x4B,
	ebiten.KeyArrowRight:  0x4D,
	ebiten.KeyArrowDown:   0x50,
	ebiten.KeyDelete:      0x53,
}

// BuildScancodeTable renders hostScancodeTable into the flat [256]uint8
// form ikbd.SetScancodeMapping expects, keyed by the raw ebiten.Key value
// truncated to a byte (the same truncation pollKeyboard applies when
// reporting a host scancode).
func BuildScancodeTable() [256]uint8 {
	var table [256]uint8
	for key, st := range hostScancodeTable {
		if key <= 0xFF {
			table[uint8(key)] = st
		}
	}
	return table
}

// trackedKeys is the polling order for hostScancodeTable; it exists so
// pollKeyboard iterates a fixed slice instead of a map (stable order,
// avoids map-iteration allocation per frame).
var trackedKeys = func() []ebiten.Key {
	keys := make([]ebiten.Key, 0, len(hostScancodeTable))
	for k := range hostScancodeTable {
		keys = append(keys, k)
	}
	return keys
}()

// asciiScancodeTable maps a pasted clipboard byte to the ST scancode that
// produces it on a US keyboard layout, ignoring shift state (the IKBD
// model tracks key-down/up, not the resulting glyph).
var asciiScancodeTable = func() map[byte]uint8 {
	t := make(map[byte]uint8, 64)
	letterScancodes := []uint8{
		0x1E, 0x30, 0x2E, 0x20, 0x12, 0x21, 0x22, 0x23, 0x17, 0x24, // a-j
		0x25, 0x26, 0x32, 0x31, 0x18, 0x19, 0x10, 0x13, 0x1F, 0x14, // k-t
		0x16, 0x2F, 0x11, 0x2D, 0x15, 0x2C, // u-z
	}
	for i := 0; i < 26; i++ {
		lower := byte('a' + i)
		upper := byte('A' + i)
		t[lower] = letterScancodes[i]
		t[upper] = letterScancodes[i]
	}
	digitScancodes := []uint8{0x0B, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A} // 0-9
	for i := 0; i < 10; i++ {
		t[byte('0'+i)] = digitScancodes[i]
	}
	t[' '] = 0x39
	t['\n'] = 0x1C
	t['\t'] = 0x0F
	return t
}()
