package system

import "testing"

type recordingCPU struct{ levels []uint8 }

func (r *recordingCPU) SetIPL(level uint8) { r.levels = append(r.levels, level) }

type fixedMFP struct{ vector uint8 }

func (f fixedMFP) IACK() uint8 { return f.vector }

func TestPriorityOrderMFPBeatsVBLBeatsHBL(t *testing.T) {
	cpu := &recordingCPU{}
	a := New(cpu)

	a.RaiseHBL()
	if last(cpu.levels) != 2 {
		t.Fatalf("IPL = %d, want 2 with only HBL pending", last(cpu.levels))
	}
	a.RaiseVBL()
	if last(cpu.levels) != 4 {
		t.Fatalf("IPL = %d, want 4 once VBL also pending", last(cpu.levels))
	}
	a.SetMFPActive(true)
	if last(cpu.levels) != 6 {
		t.Fatalf("IPL = %d, want 6 once MFP also active", last(cpu.levels))
	}
}

func last(levels []uint8) uint8 {
	if len(levels) == 0 {
		return 255
	}
	return levels[len(levels)-1]
}

func TestIRQAckClearsHBLAndReturnsAutovector(t *testing.T) {
	cpu := &recordingCPU{}
	a := New(cpu)
	a.RaiseHBL()

	v := a.IRQAck(2)
	if v != vectorHBL {
		t.Fatalf("vector = %d, want %d", v, vectorHBL)
	}
	if last(cpu.levels) != 0 {
		t.Fatalf("IPL after ack = %d, want 0 (HBL cleared)", last(cpu.levels))
	}
}

func TestIRQAckClearsVBLAndReturnsAutovector(t *testing.T) {
	cpu := &recordingCPU{}
	a := New(cpu)
	a.RaiseVBL()

	v := a.IRQAck(4)
	if v != vectorVBL {
		t.Fatalf("vector = %d, want %d", v, vectorVBL)
	}
}

func TestIRQAckLevel6DelegatesToMFP(t *testing.T) {
	cpu := &recordingCPU{}
	a := New(cpu)
	a.AttachMFP(fixedMFP{vector: 0x64})

	if v := a.IRQAck(6); v != 0x64 {
		t.Fatalf("vector = %#x, want 0x64 (delegated to MFP.IACK)", v)
	}
}

func TestIRQAckUnknownLevelReturnsAutovector(t *testing.T) {
	cpu := &recordingCPU{}
	a := New(cpu)
	if v := a.IRQAck(3); v != autovector+3 {
		t.Fatalf("vector = %d, want %d", v, autovector+3)
	}
}
