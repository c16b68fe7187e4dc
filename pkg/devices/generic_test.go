package devices

import (
	"errors"
	"testing"
)

type fakeSession struct {
	words map[uint32]uint32
	regs  map[int]uint32
}

func newFakeSession() *fakeSession {
	return &fakeSession{words: map[uint32]uint32{}, regs: map[int]uint32{}}
}

func (f *fakeSession) ReadWords(addr uint32, count int) ([]uint32, error) {
	out := make([]uint32, count)
	for i := range out {
		out[i] = f.words[addr+uint32(i*4)]
	}
	return out, nil
}

func (f *fakeSession) WriteWords(addr uint32, words []uint32) error {
	for i, w := range words {
		f.words[addr+uint32(i*4)] = w
	}
	return nil
}

func (f *fakeSession) ReadReg(regNr int) (uint32, error)          { return f.regs[regNr], nil }
func (f *fakeSession) WriteReg(regNr int, value uint32) error     { f.regs[regNr] = value; return nil }
func (f *fakeSession) InsertHWBreakpoint(uint32, int) error       { return nil }
func (f *fakeSession) RemoveHWBreakpoint(uint32, int) error       { return nil }
func (f *fakeSession) Continue() error                            { return nil }
func (f *fakeSession) WaitHalted() (string, error)                { return "T05", nil }

func TestGenericFlashEraseAreaCallsEachSector(t *testing.T) {
	d := &Device{FlashAreas: []MemArea{
		{Start: 0x08000000, Len: 4 * 1024, Sectors: uniformSectors(4, 1024)},
	}}
	var erased []int
	d.FlashEraseSector = func(dev *Device, s Session, sectorNr int) error {
		erased = append(erased, sectorNr)
		return nil
	}

	if err := d.EraseArea(newFakeSession(), 0x08000000, 2*1024); err != nil {
		t.Fatalf("EraseArea() error = %v", err)
	}
	if len(erased) != 2 || erased[0] != 0 || erased[1] != 1 {
		t.Errorf("EraseArea() erased sectors = %v, want [0 1]", erased)
	}
}

func TestGenericFlashEraseAreaZeroLengthNoop(t *testing.T) {
	d := &Device{FlashAreas: []MemArea{
		{Start: 0x08000000, Len: 4 * 1024, Sectors: uniformSectors(4, 1024)},
	}}
	called := false
	d.FlashEraseSector = func(dev *Device, s Session, sectorNr int) error {
		called = true
		return nil
	}
	if err := d.EraseArea(newFakeSession(), 0x08000000, 0); err != nil {
		t.Fatalf("EraseArea() error = %v", err)
	}
	if called {
		t.Errorf("EraseArea() called FlashEraseSector for a zero-length region")
	}
}

func TestGenericFlashEraseAreaMissingCapability(t *testing.T) {
	d := &Device{FlashAreas: []MemArea{
		{Start: 0x08000000, Len: 1024, Sectors: uniformSectors(1, 1024)},
	}}
	err := d.EraseArea(newFakeSession(), 0x08000000, 1024)
	if !errors.Is(err, ErrCapabilityMissing) {
		t.Fatalf("EraseArea() error = %v, want ErrCapabilityMissing", err)
	}
}

func TestGenericFlashMassEraseSpansAllAreas(t *testing.T) {
	d := &Device{FlashAreas: []MemArea{
		{Start: 0x08000000, Len: 2 * 1024, Sectors: uniformSectors(2, 1024)},
		{Start: 0x08010000, Len: 3 * 1024, Sectors: uniformSectors(3, 1024)},
	}}
	var erased []int
	d.FlashEraseSector = func(dev *Device, s Session, sectorNr int) error {
		erased = append(erased, sectorNr)
		return nil
	}
	if err := d.MassErase(newFakeSession()); err != nil {
		t.Fatalf("MassErase() error = %v", err)
	}
	want := []int{0, 1, 2, 3, 4}
	if len(erased) != len(want) {
		t.Fatalf("MassErase() erased %v, want %v", erased, want)
	}
	for i := range want {
		if erased[i] != want[i] {
			t.Errorf("MassErase() erased[%d] = %d, want %d", i, erased[i], want[i])
		}
	}
}

func TestFamilyOwnMassEraseTakesPrecedence(t *testing.T) {
	d := &Device{}
	calledOwn := false
	d.FlashMassErase = func(dev *Device, s Session) error {
		calledOwn = true
		return nil
	}
	d.FlashEraseSector = func(dev *Device, s Session, sectorNr int) error {
		t.Fatalf("generic fallback should not run when FlashMassErase is set")
		return nil
	}
	if err := d.MassErase(newFakeSession()); err != nil {
		t.Fatalf("MassErase() error = %v", err)
	}
	if !calledOwn {
		t.Errorf("MassErase() did not call the family's own FlashMassErase")
	}
}
