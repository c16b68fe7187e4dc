package devices

import "testing"

// keyUnlockSession wraps fakeSession so that writing the second unlock key
// right after the first clears the LOCK bit in cr, as the flash controller
// does.
type keyUnlockSession struct {
	*fakeSession
}

func (s *keyUnlockSession) WriteWords(addr uint32, words []uint32) error {
	prev := s.words[addr]
	if err := s.fakeSession.WriteWords(addr, words); err != nil {
		return err
	}
	if addr == stm32f0Regs.keyr && prev == stm32FlashKey1 && len(words) > 0 && words[0] == stm32FlashKey2 {
		s.words[stm32f0Regs.cr] &^= stm32f0Lock
	}
	return nil
}

func TestSTM32F0UnlockAreaSendsKeySequence(t *testing.T) {
	s := &keyUnlockSession{fakeSession: newFakeSession()}
	s.words[stm32f0Regs.cr] = stm32f0Lock

	if err := stm32f0UnlockArea(nil, s, nil); err != nil {
		t.Fatalf("stm32f0UnlockArea() error = %v", err)
	}
	if s.words[stm32f0Regs.keyr] != stm32FlashKey2 {
		t.Errorf("last value written to keyr = %#x, want the second unlock key", s.words[stm32f0Regs.keyr])
	}
}

func TestSTM32F0UnlockAreaNoopWhenAlreadyUnlocked(t *testing.T) {
	s := newFakeSession() // cr defaults to 0: lock bit clear
	if err := stm32f0UnlockArea(nil, s, nil); err != nil {
		t.Fatalf("stm32f0UnlockArea() error = %v", err)
	}
	if _, wrote := s.words[stm32f0Regs.keyr]; wrote {
		t.Errorf("stm32f0UnlockArea() wrote the key register despite flash already being unlocked")
	}
}

func TestSTM32F0EraseSectorWritesSectorAddress(t *testing.T) {
	s := newFakeSession() // flash unlocked, not busy
	if err := stm32f0EraseSector(nil, s, 5); err != nil {
		t.Fatalf("stm32f0EraseSector() error = %v", err)
	}
	if got := s.words[stm32f0Regs.far]; got != 5*1024 {
		t.Errorf("far = %#x, want %#x", got, 5*1024)
	}
	if got := s.words[stm32f0Regs.cr]; got&stm32f0Strt == 0 {
		t.Errorf("cr = %#x, erase was never started", got)
	}
}

func TestSTM32F0EraseSectorRejectsWhenLocked(t *testing.T) {
	s := newFakeSession()
	s.words[stm32f0Regs.cr] = stm32f0Lock
	if err := stm32f0EraseSector(nil, s, 0); err == nil {
		t.Fatalf("stm32f0EraseSector() error = nil, want an error for locked flash")
	}
}
