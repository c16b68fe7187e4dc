package devices

import (
	"fmt"

	"github.com/stoyan-shopov/gdbflash/pkg/armv7m"
)

// stm32FlashRegs is the flash-controller register layout shared by the
// STM32 F0/F1/F4 families: a key register gated by a two-word unlock
// sequence, and a status/control register pair. Only base addresses,
// status-bit positions, and the sector-select encoding differ between
// families.
type stm32FlashRegs struct {
	acr, keyr, sr, cr, far uint32
}

const (
	stm32FlashKey1 = 0x45670123
	stm32FlashKey2 = 0xcdef89ab
)

func stm32ReadReg(s Session, addr uint32) (uint32, error) {
	words, err := s.ReadWords(addr, 1)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}

func stm32WriteReg(s Session, addr, value uint32) error {
	return s.WriteWords(addr, []uint32{value})
}

func stm32IsLocked(s Session, regs stm32FlashRegs, lockBit uint32) (bool, error) {
	cr, err := stm32ReadReg(s, regs.cr)
	if err != nil {
		return true, err
	}
	return cr&lockBit != 0, nil
}

// stm32Unlock runs the standard two-word key sequence, a no-op if the
// controller is already unlocked.
func stm32Unlock(s Session, regs stm32FlashRegs, lockBit uint32) error {
	locked, err := stm32IsLocked(s, regs, lockBit)
	if err != nil {
		return err
	}
	if !locked {
		return nil
	}
	if err := stm32WriteReg(s, regs.keyr, stm32FlashKey1); err != nil {
		return err
	}
	if err := stm32WriteReg(s, regs.keyr, stm32FlashKey2); err != nil {
		return err
	}
	locked, err = stm32IsLocked(s, regs, lockBit)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("devices: target flash remained locked after unlock sequence")
	}
	return nil
}

// stm32WaitNotBusy polls the status register until the busy bit clears,
// reporting a HelperError if an error bit is observed first.
func stm32WaitNotBusy(s Session, regs stm32FlashRegs, busyBit, errBits uint32) (uint32, error) {
	for {
		sr, err := stm32ReadReg(s, regs.sr)
		if err != nil {
			return 0, err
		}
		if sr&errBits != 0 {
			return sr, &HelperError{Code: sr & errBits}
		}
		if sr&busyBit == 0 {
			return sr, nil
		}
	}
}

// stm32ClearErrors clears any sticky error flags in the status register by
// writing them back (write-one-to-clear), matching every family's FPEC.
func stm32ClearErrors(s Session, regs stm32FlashRegs, errBits uint32) error {
	sr, err := stm32ReadReg(s, regs.sr)
	if err != nil {
		return err
	}
	sr &= errBits
	if sr == 0 {
		return nil
	}
	if err := stm32WriteReg(s, regs.sr, sr); err != nil {
		return err
	}
	sr, err = stm32ReadReg(s, regs.sr)
	if err != nil {
		return err
	}
	if sr&errBits != 0 {
		return fmt.Errorf("devices: could not clear target flash error flags")
	}
	return nil
}

// stm32ProgramWords loads routine into the device's code-load address and
// repeatedly stages up to one write-buffer's worth of words before running
// it, the shape every STM32 family driver's flash_program_words used.
func stm32ProgramWords(d *Device, s Session, routine []uint32, dest uint32, words []uint32) error {
	if dest&0xff != 0 {
		return fmt.Errorf("%w: flash program destination must be 256-byte aligned", ErrBadAlignment)
	}
	if err := s.WriteWords(d.Params.CodeLoadAddr, routine); err != nil {
		return fmt.Errorf("devices: loading flash write routine: %w", err)
	}
	stackBase := d.Params.WriteBufAddr + d.Params.WriteBufSize + d.Params.StackSize
	wordsPerChunk := int(d.Params.WriteBufSize / 4)
	if wordsPerChunk <= 0 {
		return fmt.Errorf("devices: zero-sized flash write buffer configured")
	}
	for len(words) > 0 {
		n := len(words)
		if n > wordsPerChunk {
			n = wordsPerChunk
		}
		if err := s.WriteWords(d.Params.WriteBufAddr, words[:n]); err != nil {
			return fmt.Errorf("devices: staging flash write buffer: %w", err)
		}
		result, err := armv7m.Run(s, d.Params.CodeLoadAddr, stackBase, 0, armv7m.Params{
			R0: dest,
			R1: d.Params.WriteBufAddr,
			R2: uint32(n),
		})
		if err != nil {
			return fmt.Errorf("devices: running flash write routine: %w", err)
		}
		if result != 0 {
			return &HelperError{Code: result}
		}
		dest += uint32(n * 4)
		words = words[n:]
	}
	return nil
}
