package devices

import "fmt"

const stm32f4FlashBase = 0x40000000 + 0x20000 + 0x3c00

var stm32f4Regs = stm32FlashRegs{
	acr:  stm32f4FlashBase + 0x00,
	keyr: stm32f4FlashBase + 0x04,
	sr:   stm32f4FlashBase + 0x0c,
	cr:   stm32f4FlashBase + 0x10,
}

const (
	stm32f4Busy   = 1 << 16
	stm32f4PGSErr = 1 << 7
	stm32f4PGPErr = 1 << 6
	stm32f4PGAErr = 1 << 5
	stm32f4WrpErr = 1 << 4
	stm32f4Lock   = 1 << 31
	stm32f4Strt   = 1 << 16
	stm32f4Mer    = 1 << 2
	stm32f4Ser    = 1 << 1
	stm32f4SnbShift = 3

	stm32f4ErrBits = stm32f4PGSErr | stm32f4PGPErr | stm32f4PGAErr | stm32f4WrpErr
)

// stm32f4FlashWriteRoutine is the assembled form of
// pkg/devices/asm/stm32f4_word_flash_write.s (full-word programming, unlike
// the F0/F1 halfword loop).
var stm32f4FlashWriteRoutine = []uint32{
	0x4b09b500, 0x68184a09, 0x2c00d1fc, 0x4b07d006, 0x22016018, 0x4a060412,
	0x68086018, 0x68186818, 0xd1014283, 0x1d001c89, 0x2d00e7ec, 0x2001426b,
	0x47704208,
}

func stm32f4FlashAreas() []MemArea {
	return []MemArea{
		{
			Start: 0x08000000,
			Len:   1024 * 1024,
			Sectors: []uint32{
				16 * 1024, 16 * 1024, 16 * 1024, 16 * 1024,
				64 * 1024,
				128 * 1024, 128 * 1024, 128 * 1024, 128 * 1024, 128 * 1024, 128 * 1024,
			},
		},
	}
}

func registerSTM32F4() *Device {
	d := &Device{
		Name: "stm32f407g",
		RAMAreas: []MemArea{
			{Start: 0x10000000, Len: 64 * 1024},
			{Start: 0x20000000, Len: 112 * 1024},
			{Start: 0x2001c000, Len: 16 * 1024},
		},
		FlashAreas: stm32f4FlashAreas(),
		Params: PdevParams{
			CodeLoadAddr: 0x20000000,
			WriteBufAddr: 0x20000100,
			WriteBufSize: 4000,
			StackSize:    0x200,
		},
	}
	d.Open = stm32f4DevOpen
	d.FlashUnlockArea = stm32f4UnlockArea
	d.FlashMassErase = stm32f4MassErase
	d.FlashEraseSector = stm32f4EraseSector
	d.FlashProgramWords = stm32f4ProgramWords
	Default.Register(d)
	return d
}

func init() { registerSTM32F4() }

func stm32f4DevOpen(d *Device, s Session) error {
	x, err := stm32ReadReg(s, stm32f4Regs.sr)
	if err != nil {
		return err
	}
	if x&0xf0 == 0 {
		return nil
	}
	if err := stm32WriteReg(s, stm32f4Regs.sr, x&0xf0); err != nil {
		return err
	}
	x, err = stm32ReadReg(s, stm32f4Regs.sr)
	if err != nil {
		return err
	}
	if x&0xf0 != 0 {
		return fmt.Errorf("devices: stm32f4: could not clear flash controller errors")
	}
	return nil
}

func stm32f4UnlockArea(d *Device, s Session, area *MemArea) error {
	locked, err := stm32IsLocked(s, stm32f4Regs, stm32f4Lock)
	if err != nil {
		return err
	}
	if !locked {
		return nil
	}
	if err := stm32WriteReg(s, stm32f4Regs.keyr, stm32FlashKey1); err != nil {
		return err
	}
	if err := stm32WriteReg(s, stm32f4Regs.keyr, stm32FlashKey2); err != nil {
		return err
	}
	// Set the flash access-time wait states to their most conservative
	// value; a real deployment would size this from the configured clock.
	if err := stm32WriteReg(s, stm32f4Regs.acr, 0x7); err != nil {
		return fmt.Errorf("devices: stm32f4: could not set flash wait states: %w", err)
	}
	locked, err = stm32IsLocked(s, stm32f4Regs, stm32f4Lock)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("devices: stm32f4: target flash remained locked after unlock")
	}
	return nil
}

func stm32f4MassErase(d *Device, s Session) error {
	locked, err := stm32IsLocked(s, stm32f4Regs, stm32f4Lock)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("devices: stm32f4: target flash is locked, aborting mass erase")
	}
	if sr, err := stm32WaitNotBusy(s, stm32f4Regs, stm32f4Busy, 0); err != nil {
		return err
	} else if sr&stm32f4ErrBits != 0 {
		if err := stm32ClearErrors(s, stm32f4Regs, stm32f4ErrBits); err != nil {
			return err
		}
	}
	if err := stm32WriteReg(s, stm32f4Regs.cr, stm32f4Mer); err != nil {
		return err
	}
	if err := stm32WriteReg(s, stm32f4Regs.cr, stm32f4Mer|stm32f4Strt); err != nil {
		return err
	}
	_, err = stm32WaitNotBusy(s, stm32f4Regs, stm32f4Busy, stm32f4ErrBits)
	return err
}

func stm32f4EraseSector(d *Device, s Session, sectorNr int) error {
	locked, err := stm32IsLocked(s, stm32f4Regs, stm32f4Lock)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("devices: stm32f4: target flash is locked, aborting erase")
	}
	if _, err := stm32WaitNotBusy(s, stm32f4Regs, stm32f4Busy, stm32f4ErrBits); err != nil {
		return err
	}
	snb := uint32(sectorNr) << stm32f4SnbShift
	if err := stm32WriteReg(s, stm32f4Regs.cr, stm32f4Ser|snb); err != nil {
		return err
	}
	if err := stm32WriteReg(s, stm32f4Regs.cr, stm32f4Ser|stm32f4Strt|snb); err != nil {
		return err
	}
	_, err = stm32WaitNotBusy(s, stm32f4Regs, stm32f4Busy, stm32f4ErrBits)
	return err
}

func stm32f4ProgramWords(d *Device, s Session, dest uint32, words []uint32) error {
	locked, err := stm32IsLocked(s, stm32f4Regs, stm32f4Lock)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("devices: stm32f4: target flash is locked, aborting write")
	}
	return stm32ProgramWords(d, s, stm32f4FlashWriteRoutine, dest, words)
}
