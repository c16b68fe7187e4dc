package devices

import "fmt"

const stm32f1FlashBase = 0x40000000 + 0x20000 + 0x2000

var stm32f1Regs = stm32FlashRegs{
	acr:  stm32f1FlashBase + 0x00,
	keyr: stm32f1FlashBase + 0x04,
	sr:   stm32f1FlashBase + 0x0c,
	cr:   stm32f1FlashBase + 0x10,
	far:  stm32f1FlashBase + 0x14,
}

const (
	stm32f1Busy    = 1 << 0
	stm32f1PGErr   = 1 << 2
	stm32f1WrpErr  = 1 << 4
	stm32f1Lock    = 1 << 7
	stm32f1Strt    = 1 << 6
	stm32f1Mer     = 1 << 2
	stm32f1Per     = 1 << 1
	stm32f1ErrBits = stm32f1PGErr | stm32f1WrpErr
)

// stm32f1FlashWriteRoutine is the assembled form of
// pkg/devices/asm/stm32_halfword_flash_write.s against the F1 FPEC base.
var stm32f1FlashWriteRoutine = []uint32{
	0x4b09b500, 0x68184a09, 0x2c00d1fc, 0x4b07d006, 0x21016018, 0x88080e12,
	0x4a068008, 0x88186818, 0xd1014283, 0x1d801c89, 0x2d00e7ec, 0x2001426b,
	0x47704208,
}

func registerSTM32F1() *Device {
	d := &Device{
		Name: "stm32f100xb",
		RAMAreas: []MemArea{
			{Start: 0x20000000, Len: 8 * 1024},
		},
		FlashAreas: []MemArea{
			{Start: 0x08000000, Len: 128 * 1024, Sectors: uniformSectors(64, 1024)},
		},
		Params: PdevParams{
			CodeLoadAddr: 0x20000000,
			WriteBufAddr: 0x20000100,
			WriteBufSize: 0x1800,
			StackSize:    0x200,
		},
	}
	d.FlashUnlockArea = stm32f1UnlockArea
	d.FlashMassErase = stm32f1MassErase
	d.FlashEraseSector = stm32f1EraseSector
	d.FlashProgramWords = stm32f1ProgramWords
	Default.Register(d)
	return d
}

func init() { registerSTM32F1() }

func stm32f1UnlockArea(d *Device, s Session, area *MemArea) error {
	locked, err := stm32IsLocked(s, stm32f1Regs, stm32f1Lock)
	if err != nil {
		return err
	}
	if !locked {
		return nil
	}
	if err := stm32WriteReg(s, stm32f1Regs.keyr, stm32FlashKey1); err != nil {
		return err
	}
	if err := stm32WriteReg(s, stm32f1Regs.keyr, stm32FlashKey2); err != nil {
		return err
	}
	// 0x32: two flash wait states (LATENCY = 2) with the prefetch buffer
	// enabled, matching the reference driver's fixed wait-state choice
	// rather than deriving it from the clock setup.
	if err := stm32WriteReg(s, stm32f1Regs.acr, 0x32); err != nil {
		return err
	}
	return nil
}

func stm32f1MassErase(d *Device, s Session) error {
	if _, err := stm32WaitNotBusy(s, stm32f1Regs, stm32f1Busy, 0); err != nil {
		return err
	}
	if err := stm32WriteReg(s, stm32f1Regs.cr, stm32f1Mer); err != nil {
		return err
	}
	if err := stm32WriteReg(s, stm32f1Regs.cr, stm32f1Mer|stm32f1Strt); err != nil {
		return err
	}
	_, err := stm32WaitNotBusy(s, stm32f1Regs, stm32f1Busy, 0)
	return err
}

func stm32f1EraseSector(d *Device, s Session, sectorNr int) error {
	locked, err := stm32IsLocked(s, stm32f1Regs, stm32f1Lock)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("devices: stm32f1: target flash is locked, aborting erase")
	}
	if _, err := stm32WaitNotBusy(s, stm32f1Regs, stm32f1Busy, stm32f1ErrBits); err != nil {
		return err
	}
	if err := stm32WriteReg(s, stm32f1Regs.cr, stm32f1Per); err != nil {
		return err
	}
	if err := stm32WriteReg(s, stm32f1Regs.far, uint32(sectorNr)*1024); err != nil {
		return err
	}
	if err := stm32WriteReg(s, stm32f1Regs.cr, stm32f1Per|stm32f1Strt); err != nil {
		return err
	}
	_, err = stm32WaitNotBusy(s, stm32f1Regs, stm32f1Busy, stm32f1ErrBits)
	return err
}

func stm32f1ProgramWords(d *Device, s Session, dest uint32, words []uint32) error {
	return stm32ProgramWords(d, s, stm32f1FlashWriteRoutine, dest, words)
}
