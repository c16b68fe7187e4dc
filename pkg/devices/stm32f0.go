package devices

import "fmt"

const (
	stm32f0FlashBase = 0x40022000
	stm32f0RCCBase   = 0x40021000

	stm32f0RCCCR     = stm32f0RCCBase + 0x00
	stm32f0RCCCR2    = stm32f0RCCBase + 0x34
	stm32f0RCCCFGR   = stm32f0RCCBase + 0x04
	stm32f0RCCCFGR2  = stm32f0RCCBase + 0x24
	stm32f0RCCCFGR3  = stm32f0RCCBase + 0x30
	stm32f0RCCCIR    = stm32f0RCCBase + 0x08
	stm32f0RCCAHBENR = stm32f0RCCBase + 0x14

	stm32f0PortAModer = 0x48000000
)

var stm32f0Regs = stm32FlashRegs{
	acr:  stm32f0FlashBase + 0x00,
	keyr: stm32f0FlashBase + 0x04,
	sr:   stm32f0FlashBase + 0x0c,
	cr:   stm32f0FlashBase + 0x10,
	far:  stm32f0FlashBase + 0x14,
}

const (
	stm32f0Busy   = 1 << 0
	stm32f0PGErr  = 1 << 2
	stm32f0WrpErr = 1 << 4
	stm32f0Lock   = 1 << 7
	stm32f0Strt   = 1 << 6
	stm32f0Mer    = 1 << 2
	stm32f0Per    = 1 << 1
	stm32f0ErrBits = stm32f0PGErr | stm32f0WrpErr
)

// stm32f0FlashWriteRoutine is the assembled form of
// pkg/devices/asm/stm32_halfword_flash_write.s, loaded into target RAM and
// invoked via armv7m.Run for each write-buffer's worth of data.
var stm32f0FlashWriteRoutine = []uint32{
	0x4b09b500, 0x68184a09, 0x2c00d1fc, 0x4b07d006, 0x21016018, 0x88080e12,
	0x4a068008, 0x88186818, 0xd1014283, 0x1d801c89, 0x2d00e7ec, 0x2001426b,
	0x47704208,
}

func registerSTM32F0() *Device {
	d := &Device{
		Name: "stm32f051x6",
		RAMAreas: []MemArea{
			{Start: 0x20000000, Len: 8 * 1024},
		},
		FlashAreas: []MemArea{
			{Start: 0x08000000, Len: 64 * 1024, Sectors: uniformSectors(64, 1024)},
		},
		Params: PdevParams{
			CodeLoadAddr: 0x20000000,
			WriteBufAddr: 0x20000100,
			WriteBufSize: 4000,
			StackSize:    0x200,
		},
	}
	d.Open = stm32f0DevOpen
	d.FlashUnlockArea = stm32f0UnlockArea
	d.FlashMassErase = stm32f0MassErase
	d.FlashEraseSector = stm32f0EraseSector
	d.FlashProgramWords = stm32f0ProgramWords
	Default.Register(d)
	return d
}

func init() { registerSTM32F0() }

func uniformSectors(count int, size uint32) []uint32 {
	sectors := make([]uint32, count)
	for i := range sectors {
		sectors[i] = size
	}
	return sectors
}

func stm32f0DevOpen(d *Device, s Session) error {
	x, err := stm32ReadReg(s, stm32f0Regs.sr)
	if err != nil {
		return err
	}
	if x&(stm32f0PGErr|stm32f0WrpErr) != 0 {
		if err := stm32WriteReg(s, stm32f0Regs.sr, x&(stm32f0PGErr|stm32f0WrpErr)); err != nil {
			return err
		}
		x, err = stm32ReadReg(s, stm32f0Regs.sr)
		if err != nil {
			return err
		}
		if x&(stm32f0PGErr|stm32f0WrpErr) != 0 {
			return fmt.Errorf("devices: stm32f0: could not clear flash controller errors")
		}
	}

	// Reconfigure RCC so the target is running from a known 48 MHz PLL
	// derived from HSI/2, matching the reference cube-generated init.
	rmw := func(addr uint32, clear, set uint32) error {
		v, err := stm32ReadReg(s, addr)
		if err != nil {
			return err
		}
		v = (v &^ clear) | set
		return stm32WriteReg(s, addr, v)
	}
	steps := []struct{ addr, clear, set uint32 }{
		{stm32f0RCCCR, 0, 1},
		{stm32f0RCCCFGR, ^uint32(0xf8ffb80c), 0},
		{stm32f0RCCCR, ^uint32(0xfef6ffff), 0},
		{stm32f0RCCCR, ^uint32(0xfffbffff), 0},
		{stm32f0RCCCFGR, ^uint32(0xffc0ffff), 0},
		{stm32f0RCCCFGR2, ^uint32(0xfffffff0), 0},
		{stm32f0RCCCFGR3, ^uint32(0xfffffeac), 0},
		{stm32f0RCCCR2, ^uint32(0xfffffffe), 0},
	}
	for _, st := range steps {
		if err := rmw(st.addr, st.clear, st.set); err != nil {
			return err
		}
	}
	if err := stm32WriteReg(s, stm32f0RCCCIR, 0); err != nil {
		return err
	}
	if err := stm32WriteReg(s, stm32f0Regs.acr, 0x10|1); err != nil {
		return err
	}
	if err := rmw(stm32f0RCCCFGR, 0x10000|0x20000|0x3c0000, 0x280000); err != nil {
		return err
	}
	if err := rmw(stm32f0RCCCR, 0, 1<<24); err != nil {
		return err
	}
	for i := 0; ; i++ {
		cr, err := stm32ReadReg(s, stm32f0RCCCR)
		if err != nil {
			return err
		}
		if cr&(1<<25) != 0 {
			break
		}
	}
	if err := rmw(stm32f0RCCCFGR, 3, 2); err != nil {
		return err
	}
	for {
		cfgr, err := stm32ReadReg(s, stm32f0RCCCFGR)
		if err != nil {
			return err
		}
		if cfgr&0xc == 8 {
			break
		}
	}
	if err := rmw(stm32f0RCCAHBENR, 0, 1<<17); err != nil {
		return err
	}
	if err := rmw(stm32f0RCCCFGR, 7<<24, 7<<24); err != nil {
		return err
	}
	if err := rmw(stm32f0PortAModer, 3<<16, 2<<16); err != nil {
		return err
	}
	return nil
}

func stm32f0UnlockArea(d *Device, s Session, area *MemArea) error {
	return stm32Unlock(s, stm32f0Regs, stm32f0Lock)
}

func stm32f0MassErase(d *Device, s Session) error {
	locked, err := stm32IsLocked(s, stm32f0Regs, stm32f0Lock)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("devices: stm32f0: target flash is locked, aborting mass erase")
	}
	if sr, err := stm32WaitNotBusy(s, stm32f0Regs, stm32f0Busy, 0); err != nil {
		return err
	} else if sr&stm32f0ErrBits != 0 {
		if err := stm32ClearErrors(s, stm32f0Regs, stm32f0ErrBits); err != nil {
			return err
		}
	}
	if err := stm32WriteReg(s, stm32f0Regs.cr, stm32f0Mer); err != nil {
		return err
	}
	if err := stm32WriteReg(s, stm32f0Regs.cr, stm32f0Mer|stm32f0Strt); err != nil {
		return err
	}
	_, err = stm32WaitNotBusy(s, stm32f0Regs, stm32f0Busy, stm32f0ErrBits)
	return err
}

func stm32f0EraseSector(d *Device, s Session, sectorNr int) error {
	locked, err := stm32IsLocked(s, stm32f0Regs, stm32f0Lock)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("devices: stm32f0: target flash is locked, aborting erase")
	}
	if _, err := stm32WaitNotBusy(s, stm32f0Regs, stm32f0Busy, stm32f0ErrBits); err != nil {
		return err
	}
	if err := stm32WriteReg(s, stm32f0Regs.cr, stm32f0Per); err != nil {
		return err
	}
	if err := stm32WriteReg(s, stm32f0Regs.far, uint32(sectorNr)*1024); err != nil {
		return err
	}
	if err := stm32WriteReg(s, stm32f0Regs.cr, stm32f0Per|stm32f0Strt); err != nil {
		return err
	}
	_, err = stm32WaitNotBusy(s, stm32f0Regs, stm32f0Busy, stm32f0ErrBits)
	return err
}

func stm32f0ProgramWords(d *Device, s Session, dest uint32, words []uint32) error {
	locked, err := stm32IsLocked(s, stm32f0Regs, stm32f0Lock)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("devices: stm32f0: target flash is locked, aborting write")
	}
	return stm32ProgramWords(d, s, stm32f0FlashWriteRoutine, dest, words)
}
