package devices

// EraseArea erases the flash sectors spanning [startAddr, startAddr+length),
// using the family's own FlashEraseArea if it provides one, or falling back
// to sector-by-sector erasure via FlashEraseSector.
func (d *Device) EraseArea(s Session, startAddr, length uint32) error {
	if d.FlashEraseArea != nil {
		return d.FlashEraseArea(d, s, startAddr, length)
	}
	return GenericFlashEraseArea(d, s, startAddr, length)
}

// MassErase erases every declared flash sector on the device, using the
// family's own FlashMassErase if it provides one, or falling back to
// sector-by-sector erasure via FlashEraseSector.
func (d *Device) MassErase(s Session) error {
	if d.FlashMassErase != nil {
		return d.FlashMassErase(d, s)
	}
	return GenericFlashMassErase(d, s)
}

// GenericFlashEraseArea erases the sectors covering [startAddr,
// startAddr+length) by locating them with FlashAreaInfo and erasing each
// one in turn through the device's FlashEraseSector primitive. It requires
// FlashEraseSector; there is no generic way to erase an arbitrary byte
// range without per-sector control.
func GenericFlashEraseArea(d *Device, s Session, startAddr, length uint32) error {
	if d.FlashEraseSector == nil {
		return ErrCapabilityMissing
	}
	if length == 0 {
		return nil
	}
	_, sectorNr, count, err := d.FlashAreaInfo(startAddr, length)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		if err := d.FlashEraseSector(d, s, sectorNr+i); err != nil {
			return err
		}
	}
	return nil
}

// GenericFlashMassErase erases every sector of every declared flash area by
// walking them in order and calling FlashEraseSector with a sector index
// that runs continuously across area boundaries.
func GenericFlashMassErase(d *Device, s Session) error {
	if d.FlashEraseSector == nil {
		return ErrCapabilityMissing
	}
	n := 0
	for ai := range d.FlashAreas {
		a := &d.FlashAreas[ai]
		for range a.Sectors {
			if err := d.FlashEraseSector(d, s, n); err != nil {
				return err
			}
			n++
		}
	}
	return nil
}
