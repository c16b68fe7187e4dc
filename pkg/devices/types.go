// Package devices models the host's view of a target MCU: its RAM and
// flash memory map, and a per-family vtable of flash operations with a
// generic sector-locator and fallback dispatcher for families that don't
// implement every primitive directly.
package devices

import "errors"

// MemArea describes one contiguous region of target address space. Sectors
// is nil for RAM areas; for flash areas it lists sector sizes in address
// order, ending implicitly at len(Sectors) (there is no sentinel entry —
// unlike the table layout this is modeled on, a Go slice already knows its
// own length).
type MemArea struct {
	Start   uint32
	Len     uint32
	Sectors []uint32
}

// MemType classifies an address range against a device's memory map.
type MemType int

const (
	MemInvalid MemType = iota
	MemRAM
	MemFlash
)

// CmdlineOptionType is the parameter shape a per-device command-line option
// expects.
type CmdlineOptionType int

const (
	OptionNumeric CmdlineOptionType = iota
	OptionString
)

// CmdlineOption describes one target-specific command-line option (for
// example LPC17xx's required crystal frequency) and, once the command-line
// front end (cmd's applyDeviceOptions) has filled it in, carries the parsed
// value.
type CmdlineOption struct {
	Description string
	Flag        string
	Type        CmdlineOptionType
	Mandatory   bool

	Specified bool
	Num       uint32
	Str       string
}

// PdevParams is the "pdev" scratch area a flash driver uses when it runs a
// helper routine on the target: where the routine and its data buffer live
// in target RAM, and how much stack to give it.
type PdevParams struct {
	CodeLoadAddr uint32
	WriteBufAddr uint32
	WriteBufSize uint32
	StackSize    uint32
}

// Session is everything a flash driver needs from a live target connection:
// raw register and memory access plus the primitives armv7m.Run needs to
// invoke an on-target helper routine. Kept narrow and structural so tests
// can supply a fake without depending on pkg/rsp.
type Session interface {
	ReadWords(addr uint32, count int) ([]uint32, error)
	WriteWords(addr uint32, words []uint32) error
	ReadReg(regNr int) (uint32, error)
	WriteReg(regNr int, value uint32) error
	InsertHWBreakpoint(addr uint32, length int) error
	RemoveHWBreakpoint(addr uint32, length int) error
	Continue() error
	WaitHalted() (string, error)
}

// Device is the capability vtable for one MCU family. Every function field
// may be nil, meaning the family genuinely has no such operation (it is the
// caller's job to fall back to a generic implementation or report
// ErrCapabilityMissing — see EraseArea/MassErase in generic.go).
type Device struct {
	Name            string
	CmdlineOptions  []CmdlineOption
	RAMAreas        []MemArea
	FlashAreas      []MemArea
	Params          PdevParams

	// State is driver-private scratch data that survives across calls on
	// the same Device (for example LPC17xx's computed core clock
	// frequency, set by Open and read back by the erase/program
	// primitives). Most families leave it nil.
	State interface{}

	Open                   func(d *Device, s Session) error
	Close                  func(d *Device, s Session) error
	FlashUnlockArea        func(d *Device, s Session, area *MemArea) error
	FlashEraseArea         func(d *Device, s Session, startAddr, length uint32) error
	FlashEraseSector       func(d *Device, s Session, sectorNr int) error
	FlashMassErase         func(d *Device, s Session) error
	FlashProgramWords      func(d *Device, s Session, dest uint32, words []uint32) error
	ValidateCmdlineOptions func(d *Device, s Session) error
}

var (
	// ErrAddressOutOfMap means an address range isn't covered by any
	// declared sector boundary in the device's flash map.
	ErrAddressOutOfMap = errors.New("devices: address range not contained in a declared flash sector")
	// ErrRegionExceedsFlash means a region starts inside a valid sector but
	// runs past the flash area's last declared sector.
	ErrRegionExceedsFlash = errors.New("devices: requested region runs past the end of the declared flash sectors")
	// ErrCapabilityMissing means the requested operation has no driver
	// implementation and no generic fallback could be applied either.
	ErrCapabilityMissing = errors.New("devices: device driver does not support this operation")
	// ErrBadAlignment means a flash write destination violates a family's
	// required alignment (for example LPC17xx's 256-byte IAP alignment).
	ErrBadAlignment = errors.New("devices: flash program destination is not correctly aligned")
)

// HelperError represents a nonzero status code returned by an on-target
// helper routine (an IAP command result, or a status word left by an
// embedded flash-write routine).
type HelperError struct {
	Code uint32
}

func (e *HelperError) Error() string {
	return errorfHelper(e.Code)
}

func errorfHelper(code uint32) string {
	return "devices: on-target helper routine returned status " + itoa(code)
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

func locateMemArea(areas []MemArea, addr uint32) *MemArea {
	for i := range areas {
		a := &areas[i]
		if a.Start <= addr && addr < a.Start+a.Len {
			return a
		}
	}
	return nil
}

// MemTypeAt classifies the [addr, addr+length) range: MemRAM or MemFlash if
// it is wholly contained in one declared area of that kind, MemInvalid
// otherwise (including when it straddles an area boundary).
func (d *Device) MemTypeAt(addr, length uint32) MemType {
	if a := locateMemArea(d.RAMAreas, addr); a != nil {
		if addr+length <= a.Start+a.Len {
			return MemRAM
		}
		return MemInvalid
	}
	if a := locateMemArea(d.FlashAreas, addr); a != nil {
		if addr+length <= a.Start+a.Len {
			return MemFlash
		}
		return MemInvalid
	}
	return MemInvalid
}

// FlashAreaInfo locates the run of contiguous flash sectors spanning
// [startAddr, startAddr+length). It returns the flash area those sectors
// belong to, the index of the first sector in that area's Sectors slice,
// and how many consecutive sectors the region covers.
func (d *Device) FlashAreaInfo(startAddr, length uint32) (area *MemArea, startSector, count int, err error) {
	endAddr := startAddr + length
	for ai := range d.FlashAreas {
		a := &d.FlashAreas[ai]
		addr := a.Start
		i := 0
		found := false
		for ; i < len(a.Sectors); i++ {
			if startAddr <= addr && addr < endAddr {
				found = true
				break
			}
			addr += a.Sectors[i]
		}
		if !found {
			continue
		}

		j := i
		for {
			addr += a.Sectors[i]
			if !(startAddr <= addr && addr < endAddr) {
				break
			}
			i++
			if i >= len(a.Sectors) {
				break
			}
		}
		if startAddr <= addr && addr < endAddr {
			return nil, -1, -1, ErrRegionExceedsFlash
		}
		return a, j, i - j + 1, nil
	}
	return nil, -1, -1, ErrAddressOutOfMap
}
