// Package armv7m runs a short routine on a halted ARMv7-M target by setting
// up its calling-convention registers, planting a hardware breakpoint at a
// known return address, and resuming until that breakpoint is hit.
package armv7m

import (
	"errors"
	"fmt"
)

// xpsrThumbBit is bit 24 of xPSR, the Thumb execution-state bit. Every
// supported Cortex-M core executes Thumb code exclusively; if this bit is
// found clear the core has faulted into a state it cannot resume from
// without being nudged back into Thumb mode first.
const xpsrThumbBit = 1 << 24

// register numbers in the gdbserver's ARMv7-M register map.
const (
	regR0   = 0
	regR1   = 1
	regR2   = 2
	regR3   = 3
	regSP   = 13
	regLR   = 14
	regPC   = 15
	regXPSR = 25
)

// ErrNotThumb is returned when the target's xPSR Thumb bit was found clear
// and could not be set back after a recovery attempt.
var ErrNotThumb = errors.New("armv7m: target is not in thumb execution state and recovery failed")

// Target is the subset of an rsp.Client a routine runner needs. Kept as an
// interface so tests can drive the algorithm against a fake without
// standing up a real GDB-RSP session.
type Target interface {
	ReadReg(regNr int) (uint32, error)
	WriteReg(regNr int, value uint32) error
	InsertHWBreakpoint(addr uint32, length int) error
	RemoveHWBreakpoint(addr uint32, length int) error
	Continue() error
	WaitHalted() (string, error)
}

// Params is the ARMv7-M AAPCS argument set a routine can be called with:
// up to four 32-bit words passed in R0-R3.
type Params struct {
	R0, R1, R2, R3 uint32
}

// Run invokes the routine at entryPoint on an already-halted target,
// running it on a stack starting at stackPtr and expecting it to return
// (via its LR) to haltAddr, where a hardware breakpoint is planted to catch
// the return. It reports the value left in R0 when the routine halts.
//
// The target must already be halted; Run does not itself stop the target.
func Run(t Target, entryPoint, stackPtr, haltAddr uint32, params Params) (uint32, error) {
	if err := ensureThumb(t); err != nil {
		return 0, err
	}

	if err := t.InsertHWBreakpoint(haltAddr, 2); err != nil {
		return 0, fmt.Errorf("armv7m: planting return breakpoint: %w", err)
	}

	// the low bit of PC/LR selects Thumb instruction fetch on ARMv7-M.
	if err := t.WriteReg(regPC, entryPoint|1); err != nil {
		return 0, fmt.Errorf("armv7m: setting pc: %w", err)
	}
	if err := t.WriteReg(regSP, stackPtr); err != nil {
		return 0, fmt.Errorf("armv7m: setting sp: %w", err)
	}
	if err := t.WriteReg(regLR, haltAddr|1); err != nil {
		return 0, fmt.Errorf("armv7m: setting lr: %w", err)
	}
	if err := t.WriteReg(regR0, params.R0); err != nil {
		return 0, fmt.Errorf("armv7m: setting r0: %w", err)
	}
	if err := t.WriteReg(regR1, params.R1); err != nil {
		return 0, fmt.Errorf("armv7m: setting r1: %w", err)
	}
	if err := t.WriteReg(regR2, params.R2); err != nil {
		return 0, fmt.Errorf("armv7m: setting r2: %w", err)
	}
	if err := t.WriteReg(regR3, params.R3); err != nil {
		return 0, fmt.Errorf("armv7m: setting r3: %w", err)
	}

	if err := t.Continue(); err != nil {
		return 0, fmt.Errorf("armv7m: resuming target: %w", err)
	}
	if _, err := t.WaitHalted(); err != nil {
		return 0, fmt.Errorf("armv7m: waiting for routine to return: %w", err)
	}

	if err := t.RemoveHWBreakpoint(haltAddr, 2); err != nil {
		return 0, fmt.Errorf("armv7m: removing return breakpoint: %w", err)
	}

	result, err := t.ReadReg(regR0)
	if err != nil {
		return 0, fmt.Errorf("armv7m: reading routine result: %w", err)
	}
	return result, nil
}

// ensureThumb checks the Thumb execution-state bit in xPSR and, if it is
// clear, attempts to set it back (the reference implementation's recovery
// path: poke R1 with a sentinel value, then force xPSR's Thumb bit).
func ensureThumb(t Target) error {
	xpsr, err := t.ReadReg(regXPSR)
	if err != nil {
		return fmt.Errorf("armv7m: reading xpsr: %w", err)
	}
	if xpsr&xpsrThumbBit != 0 {
		return nil
	}

	xpsr |= xpsrThumbBit
	if err := t.WriteReg(regR1, 0xa5); err != nil {
		return fmt.Errorf("armv7m: recovering thumb state: %w", err)
	}
	if err := t.WriteReg(regXPSR, xpsr); err != nil {
		return fmt.Errorf("armv7m: recovering thumb state: %w", err)
	}
	xpsr, err = t.ReadReg(regXPSR)
	if err != nil {
		return fmt.Errorf("armv7m: re-reading xpsr: %w", err)
	}
	if xpsr&xpsrThumbBit == 0 {
		return ErrNotThumb
	}
	return nil
}
