package devices

import (
	"errors"
	"testing"
)

func TestLPC17xxProgramWordsRejectsMisalignedDest(t *testing.T) {
	d, _ := Default.Lookup("lpc1754")
	d.State = &lpc17xxState{cclkHz: 96000000}
	s := newFakeSession()

	err := lpc17xxProgramWords(d, s, 0x101, make([]uint32, 8))
	if !errors.Is(err, ErrBadAlignment) {
		t.Fatalf("lpc17xxProgramWords() error = %v, want ErrBadAlignment", err)
	}
}

func TestLPC17xxProgramWordsRequiresOpen(t *testing.T) {
	d, _ := Default.Lookup("lpc1754")
	d.State = nil

	err := lpc17xxProgramWords(d, newFakeSession(), 0, make([]uint32, 8))
	if err == nil {
		t.Fatalf("lpc17xxProgramWords() error = nil, want an error when the device has not been opened")
	}
}

func TestLPC17xxProgramWordsPatchesVectorChecksum(t *testing.T) {
	d, _ := Default.Lookup("lpc1754")
	d.State = &lpc17xxState{cclkHz: 96000000}
	s := newFakeSession()

	vectors := make([]uint32, 8)
	vectors[0] = 0x20001000 // initial sp
	vectors[1] = 0x00000101 // reset handler
	for i := 2; i < 7; i++ {
		vectors[i] = uint32(i)
	}

	if err := lpc17xxProgramWords(d, s, 0, vectors); err != nil {
		t.Fatalf("lpc17xxProgramWords() error = %v", err)
	}

	var want uint32
	for i := 0; i < 7; i++ {
		want += vectors[i]
	}
	want = -want

	got := s.words[lpc17xxWriteBufAddr+7*4]
	if got != want {
		t.Errorf("patched checksum word = %#x, want %#x", got, want)
	}
	if vectors[7] != want {
		t.Errorf("caller's slice left unpatched: vectors[7] = %#x, want %#x", vectors[7], want)
	}
}

// sectorTrackingSession wraps fakeSession to record the sector number
// passed to every PREPARE_SECTORS IAP command, so tests can check which
// sectors a program actually touched.
type sectorTrackingSession struct {
	*fakeSession
	prepared []int
}

func newSectorTrackingSession() *sectorTrackingSession {
	return &sectorTrackingSession{fakeSession: newFakeSession()}
}

func (s *sectorTrackingSession) WriteWords(addr uint32, words []uint32) error {
	if addr == lpc17xxCmdAddr && len(words) > 0 && words[0] == lpc17xxCmdPrepareSectors {
		s.prepared = append(s.prepared, int(words[1]))
	}
	return s.fakeSession.WriteWords(addr, words)
}

func TestLPC17xxProgramWordsTracksSectorAcrossSizeBoundary(t *testing.T) {
	d, _ := Default.Lookup("lpc1754")
	d.State = &lpc17xxState{cclkHz: 96000000}
	s := newSectorTrackingSession()

	// Two 4 KB write-buffer chunks, both landing inside sector 16 (the
	// first of the device's trailing 32 KB sectors, starting at 0x10000):
	// chunk count alone must not advance sectorNr past 16 until that
	// sector's declared 32 KB size is actually used up.
	words := make([]uint32, 2*lpc17xxWriteBufSize/4)
	if err := lpc17xxProgramWords(d, s, 0x10000, words); err != nil {
		t.Fatalf("lpc17xxProgramWords() error = %v", err)
	}

	want := []int{16, 16}
	if len(s.prepared) != len(want) {
		t.Fatalf("prepared sectors = %v, want %v", s.prepared, want)
	}
	for i := range want {
		if s.prepared[i] != want[i] {
			t.Errorf("prepared sector[%d] = %d, want %d", i, s.prepared[i], want[i])
		}
	}
}

func TestLPC17xxProgramWordsTracksSectorAcrossFamilyBoundary(t *testing.T) {
	d, _ := Default.Lookup("lpc1754")
	d.State = &lpc17xxState{cclkHz: 96000000}
	s := newSectorTrackingSession()

	// dest sits in the last 4 KB sector (15) and the write spans into the
	// first 32 KB sector (16): sectorNr must advance exactly once, at the
	// chunk boundary that actually crosses into sector 16.
	words := make([]uint32, 2*lpc17xxWriteBufSize/4)
	if err := lpc17xxProgramWords(d, s, 0xf000, words); err != nil {
		t.Fatalf("lpc17xxProgramWords() error = %v", err)
	}

	want := []int{15, 16}
	if len(s.prepared) != len(want) {
		t.Fatalf("prepared sectors = %v, want %v", s.prepared, want)
	}
	for i := range want {
		if s.prepared[i] != want[i] {
			t.Errorf("prepared sector[%d] = %d, want %d", i, s.prepared[i], want[i])
		}
	}
}

func TestLPC17xxValidateCmdlineOptionsRequiresXtal(t *testing.T) {
	d, _ := Default.Lookup("lpc1754")
	d.CmdlineOptions[0].Specified = false
	if err := lpc17xxValidateCmdlineOptions(d, nil); err == nil {
		t.Fatalf("lpc17xxValidateCmdlineOptions() error = nil, want a missing-option error")
	}
	d.CmdlineOptions[0].Specified = true
	if err := lpc17xxValidateCmdlineOptions(d, nil); err != nil {
		t.Fatalf("lpc17xxValidateCmdlineOptions() error = %v", err)
	}
}
