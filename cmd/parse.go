package cmd

import "github.com/stoyan-shopov/gdbflash/pkg/util"

// parseHexUint32 parses a hex string (with or without a 0x/$ prefix) for
// word counts, byte lengths, and sector numbers. It is util.ParseHexAddress
// under a name that reads naturally at call sites that aren't parsing an
// address.
func parseHexUint32(s string) (uint32, error) {
	return util.ParseHexAddress(s)
}
