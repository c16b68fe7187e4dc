package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stoyan-shopov/gdbflash/pkg/devices"
	"github.com/stoyan-shopov/gdbflash/pkg/rsp"
)

// requireDevice resolves the device named by --device or, failing that,
// the config file's "device" key, against the registry.
func requireDevice() (*devices.Device, error) {
	name := deviceFlag
	if name == "" {
		name = cfg.Device
	}
	if name == "" {
		return nil, fmt.Errorf("no device specified (use --device or set it in gdbflash.ini)")
	}
	d, ok := devices.Default.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown device %q (see 'gdbflash list')", name)
	}
	return d, nil
}

// applyDeviceOptions parses repeated --opt key=value flags into the
// device's cmdline option schema and runs its validation hook, if any.
func applyDeviceOptions(d *devices.Device) error {
	for _, kv := range deviceOptions {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid --opt %q, want key=value", kv)
		}
		key, val := parts[0], parts[1]

		found := false
		for i := range d.CmdlineOptions {
			opt := &d.CmdlineOptions[i]
			if opt.Flag != key {
				continue
			}
			found = true
			opt.Specified = true
			switch opt.Type {
			case devices.OptionNumeric:
				n, err := strconv.ParseUint(val, 0, 32)
				if err != nil {
					return fmt.Errorf("--opt %s: %w", key, err)
				}
				opt.Num = uint32(n)
			case devices.OptionString:
				opt.Str = val
			}
		}
		if !found {
			return fmt.Errorf("device %q has no option %q", d.Name, key)
		}
	}

	if d.ValidateCmdlineOptions != nil {
		if err := d.ValidateCmdlineOptions(d, nil); err != nil {
			return err
		}
	}
	return nil
}

// openSession dials the configured gdbserver, resolves the requested
// device, applies --opt overrides, and runs the device's Open hook. The
// caller owns the returned client and must close it.
func openSession() (*rsp.Client, *devices.Device, error) {
	d, err := requireDevice()
	if err != nil {
		return nil, nil, err
	}
	if err := applyDeviceOptions(d); err != nil {
		return nil, nil, err
	}

	c, err := rsp.Dial(cfg.Addr())
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", cfg.Addr(), err)
	}
	c.SetAnnotation(annotateFlag)
	c.SetProgressFunc(func(kind string, cur, total int) {
		switch kind {
		case "mem-read":
			annotateLine("[VX-MEM-READ-PROGRESS]", strconv.Itoa(cur), strconv.Itoa(total))
		case "mem-write":
			annotateLine("[VX-MEM-WRITE-PROGRESS]", strconv.Itoa(cur), strconv.Itoa(total))
		}
	})
	if cfg.ChunkSize > 0 {
		if _, err := c.SetMaxWordsPerTransfer(cfg.ChunkSize / 4); err != nil {
			c.Close()
			return nil, nil, err
		}
	}

	if d.Open != nil {
		if err := d.Open(d, c); err != nil {
			c.Close()
			return nil, nil, fmt.Errorf("opening device %q: %w", d.Name, err)
		}
	}
	return c, d, nil
}
