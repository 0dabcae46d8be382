// Package accessory manages Bluetooth accessories through bluetoothctl.
package accessory

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"strings"

	"github.com/juju/errors"
)

type Address [6]byte

func ParseAddress(s string) (Address, error) {
	var a Address
	hw, err := net.ParseMAC(s)
	if err != nil {
		return a, errors.Annotatef(err, "accessory address=%s", s)
	}
	if len(hw) != len(a) {
		return a, errors.NotValidf("accessory address=%s length=%d", s, len(hw))
	}
	copy(a[:], hw)
	return a, nil
}

func (a Address) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

type Accessory struct {
	Address   Address
	Name      string // empty when device did not announce name
	Paired    bool
	Trusted   bool
	Connected bool
}

func (a Accessory) Named() bool { return a.Name != "" }

// Flags is three chars: connected, trusted, paired; 'o' yes 'x' no.
func (a Accessory) Flags() string {
	return string([]byte{flagChar(a.Connected), flagChar(a.Trusted), flagChar(a.Paired)})
}

func (a Accessory) String() string {
	return fmt.Sprintf("%s %q %s", a.Address, a.Name, a.Flags())
}

func flagChar(b bool) byte {
	if b {
		return 'o'
	}
	return 'x'
}

// Named filters list for display, order preserved.
func Named(list []Accessory) []Accessory {
	result := make([]Accessory, 0, len(list))
	for _, a := range list {
		if a.Named() {
			result = append(result, a)
		}
	}
	return result
}

// ParseDevices parses `bluetoothctl devices` output:
//
//	Device 00:11:22:33:44:55 My Speaker
//	Device 66:77:88:99:AA:BB 66-77-88-99-AA-BB
//
// Second line has no real name, bluez puts address in its place.
// Unparsable lines are skipped, duplicates keep first entry.
func ParseDevices(output []byte) []Accessory {
	result := make([]Accessory, 0, 16)
	seen := make(map[Address]struct{}, 16)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] != "Device" {
			continue
		}
		addr, err := ParseAddress(fields[1])
		if err != nil {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		name := strings.Join(fields[2:], " ")
		if strings.ReplaceAll(name, "-", "") == strings.ReplaceAll(fields[1], ":", "") {
			name = ""
		}
		result = append(result, Accessory{Address: addr, Name: name})
	}
	return result
}

// ParseInfo reads flags from `bluetoothctl info <addr>` into a.
func ParseInfo(output []byte, a *Accessory) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if !ok {
			continue
		}
		yes := strings.TrimSpace(value) == "yes"
		switch key {
		case "Paired":
			a.Paired = yes
		case "Trusted":
			a.Trusted = yes
		case "Connected":
			a.Connected = yes
		}
	}
}
