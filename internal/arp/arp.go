// Package arp resolves hardware addresses of LAN devices from the system
// ARP cache. Device registration records carry a MAC; matching it against
// the cache lets an address be recovered for devices whose broadcasts are
// filtered.
package arp

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Entry is one ARP cache row.
type Entry struct {
	IP  string
	MAC string
}

// entryPattern matches "(<ip>) at <mac>" fragments in arp -a output across
// the BSD and GNU variants.
var entryPattern = regexp.MustCompile(`\((\d{1,3}(?:\.\d{1,3}){3})\) at ([0-9a-fA-F:]{11,17})`)

// Table reads the ARP cache.
type Table struct {
	// run is swappable for tests.
	run func(ctx context.Context) ([]byte, error)
}

// NewTable creates a Table backed by the arp command.
func NewTable() *Table {
	return &Table{
		run: func(ctx context.Context) ([]byte, error) {
			return exec.CommandContext(ctx, "arp", "-a").Output()
		},
	}
}

// NewTableFromCommand creates a Table backed by a custom command runner,
// for tests and platforms without a usable arp binary.
func NewTableFromCommand(run func(ctx context.Context) ([]byte, error)) *Table {
	return &Table{run: run}
}

// Entries returns the current cache with MACs normalised to lower-case
// colon-separated, zero-padded form.
func (t *Table) Entries(ctx context.Context) ([]Entry, error) {
	out, err := t.run(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading arp cache: %w", err)
	}
	matches := entryPattern.FindAllStringSubmatch(string(out), -1)
	entries := make([]Entry, 0, len(matches))
	for _, m := range matches {
		entries = append(entries, Entry{IP: m[1], MAC: NormalizeMAC(m[2])})
	}
	return entries, nil
}

// LookupIP returns the cached IP for a MAC, or "" when absent.
func (t *Table) LookupIP(ctx context.Context, mac string) (string, error) {
	want := NormalizeMAC(mac)
	entries, err := t.Entries(ctx)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.MAC == want {
			return e.IP, nil
		}
	}
	return "", nil
}

// NormalizeMAC lower-cases a MAC and zero-pads each octet, so "A:B:1:2:3:F"
// and "0a:0b:01:02:03:0f" compare equal.
func NormalizeMAC(mac string) string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(mac)), ":")
	for i, p := range parts {
		if len(p) == 1 {
			parts[i] = "0" + p
		}
	}
	return strings.Join(parts, ":")
}
