package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-faster/jx"

	"vmtimer/hw/snapshot"
)

func writeImage(t *testing.T, p *snapshot.PIT) string {
	t.Helper()

	img, err := p.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "pit.bin")
	if err := os.WriteFile(path, img, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testImage() *snapshot.PIT {
	var p snapshot.PIT
	for i := range p.Channels {
		p.Channels[i] = snapshot.PITChannel{Start: 0xFFFF, VMID: 3}
	}
	p.Channels[0].InUse = true
	p.Channels[1] = snapshot.PITChannel{Mode: 3, Start: 0x2E9C, InUse: true, LastW: 1, VMID: 3, TS: 42}
	return &p
}

func TestInspectText(t *testing.T) {
	path := writeImage(t, testImage())

	var buf bytes.Buffer
	if err := inspectMain(&buf, Inspect{Path: path}); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "counter") {
		t.Errorf("header = %q", lines[0])
	}
	for _, want := range []string{"sqwave", "0x2e9c", "high", "42"} {
		if !strings.Contains(lines[2], want) {
			t.Errorf("counter 1 line %q does not contain %q", lines[2], want)
		}
	}
	if !strings.Contains(lines[3], "inttc") {
		t.Errorf("counter 2 line %q does not contain inttc", lines[3])
	}
}

func TestInspectJSON(t *testing.T) {
	path := writeImage(t, testImage())

	var buf bytes.Buffer
	if err := inspectMain(&buf, Inspect{Path: path, JSON: true}); err != nil {
		t.Fatal(err)
	}
	if !jx.Valid(buf.Bytes()) {
		t.Fatalf("invalid JSON:\n%s", buf.String())
	}

	var starts []uint16
	err := jx.DecodeBytes(buf.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		return d.Arr(func(d *jx.Decoder) error {
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "start" {
					return d.Skip()
				}
				v, err := d.UInt16()
				starts = append(starts, v)
				return err
			})
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(starts) != 3 || starts[1] != 0x2E9C {
		t.Errorf("starts = %#x", starts)
	}
}

func TestInspectBadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bin")
	if err := os.WriteFile(path, make([]byte, snapshot.PITSize-1), 0644); err != nil {
		t.Fatal(err)
	}
	if err := inspectMain(&bytes.Buffer{}, Inspect{Path: path}); err == nil {
		t.Fatal("inspect of a short image succeeded")
	}
}
