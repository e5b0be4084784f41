package main

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"vmtimer/emu/log"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		args []string
		mode mode
		ctl  string
	}{
		{nil, runMode, ""},
		{[]string{"run", "--duration=1s"}, runMode, ""},
		{[]string{"--vcpus=1"}, runMode, ""},
		{[]string{"config"}, configMode, ""},
		{[]string{"version"}, versionMode, ""},
		{[]string{"ctl", "--port=4000", "pause"}, ctlMode, "pause"},
		{[]string{"ctl", "--port=4000", "stats"}, ctlMode, "stats"},
		{[]string{"ctl", "--port=4000", "save", "pit.bin"}, ctlMode, "save"},
	}
	for _, tt := range tests {
		cli := parseArgs(tt.args)
		if cli.mode != tt.mode || cli.ctl != tt.ctl {
			t.Errorf("parseArgs(%q) = mode %d ctl %q, want mode %d ctl %q", tt.args, cli.mode, cli.ctl, tt.mode, tt.ctl)
		}
	}
}

func TestParseRunArgs(t *testing.T) {
	cli := parseArgs([]string{"run", "--duration=250ms", "--vcpus=3", "--vm-id=9", "--port=4444"})

	want := Run{
		Duration: 250 * time.Millisecond,
		VCPUs:    3,
		VMID:     9,
		KVMFd:    -1,
		Port:     4444,
	}
	if diff := cmp.Diff(want, cli.Run); diff != "" {
		t.Errorf("Run mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLogModules(t *testing.T) {
	t.Cleanup(func() {
		log.DisableDebugModules(log.ModuleMaskAll)
		log.Enable()
	})

	pit, ok := log.ModuleByName("pit")
	if !ok {
		t.Fatal("pit log module not registered")
	}

	tests := []struct {
		names   []string
		want    log.ModuleMask
		wantErr bool
	}{
		{[]string{"emu"}, log.ModEmu.Mask(), false},
		{[]string{"emu", "pit"}, log.ModEmu.Mask() | pit.Mask(), false},
		{[]string{"all"}, log.ModuleMaskAll, false},
		{[]string{"no"}, 0, false},
		{[]string{"bogus"}, 0, true},
		{[]string{"all", "no"}, 0, true},
		{[]string{"no", "emu"}, 0, true},
	}
	for _, tt := range tests {
		got, err := parseLogModules(tt.names)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLogModules(%q) error = %v, wantErr %t", tt.names, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLogModules(%q) = %#x, want %#x", tt.names, got, tt.want)
		}
	}
}
