package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vmtimer/emu"
	"vmtimer/emu/rpc"
	"vmtimer/hw/clock"
	"vmtimer/hw/hwdefs"
	"vmtimer/hw/irq"
)

// runMain runs a VM with one guest program per vCPU until interrupted or
// args.Duration elapses.
func runMain(args Run, cfg emu.Config) error {
	if args.VCPUs != 0 {
		cfg.Machine.VCPUs = args.VCPUs
	}
	if args.VMID != 0 {
		cfg.Machine.VMID = args.VMID
	}
	cfg.Check()

	counter := irq.NewCounter()
	var line irq.Line = counter
	if args.KVMFd >= 0 {
		kvm := irq.NewKVM()
		kvm.Attach(cfg.Machine.VMID, args.KVMFd)
		defer kvm.Detach(cfg.Machine.VMID)
		line = kvm
	}

	m, err := emu.NewMachine(cfg, line, clock.Monotonic{})
	if err != nil {
		return fmt.Errorf("failed to create machine: %w", err)
	}

	if args.Load != "" {
		f, err := os.Open(args.Load)
		if err != nil {
			return err
		}
		err = m.Load(f, cfg.Machine.VMID)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to restore %s: %w", args.Load, err)
		}
	}

	if args.Port != 0 {
		server, err := rpc.NewServer(args.Port, m)
		if err != nil {
			return fmt.Errorf("rpc server: %w", err)
		}
		defer server.Close()
		fmt.Println("serving control requests on", server.Addr())
	}

	tick := &emu.RateGuest{Counter: 0, Reload: cfg.Guest.Reload, Poll: cfg.Guest.PollInterval}
	oneshot := &emu.OneShotGuest{Reload: cfg.Guest.Reload, Poll: cfg.Guest.PollInterval, Repeat: cfg.Guest.OneShots}
	refresh := &emu.RateGuest{Counter: 1, Reload: cfg.Guest.Reload, Poll: cfg.Guest.PollInterval}
	guests := []emu.Guest{tick, oneshot, refresh}[:cfg.Machine.VCPUs]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if args.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, args.Duration)
		defer cancel()
	}

	runErr := m.Run(ctx, guests...)

	st := m.Stats()
	fmt.Printf("vm %d: %d port exits, %d counter resets (%d timed out), %d timer callbacks\n",
		st.VMID, st.Exits, st.Resets, st.ResetTimeouts, st.Loop.Fired)
	fmt.Printf("irq %d: %d pulses\n", hwdefs.PITIRQ, counter.Pulses(st.VMID, hwdefs.PITIRQ, hwdefs.PITPin))
	fmt.Printf("counter 0: %d samples, last count %#04x\n", tick.Samples(), tick.Last())
	if cfg.Machine.VCPUs > 1 {
		fmt.Printf("counter 2: %d one-shots, last took %s\n", oneshot.Fired(), oneshot.Elapsed())
	}
	if cfg.Machine.VCPUs > 2 {
		fmt.Printf("counter 1: %d samples, last count %#04x\n", refresh.Samples(), refresh.Last())
	}

	if args.Save != "" {
		if err := saveSnapshot(m, args.Save); err != nil {
			return err
		}
		fmt.Println("snapshot saved to", args.Save)
	}
	return runErr
}

func saveSnapshot(m *emu.Machine, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return f.Close()
}
