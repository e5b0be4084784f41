package emu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"vmtimer/emu/log"
	"vmtimer/hw/clock"
	"vmtimer/hw/evsched"
	"vmtimer/hw/hwio"
	"vmtimer/hw/i8253"
	"vmtimer/hw/irq"
	"vmtimer/hw/snapshot"
)

// Machine is a VM instance: its event loop, port space and devices.
type Machine struct {
	Loop *evsched.Loop
	Bus  *hwio.Table
	PIT  *i8253.PIT

	vmID atomic.Uint32

	// These are accessed concurrently by vCPUs, the loop and control clients.
	paused  atomic.Bool
	running atomic.Bool
	exits   atomic.Uint64
}

// NewMachine powers up a VM whose devices raise interrupts on line and count
// time with clk.
func NewMachine(cfg Config, line irq.Line, clk clock.Source) (*Machine, error) {
	m := &Machine{
		Loop: evsched.New(),
		Bus:  hwio.NewTable("io"),
	}
	m.vmID.Store(cfg.Machine.VMID)

	m.PIT = i8253.New(cfg.Machine.VMID, m.Loop, line, clk, i8253.Config{
		TickNs:       cfg.PIT.TickNs,
		ResetTimeout: cfg.PIT.ResetTimeout,
	})
	if err := m.PIT.MapPorts(m.Bus); err != nil {
		return nil, fmt.Errorf("power up failed: %w", err)
	}

	log.ModEmu.InfoZ("Machine powered up").Hex32("vm", cfg.Machine.VMID).End()
	return m, nil
}

func (m *Machine) VMID() uint32 { return m.vmID.Load() }

// AddLogContext tags the entries logged while the machine runs with its VM id.
func (m *Machine) AddLogContext(z *log.EntryZ) { z.Hex32("vm", m.VMID()) }

// A Guest is a program run on a vCPU.
type Guest interface {
	Run(ctx context.Context, cpu *VCPU) error
}

// Run starts the counters in use, then runs the event loop and each guest on
// its own vCPU until all guests have returned, one fails or ctx is done. A
// machine can only run once.
func (m *Machine) Run(ctx context.Context, guests ...Guest) error {
	if !m.running.CompareAndSwap(false, true) {
		return errors.New("machine already running")
	}
	defer m.running.Store(false)

	log.AddContext(m)
	defer log.RemoveContext(m)

	lctx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()

	if !m.paused.Load() {
		m.PIT.StartAll()
	}
	loopErr := make(chan error, 1)
	go func() { loopErr <- m.Loop.Run(lctx) }()

	g, gctx := errgroup.WithContext(ctx)
	for i, guest := range guests {
		cpu := m.NewVCPU(i)
		g.Go(func() error {
			if err := guest.Run(gctx, cpu); err != nil {
				return fmt.Errorf("vcpu %d: %w", cpu.ID, err)
			}
			return nil
		})
	}
	err := g.Wait()

	stopLoop()
	m.PIT.StopAll()
	if lerr := <-loopErr; err == nil && !errors.Is(lerr, lctx.Err()) {
		err = lerr
	}

	log.ModEmu.InfoZ("Emulation loop exited").Uint("exits", m.exits.Load()).End()
	return err
}

// Pause disarms all counters. Guests see Paused return true.
func (m *Machine) Pause() {
	if m.paused.CompareAndSwap(false, true) {
		m.PIT.StopAll()
		log.ModEmu.InfoZ("Paused").End()
	}
}

// Resume rearms the counters in use.
func (m *Machine) Resume() {
	if m.paused.CompareAndSwap(true, false) {
		m.PIT.StartAll()
		log.ModEmu.InfoZ("Resumed").End()
	}
}

func (m *Machine) Paused() bool { return m.paused.Load() }

// Save writes the machine devices state to w.
func (m *Machine) Save(w io.Writer) error {
	if err := m.PIT.Dump(w); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Load restores a state written by Save, for VM vmID.
func (m *Machine) Load(r io.Reader, vmID uint32) error {
	if err := m.PIT.Restore(r, vmID); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	m.vmID.Store(vmID)
	return nil
}

type Stats struct {
	VMID          uint32
	Paused        bool
	Exits         uint64
	Loop          evsched.Stats
	Resets        uint64
	ResetTimeouts uint64
	Armed         [snapshot.NumPITChannels]bool
	Deadlines     [snapshot.NumPITChannels]time.Time
	PIT           snapshot.PIT
}

func (m *Machine) Stats() Stats {
	s := Stats{
		VMID:      m.VMID(),
		Paused:    m.Paused(),
		Exits:     m.exits.Load(),
		Loop:      m.Loop.Stats(),
		Armed:     m.PIT.Armed(),
		Deadlines: m.PIT.Deadlines(),
		PIT:       m.PIT.State(),
	}
	s.Resets, s.ResetTimeouts = m.PIT.ResetStats()
	return s
}

// VCPU issues port I/O to the machine bus on behalf of a guest.
type VCPU struct {
	ID int
	m  *Machine
}

func (m *Machine) NewVCPU(id int) *VCPU {
	return &VCPU{ID: id, m: m}
}

func (c *VCPU) Out8(port uint16, val uint8) {
	c.m.exits.Add(1)
	c.m.Bus.Out8(port, val)
}

func (c *VCPU) In8(port uint16) uint8 {
	c.m.exits.Add(1)
	return c.m.Bus.In8(port)
}

func (c *VCPU) Paused() bool { return c.m.Paused() }
