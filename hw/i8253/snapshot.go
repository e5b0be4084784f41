package i8253

import (
	"errors"
	"fmt"
	"io"

	"vmtimer/hw/evsched"
	"vmtimer/hw/snapshot"
)

// ErrSizeMismatch is returned when fewer bytes than the size of a PIT image
// could be written or read.
var ErrSizeMismatch = errors.New("i8253: image size mismatch")

// Dump writes the image of all counters to w.
func (p *PIT) Dump(w io.Writer) error {
	modPIT.DebugZ("sending PIT").End()

	state := p.State()
	buf, err := state.MarshalBinary()
	if err != nil {
		return err
	}

	n, err := w.Write(buf)
	if n < len(buf) {
		if err == nil {
			err = io.ErrShortWrite
		}
		modPIT.WarnZ("error writing PIT").Int("written", n).Error("err", err).End()
		return fmt.Errorf("%w: wrote %d of %d bytes: %w", ErrSizeMismatch, n, len(buf), err)
	}
	return err
}

// Restore reads an image written by Dump from r and loads it, associating the
// counters with vmID. All counters are reset afterwards, whether they had
// been in use or not. Nothing is modified if the image can't be read.
func (p *PIT) Restore(r io.Reader, vmID uint32) error {
	modPIT.DebugZ("receiving PIT").End()

	buf := make([]byte, snapshot.PITSize)
	if n, err := io.ReadFull(r, buf); err != nil {
		modPIT.WarnZ("error reading PIT").Int("read", n).Error("err", err).End()
		return fmt.Errorf("%w: read %d of %d bytes: %w", ErrSizeMismatch, n, len(buf), err)
	}

	var img snapshot.PIT
	if err := img.UnmarshalBinary(buf); err != nil {
		return err
	}

	// Timer handles aren't meaningful outside of the process that dumped
	// them: each counter gets a fresh timer.
	var timers [snapshot.NumPITChannels]*evsched.Timer
	for i := range timers {
		timers[i] = p.newTimer(uint8(i))
	}

	p.loop.Lock()
	p.mu.Lock()
	for i := range p.chans {
		c := &p.chans[i]
		c.timer.Del()
		c.load(&img.Channels[i])
		c.vmID = vmID
		c.timer = timers[i]
	}
	p.mu.Unlock()
	p.loop.Unlock()

	for i := range p.chans {
		p.restoreReset(uint8(i))
	}

	// reset marks counters in use. Keep the saved flags, so that StartAll
	// rearms the counters that were in use when the image was dumped.
	p.mu.Lock()
	for i := range p.chans {
		p.chans[i].inUse = img.Channels[i].InUse
	}
	p.mu.Unlock()
	return nil
}

// restoreReset resets counter i on the owning goroutine when the loop runs,
// and directly otherwise.
func (p *PIT) restoreReset(i uint8) {
	if p.loop.Running() {
		err := p.resets.Send(i, p.resetTimeout)
		if err == nil {
			return
		}
		if !errors.Is(err, evsched.ErrStopped) {
			modPIT.WarnZ("counter reset dropped").Int("counter", int(i)).Error("err", err).End()
			return
		}
	}
	p.reset(i)
}

// load copies a saved channel into c, fixing up values a valid image can't
// hold.
func (c *channel) load(s *snapshot.PITChannel) {
	c.mode = Mode(s.Mode & 7)
	c.start = s.Start
	if c.start == 0 {
		c.start = 0xFFFF
	}
	c.ilatch = s.ILatch
	c.lastW = Phase(s.LastW & 1)
	c.olatch = s.OLatch
	c.lastR = Phase(s.LastR & 1)
	c.rbs = s.RBS
	c.inUse = s.InUse
	c.state = s.State
	c.ts = s.TS
}
