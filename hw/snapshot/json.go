package snapshot

import "github.com/go-faster/jx"

// EncodeJSON writes p as a JSON object to e.
func (p *PIT) EncodeJSON(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("channels", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range p.Channels {
					p.Channels[i].EncodeJSON(e)
				}
			})
		})
	})
}

func (c *PITChannel) EncodeJSON(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("mode", func(e *jx.Encoder) { e.UInt8(c.Mode) })
		e.Field("start", func(e *jx.Encoder) { e.UInt16(c.Start) })
		e.Field("ilatch", func(e *jx.Encoder) { e.UInt16(c.ILatch) })
		e.Field("last_w", func(e *jx.Encoder) { e.UInt8(c.LastW) })
		e.Field("olatch", func(e *jx.Encoder) { e.UInt16(c.OLatch) })
		e.Field("last_r", func(e *jx.Encoder) { e.UInt8(c.LastR) })
		e.Field("rbs", func(e *jx.Encoder) { e.Bool(c.RBS) })
		e.Field("in_use", func(e *jx.Encoder) { e.Bool(c.InUse) })
		e.Field("state", func(e *jx.Encoder) { e.Bool(c.State) })
		e.Field("ts", func(e *jx.Encoder) { e.Int64(c.TS) })
		e.Field("vm_id", func(e *jx.Encoder) { e.UInt32(c.VMID) })
		e.Field("timer", func(e *jx.Encoder) { e.UInt64(c.Timer) })
	})
}
