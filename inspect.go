package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/go-faster/jx"

	"vmtimer/hw/i8253"
	"vmtimer/hw/snapshot"
)

func inspectMain(w io.Writer, args Inspect) error {
	img, err := os.ReadFile(args.Path)
	if err != nil {
		return err
	}
	var p snapshot.PIT
	if err := p.UnmarshalBinary(img); err != nil {
		return fmt.Errorf("%s: %w", args.Path, err)
	}

	if args.JSON {
		var e jx.Encoder
		e.SetIdent(2)
		p.EncodeJSON(&e)
		_, err := fmt.Fprintln(w, e.String())
		return err
	}
	return printPIT(w, &p)
}

func printPIT(w io.Writer, p *snapshot.PIT) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "counter\tmode\tstart\tilatch\tolatch\tlast_w\tlast_r\trbs\tin_use\tstate\tvm\tts")
	for i, c := range p.Channels {
		fmt.Fprintf(tw, "%d\t%s\t%#04x\t%#04x\t%#04x\t%s\t%s\t%t\t%t\t%t\t%d\t%d\n",
			i, i8253.Mode(c.Mode&7), c.Start, c.ILatch, c.OLatch,
			i8253.Phase(c.LastW&1), i8253.Phase(c.LastR&1),
			c.RBS, c.InUse, c.State, c.VMID, c.TS)
	}
	return tw.Flush()
}
