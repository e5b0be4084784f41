package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"vmtimer/emu/rpc"
)

// ctlMain sends cmd to the VM serving control requests on args.Port.
func ctlMain(w io.Writer, args Ctl, cmd string) error {
	c, err := rpc.NewClient(args.Port)
	if err != nil {
		return err
	}
	defer c.Close()

	switch cmd {
	case "pause":
		return c.Pause()
	case "resume":
		return c.Resume()
	case "stats":
		st, err := c.Stats()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "vm %d paused=%t exits=%d resets=%d reset_timeouts=%d fired=%d tasks=%d armed=%v\n",
			st.VMID, st.Paused, st.Exits, st.Resets, st.ResetTimeouts, st.Loop.Fired, st.Loop.Tasks, st.Armed)
		for i, dl := range st.Deadlines {
			if !dl.IsZero() {
				fmt.Fprintf(w, "counter %d: terminal count in %s\n", i, time.Until(dl).Round(time.Microsecond))
			}
		}
		return printPIT(w, &st.PIT)
	case "save":
		img, err := c.Save()
		if err != nil {
			return err
		}
		if err := os.WriteFile(args.Save.Path, img, 0644); err != nil {
			return err
		}
		fmt.Fprintln(w, "snapshot saved to", args.Save.Path)
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}
