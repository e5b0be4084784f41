package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"vmtimer/emu/log"
)

type mode byte

const (
	runMode     mode = iota // Run the headless harness
	inspectMode             // Decode a PIT snapshot
	configMode              // Show effective configuration
	ctlMode                 // Control a running harness
	versionMode             // Show vmtimer version
)

type (
	CLI struct {
		Run     Run     `cmd:"" help:"Run a VM with guest programs exercising the PIT. (default command)" default:"withargs"`
		Inspect Inspect `cmd:"" help:"Decode a PIT snapshot file."`
		Config  Config  `cmd:"" help:"Show the effective configuration."`
		Ctl     Ctl     `cmd:"" help:"Control a running VM."`
		Version Version `cmd:"" help:"Show vmtimer version."`

		Log        logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`
		ConfigFile string     `name:"config" help:"${config_help}" type:"path"`

		mode mode
		ctl  string
	}

	Run struct {
		Duration time.Duration `help:"Stop after this long, 0 runs until interrupted." default:"0"`
		VCPUs    int           `name:"vcpus" help:"Number of vCPUs (guest programs), 1 to 3."`
		VMID     uint32        `name:"vm-id" help:"VM identifier."`
		Save     string        `help:"Save a PIT snapshot to file on exit." type:"path" placeholder:"FILE"`
		Load     string        `help:"Restore a PIT snapshot before starting." type:"path" placeholder:"FILE"`
		KVMFd    int           `name:"kvm-vm-fd" help:"${kvm_help}" default:"-1"`
		Port     int           `name:"port" help:"Serve control requests on this local port."`
	}

	Inspect struct {
		Path string `arg:"" name:"/path/to/snapshot" type:"existingfile"`
		JSON bool   `name:"json" help:"Output JSON."`
	}

	Config struct {
		Save bool `help:"Write the effective configuration to the config directory."`
	}

	Ctl struct {
		Port int `name:"port" help:"Local port the VM serves control requests on." required:""`

		Pause  struct{} `cmd:"" help:"Disarm all counters."`
		Resume struct{} `cmd:"" help:"Rearm the counters in use."`
		Stats  struct{} `cmd:"" help:"Show VM statistics."`
		Save   CtlSave  `cmd:"" help:"Save a PIT snapshot of the running VM."`
	}

	CtlSave struct {
		Path string `arg:"" name:"/path/to/snapshot" type:"path"`
	}

	Version struct{}
)

var vars = kong.Vars{
	"log_help":    "Enable logging for specified modules.",
	"config_help": "Configuration file. (default: config.toml in the vmtimer config directory)",
	"kvm_help":    "Deliver interrupts to the in-kernel irqchip of this KVM VM file descriptor.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("vmtimer"),
		kong.Description("Emulated i8253 programmable interval timer."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")

	cmd := ctx.Command()
	switch {
	case strings.HasPrefix(cmd, "inspect"):
		cfg.mode = inspectMode
	case cmd == "config":
		cfg.mode = configMode
	case strings.HasPrefix(cmd, "ctl"):
		cfg.mode = ctlMode
		cfg.ctl = strings.Fields(cmd)[1]
	case cmd == "version":
		cfg.mode = versionMode
	default:
		cfg.mode = runMode
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	if ctx.Command() == "" || strings.HasPrefix(ctx.Command(), "run") {
		loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
		var strs []string
		for _, m := range log.ModuleNames() {
			strs = append(strs, "    - "+m)
		}

		fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	}

	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm *logModMask) Decode(ctx *kong.DecodeContext) error {
	var s string
	if err := ctx.Scan.PopValueInto("log", &s); err != nil {
		return err
	}
	mask, err := parseLogModules(strings.Split(s, ","))
	if err != nil {
		return err
	}
	*lm = logModMask(mask)
	return nil
}

// parseLogModules converts module names into a mask, applying it. 'no'
// disables logging altogether.
func parseLogModules(names []string) (log.ModuleMask, error) {
	nolog := false
	allLogs := false

	var mask log.ModuleMask
	for _, v := range names {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return 0, fmt.Errorf("unknown log module %s", v)
			}
			mask |= mod.Mask()
		}
	}

	if nolog {
		if allLogs {
			return 0, fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if mask != 0 {
			return 0, fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return 0, nil
	}

	if allLogs {
		mask = log.ModuleMaskAll
	}

	log.EnableDebugModules(mask)
	return mask, nil
}

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
