package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"vmtimer/emu"
)

var version = "devel"

func main() {
	cli := parseArgs(os.Args[1:])

	cfgpath := cli.ConfigFile
	if cfgpath == "" {
		cfgpath = emu.ConfigPath()
	}
	cfg, err := emu.LoadConfig(cfgpath)
	checkf(err, "failed to load configuration")

	if cli.Log == 0 && len(cfg.Log.Modules) != 0 {
		_, err := parseLogModules(cfg.Log.Modules)
		checkf(err, "invalid log modules in %s", cfgpath)
	}

	switch cli.mode {
	case runMode:
		checkf(runMain(cli.Run, cfg), "run failed")
	case inspectMode:
		checkf(inspectMain(os.Stdout, cli.Inspect), "inspect failed")
	case ctlMode:
		checkf(ctlMain(os.Stdout, cli.Ctl, cli.ctl), "%s failed", cli.ctl)
	case configMode:
		checkf(configMain(cli.Config, cfg), "config failed")
	case versionMode:
		fmt.Println("vmtimer", version)
	}
}

func configMain(args Config, cfg emu.Config) error {
	if args.Save {
		path := emu.ConfigPath()
		if err := emu.SaveConfig(cfg, path); err != nil {
			return err
		}
		fmt.Println("configuration saved to", path)
		return nil
	}
	return toml.NewEncoder(os.Stdout).Encode(cfg)
}
