package emu

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"vmtimer/emu/log"
	"vmtimer/hw/i8253"
)

type Config struct {
	PIT     PITConfig     `toml:"pit"`
	Machine MachineConfig `toml:"machine"`
	Guest   GuestConfig   `toml:"guest"`
	Log     LogConfig     `toml:"log"`
}

type PITConfig struct {
	// TickNs is the duration of a counter tick in ns, 0 for the hardware
	// frequency.
	TickNs       int64         `toml:"tick_ns"`
	ResetTimeout time.Duration `toml:"reset_timeout"`
}

type MachineConfig struct {
	VMID  uint32 `toml:"vm_id"`
	VCPUs int    `toml:"vcpus"`
}

// GuestConfig configures the guest programs run by the headless harness.
type GuestConfig struct {
	Reload       uint16        `toml:"reload"`
	PollInterval time.Duration `toml:"poll_interval"`
	OneShots     int           `toml:"one_shots"` // 0 means forever
}

type LogConfig struct {
	// Modules lists the modules for which debug logs are enabled, when not
	// overridden on the command line.
	Modules []string `toml:"modules"`
}

// MaxVCPUs is the number of guest programs the harness can run concurrently,
// one per PIT counter.
const MaxVCPUs = 3

const DefaultFileMode = os.FileMode(0755)

var ConfigDir = sync.OnceValue(func() string {
	cfgdir, err := os.UserConfigDir()
	if err != nil {
		log.ModEmu.Fatalf("failed to get user config directory: %v", err)
	}

	dir := filepath.Join(cfgdir, "vmtimer")
	if err := os.MkdirAll(dir, DefaultFileMode); err != nil {
		log.ModEmu.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
})

var defaultConfig = Config{
	PIT: PITConfig{
		ResetTimeout: i8253.DefaultResetTimeout,
	},
	Machine: MachineConfig{
		VMID:  1,
		VCPUs: 2,
	},
	Guest: GuestConfig{
		Reload:       0x2E9C, // ~100Hz
		PollInterval: time.Millisecond,
	},
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return defaultConfig
}

// Check fixes up out of range values, logging a warning for each.
func (cfg *Config) Check() {
	if cfg.Machine.VCPUs < 1 || cfg.Machine.VCPUs > MaxVCPUs {
		log.ModEmu.Warnf("Invalid vcpus count %d, fallback to %d", cfg.Machine.VCPUs, defaultConfig.Machine.VCPUs)
		cfg.Machine.VCPUs = defaultConfig.Machine.VCPUs
	}
	if cfg.PIT.TickNs < 0 {
		log.ModEmu.Warnf("Invalid tick duration %dns, fallback to hardware tick", cfg.PIT.TickNs)
		cfg.PIT.TickNs = 0
	}
	if cfg.PIT.ResetTimeout <= 0 {
		cfg.PIT.ResetTimeout = defaultConfig.PIT.ResetTimeout
	}
	if cfg.Guest.PollInterval <= 0 {
		cfg.Guest.PollInterval = defaultConfig.Guest.PollInterval
	}
}

const cfgFilename = "config.toml"

// ConfigPath returns the path of the configuration file in the config
// directory.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), cfgFilename)
}

// LoadConfig loads the configuration at path. Settings missing from the file
// keep their default value. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaultConfig, nil
		}
		return defaultConfig, fmt.Errorf("config %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		log.ModEmu.Warnf("Unknown config keys in %s: %v", path, undec)
	}
	cfg.Check()
	return cfg, nil
}

// SaveConfig into path.
func SaveConfig(cfg Config, path string) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, buf, 0644)
}
