// Package config implements CLI flag parsing and JSON config persistence
// per §6: TOS/floppy paths, RAM model, pacing, mouse sensitivity, audio
// sample rate, and debug tracing.
package config

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ST model identifiers; only ST is supported by the emulation core.
const (
	ModelST   = 0
	ModelMega = 1
	ModelSTE  = 2
)

// RAMConfiguration indices map to physical sizes per §6.
var ramSizes = [4]int{512 * 1024, 1024 * 1024, 2 * 1024 * 1024, 4 * 1024 * 1024}

// Config is the full set of persisted and CLI-overridable settings.
type Config struct {
	TOSPath           string `json:"TOSPath"`
	STModel           int    `json:"STModel"`
	RAMConfiguration  int    `json:"RAMConfiguration"`
	MaxSpeed          bool   `json:"MaxSpeed"`
	FloppyImagePath   string `json:"FloppyImagePath"`
	MouseXSensitivity int    `json:"MouseXSensitivity"`
	MouseYSensitivity int    `json:"MouseYSensitivity"`
	SampleRate        int    `json:"SampleRate"`
	DebugMode         bool   `json:"DebugMode"`

	// WriteProtectOverride forces an inserted image's write-protect bit
	// when non-nil, overriding the bit floppy.Load derives from the host
	// file's permission bits. nil means "use whatever the loader
	// detected".
	WriteProtectOverride *bool `json:"WriteProtectOverride,omitempty"`
}

// Default returns the baseline configuration used when no file exists and
// no flag overrides a field.
func Default() Config {
	return Config{
		STModel:           ModelST,
		RAMConfiguration:  1, // 1 MiB
		MaxSpeed:          false,
		MouseXSensitivity: 2,
		MouseYSensitivity: 2,
		SampleRate:        44100,
		DebugMode:         false,
	}
}

// RAMBytes resolves RAMConfiguration to a physical size, clamping unknown
// indices to the default.
func (c Config) RAMBytes() int {
	if c.RAMConfiguration < 0 || c.RAMConfiguration >= len(ramSizes) {
		return ramSizes[1]
	}
	return ramSizes[c.RAMConfiguration]
}

// Path returns the platform config file path, honoring altPath if given.
func Path(altPath string) (string, error) {
	if altPath != "" {
		return altPath, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ase", "config.json"), nil
}

// Load reads and parses the config file at path, tolerating trailing
// commas and `//` line comments. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := json.Unmarshal(stripJSONComments(data), &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as indented JSON to path, creating parent directories as
// needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// stripJSONComments removes `//`-to-end-of-line comments and trailing
// commas before a closing `}` or `]`, so hand-edited config files need not
// be strict JSON.
func stripJSONComments(data []byte) []byte {
	var out bytes.Buffer
	inString := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			out.WriteByte(c)
			if c == '\\' && i+1 < len(data) {
				i++
				out.WriteByte(data[i])
				continue
			}
			if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			out.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(data) && data[i+1] == '/' {
			for i < len(data) && data[i] != '\n' {
				i++
			}
			if i < len(data) {
				out.WriteByte('\n')
			}
			continue
		}
		out.WriteByte(c)
	}
	return stripTrailingCommas(out.Bytes())
}

func stripTrailingCommas(data []byte) []byte {
	var out bytes.Buffer
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c != ',' {
			out.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(data) && (data[j] == ' ' || data[j] == '\t' || data[j] == '\n' || data[j] == '\r') {
			j++
		}
		if j < len(data) && (data[j] == '}' || data[j] == ']') {
			continue // drop the trailing comma
		}
		out.WriteByte(c)
	}
	return out.Bytes()
}

// Flags holds the result of parsing CLI arguments; fields are only set
// when the corresponding flag was passed, so Apply can tell "unset" from
// "explicitly set to the zero value".
type Flags struct {
	TOSPath           *string
	AltConfigPath     *string
	Debug             *bool
	MaxSpeed          *bool
	FloppyPath        *string
	MouseSensitivityX *int
	MouseSensitivityY *int
	WriteProtect      *bool
	Help              bool
}

// ParseArgs parses args (excluding argv[0]) left to right; flag's own
// semantics make the last occurrence of a repeated flag win.
func ParseArgs(args []string) (Flags, error) {
	fs := flag.NewFlagSet("ase", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: ase [flags]")
		fs.PrintDefaults()
	}

	tos := fs.String("tos", "", "path to TOS ROM (192 KiB or 256 KiB)")
	alt := fs.String("altconfig", "", "load an alternate JSON config")
	debug := fs.Bool("debug", false, "enable debug tracing")
	maxspeed := fs.String("maxspeed", "", "true|false: disable 50 Hz pacing")
	floppyPath := fs.String("floppy", "", "insert disk image at startup")
	sensitivity := fs.String("mouse-sensitivity", "", "integer divisors X,Y (default 2,2)")
	writeProtect := fs.String("write-protect", "", "true|false: force an inserted image's write-protect bit")
	help := fs.Bool("h", false, "print usage and exit")
	fs.BoolVar(help, "help", false, "print usage and exit")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	if *help {
		fs.Usage()
	}

	out := Flags{Help: *help}
	if wasSet(fs, "tos") {
		out.TOSPath = tos
	}
	if wasSet(fs, "altconfig") {
		out.AltConfigPath = alt
	}
	if wasSet(fs, "debug") {
		out.Debug = debug
	}
	if wasSet(fs, "floppy") {
		out.FloppyPath = floppyPath
	}
	if wasSet(fs, "maxspeed") {
		v, err := strconv.ParseBool(*maxspeed)
		if err != nil {
			return Flags{}, fmt.Errorf("--maxspeed: %w", err)
		}
		out.MaxSpeed = &v
	}
	if wasSet(fs, "mouse-sensitivity") {
		x, y, err := parseSensitivity(*sensitivity)
		if err != nil {
			return Flags{}, err
		}
		out.MouseSensitivityX = &x
		out.MouseSensitivityY = &y
	}
	if wasSet(fs, "write-protect") {
		v, err := strconv.ParseBool(*writeProtect)
		if err != nil {
			return Flags{}, fmt.Errorf("--write-protect: %w", err)
		}
		out.WriteProtect = &v
	}
	return out, nil
}

func wasSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func parseSensitivity(spec string) (int, int, error) {
	parts := strings.SplitN(spec, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("--mouse-sensitivity must be X,Y")
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("--mouse-sensitivity X: %w", err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("--mouse-sensitivity Y: %w", err)
	}
	return x, y, nil
}

const (
	tosSizeSmall = 192 * 1024
	tosSizeLarge = 256 * 1024
)

// ValidationError reports a fatal configuration problem, surfaced at
// startup with exit code 1 per §7.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks the fields required for a successful boot: a readable
// TOS ROM of the expected size. FloppyImagePath, if set, is validated by
// the floppy loader itself rather than here.
func (c Config) Validate() error {
	if c.TOSPath == "" {
		return &ValidationError{Field: "TOSPath", Err: fmt.Errorf("no TOS ROM path given")}
	}
	info, err := os.Stat(c.TOSPath)
	if err != nil {
		return &ValidationError{Field: "TOSPath", Err: err}
	}
	size := info.Size()
	if size != tosSizeSmall && size != tosSizeLarge {
		return &ValidationError{Field: "TOSPath", Err: fmt.Errorf("unexpected ROM size %d bytes", size)}
	}
	return nil
}

// Apply overlays any explicitly-set flags onto cfg, flags winning.
func Apply(cfg Config, f Flags) Config {
	if f.TOSPath != nil {
		cfg.TOSPath = *f.TOSPath
	}
	if f.Debug != nil {
		cfg.DebugMode = *f.Debug
	}
	if f.MaxSpeed != nil {
		cfg.MaxSpeed = *f.MaxSpeed
	}
	if f.FloppyPath != nil {
		cfg.FloppyImagePath = *f.FloppyPath
	}
	if f.MouseSensitivityX != nil {
		cfg.MouseXSensitivity = *f.MouseSensitivityX
	}
	if f.MouseSensitivityY != nil {
		cfg.MouseYSensitivity = *f.MouseSensitivityY
	}
	if f.WriteProtect != nil {
		cfg.WriteProtectOverride = f.WriteProtect
	}
	return cfg
}
