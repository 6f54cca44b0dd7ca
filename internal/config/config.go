package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/keypad-controller/internal/logger"
)

// Input selects where the controller reads key presses from.
type Input string

const (
	// InputTerminal reads keys from the controlling terminal; the remote
	// keypad service still feeds the same queue when a listen address is set.
	InputTerminal Input = "terminal"
	// InputRemote accepts key presses only through the remote keypad service.
	InputRemote Input = "remote"
)

// Config holds the settings of the keypad controller.
type Config struct {
	// CredentialFile is the path to the plain-text password file.
	CredentialFile string `yaml:"credential_file"`
	// StatusFile is the path to the JSON snapshot of the controller status.
	StatusFile string `yaml:"status_file"`
	// ListenAddress is the gRPC address of the remote keypad service.
	// An empty value disables the service unless Input is remote.
	ListenAddress string `yaml:"listen_addr"`
	// Timeout is the duration for remote calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level of emitted log lines.
	LogLevel string `yaml:"log_level"`
	// Input selects the signal source.
	Input Input `yaml:"input"`
	// QueueSize bounds the number of pending key presses.
	QueueSize int `yaml:"queue_size"`
	// PressRate limits remote key presses per second.
	PressRate float64 `yaml:"press_rate"`
	// Password holds the password-handling rules.
	Password Password `yaml:"password"`
	// LEDs holds the lighting sequence timings.
	LEDs LEDTimings `yaml:"leds"`
}

// Password configures credential checks and store access.
type Password struct {
	// MinLength is the shortest accepted new password.
	MinLength int `yaml:"min_length"`
	// StoreAttempts is how many times a credential file operation is tried.
	StoreAttempts int `yaml:"store_attempts"`
	// StoreRetryDelay is the pause between credential file attempts.
	StoreRetryDelay time.Duration `yaml:"store_retry_delay"`
}

// LEDTimings configures the lighting sequences of the LED board.
type LEDTimings struct {
	// Step is how long each LED stays lit inside flash and twinkle sequences.
	Step time.Duration `yaml:"step"`
	// Wake is the flash length of the wake-up sequence.
	Wake time.Duration `yaml:"wake"`
	// PowerUp is how long LED 0 stays lit when powering up.
	PowerUp time.Duration `yaml:"power_up"`
	// Activate is the twinkle length when the agent becomes fully active.
	Activate time.Duration `yaml:"activate"`
	// Correct is the twinkle length after an accepted password.
	Correct time.Duration `yaml:"correct"`
	// Wrong is the flash length after a rejected password.
	Wrong time.Duration `yaml:"wrong"`
	// PowerDownPulse is how long LEDs 4 and 5 stay lit when powering down.
	PowerDownPulse time.Duration `yaml:"power_down_pulse"`
	// PowerDownGap is the pause between power-down pulses.
	PowerDownGap time.Duration `yaml:"power_down_gap"`
	// PowerDownCycles is the number of LED 4/LED 5 pulse pairs.
	PowerDownCycles int `yaml:"power_down_cycles"`
	// MaxDuration caps a user-requested lighting duration.
	MaxDuration time.Duration `yaml:"max_duration"`
}

const (
	// DefaultConfigFilename is the default filename for controller settings.
	DefaultConfigFilename = "kpc-settings.yaml"

	// DefaultCredentialFilename is the default filename of the password store.
	DefaultCredentialFilename = "kpc-password.txt"

	// DefaultStatusFilename is the default filename for the status snapshot.
	DefaultStatusFilename = "kpc-status.json"

	// DefaultListenAddress is the default address of the remote keypad service.
	DefaultListenAddress = "127.0.0.1:50061"

	// DefaultTimeout is the default duration for remote calls.
	DefaultTimeout = 5 * time.Second

	// DefaultQueueSize is the default number of buffered key presses.
	DefaultQueueSize = 64

	// DefaultPressRate is the default remote key presses per second.
	DefaultPressRate = 20

	// DefaultMinPasswordLength is the shortest accepted new password.
	DefaultMinPasswordLength = 4

	// DefaultStoreAttempts is the default number of credential file attempts.
	DefaultStoreAttempts = 3

	// DefaultStoreRetryDelay is the default pause between credential file attempts.
	DefaultStoreRetryDelay = 100 * time.Millisecond

	// DefaultFilePermissions is the default file permission for written files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errCredentialFileRequired is returned when the password file path is missing.
	errCredentialFileRequired = errors.New("credential file must be provided")
	// errUnknownInput is returned for an unsupported input value.
	errUnknownInput = errors.New("unknown input")
	// errUnknownLogLevel is returned for an unsupported log level.
	errUnknownLogLevel = errors.New("unknown log level")
	// errNegativeTiming is returned when a lighting timing is negative.
	errNegativeTiming = errors.New("led timings must not be negative")
)

// DefaultLEDTimings returns the lighting timings of the reference device.
func DefaultLEDTimings() LEDTimings {
	return LEDTimings{
		Step:            500 * time.Millisecond,
		Wake:            time.Second,
		PowerUp:         2 * time.Second,
		Activate:        time.Second,
		Correct:         2 * time.Second,
		Wrong:           5500 * time.Millisecond,
		PowerDownPulse:  2 * time.Second,
		PowerDownGap:    time.Second,
		PowerDownCycles: 4,
		MaxDuration:     99 * time.Second,
	}
}

// PowerDownDuration returns the length of the whole power-down sequence.
func (t LEDTimings) PowerDownDuration() time.Duration {
	return time.Duration(t.PowerDownCycles) * 2 * (t.PowerDownPulse + t.PowerDownGap)
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	return &Config{
		CredentialFile: DefaultCredentialFilename,
		StatusFile:     DefaultStatusFilename,
		ListenAddress:  DefaultListenAddress,
		Timeout:        DefaultTimeout,
		LogLevel:       "info",
		Input:          InputTerminal,
		QueueSize:      DefaultQueueSize,
		PressRate:      DefaultPressRate,
		Password: Password{
			MinLength:       DefaultMinPasswordLength,
			StoreAttempts:   DefaultStoreAttempts,
			StoreRetryDelay: DefaultStoreRetryDelay,
		},
		LEDs: DefaultLEDTimings(),
	}
}

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills unset fields with defaults.
//
//nolint:cyclop // A flat list of field checks reads better than a split.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.CredentialFile == "" {
		return errCredentialFileRequired
	}

	if settings.StatusFile == "" {
		settings.StatusFile = DefaultStatusFilename
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.LogLevel == "" {
		settings.LogLevel = "info"
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%q: %w", settings.LogLevel, errUnknownLogLevel)
	}

	switch settings.Input {
	case "":
		settings.Input = InputTerminal
	case InputTerminal, InputRemote:
	default:
		return fmt.Errorf("%q: %w", settings.Input, errUnknownInput)
	}

	if settings.Input == InputRemote && settings.ListenAddress == "" {
		settings.ListenAddress = DefaultListenAddress
	}

	if settings.ListenAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.ListenAddress); err != nil {
			return fmt.Errorf("invalid listen address: %w", err)
		}
	}

	if settings.QueueSize <= 0 {
		settings.QueueSize = DefaultQueueSize
	}

	if settings.PressRate <= 0 {
		settings.PressRate = DefaultPressRate
	}

	validatePassword(&settings.Password)

	return validateLEDs(&settings.LEDs)
}

func validatePassword(p *Password) {
	if p.MinLength <= 0 {
		p.MinLength = DefaultMinPasswordLength
	}

	if p.StoreAttempts <= 0 {
		p.StoreAttempts = DefaultStoreAttempts
	}

	if p.StoreRetryDelay < 0 {
		p.StoreRetryDelay = DefaultStoreRetryDelay
	}
}

// validateLEDs rejects negative timings and replaces an all-zero block with defaults.
func validateLEDs(t *LEDTimings) error {
	if *t == (LEDTimings{}) {
		*t = DefaultLEDTimings()

		return nil
	}

	for _, d := range []time.Duration{
		t.Step, t.Wake, t.PowerUp, t.Activate, t.Correct,
		t.Wrong, t.PowerDownPulse, t.PowerDownGap, t.MaxDuration,
	} {
		if d < 0 {
			return errNegativeTiming
		}
	}

	if t.PowerDownCycles < 0 {
		return errNegativeTiming
	}

	if t.MaxDuration == 0 {
		t.MaxDuration = DefaultLEDTimings().MaxDuration
	}

	return nil
}
