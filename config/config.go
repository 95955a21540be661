package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"wagmicharge/native/custody"
)

// Config is the daemon configuration loaded from TOML. Governance parameter
// fields only seed a fresh state; once parameters are persisted they are
// governed through the engine, not the file.
type Config struct {
	ListenAddress    string   `toml:"ListenAddress"`
	DataDir          string   `toml:"DataDir"`
	Operator         string   `toml:"Operator"`
	Admins           []string `toml:"Admins"`
	AdminThreshold   uint32   `toml:"AdminThreshold"`
	RequireApprovals bool     `toml:"RequireApprovals"`

	SettlementDelaySeconds uint64 `toml:"SettlementDelaySeconds"`
	DailyLimit             string `toml:"DailyLimit"`
	MaxBatchSize           uint32 `toml:"MaxBatchSize"`
	EmergencyDelaySeconds  uint64 `toml:"EmergencyDelaySeconds"`
}

// Load reads the configuration from the given path, creating a default file
// if none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8743"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./custodydata"
	}
	defaults := custody.DefaultParams()
	if cfg.SettlementDelaySeconds == 0 {
		cfg.SettlementDelaySeconds = defaults.SettlementDelay
	}
	if strings.TrimSpace(cfg.DailyLimit) == "" {
		cfg.DailyLimit = defaults.DailyLimit.String()
	}
	if cfg.MaxBatchSize == 0 {
		cfg.MaxBatchSize = defaults.MaxBatchSize
	}
	if cfg.EmergencyDelaySeconds == 0 {
		cfg.EmergencyDelaySeconds = defaults.EmergencyDelay
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the address fields and the seeded parameter values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Operator) != "" {
		if _, err := ParseAddress(c.Operator); err != nil {
			return fmt.Errorf("config: invalid Operator: %w", err)
		}
	}
	for _, a := range c.Admins {
		if _, err := ParseAddress(a); err != nil {
			return fmt.Errorf("config: invalid admin %q: %w", a, err)
		}
	}
	if len(c.Admins) > 0 && (c.AdminThreshold < 1 || c.AdminThreshold > uint32(len(c.Admins))) {
		return fmt.Errorf("config: AdminThreshold %d out of [1, %d]", c.AdminThreshold, len(c.Admins))
	}
	if _, err := c.EngineParams(); err != nil {
		return err
	}
	return nil
}

// EngineParams converts the seeded parameter fields into a validated
// custody.Params.
func (c *Config) EngineParams() (custody.Params, error) {
	limit, ok := new(big.Int).SetString(strings.TrimSpace(c.DailyLimit), 10)
	if !ok {
		return custody.Params{}, fmt.Errorf("config: invalid DailyLimit %q", c.DailyLimit)
	}
	p := custody.Params{
		SettlementDelay:  c.SettlementDelaySeconds,
		DailyLimit:       limit,
		MaxBatchSize:     c.MaxBatchSize,
		EmergencyDelay:   c.EmergencyDelaySeconds,
		RequireApprovals: c.RequireApprovals,
	}
	if err := p.Validate(); err != nil {
		return custody.Params{}, err
	}
	return p, nil
}

// OperatorAddress parses the configured operator account.
func (c *Config) OperatorAddress() ([20]byte, error) {
	return ParseAddress(c.Operator)
}

// AdminAddresses parses the configured admin set.
func (c *Config) AdminAddresses() ([][20]byte, error) {
	admins := make([][20]byte, 0, len(c.Admins))
	for _, a := range c.Admins {
		addr, err := ParseAddress(a)
		if err != nil {
			return nil, err
		}
		admins = append(admins, addr)
	}
	return admins, nil
}

// ParseAddress decodes a 20-byte hex account address with optional 0x prefix.
func ParseAddress(s string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, err
	}
	if len(raw) != 20 {
		return addr, fmt.Errorf("address must be 20 bytes, got %d", len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}
