// Package config loads the cardiod configuration from an HCL file, applies
// environment overrides and validates the result.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration.
type Config struct {
	Server   *ServerSettings `hcl:"server,block"`
	Database *DatabaseConfig `hcl:"database,block"`
	Log      *LogConfig      `hcl:"log,block"`
	Tables   []TableConfig   `hcl:"table,block"`
}

// ServerSettings holds listener and game-pacing knobs.
type ServerSettings struct {
	ListenAddr       string `hcl:"listen_addr,optional"`
	ListenPort       int    `hcl:"listen_port,optional"`
	WSAddr           string `hcl:"ws_addr,optional"`
	AdminAddr        string `hcl:"admin_addr,optional"`
	ActionTimeoutMs  int    `hcl:"action_timeout_ms,optional"`
	HandStartDelayMs int    `hcl:"hand_start_delay_ms,optional"`
	StartingBalance  int    `hcl:"starting_balance,optional"`
}

// DatabaseConfig selects the SQL driver and its connection string.
type DatabaseConfig struct {
	Driver   string `hcl:"driver,optional"`
	Conninfo string `hcl:"conninfo,optional"`
}

// LogConfig selects the log destination and level. An empty path logs to
// stderr with console formatting.
type LogConfig struct {
	Path  string `hcl:"path,optional"`
	Level string `hcl:"level,optional"`
}

// TableConfig describes a table created at boot.
type TableConfig struct {
	Name       string `hcl:"name,label"`
	MaxPlayers int    `hcl:"max_players,optional"`
	MinBet     int    `hcl:"min_bet"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: &ServerSettings{
			ListenAddr:       "0.0.0.0",
			ListenPort:       7777,
			ActionTimeoutMs:  30000,
			HandStartDelayMs: 3000,
			StartingBalance:  10000,
		},
		Database: &DatabaseConfig{
			Driver:   "sqlite3",
			Conninfo: "cardio.db",
		},
		Log: &LogConfig{Level: "info"},
	}
}

// Load parses an HCL config file, fills defaults for missing blocks and
// applies environment overrides. A missing file yields the defaults, so a
// bare `cardiod serve` works out of the box.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			parser := hclparse.NewParser()
			file, diags := parser.ParseHCLFile(filename)
			if diags.HasErrors() {
				return nil, fmt.Errorf("parse %s: %s", filename, diags.Error())
			}
			parsed := &Config{}
			if diags := gohcl.DecodeBody(file.Body, nil, parsed); diags.HasErrors() {
				return nil, fmt.Errorf("decode %s: %s", filename, diags.Error())
			}
			cfg.merge(parsed)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat %s: %w", filename, err)
		}
	}
	cfg.ApplyEnv()
	cfg.fillTableDefaults()
	return cfg, nil
}

// merge overlays the parsed file onto the defaults, block by block.
func (c *Config) merge(parsed *Config) {
	if s := parsed.Server; s != nil {
		if s.ListenAddr != "" {
			c.Server.ListenAddr = s.ListenAddr
		}
		if s.ListenPort != 0 {
			c.Server.ListenPort = s.ListenPort
		}
		c.Server.WSAddr = s.WSAddr
		c.Server.AdminAddr = s.AdminAddr
		if s.ActionTimeoutMs != 0 {
			c.Server.ActionTimeoutMs = s.ActionTimeoutMs
		}
		if s.HandStartDelayMs != 0 {
			c.Server.HandStartDelayMs = s.HandStartDelayMs
		}
		if s.StartingBalance != 0 {
			c.Server.StartingBalance = s.StartingBalance
		}
	}
	if d := parsed.Database; d != nil {
		if d.Driver != "" {
			c.Database.Driver = d.Driver
		}
		if d.Conninfo != "" {
			c.Database.Conninfo = d.Conninfo
		}
	}
	if l := parsed.Log; l != nil {
		if l.Path != "" {
			c.Log.Path = l.Path
		}
		if l.Level != "" {
			c.Log.Level = l.Level
		}
	}
	c.Tables = parsed.Tables
}

// ApplyEnv overrides file values with the process environment. These names
// predate the HCL file and are kept so existing deployments keep working.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("LISTEN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.ListenPort = port
		}
	}
	if v := os.Getenv("DB_CONNINFO"); v != "" {
		c.Database.Conninfo = v
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		c.Log.Path = v
	}
}

func (c *Config) fillTableDefaults() {
	for i := range c.Tables {
		if c.Tables[i].MaxPlayers == 0 {
			c.Tables[i].MaxPlayers = 9
		}
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.ListenPort < 1 || c.Server.ListenPort > 65535 {
		return fmt.Errorf("invalid listen_port: %d", c.Server.ListenPort)
	}
	if c.Server.StartingBalance <= 0 {
		return fmt.Errorf("starting_balance must be positive, got %d", c.Server.StartingBalance)
	}
	switch c.Database.Driver {
	case "sqlite3":
	case "postgres":
		if c.Database.Conninfo == "" {
			return fmt.Errorf("database conninfo required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	for _, tbl := range c.Tables {
		if tbl.MaxPlayers < 2 || tbl.MaxPlayers > 9 {
			return fmt.Errorf("table %s: max_players must be between 2 and 9", tbl.Name)
		}
		if tbl.MinBet < 2 || tbl.MinBet%2 != 0 {
			// The small blind is half the big blind, so odd big blinds
			// cannot be posted.
			return fmt.Errorf("table %s: min_bet must be an even amount of at least 2", tbl.Name)
		}
	}
	return nil
}

// ListenAddress returns the TCP host:port to bind.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.ListenAddr, c.Server.ListenPort)
}

// ActionTimeout is how long a seat may hold the turn before the server acts
// for it.
func (c *Config) ActionTimeout() time.Duration {
	return time.Duration(c.Server.ActionTimeoutMs) * time.Millisecond
}

// HandStartDelay is the pause between enough players being seated and the
// next deal.
func (c *Config) HandStartDelay() time.Duration {
	return time.Duration(c.Server.HandStartDelayMs) * time.Millisecond
}

// Example is a commented starter configuration written by `cardiod config
// init`.
const Example = `server {
  listen_addr         = "0.0.0.0"
  listen_port         = 7777
  # ws_addr           = ":7778"  # optional websocket gateway
  # admin_addr        = ":9100"  # optional /metrics and /healthz
  action_timeout_ms   = 30000
  hand_start_delay_ms = 3000
  starting_balance    = 10000
}

database {
  driver   = "sqlite3" # or "postgres"
  conninfo = "cardio.db"
}

log {
  path  = "" # empty logs to stderr
  level = "info"
}

# Tables created at boot. Players can create more at runtime.
table "main" {
  max_players = 9
  min_bet     = 20
}
`
