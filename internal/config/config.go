// Package config parses the control domain's remote.conf and watches it
// for changes.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/GabrieleRisso/qvm-remote/internal/audit"
)

// DefaultConfigPath is where the executor daemon looks for remote.conf
// when no --config flag overrides it.
func DefaultConfigPath() string {
	return filepath.Join("/etc", "qvm-remote", "remote.conf")
}

// Defaults applied when remote.conf omits a key.
const (
	DefaultPollInterval = 1
	DefaultExecTimeout  = 300
	DefaultMaxCmdBytes  = 1 << 20
	DefaultMaxOutBytes  = 10 << 20
)

// Config is the parsed contents of remote.conf.
type Config struct {
	// Domains is the authorised domain set D. It doubles as the
	// coordinator's domain-iteration source, so an empty set makes
	// every pass a no-op rather than an unscoped "authenticate
	// nothing, run everything" commissioning window: see DESIGN.md's
	// resolution of the empty-D open question.
	Domains []string

	PollIntervalSeconds int
	ExecTimeoutSeconds  int
	MaxCmdBytes         int
	MaxOutBytes         int
}

func defaults() Config {
	return Config{
		PollIntervalSeconds: DefaultPollInterval,
		ExecTimeoutSeconds:  DefaultExecTimeout,
		MaxCmdBytes:         DefaultMaxCmdBytes,
		MaxOutBytes:         DefaultMaxOutBytes,
	}
}

// Load parses the KEY=VALUE lines in remote.conf at path. A missing
// file is not an error: it is treated as an empty, all-defaults config
// (the commissioning window), since the daemon must still start before
// an operator has written one. An unrecognised key is ignored with a
// warning on a, the control-side audit log; a may be nil, in which case
// the warning is dropped rather than printed anywhere.
func Load(path string, a *audit.Logger) (Config, error) {
	cfg := defaults()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "QVM_REMOTE_VMS":
			cfg.Domains = splitDomains(value)
		case "QVM_REMOTE_POLL_INTERVAL":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				cfg.PollIntervalSeconds = n
			}
		case "QVM_REMOTE_EXEC_TIMEOUT":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				cfg.ExecTimeoutSeconds = n
			}
		case "QVM_REMOTE_MAX_CMD_BYTES":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				cfg.MaxCmdBytes = n
			}
		case "QVM_REMOTE_MAX_OUT_BYTES":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				cfg.MaxOutBytes = n
			}
		default:
			if a != nil {
				a.Log(audit.ErrorK, audit.F("reason", "ignoring unrecognised config key"), audit.F("key", key))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	sort.Strings(cfg.Domains)
	return cfg, nil
}

func splitDomains(value string) []string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// HasDomain reports whether d is in cfg's authorised domain set.
func (c Config) HasDomain(d string) bool {
	for _, candidate := range c.Domains {
		if candidate == d {
			return true
		}
	}
	return false
}
