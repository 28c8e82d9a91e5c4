// Package config loads capsule's runtime configuration from the
// environment, following the teacher's main.go convention of loading a
// .env file via godotenv before reading any variable, and internal/llm's
// NewTier tiered-fallback pattern ({PREFIX}_{KEY} falling back to a
// shared CAPSULE_{KEY}).
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// BootProfile selects what the runtime auto-launches at startup
// (spec.md §4.6).
type BootProfile int

const (
	ProfileWorkspace BootProfile = iota
	ProfileEditor
	ProfileKiosk
)

func parseBootProfile(s string) BootProfile {
	switch s {
	case "editor":
		return ProfileEditor
	case "kiosk":
		return ProfileKiosk
	default:
		return ProfileWorkspace
	}
}

// Config is the resolved runtime configuration for one capsule process.
type Config struct {
	BootProfile      BootProfile
	KioskTag         string
	Quantum          int
	DefaultCPUBudget int
	DefaultMsgBudget int
	DefaultIOBudget  int
	StorageEndpoint  string
	StorageToken     string
	CacheDir         string
}

// Load reads .env (if present; a missing file is not an error, mirroring
// the teacher's `_ = godotenv.Load(".env")`) and resolves Config from the
// environment, applying prefix to every tiered lookup.
func Load(prefix string) Config {
	_ = godotenv.Load(".env")
	return FromEnviron(prefix)
}

// FromEnviron resolves Config directly from the current process
// environment, without touching .env. Exposed separately so tests can set
// os.Setenv without relying on file I/O.
func FromEnviron(prefix string) Config {
	get := func(suffix, fallback string) string {
		if prefix != "" {
			if v := os.Getenv(prefix + "_" + suffix); v != "" {
				return v
			}
		}
		if v := os.Getenv("CAPSULE_" + suffix); v != "" {
			return v
		}
		return fallback
	}
	getInt := func(suffix string, fallback int) int {
		raw := get(suffix, "")
		if raw == "" {
			return fallback
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fallback
		}
		return n
	}

	return Config{
		BootProfile:      parseBootProfile(get("BOOT_PROFILE", "workspace")),
		KioskTag:         get("KIOSK_TAG", "kiosk-dashboard"),
		Quantum:          getInt("QUANTUM", 3),
		DefaultCPUBudget: getInt("DEFAULT_CPU_BUDGET", 1000),
		DefaultMsgBudget: getInt("DEFAULT_MSG_BUDGET", 256),
		DefaultIOBudget:  getInt("DEFAULT_IO_BUDGET", 64),
		StorageEndpoint:  get("STORAGE_ENDPOINT", ""),
		StorageToken:     get("STORAGE_TOKEN", ""),
		CacheDir:         get("CACHE_DIR", defaultCacheDir()),
	}
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cache/capsule"
	}
	return home + "/.cache/capsule"
}
