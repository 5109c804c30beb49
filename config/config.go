// Package config loads the extentfs tool's settings from the environment.
package config

import (
	"os"
	"strconv"
)

type Config struct {
	DiskPath   string
	NumSectors uint64
	Debug      uint64
}

func Load() *Config {
	return &Config{
		DiskPath:   getEnv("EXTENTFS_DISK", "DISK"),
		NumSectors: getEnvUint64("EXTENTFS_SECTORS", 32768),
		Debug:      getEnvUint64("EXTENTFS_DEBUG", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseUint(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}
