package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func setenv(t *testing.T, key, value string) {
	old, ok := os.LookupEnv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if ok {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestDefaults(t *testing.T) {
	setenv(t, "EXTENTFS_DISK", "")
	setenv(t, "EXTENTFS_SECTORS", "")
	setenv(t, "EXTENTFS_DEBUG", "")
	c := Load()
	assert.Equal(t, "DISK", c.DiskPath)
	assert.Equal(t, uint64(32768), c.NumSectors)
	assert.Equal(t, uint64(0), c.Debug)
}

func TestEnv(t *testing.T) {
	setenv(t, "EXTENTFS_DISK", "/tmp/img")
	setenv(t, "EXTENTFS_SECTORS", "1024")
	setenv(t, "EXTENTFS_DEBUG", "5")
	c := Load()
	assert.Equal(t, "/tmp/img", c.DiskPath)
	assert.Equal(t, uint64(1024), c.NumSectors)
	assert.Equal(t, uint64(5), c.Debug)
}

func TestBadNumber(t *testing.T) {
	setenv(t, "EXTENTFS_SECTORS", "lots")
	assert.Equal(t, uint64(32768), Load().NumSectors)
}
