package util

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMin(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(uint64(2), Min(2, 3))
	assert.Equal(uint64(2), Min(3, 2))
	assert.Equal(uint64(2), Min(2, 2))
}

func TestRoundUp(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(uint64(4), RoundUp(10, 3))
	assert.Equal(uint64(3), RoundUp(9, 3), "exact division")
	assert.Equal(uint64(0), RoundUp(0, 3))
	assert.Equal(uint64(4), RoundUp(500, 128))
	assert.Equal(uint64(31), RoundUp(3840+1, 128), "one past the direct limit")
}

func TestCloneByteSlice(t *testing.T) {
	s := []byte{1, 2, 3}
	c := CloneByteSlice(s)
	c[0] = 9
	assert.Equal(t, byte(1), s[0], "clone must not alias")
	assert.Equal(t, []byte{9, 2, 3}, c)
}

func TestDPrintf(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	old := Debug
	defer func() {
		Debug = old
		SetOutput(os.Stderr)
	}()

	Debug = 1
	DPrintf(1, "create %s\n", "/a")
	DPrintf(5, "alloc %d\n", 7)
	assert.Contains(t, buf.String(), "extentfs: ")
	assert.Contains(t, buf.String(), "create /a")
	assert.NotContains(t, buf.String(), "alloc 7")
}
