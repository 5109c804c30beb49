package alloc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mit-pdos/go-extentfs/common"
)

func TestPopCnt(t *testing.T) {
	assert.Equal(t, uint64(0), popCnt(0))
	assert.Equal(t, uint64(1), popCnt(1))
	assert.Equal(t, uint64(1), popCnt(2))
	assert.Equal(t, uint64(2), popCnt(3))
	assert.Equal(t, uint64(8), popCnt(255))
}

func TestAlloc(t *testing.T) {
	assert := assert.New(t)
	max := uint64(32)
	bm := MkBitmap(max)

	assert.Equal(max, bm.NumClear(), "everything should be initially free")

	bm.Mark(0)
	bm.Mark(1)
	n, err := bm.FindAndSet()
	assert.Nil(err)
	assert.Equal(uint64(2), n, "lowest clear bit")

	bm.Mark(n + 1)
	n2, err := bm.FindAndSet()
	assert.Nil(err)
	assert.Equal(n+2, n2, "should not allocate something marked used")

	assert.Equal(max-5, bm.NumClear(), "should have used 5 items")

	bm.Clear(n)
	assert.False(bm.Test(n))
	n3, _ := bm.FindAndSet()
	assert.Equal(n, n3, "freed bit is reused first")
}

func TestExhaustion(t *testing.T) {
	// not a multiple of 8, so the tail of the last byte is never handed out
	bm := MkBitmap(10)
	for i := uint64(0); i < 10; i++ {
		n, err := bm.FindAndSet()
		assert.Nil(t, err)
		assert.Equal(t, i, n)
	}
	assert.Equal(t, uint64(0), bm.NumClear())
	_, err := bm.FindAndSet()
	assert.True(t, errors.Is(err, common.ErrNoSpace))
}

type memFile struct {
	data []byte
}

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, f.data[off:]), nil
}

func (f *memFile) WriteAt(p []byte, off int64) (int, error) {
	return copy(f.data[off:], p), nil
}

func TestFetchWriteBack(t *testing.T) {
	f := &memFile{data: make([]byte, common.FreeMapFileSize(100))}
	bm := MkBitmap(100)
	bm.Mark(0)
	bm.Mark(63)
	bm.Mark(99)
	assert.Nil(t, bm.WriteBack(f))

	bm2 := MkBitmap(100)
	assert.Nil(t, bm2.FetchFrom(f))
	assert.True(t, bm2.Test(0))
	assert.True(t, bm2.Test(63))
	assert.True(t, bm2.Test(99))
	assert.False(t, bm2.Test(1))
	assert.Equal(t, uint64(97), bm2.NumClear())

	var out bytes.Buffer
	bm2.Print(&out)
	assert.Contains(t, out.String(), "0, 63, 99")
}
