package filesys

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-extentfs/common"
)

func TestHandleTable(t *testing.T) {
	fs, _ := mkFs(t, 1024)
	require.Nil(t, fs.Create("/a", 10))
	s := fs.NewSession()

	var hs []Handle
	for i := uint64(0); i < common.MaxOpenFiles; i++ {
		h, err := s.Open("/a")
		require.Nil(t, err)
		assert.Equal(t, Handle(i+1), h)
		hs = append(hs, h)
	}
	assert.Equal(t, int(common.MaxOpenFiles), s.NumOpen())

	_, err := s.Open("/a")
	assert.True(t, errors.Is(err, common.ErrTooManyOpen))

	require.Nil(t, s.Close(hs[4]))
	h, err := s.Open("/a")
	require.Nil(t, err)
	assert.Equal(t, hs[4], h, "lowest free slot is reused")
}

func TestBadHandle(t *testing.T) {
	fs, _ := mkFs(t, 1024)
	require.Nil(t, fs.Create("/a", 10))
	s := fs.NewSession()

	for _, h := range []Handle{0, 1, Handle(common.MaxOpenFiles + 1)} {
		_, err := s.Read(h, make([]byte, 1))
		assert.True(t, errors.Is(err, common.ErrBadHandle), "handle %d", h)
	}
	h, err := s.Open("/a")
	require.Nil(t, err)
	require.Nil(t, s.Close(h))
	assert.True(t, errors.Is(s.Close(h), common.ErrBadHandle))
	_, err = s.Write(h, []byte("x"))
	assert.True(t, errors.Is(err, common.ErrBadHandle))

	_, err = s.Open("/missing")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	require.Nil(t, fs.CreateDir("/d"))
	_, err = s.Open("/d")
	assert.True(t, errors.Is(err, common.ErrIsDir))
	assert.Equal(t, 0, s.NumOpen())
}

func TestSessionReadWrite(t *testing.T) {
	fs, _ := mkFs(t, 1024)
	s := fs.NewSession()
	require.Nil(t, s.Create("/a", 300))

	h, err := s.Open("/a")
	require.Nil(t, err)
	v := data(200)
	n, err := s.Write(h, v)
	require.Nil(t, err)
	assert.Equal(t, 200, n)
	n, err = s.Write(h, v)
	assert.Equal(t, io.ErrShortWrite, err)
	assert.Equal(t, 100, n)

	// a second handle has its own position
	h2, err := s.Open("/a")
	require.Nil(t, err)
	b := make([]byte, 200)
	n, err = s.Read(h2, b)
	require.Nil(t, err)
	assert.Equal(t, 200, n)
	assert.Equal(t, v, b)

	n, err = s.Read(h2, b)
	assert.Nil(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, v[:100], b[:100])
	_, err = s.Read(h2, b)
	assert.Equal(t, io.EOF, err)

	pos, err := s.Seek(h2, 10, io.SeekStart)
	require.Nil(t, err)
	assert.Equal(t, int64(10), pos)
	n, err = s.Read(h2, b[:5])
	require.Nil(t, err)
	assert.Equal(t, v[10:15], b[:5])

	require.Nil(t, s.Close(h))
	require.Nil(t, s.Close(h2))
}

func TestRemoveOpenFile(t *testing.T) {
	fs, _ := mkFs(t, 1024)
	free := numFree(t, fs)
	require.Nil(t, fs.CreateDir("/d"))
	require.Nil(t, fs.Create("/d/a", 300))
	s1 := fs.NewSession()
	s2 := fs.NewSession()

	h1, err := s1.Open("/d/a")
	require.Nil(t, err)
	h2, err := s2.Open("/d/a")
	require.Nil(t, err)

	err = fs.Remove("/d/a")
	assert.True(t, errors.Is(err, common.ErrBusy))
	err = fs.RemoveTree("/d")
	assert.True(t, errors.Is(err, common.ErrBusy))
	_, err = fs.Stat("/d/a")
	assert.Nil(t, err, "open file survives")

	require.Nil(t, s1.Close(h1))
	err = fs.Remove("/d/a")
	assert.True(t, errors.Is(err, common.ErrBusy), "still open in another session")

	require.Nil(t, s2.Close(h2))
	require.Nil(t, fs.RemoveTree("/d"))
	assert.Equal(t, free, numFree(t, fs))
	assert.Nil(t, fs.Check())
}
