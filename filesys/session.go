package filesys

import (
	"fmt"

	"github.com/mit-pdos/go-extentfs/common"
	"github.com/mit-pdos/go-extentfs/openfile"
	"github.com/mit-pdos/go-extentfs/util"
)

// Handle names an open file within a Session. Handles start at 1; 0 is
// never issued.
type Handle uint64

// HandleTable maps handles to open files, with room for
// common.MaxOpenFiles at a time.
type HandleTable struct {
	files [common.MaxOpenFiles]*openfile.OpenFile
}

func NewHandleTable() *HandleTable {
	return &HandleTable{}
}

// Acquire stores f in the lowest free slot.
func (t *HandleTable) Acquire(f *openfile.OpenFile) (Handle, error) {
	for i := range t.files {
		if t.files[i] == nil {
			t.files[i] = f
			return Handle(i + 1), nil
		}
	}
	return 0, fmt.Errorf("%d files open: %w", len(t.files), common.ErrTooManyOpen)
}

func (t *HandleTable) Get(h Handle) (*openfile.OpenFile, error) {
	if h == 0 || uint64(h) > uint64(len(t.files)) || t.files[h-1] == nil {
		return nil, fmt.Errorf("handle %d: %w", h, common.ErrBadHandle)
	}
	return t.files[h-1], nil
}

// Release frees h's slot for reuse.
func (t *HandleTable) Release(h Handle) error {
	if _, err := t.Get(h); err != nil {
		return err
	}
	t.files[h-1] = nil
	return nil
}

// Len is the number of open handles.
func (t *HandleTable) Len() int {
	n := 0
	for _, f := range t.files {
		if f != nil {
			n++
		}
	}
	return n
}

// Session is a client's view of a FileSystem: files are opened into a
// handle table and then read and written sequentially by handle.
type Session struct {
	fs      *FileSystem
	handles *HandleTable
}

func (fs *FileSystem) NewSession() *Session {
	return &Session{fs: fs, handles: NewHandleTable()}
}

func (s *Session) Create(path string, size uint64) error {
	return s.fs.Create(path, size)
}

// Open opens the file at path and returns a handle positioned at its
// start. Directories cannot be opened.
func (s *Session) Open(path string) (Handle, error) {
	e, err := s.fs.Stat(path)
	if err != nil {
		return 0, err
	}
	if e.IsDir {
		return 0, fmt.Errorf("open %s: %w", path, common.ErrIsDir)
	}
	f, err := s.fs.Open(path)
	if err != nil {
		return 0, err
	}
	h, err := s.handles.Acquire(f)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	s.fs.opened[f.Sector()]++
	util.DPrintf(3, "Open %s -> handle %d\n", path, h)
	return h, nil
}

// Read reads from h's current position. It returns 0, io.EOF at the end
// of the file.
func (s *Session) Read(h Handle, p []byte) (int, error) {
	f, err := s.handles.Get(h)
	if err != nil {
		return 0, err
	}
	return f.Read(p)
}

// Write writes at h's current position. Writes are cut short at the end
// of the file with io.ErrShortWrite.
func (s *Session) Write(h Handle, p []byte) (int, error) {
	f, err := s.handles.Get(h)
	if err != nil {
		return 0, err
	}
	return f.Write(p)
}

// Seek sets h's position for the next Read or Write.
func (s *Session) Seek(h Handle, offset int64, whence int) (int64, error) {
	f, err := s.handles.Get(h)
	if err != nil {
		return 0, err
	}
	return f.Seek(offset, whence)
}

// Close releases h. Once no session has the file open it may be removed.
func (s *Session) Close(h Handle) error {
	f, err := s.handles.Get(h)
	if err != nil {
		return err
	}
	if err := s.handles.Release(h); err != nil {
		return err
	}
	if s.fs.opened[f.Sector()]--; s.fs.opened[f.Sector()] == 0 {
		delete(s.fs.opened, f.Sector())
	}
	return nil
}

// NumOpen is the number of handles currently open.
func (s *Session) NumOpen() int {
	return s.handles.Len()
}
