package disk

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-extentfs/util"
)

var _ Disk = (*fileDisk)(nil)

type fileDisk struct {
	fd         int
	numSectors uint64
}

// NewFileDisk opens (creating if needed) a disk image at path holding
// numSectors sectors. A regular file of the wrong length is resized.
func NewFileDisk(path string, numSectors uint64) (Disk, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0666)
	if err != nil {
		return nil, err
	}
	var stat unix.Stat_t
	err = unix.Fstat(fd, &stat)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	if (stat.Mode&unix.S_IFREG) != 0 && uint64(stat.Size) != numSectors*SectorSize {
		err = unix.Ftruncate(fd, int64(numSectors*SectorSize))
		if err != nil {
			unix.Close(fd)
			return nil, err
		}
	}
	return &fileDisk{fd, numSectors}, nil
}

func (d *fileDisk) ReadTo(a uint64, buf Block) error {
	if uint64(len(buf)) != SectorSize {
		panic("buffer is not sector-sized")
	}
	if a >= d.numSectors {
		return fmt.Errorf("out-of-bounds read at %v", a)
	}
	_, err := unix.Pread(d.fd, buf, int64(a*SectorSize))
	if err != nil {
		return fmt.Errorf("read sector %d: %w", a, err)
	}
	util.DPrintf(10, "read: %v\n", a)
	return nil
}

func (d *fileDisk) Read(a uint64) (Block, error) {
	return Read(d, a)
}

func (d *fileDisk) Write(a uint64, v Block) error {
	if uint64(len(v)) != SectorSize {
		panic(fmt.Errorf("v is not sector sized (%d bytes)", len(v)))
	}
	if a >= d.numSectors {
		return fmt.Errorf("out-of-bounds write at %v", a)
	}
	_, err := unix.Pwrite(d.fd, v, int64(a*SectorSize))
	if err != nil {
		return fmt.Errorf("write sector %d: %w", a, err)
	}
	util.DPrintf(10, "write: %v\n", a)
	return nil
}

func (d *fileDisk) Size() (uint64, error) {
	return d.numSectors, nil
}

func (d *fileDisk) Barrier() error {
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; see https://golang.org/src/internal/poll/fd_fsync_darwin.go
	// for more details. The correct replacement is to issue a fcntl syscall with
	// cmd F_FULLFSYNC.
	err := unix.Fsync(d.fd)
	if err != nil {
		return fmt.Errorf("file sync failed: %w", err)
	}
	util.DPrintf(10, "barrier\n")
	return nil
}

func (d *fileDisk) Close() error {
	return unix.Close(d.fd)
}

var _ Disk = (*memDisk)(nil)

type memDisk struct {
	l       *sync.RWMutex
	sectors [][SectorSize]byte
}

func NewMemDisk(numSectors uint64) Disk {
	sectors := make([][SectorSize]byte, numSectors)
	return &memDisk{l: new(sync.RWMutex), sectors: sectors}
}

func (d *memDisk) ReadTo(a uint64, buf Block) error {
	if uint64(len(buf)) != SectorSize {
		panic("buffer is not sector-sized")
	}
	d.l.RLock()
	defer d.l.RUnlock()
	if a >= uint64(len(d.sectors)) {
		return fmt.Errorf("out-of-bounds read at %v", a)
	}
	copy(buf, d.sectors[a][:])
	return nil
}

func (d *memDisk) Read(a uint64) (Block, error) {
	return Read(d, a)
}

func (d *memDisk) Write(a uint64, v Block) error {
	if uint64(len(v)) != SectorSize {
		panic(fmt.Errorf("v is not sector-sized (%d bytes)", len(v)))
	}
	d.l.Lock()
	defer d.l.Unlock()
	if a >= uint64(len(d.sectors)) {
		return fmt.Errorf("out-of-bounds write at %v", a)
	}
	copy(d.sectors[a][:], v)
	return nil
}

func (d *memDisk) Size() (uint64, error) {
	// this never changes so we assume it's safe to run lock-free
	return uint64(len(d.sectors)), nil
}

func (d *memDisk) Barrier() error { return nil }

func (d *memDisk) Close() error { return nil }
