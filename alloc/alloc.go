package alloc

import (
	"fmt"
	"io"
	"strings"

	"github.com/mit-pdos/go-extentfs/common"
	"github.com/mit-pdos/go-extentfs/util"
)

// Bitmap tracks free/used sectors, one bit per sector. Bit n lives in byte
// n/8 at position n%8.
//
// A Bitmap is an in-memory snapshot: it is loaded from the bitmap file at
// the start of an operation and written back only if the operation
// succeeds.
type Bitmap struct {
	nbits uint64
	bits  []byte
}

func MkBitmap(nbits uint64) *Bitmap {
	return &Bitmap{
		nbits: nbits,
		bits:  make([]byte, common.FreeMapFileSize(nbits)),
	}
}

func (bm *Bitmap) Len() uint64 {
	return bm.nbits
}

func (bm *Bitmap) check(n uint64) {
	if n >= bm.nbits {
		panic(fmt.Errorf("bit %d out of range [0, %d)", n, bm.nbits))
	}
}

// Mark forces bit n to used.
func (bm *Bitmap) Mark(n uint64) {
	bm.check(n)
	bm.bits[n/8] |= 1 << (n % 8)
}

func (bm *Bitmap) Clear(n uint64) {
	bm.check(n)
	bm.bits[n/8] &^= 1 << (n % 8)
}

func (bm *Bitmap) Test(n uint64) bool {
	bm.check(n)
	return bm.bits[n/8]&(1<<(n%8)) != 0
}

// FindAndSet marks the lowest-numbered free sector as used and returns it.
func (bm *Bitmap) FindAndSet() (common.Sector, error) {
	for i, b := range bm.bits {
		if b == 0xff {
			continue
		}
		for bit := uint64(0); bit < 8; bit++ {
			n := uint64(i)*8 + bit
			if n >= bm.nbits {
				break
			}
			if b&(1<<bit) == 0 {
				bm.bits[i] = b | (1 << bit)
				util.DPrintf(15, "FindAndSet: %d\n", n)
				return n, nil
			}
		}
	}
	return 0, fmt.Errorf("bitmap exhausted: %w", common.ErrNoSpace)
}

func popCnt(b byte) uint64 {
	var count uint64
	var x = b
	for i := uint64(0); i < 8; i++ {
		count += uint64(x & 1)
		x = x >> 1
	}
	return count
}

// NumClear reports the number of free sectors.
func (bm *Bitmap) NumClear() uint64 {
	var used uint64
	for _, b := range bm.bits {
		used += popCnt(b)
	}
	return bm.nbits - used
}

// FetchFrom loads the bitmap from the contents of the bitmap file.
func (bm *Bitmap) FetchFrom(f io.ReaderAt) error {
	_, err := f.ReadAt(bm.bits, 0)
	if err != nil {
		return fmt.Errorf("fetch bitmap: %w", err)
	}
	return nil
}

// WriteBack stores the bitmap as the contents of the bitmap file.
func (bm *Bitmap) WriteBack(f io.WriterAt) error {
	_, err := f.WriteAt(bm.bits, 0)
	if err != nil {
		return fmt.Errorf("write back bitmap: %w", err)
	}
	return nil
}

func (bm *Bitmap) Print(w io.Writer) {
	var set []string
	for n := uint64(0); n < bm.nbits; n++ {
		if bm.Test(n) {
			set = append(set, fmt.Sprint(n))
		}
	}
	fmt.Fprintf(w, "Bitmap set:\n%s\n", strings.Join(set, ", "))
}
