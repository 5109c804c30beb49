package disk

// Block is a SectorSize-byte buffer
type Block = []byte

const SectorSize uint64 = 128

// Device is the synchronous sector transfer primitive the file system is
// built on. Both the raw disk and an in-progress operation's write set
// (buftxn.BufTxn) satisfy it.
type Device interface {
	// ReadTo reads the sector at a and stores the result in b
	//
	// Expects a < Size() and len(b) == SectorSize.
	ReadTo(a uint64, b Block) error

	// Write updates a sector by address
	//
	// Expects a < Size() and len(v) == SectorSize.
	Write(a uint64, v Block) error
}

// Disk provides access to a logical sector-based disk
type Disk interface {
	Device

	// Read reads a sector by address
	//
	// Expects a < Size().
	Read(a uint64) (Block, error)

	// Size reports how big the disk is, in sectors
	Size() (uint64, error)

	// Barrier ensures data is persisted.
	//
	// When it returns, all outstanding writes are guaranteed to be durably on
	// disk
	Barrier() error

	// Close releases any resources used by the disk and makes it unusable.
	Close() error
}

// Read allocates a fresh sector buffer and fills it from d.
func Read(d Device, a uint64) (Block, error) {
	buf := make(Block, SectorSize)
	err := d.ReadTo(a, buf)
	return buf, err
}
