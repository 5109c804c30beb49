package util

import (
	"io"
	"log"
	"os"
)

// Debug is the threshold for DPrintf; messages with a higher level are
// dropped. 0 silences everything but level-0 messages.
var Debug uint64 = 0

var logger = log.New(os.Stderr, "extentfs: ", log.Ltime|log.Lmicroseconds)

// SetOutput redirects debug messages to w.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func DPrintf(level uint64, format string, a ...interface{}) {
	if level <= Debug {
		logger.Printf(format, a...)
	}
}

func RoundUp(n uint64, sz uint64) uint64 {
	return (n + sz - 1) / sz
}

func Min(n uint64, m uint64) uint64 {
	if n < m {
		return n
	} else {
		return m
	}
}

func CloneByteSlice(s []byte) []byte {
	s2 := make([]byte, len(s))
	copy(s2, s)
	return s2
}
