package log

import (
	"encoding/binary"
	"path/filepath"

	"github.com/tysonmote/gommap"
	"go.uber.org/zap"
)

// lenWidth is the width, in bytes, of the length prefix on every commit log
// record.
const lenWidth = 8

// CommitLog is a thin adapter over a Mapped File Queue whose records are
// length-prefixed message payloads: len:u64 LE ∥ payload. The length prefix
// makes the log self-delimiting, so recovery needs no separate
// write-ahead state.
type CommitLog struct {
	q *queue
}

// OpenCommitLog opens (or creates) the commit log under <rootDir>/commitlog,
// recovering any existing segments' write frontiers.
func OpenCommitLog(rootDir string, segmentCapacity uint64, logger *zap.Logger) (*CommitLog, error) {
	q, err := openQueue(filepath.Join(rootDir, "commitlog"), segmentCapacity, parseCommitLogRecord, logger)
	if err != nil {
		return nil, err
	}
	return &CommitLog{q: q}, nil
}

// parseCommitLogRecord is the commit log's recovery scanner: it reads the
// 8-byte length prefix at pos and, if it describes a record that fits
// within the mapping, returns the record's total footprint (8+len). A zero
// length, or a length that would run past the end of the mapping, halts the
// scan — the first case is the expected sentinel in fresh zero-filled
// space, the second is a partial trailing record left by a crash; both are
// treated identically as end-of-log (spec §4.5/§9).
func parseCommitLogRecord(data gommap.MMap, pos uint64) (uint64, bool, bool) {
	if pos+lenWidth > uint64(len(data)) {
		return 0, false, false
	}

	length := binary.LittleEndian.Uint64(data[pos : pos+lenWidth])
	if length == 0 {
		return 0, false, false
	}

	total := lenWidth + length
	if pos+total > uint64(len(data)) {
		// A nonzero length prefix was written but the payload it promises
		// doesn't fit in what remains: a crash mid-write, not a sentinel.
		return 0, false, true
	}

	return total, true, false
}

// Write appends payload as a length-prefixed record and returns the
// absolute offset of the record's length field plus the record's total
// stored footprint (8 + len(payload)).
func (c *CommitLog) Write(payload []byte) (offset, storedSize uint64, err error) {
	storedSize = lenWidth + uint64(len(payload))
	if storedSize > c.q.capacity {
		return 0, 0, ErrRecordTooLarge
	}

	buf := make([]byte, storedSize)
	binary.LittleEndian.PutUint64(buf[:lenWidth], uint64(len(payload)))
	copy(buf[lenWidth:], payload)

	offset, err = c.q.append(buf)
	if err != nil {
		return 0, 0, err
	}
	return offset, storedSize, nil
}

// Read returns the size bytes stored at offset, including the 8-byte length
// prefix; callers strip it to recover the original payload.
func (c *CommitLog) Read(offset, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, ErrInvalidInput
	}
	return c.q.read(offset, size)
}

// Close syncs and closes every commit log segment.
func (c *CommitLog) Close() error {
	return c.q.close()
}
