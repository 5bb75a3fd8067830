package log

import (
	"encoding/binary"

	"github.com/tysonmote/gommap"
	"go.uber.org/zap"
)

// messageIndex is the per-queue Message Index: a Mapped File Queue whose
// records are dense, fixed 12-byte Message Index Units
// (offset:u64 LE ∥ size:u32 LE). The Nth appended unit occupies absolute
// byte offset N*12, so logical index <-> byte offset is pure arithmetic.
type messageIndex struct {
	q *queue
}

// openMessageIndex opens (or creates) the index queue under dir, which must
// already be the per-(topic, queueID) directory. capacity must be a
// multiple of messageIndexUnitWidth.
func openMessageIndex(dir string, capacity uint64, logger *zap.Logger) (*messageIndex, error) {
	q, err := openQueue(dir, capacity, parseMessageIndexUnit, logger)
	if err != nil {
		return nil, err
	}
	return &messageIndex{q: q}, nil
}

// parseMessageIndexUnit is the index's recovery scanner: a unit with a
// nonzero size field is valid and advances the scan by exactly
// messageIndexUnitWidth bytes; a zero size is the sentinel that halts
// recovery.
func parseMessageIndexUnit(data gommap.MMap, pos uint64) (uint64, bool, bool) {
	if pos+messageIndexUnitWidth > uint64(len(data)) {
		// Fewer than 12 bytes remain: can only happen at the very end of a
		// segment whose capacity isn't a clean multiple of 12, which the
		// configuration invariant forbids, but recovery still terminates
		// safely rather than reading out of bounds.
		return 0, false, false
	}

	size := binary.LittleEndian.Uint32(data[pos+8 : pos+12])
	if size == 0 {
		return 0, false, false
	}

	return messageIndexUnitWidth, true, false
}

// put appends one index unit describing a commit-log record and returns the
// dense, zero-based logical index assigned to it.
func (m *messageIndex) put(commitLogOffset uint64, recordSize uint32) (uint64, error) {
	if recordSize == 0 {
		return 0, ErrInvalidInput
	}

	buf := make([]byte, messageIndexUnitWidth)
	binary.LittleEndian.PutUint64(buf[0:8], commitLogOffset)
	binary.LittleEndian.PutUint32(buf[8:12], recordSize)

	byteOffset, err := m.q.append(buf)
	if err != nil {
		return 0, err
	}
	return byteOffset / messageIndexUnitWidth, nil
}

// read decodes the unit at logicalIndex into its (commit-log offset, record
// size) pair.
func (m *messageIndex) read(logicalIndex uint64) (commitLogOffset uint64, recordSize uint32, err error) {
	byteOffset := logicalIndex * messageIndexUnitWidth

	buf, err := m.q.read(byteOffset, messageIndexUnitWidth)
	if err != nil {
		return 0, 0, OffsetNotFoundError{Offset: logicalIndex}
	}

	recordSize = binary.LittleEndian.Uint32(buf[8:12])
	if recordSize == 0 {
		return 0, 0, ErrInvalidInput
	}
	commitLogOffset = binary.LittleEndian.Uint64(buf[0:8])
	return commitLogOffset, recordSize, nil
}

// close syncs and closes every index segment.
func (m *messageIndex) close() error {
	return m.q.close()
}
