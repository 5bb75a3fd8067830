package log

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// queue is an ordered collection of contiguous, fixed-capacity segments
// under a single directory: the Mapped File Queue of the spec. It is the
// shared machinery behind both the Commit Log and each per-queue Message
// Index; the only thing that differs between the two is the recordParser
// they recover with.
type queue struct {
	mu       sync.RWMutex
	dir      string
	capacity uint64
	segments []*segment
}

// openQueue opens dir, creating it if necessary, discovers any existing
// segment files (sorted ascending by the absolute offset encoded in their
// filename) and recovers each one's write frontier by scanning with parse.
// An empty directory yields a queue with no segments yet; the first append
// creates the initial tail.
func openQueue(dir string, capacity uint64, parse recordParser, logger *zap.Logger) (*queue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, storageErr("mkdir", dir, err)
	}

	q := &queue{dir: dir, capacity: capacity}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, storageErr("readdir", dir, err)
	}

	var minOffsets []uint64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		off, err := strconv.ParseUint(strings.TrimSpace(entry.Name()), 10, 64)
		if err != nil {
			continue
		}
		minOffsets = append(minOffsets, off)
	}
	sort.Slice(minOffsets, func(i, j int) bool { return minOffsets[i] < minOffsets[j] })

	for _, off := range minOffsets {
		path := filepath.Join(dir, segmentFileName(off))
		seg, err := openSegment(path, off, capacity)
		if err != nil {
			return nil, err
		}
		if seg.scan(parse) {
			logger.Warn("recovery stopped at a partial trailing record",
				zap.String("segment", path),
				zap.Uint64("recovered_max_offset", seg.maxOffset),
			)
		}
		q.segments = append(q.segments, seg)
	}

	return q, nil
}

// tail returns the current writable segment, creating the first one (at
// absolute offset 0) if the queue is empty.
func (q *queue) tail() (*segment, error) {
	if len(q.segments) == 0 {
		return q.newTailSegment(0)
	}
	return q.segments[len(q.segments)-1], nil
}

func (q *queue) newTailSegment(minOffset uint64) (*segment, error) {
	seg, err := openSegment(filepath.Join(q.dir, segmentFileName(minOffset)), minOffset, q.capacity)
	if err != nil {
		return nil, err
	}
	q.segments = append(q.segments, seg)
	return seg, nil
}

// append writes data to the tail segment, rolling over onto a freshly
// created segment and retrying once if the tail has no room left. A record
// never spans segments: if it doesn't fit even in a fresh segment, append
// returns ErrRecordTooLarge without creating or extending any file.
func (q *queue) append(data []byte) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if uint64(len(data)) > q.capacity {
		return 0, ErrRecordTooLarge
	}

	tail, err := q.tail()
	if err != nil {
		return 0, err
	}

	off, err := tail.append(data)
	if err == nil {
		return off, nil
	}
	if err != ErrCapacityExceeded {
		return 0, err
	}

	newTail, err := q.newTailSegment(tail.maxOffset)
	if err != nil {
		return 0, err
	}

	off, err = newTail.append(data)
	if err == ErrCapacityExceeded {
		return 0, ErrRecordTooLarge
	}
	return off, err
}

// read locates the unique segment covering absoluteOffset and delegates to
// it. The caller is responsible for requesting exactly the footprint of a
// previously written record so the read never crosses a segment boundary.
func (q *queue) read(absoluteOffset, size uint64) ([]byte, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, seg := range q.segments {
		if seg.contains(absoluteOffset) {
			return seg.read(absoluteOffset, size)
		}
	}
	return nil, OffsetNotFoundError{Offset: absoluteOffset}
}

// frontier returns the absolute write frontier of the tail segment, or 0 if
// the queue has never been written to.
func (q *queue) frontier() uint64 {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if len(q.segments) == 0 {
		return 0
	}
	return q.segments[len(q.segments)-1].maxOffset
}

// close syncs and closes every segment. Safe to call once; the queue is not
// reused afterward.
func (q *queue) close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, seg := range q.segments {
		if err := seg.close(); err != nil {
			return err
		}
	}
	return nil
}
