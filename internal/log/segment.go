package log

import (
	"fmt"
	"os"

	"github.com/tysonmote/gommap"
)

// segment is a single fixed-capacity, memory-mapped file covering the
// absolute byte range [minOffset, minOffset+capacity). It is the only type
// in this package that touches the mapping directly; it keeps no cached
// state between calls beyond minOffset/maxOffset/capacity, so recovery is
// just a scan and concurrent access is entirely the owning queue's concern.
type segment struct {
	file      *os.File
	mmap      gommap.MMap
	minOffset uint64
	maxOffset uint64
	capacity  uint64
}

// openSegment opens or creates the segment file at path, truncating it to
// capacity bytes and mapping the whole file read/write. maxOffset starts at
// minOffset; callers that need to recover a non-empty segment's frontier
// call scan afterward.
func openSegment(path string, minOffset, capacity uint64) (*segment, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, storageErr("open", path, err)
	}

	if err := file.Truncate(int64(capacity)); err != nil {
		file.Close()
		return nil, storageErr("truncate", path, err)
	}

	mmap, err := gommap.Map(file.Fd(), gommap.PROT_READ|gommap.PROT_WRITE, gommap.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, storageErr("mmap", path, err)
	}

	return &segment{
		file:      file,
		mmap:      mmap,
		minOffset: minOffset,
		maxOffset: minOffset,
		capacity:  capacity,
	}, nil
}

// localPos returns absoluteOffset's position relative to the start of the
// mapping.
func (s *segment) localPos(absoluteOffset uint64) uint64 {
	return absoluteOffset - s.minOffset
}

// append writes data at the current write frontier, flushes the mapping to
// disk and advances maxOffset. It returns the pre-advance absolute offset.
// On ErrCapacityExceeded the frontier is left unchanged.
func (s *segment) append(data []byte) (uint64, error) {
	if s.localPos(s.maxOffset)+uint64(len(data)) > s.capacity {
		return 0, ErrCapacityExceeded
	}

	pos := s.localPos(s.maxOffset)
	copy(s.mmap[pos:pos+uint64(len(data))], data)

	if err := s.mmap.Sync(gommap.MS_SYNC); err != nil {
		return 0, storageErr("sync", s.file.Name(), err)
	}

	written := s.maxOffset
	s.maxOffset += uint64(len(data))
	return written, nil
}

// read returns a fresh copy of size bytes starting at absoluteOffset. The
// caller never aliases the mapping. A read is rejected if it starts before
// minOffset or reaches past the committed write frontier maxOffset — the
// latter both keeps reads out of reserved, never-written space and lets a
// record that exactly fills a segment (ending at maxOffset == capacity)
// still be read back in full.
func (s *segment) read(absoluteOffset, size uint64) ([]byte, error) {
	if absoluteOffset < s.minOffset || absoluteOffset+size > s.maxOffset {
		return nil, OffsetNotFoundError{Offset: absoluteOffset}
	}

	pos := s.localPos(absoluteOffset)
	out := make([]byte, size)
	copy(out, s.mmap[pos:pos+size])
	return out, nil
}

// recordParser recovers a segment's write frontier after restart. It is
// invoked repeatedly at increasing local positions and returns the total
// byte length of the record starting at pos and true, or false once the
// sentinel (a clean zero) is reached or the remaining bytes can no longer
// hold a record. The corrupt return distinguishes the ordinary sentinel
// (corrupt=false: fresh zero-filled space) from a record that began but
// cannot be fully parsed (corrupt=true: a crash mid-write) — both halt the
// scan identically, but the latter is worth a log line. Implementations
// never look outside data.
type recordParser func(data gommap.MMap, pos uint64) (length uint64, ok bool, corrupt bool)

// scan recovers maxOffset by repeatedly invoking parse starting at local
// position 0 until it returns false. It never errors: a malformed or
// truncated trailing record is treated as end-of-log (spec §4.5/§9), not a
// reported failure. It reports whether the halt was due to a corrupt
// partial record rather than the ordinary zero sentinel.
func (s *segment) scan(parse recordParser) (corruptionFound bool) {
	var pos uint64
	for {
		length, ok, corrupt := parse(s.mmap, pos)
		if !ok {
			corruptionFound = corrupt
			break
		}
		pos += length
	}
	s.maxOffset = s.minOffset + pos
	return corruptionFound
}

// contains reports whether off falls within the committed region
// [minOffset, maxOffset).
func (s *segment) contains(off uint64) bool {
	return s.minOffset <= off && off < s.maxOffset
}

// close syncs the mapping and the file and releases the file handle. The
// file keeps its full capacity on disk; segments are never shrunk.
func (s *segment) close() error {
	if err := s.mmap.Sync(gommap.MS_SYNC); err != nil {
		return storageErr("sync", s.file.Name(), err)
	}
	if err := s.file.Sync(); err != nil {
		return storageErr("fsync", s.file.Name(), err)
	}
	return storageErr("close", s.file.Name(), s.file.Close())
}

// segmentFileName renders an absolute start offset as the zero-padded
// 20-digit decimal filename the on-disk layout requires.
func segmentFileName(minOffset uint64) string {
	return fmt.Sprintf("%020d", minOffset)
}
