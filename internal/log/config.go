package log

// messageIndexUnitWidth is the fixed on-disk size of one Message Index Unit:
// offset:u64 (8 bytes) ∥ size:u32 (4 bytes).
const messageIndexUnitWidth = 12

// defaultIndexSegmentEntries mirrors the original store's default of
// 300,000 index units per segment.
const defaultIndexSegmentEntries = 300_000

const defaultCommitLogSegmentBytes = 1 << 30 // 1 GiB

// Config holds the values the storage core needs. Loading these values from
// a file or environment is a different collaborator's job (see spec §1/§6);
// this struct only carries already-resolved numbers.
type Config struct {
	// RootDir is the directory under which "commitlog" and "index" live.
	RootDir string
	// CommitLogSegmentBytes is the fixed capacity of each commit log
	// segment file. Must be at least 8 + the largest payload to be stored.
	CommitLogSegmentBytes uint64
	// IndexSegmentBytes is the fixed capacity of each per-queue index
	// segment file. Must be a multiple of 12.
	IndexSegmentBytes uint64
}

// DefaultConfig returns a Config rooted at rootDir with the spec's default
// segment capacities: 1 GiB commit log segments, 300,000-unit index
// segments.
func DefaultConfig(rootDir string) Config {
	return Config{
		RootDir:               rootDir,
		CommitLogSegmentBytes: defaultCommitLogSegmentBytes,
		IndexSegmentBytes:     defaultIndexSegmentEntries * messageIndexUnitWidth,
	}
}
