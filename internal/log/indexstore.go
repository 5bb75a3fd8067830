package log

import (
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// queueIDDirName renders a queue id as the directory name component of the
// on-disk layout <root>/index/<topic>/<queue_id>/.
func queueIDDirName(queueID uint32) string {
	return strconv.FormatUint(uint64(queueID), 10)
}

// IndexStore maps (topic, queueID) to a lazily-created per-queue Message
// Index. Entries are created at most once per pair and never evicted for
// the life of the process.
type IndexStore struct {
	rootDir  string
	capacity uint64
	logger   *zap.Logger

	mu      sync.Mutex
	byTopic map[string]map[uint32]*messageIndex
}

// OpenIndexStore returns an IndexStore rooted at <rootDir>/index. No
// per-queue directories are created until the first reference to that
// (topic, queueID) pair. A nil logger is treated as zap.NewNop().
func OpenIndexStore(rootDir string, indexSegmentCapacity uint64, logger *zap.Logger) *IndexStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IndexStore{
		rootDir:  filepath.Join(rootDir, "index"),
		capacity: indexSegmentCapacity,
		logger:   logger,
		byTopic:  make(map[string]map[uint32]*messageIndex),
	}
}

// Put appends an index unit for (topic, queueID), lazily creating the
// per-queue index (and recovering any on-disk state) on first reference.
func (s *IndexStore) Put(topic string, queueID uint32, commitLogOffset uint64, recordSize uint32) (uint64, error) {
	idx, err := s.findOrCreate(topic, queueID)
	if err != nil {
		return 0, err
	}
	return idx.put(commitLogOffset, recordSize)
}

// Read resolves logicalIndex for (topic, queueID) into its (commit-log
// offset, record size) pair, lazily creating the per-queue index (and
// recovering any on-disk state) on first reference — so a read with no
// prior writes this process still sees state from before a restart.
func (s *IndexStore) Read(topic string, queueID uint32, logicalIndex uint64) (uint64, uint32, error) {
	idx, err := s.findOrCreate(topic, queueID)
	if err != nil {
		return 0, 0, err
	}
	return idx.read(logicalIndex)
}

// findOrCreate returns the Message Index for (topic, queueID), creating it
// while holding s.mu across both the lookup and the creation, so concurrent
// first-touch callers never race to create the same on-disk files.
func (s *IndexStore) findOrCreate(topic string, queueID uint32) (*messageIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queues, ok := s.byTopic[topic]
	if !ok {
		queues = make(map[uint32]*messageIndex)
		s.byTopic[topic] = queues
	}

	if idx, ok := queues[queueID]; ok {
		return idx, nil
	}

	dir := filepath.Join(s.rootDir, topic, queueIDDirName(queueID))
	idx, err := openMessageIndex(dir, s.capacity, s.logger)
	if err != nil {
		return nil, err
	}
	queues[queueID] = idx
	return idx, nil
}

// Close closes every per-queue Message Index that has been created so far.
func (s *IndexStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, queues := range s.byTopic {
		for _, idx := range queues {
			if err := idx.close(); err != nil {
				return err
			}
		}
	}
	return nil
}
