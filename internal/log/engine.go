package log

import (
	"go.uber.org/zap"
)

// Engine owns one Commit Log and one Index Store and sequences writes
// across the pair: commit log append happens-before the corresponding
// index append, so a successfully observed logical index always implies
// the referenced commit-log bytes are durable (spec §5).
type Engine struct {
	commitLog  *CommitLog
	indexStore *IndexStore
	log        *zap.Logger
}

// Open opens (or creates and recovers) the commit log and index store
// rooted at cfg.RootDir. A nil logger is treated as zap.NewNop().
func Open(cfg Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	commitLog, err := OpenCommitLog(cfg.RootDir, cfg.CommitLogSegmentBytes, logger)
	if err != nil {
		return nil, err
	}

	indexStore := OpenIndexStore(cfg.RootDir, cfg.IndexSegmentBytes, logger)

	return &Engine{
		commitLog:  commitLog,
		indexStore: indexStore,
		log:        logger,
	}, nil
}

// WriteMessage appends encodedPayload to the commit log and records its
// location in the (topic, queueID) index, returning the assigned logical
// index. If the process crashes between the two appends, the commit-log
// record becomes an orphan that no reader can ever observe — an accepted
// outcome (spec §5), not an error here.
func (e *Engine) WriteMessage(topic string, queueID uint32, encodedPayload []byte) (uint64, error) {
	if len(encodedPayload) == 0 {
		return 0, ErrInvalidInput
	}

	offset, storedSize, err := e.commitLog.Write(encodedPayload)
	if err != nil {
		return 0, err
	}

	logicalIndex, err := e.indexStore.Put(topic, queueID, offset, uint32(storedSize))
	if err != nil {
		return 0, err
	}

	e.log.Debug("wrote message",
		zap.String("topic", topic),
		zap.Uint32("queue_id", queueID),
		zap.Uint64("logical_index", logicalIndex),
		zap.Uint64("commit_log_offset", offset),
	)

	return logicalIndex, nil
}

// ReadMessage resolves logicalIndex for (topic, queueID) to its commit-log
// coordinates, reads the stored bytes and strips the 8-byte length prefix
// before returning the original encoded payload.
func (e *Engine) ReadMessage(topic string, queueID uint32, logicalIndex uint64) ([]byte, error) {
	offset, size, err := e.indexStore.Read(topic, queueID, logicalIndex)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, ErrInvalidInput
	}

	stored, err := e.commitLog.Read(offset, uint64(size))
	if err != nil {
		return nil, err
	}

	return stored[lenWidth:], nil
}

// Close closes the commit log and every opened per-queue index.
func (e *Engine) Close() error {
	if err := e.indexStore.Close(); err != nil {
		return err
	}
	return e.commitLog.Close()
}
