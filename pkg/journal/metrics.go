package journal

import "time"

// Metrics is the instrumentation hook for journal activity. Implementations
// must be safe for concurrent use.
type Metrics interface {
	// OperationRecorded is called when an operation enters the journal.
	OperationRecorded(kind string)

	// UndoCompleted is called after an undo attempt finishes.
	UndoCompleted(kind string, success bool, duration time.Duration)

	// OperationEvicted is called when an operation is removed by the size
	// bound ("size") or the age sweep ("age").
	OperationEvicted(reason string)
}

type noopMetrics struct{}

func (noopMetrics) OperationRecorded(string)                  {}
func (noopMetrics) UndoCompleted(string, bool, time.Duration) {}
func (noopMetrics) OperationEvicted(string)                   {}
