package audit

import (
	"context"
	"log/slog"
	"sync"
)

// Worker writes queued entries to the store off the caller's path. It
// satisfies the services.AuditSink interface: Record never blocks and
// never reports an error.
type Worker struct {
	entryCh chan Entry
	store   Store
	logger  *slog.Logger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewWorker(store Store, bufferSize int, logger *slog.Logger) *Worker {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		entryCh: make(chan Entry, bufferSize),
		store:   store,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				w.logger.Info("draining audit entries before shutdown", "remaining", len(w.entryCh))
				for len(w.entryCh) > 0 {
					e := <-w.entryCh
					if err := w.store.Save(context.Background(), e); err != nil {
						w.logger.Error("saving audit entry during shutdown", "error", err, "action", e.Action)
					}
				}
				return
			case e := <-w.entryCh:
				if err := w.store.Save(w.ctx, e); err != nil {
					w.logger.Error("saving audit entry", "error", err, "action", e.Action)
				}
			}
		}
	}()
}

// Record queues an entry for persistence. A full queue drops the entry
// with a warning rather than blocking the mutation that produced it.
func (w *Worker) Record(_ context.Context, groupID, actorID int64, action string, details any) {
	e := NewEntry(groupID, actorID, action, details)
	select {
	case w.entryCh <- e:
	default:
		w.logger.Warn("audit queue full, dropping entry", "action", action, "group_id", groupID)
	}
}

// Shutdown stops the worker after draining whatever is queued.
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}
