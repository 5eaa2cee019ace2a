package logging

import (
	"log/slog"

	"github.com/calvinalkan/timelog/internal/store"
)

// MutationLogger logs every store rewrite at debug level.
type MutationLogger struct {
	logger *slog.Logger
}

// NewMutationLogger returns an observer logging to logger.
func NewMutationLogger(logger *slog.Logger) *MutationLogger {
	return &MutationLogger{logger: logger}
}

// SequenceChanged implements [store.Observer].
func (m *MutationLogger) SequenceChanged(ev store.Event) {
	attrs := []any{"kind", ev.Kind.String()}

	switch ev.Kind {
	case store.ItemInserted, store.ItemDeleted:
		attrs = append(attrs, "item", ev.Item.String())
	case store.ItemReplaced:
		attrs = append(attrs, "item", ev.Item.String(), "replaced", len(ev.Replaced))
	case store.ItemsRenamed:
		attrs = append(attrs, "renamed", len(ev.Renamed))
	case store.SequenceOverwritten:
		attrs = append(attrs, "count", ev.Count)
	}

	m.logger.Debug("store changed", attrs...)
}
