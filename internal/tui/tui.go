package tui

import (
	"github.com/joshuavictorchen/claodex/internal/cursorstore"
	"github.com/joshuavictorchen/claodex/internal/eventbus"
)

// RunApp launches the interactive status sidebar against store. bus is
// accepted so callers have one entry point regardless of whether the
// view ever grows a write path (e.g. pushing a halt through the bus);
// today the sidebar only reads from disk via store and the bus's own
// event/metrics files.
func RunApp(store *cursorstore.Store, bus *eventbus.Bus) error {
	_ = bus
	return Run(store)
}
