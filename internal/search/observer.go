package search

import "nations.ai/internal/protocol"

// Observer receives search events synchronously from the search loop.
// Implementations must not block.
type Observer interface {
	OnEvent(ev protocol.SearchEvent)
}

type ObserverFunc func(ev protocol.SearchEvent)

func (f ObserverFunc) OnEvent(ev protocol.SearchEvent) { f(ev) }

// Multi fans an event out to every non-nil observer in order.
type Multi []Observer

func (m Multi) OnEvent(ev protocol.SearchEvent) {
	for _, o := range m {
		if o != nil {
			o.OnEvent(ev)
		}
	}
}

// emitter stamps events with the run identity and a sequence number.
type emitter struct {
	obs   Observer
	runID string
	mode  string
	seq   uint64
}

func (e *emitter) emit(ev protocol.SearchEvent) {
	if e.obs == nil {
		return
	}
	e.seq++
	ev.ProtocolVersion = protocol.Version
	ev.RunID = e.runID
	ev.Mode = e.mode
	ev.Seq = e.seq
	e.obs.OnEvent(ev)
}
