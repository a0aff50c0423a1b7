package events

import (
	"fmt"
	"time"
)

// Type tags one progress event so a presentation layer can route it.
type Type string

const (
	TypeConfig  Type = "cfg"
	TypeSSO     Type = "sso"
	TypePage    Type = "page"
	TypeJob     Type = "job"
	TypeData    Type = "data"
	TypeSleep   Type = "sleep"
	TypeWarning Type = "warn"
	TypeError   Type = "error"
	TypeDone    Type = "ok"
)

type Event struct {
	Type  Type      `json:"type"`
	At    time.Time `json:"at"`
	RunID string    `json:"run_id,omitempty"`
	Text  string    `json:"text"`
}

// Emitter publishes events for one scrape run.
type Emitter struct {
	hub   *Hub
	runID string
}

func NewEmitter(hub *Hub, runID string) *Emitter {
	return &Emitter{hub: hub, runID: runID}
}

func (e *Emitter) Emit(t Type, format string, args ...any) {
	if e == nil || e.hub == nil {
		return
	}
	e.hub.Publish(Event{
		Type:  t,
		At:    time.Now().UTC(),
		RunID: e.runID,
		Text:  fmt.Sprintf(format, args...),
	})
}

func (e *Emitter) Warnf(format string, args ...any) { e.Emit(TypeWarning, format, args...) }
func (e *Emitter) Dataf(label, value string)       { e.Emit(TypeData, "%s: %s", label, value) }
