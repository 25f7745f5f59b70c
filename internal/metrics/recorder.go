package metrics

import "time"

// Direction labels a focus transition.
type Direction string

const (
	DirectionOn  Direction = "on"
	DirectionOff Direction = "off"
)

// Outcome labels a handled message.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeRefused Outcome = "refused"
	OutcomeError   Outcome = "error"
)

// Recorder defines the daemon's metric hooks. Implementations must be safe for
// concurrent use.
type Recorder interface {
	IncTransition(dir Direction, trigger string)
	SetFocusActive(active bool)
	ObserveSessionMinutes(minutes int)
	IncRedirect(source string)
	IncTick(kind string)
	IncMessage(msgType string, outcome Outcome)
	ObserveCommandDuration(kind string, d time.Duration)
	SetQueueDepth(n int)
	SetBridgeClients(n int)
	IncBroadcastDropped(sink string, n int)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncTransition(Direction, string)              {}
func (NoopRecorder) SetFocusActive(bool)                          {}
func (NoopRecorder) ObserveSessionMinutes(int)                    {}
func (NoopRecorder) IncRedirect(string)                           {}
func (NoopRecorder) IncTick(string)                               {}
func (NoopRecorder) IncMessage(string, Outcome)                   {}
func (NoopRecorder) ObserveCommandDuration(string, time.Duration) {}
func (NoopRecorder) SetQueueDepth(int)                            {}
func (NoopRecorder) SetBridgeClients(int)                         {}
func (NoopRecorder) IncBroadcastDropped(string, int)              {}
