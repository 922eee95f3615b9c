package bridge

import "github.com/scriptbridge/scriptbridge/internal/host"

// event is one entry in the bridge inbox. All state mutation happens
// by the loop goroutine consuming these, one at a time.
type event interface {
	isEvent()
}

// fetchDoneEvent carries a host fetch completion.
type fetchDoneEvent struct {
	tag    host.Tag
	result host.Result
}

// wakeupEvent carries a scheduled wakeup delivery.
type wakeupEvent struct {
	label string
}

// startEvent is the user's start-polling intent.
type startEvent struct{}

// stopEvent is the user's stop-polling intent.
type stopEvent struct{}

func (fetchDoneEvent) isEvent() {}
func (wakeupEvent) isEvent()    {}
func (startEvent) isEvent()     {}
func (stopEvent) isEvent()      {}
