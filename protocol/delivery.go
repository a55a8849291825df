package protocol

// Event is an immutable outbound message.
type Event struct {
	Type string
	Data any
}

// Scope selects the transports a delivery is fanned out to.
type Scope int

const (
	ToAll    Scope = iota // every open transport
	ToOthers              // every transport except Transport
	ToOne                 // only Transport
)

func (s Scope) String() string {
	switch s {
	case ToAll:
		return "all"
	case ToOthers:
		return "others"
	case ToOne:
		return "one"
	}
	return "unknown"
}

// Delivery pairs an event with its audience.
type Delivery struct {
	Event     Event
	Scope     Scope
	Transport string
}

func Broadcast(typ string, data any) Delivery {
	return Delivery{Event: Event{Type: typ, Data: data}, Scope: ToAll}
}

// Relay addresses every transport but the origin.
func Relay(origin, typ string, data any) Delivery {
	return Delivery{Event: Event{Type: typ, Data: data}, Scope: ToOthers, Transport: origin}
}

func Direct(transport, typ string, data any) Delivery {
	return Delivery{Event: Event{Type: typ, Data: data}, Scope: ToOne, Transport: transport}
}

// Reaches reports whether transport is part of the delivery's audience.
func (d Delivery) Reaches(transport string) bool {
	switch d.Scope {
	case ToAll:
		return true
	case ToOthers:
		return transport != d.Transport
	case ToOne:
		return transport == d.Transport
	}
	return false
}
