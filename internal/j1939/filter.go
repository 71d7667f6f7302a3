package j1939

// Filter reports whether an identifier should be accepted. Filters
// compose: the zero value of Filters accepts everything, matching the
// spec's default-accept-all behavior.
type Filter func(Id) bool

// Filters is an ordered set of predicates; an Id passes only if every
// predicate in the set accepts it.
type Filters []Filter

// Match reports whether id satisfies every filter in the set. An empty
// set matches everything.
func (fs Filters) Match(id Id) bool {
	for _, f := range fs {
		if !f(id) {
			return false
		}
	}
	return true
}

// WithPGN accepts only frames carrying the given PGN.
func WithPGN(pgn uint32) Filter {
	return func(id Id) bool { return id.PGN == pgn }
}

// WithPriority accepts only frames at the given priority.
func WithPriority(priority uint8) Filter {
	return func(id Id) bool { return id.Priority == priority }
}

// WithSource accepts only frames from the given source address.
func WithSource(sa uint8) Filter {
	return func(id Id) bool { return id.Source == sa }
}

// WithDestination accepts PDU1 frames addressed to da, plus any
// broadcast (PDU2, or PDU1 addressed to Broadcast) frame.
func WithDestination(da uint8) Filter {
	return func(id Id) bool {
		if !id.IsPDU1() {
			return true
		}
		return id.Destination == da || id.Destination == Broadcast
	}
}
