// Package audit defines the actor reference threaded through every mutating
// core operation. The persistence layer records it in created_by/updated_by
// columns; nothing in the core resolves it from ambient request state.
package audit

// Actor identifies who performed a mutation, typically a user ID or the name
// of the API key that authenticated the request.
type Actor string

// System is the actor recorded for mutations not triggered by a user, such as
// seeding and migrations.
const System Actor = "system"

func (a Actor) String() string { return string(a) }

// OrDefault returns the actor, or System when empty.
func (a Actor) OrDefault() Actor {
	if a == "" {
		return System
	}
	return a
}
