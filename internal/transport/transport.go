// Package transport defines the messaging substrate the reduction
// protocol is written against, and provides a single concrete, in-process
// implementation of it.
//
// A real deployment would bind Communicator to an external messaging
// substrate (processes over TCP, MPI, etc.); that binding is explicitly
// out of scope for this module (spec.md §1 treats the transport as an
// external collaborator). Local is the one concrete Communicator this
// module ships, used to make the reduction protocol runnable and testable
// end-to-end within a single OS process.
package transport

import "errors"

// ErrClosed is returned by Recv when the channel it reads from has been
// closed.
var ErrClosed = errors.New("transport: communicator is closed")

// Communicator is the binding the reduction protocol needs from a
// messaging substrate: point-to-point send/receive addressed by rank,
// group partitioning, and a barrier. All operations are blocking; a
// transport failure is fatal and is propagated as an error rather than
// silently recovered from, per spec.md §5/§7.
type Communicator interface {
	// Send blocks until payload has been handed to dest's corresponding
	// Recv call.
	Send(dest int, payload []byte) error

	// Recv blocks until a payload sent by src is available, and returns
	// it. Messages from a given src arrive in the order they were sent
	// (FIFO per sender), matching the transport's contract.
	Recv(src int) ([]byte, error)

	// Split partitions the communicator's ranks by color. Ranks sharing
	// a color get a new Communicator renumbered contiguously starting at
	// 0; a rank whose color is Excluded gets a nil Communicator back,
	// exactly as spec.md §4.D.2 requires.
	Split(color int) (Communicator, error)

	// Rank returns this participant's 0-based index within the
	// communicator.
	Rank() int

	// Size returns the number of participants in the communicator.
	Size() int

	// Barrier blocks until every participant in the communicator has
	// called Barrier.
	Barrier() error
}

// Excluded is the color Split treats as "opt out of the sub-communicator",
// the local analogue of MPI_UNDEFINED.
const Excluded = -1
