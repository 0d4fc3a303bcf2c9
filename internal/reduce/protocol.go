// Package reduce implements the tree reduction protocol that aggregates
// per-rank digests into a single global digest held by rank 0 of a
// compact sub-communicator, as specified in SPEC_FULL.md §4.D. It is
// grounded directly on the original MPI implementation's tree_reduce
// (original_source/mpi-implementation/src/treeReduce.c), with
// MPI_Send/MPI_Recv/MPI_Comm_split replaced by transport.Communicator and
// to_string/from_string replaced by wire.Encode/wire.Decode.
package reduce

import (
	"encoding/binary"
	"fmt"

	"qdigest/internal/digest"
	"qdigest/internal/transport"
	"qdigest/internal/wire"
)

// TreeReduce aggregates t with every other participant's digest across
// comm. On return, rank 0 of whatever compact sub-communicator survived
// Stage 1/2 holds the globally merged digest in t; every other surviving
// rank holds an undefined partial state, and a rank that was trimmed as
// an orphan sender returns right after sending, with t still holding only
// its own local contribution.
func TreeReduce(t *digest.Tree, comm transport.Communicator) error {
	p := comm.Size()
	p2 := 1
	for p2*2 <= p {
		p2 *= 2
	}
	orphans := p - p2

	live, err := trimOrphans(t, comm, orphans)
	if err != nil {
		return err
	}
	if !live {
		return nil
	}

	color := 0
	if orphans > 0 && comm.Rank() < 2*orphans && comm.Rank()%2 != 0 {
		color = transport.Excluded
	}
	treeComm, err := comm.Split(color)
	if err != nil {
		return fmt.Errorf("reduce: split: %w", err)
	}
	if treeComm == nil {
		return nil
	}

	return binaryTreeReduce(t, treeComm)
}

// trimOrphans runs Stage 1: pairing the first 2*orphans ranks so every
// odd rank in that window sends its digest to the preceding even rank and
// exits, while the even rank merges the received digest into its own.
// The returned bool is false for a rank that just sent and must take no
// further part in the protocol.
func trimOrphans(t *digest.Tree, comm transport.Communicator, orphans int) (bool, error) {
	if orphans == 0 {
		return true, nil
	}
	r := comm.Rank()
	if r >= 2*orphans {
		return true, nil
	}
	if r%2 != 0 {
		if err := sendDigest(comm, r-1, t); err != nil {
			return false, fmt.Errorf("reduce: orphan send from rank %d: %w", r, err)
		}
		// An orphan sender's conceptual split color is the excluded
		// marker (spec.md §9); it still joins the Split rendezvous so
		// the collective completes, but always receives a nil
		// Communicator back and takes no further part in the protocol.
		if _, err := comm.Split(transport.Excluded); err != nil {
			return false, fmt.Errorf("reduce: orphan split at rank %d: %w", r, err)
		}
		return false, nil
	}
	recvd, err := recvDigest(comm, r+1)
	if err != nil {
		return false, fmt.Errorf("reduce: orphan recv at rank %d: %w", r, err)
	}
	digest.Merge(t, recvd)
	return true, nil
}

// binaryTreeReduce runs Stage 3 over an already-compacted, power-of-two
// sized communicator: log2(size) rounds of pairwise exchange, doubling
// the step each round, until new rank 0 holds the merged digest.
func binaryTreeReduce(t *digest.Tree, comm transport.Communicator) error {
	size := comm.Size()
	rank := comm.Rank()

	for step := 1; step < size; step *= 2 {
		if rank%(2*step) != 0 {
			partner := rank - step
			if err := sendDigest(comm, partner, t); err != nil {
				return fmt.Errorf("reduce: send to rank %d at step %d: %w", partner, step, err)
			}
			return nil
		}
		partner := rank + step
		recvd, err := recvDigest(comm, partner)
		if err != nil {
			return fmt.Errorf("reduce: recv from rank %d at step %d: %w", partner, step, err)
		}
		digest.Merge(t, recvd)
	}
	return nil
}

// sendDigest performs the two-part blocking exchange of spec.md §4.D.4:
// an 8-byte big-endian length, then exactly that many payload bytes.
func sendDigest(comm transport.Communicator, dest int, t *digest.Tree) error {
	payload := wire.Encode(t)
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(payload)))
	if err := comm.Send(dest, lenBuf[:]); err != nil {
		return err
	}
	return comm.Send(dest, payload)
}

// recvDigest is the receiving half of sendDigest, always decoding in
// strict mode: a malformed payload from a peer is fatal, since the
// protocol has no way to recover a lost contribution.
func recvDigest(comm transport.Communicator, src int) (*digest.Tree, error) {
	lenBuf, err := comm.Recv(src)
	if err != nil {
		return nil, err
	}
	if len(lenBuf) != 8 {
		return nil, fmt.Errorf("reduce: expected 8-byte length prefix from rank %d, got %d bytes", src, len(lenBuf))
	}
	n := binary.BigEndian.Uint64(lenBuf)
	payload, err := comm.Recv(src)
	if err != nil {
		return nil, err
	}
	if uint64(len(payload)) != n {
		return nil, fmt.Errorf("reduce: length mismatch from rank %d: announced %d, received %d", src, n, len(payload))
	}
	t, err := wire.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("reduce: decoding digest from rank %d: %w", src, err)
	}
	return t, nil
}
