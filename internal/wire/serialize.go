// Package wire implements the deterministic, self-describing byte
// encoding that makes a digest.Tree a transport unit between ranks.
//
// Format:
//
//	<N_total> <K> <lo_root> <hi_root>\n
//	<lo> <hi> <count>\n
//	<lo> <hi> <count>\n
//	...
//	\0
//
// All integers are decimal ASCII; separators are a single space; each line
// ends with a single newline; the buffer ends with a single NUL byte. Only
// nodes with count > 0 appear, in pre-order.
package wire

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"qdigest/internal/digest"
)

// ParseError reports malformed serialized digest input. Deserialization
// never returns a partially-built Tree alongside a ParseError.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("wire: parse error: %s", e.Reason)
}

// SerializedSize returns the exact number of bytes Encode will produce for
// t, including the terminating NUL. The reduction protocol relies on this
// being exact, not an upper bound, since it is transmitted ahead of the
// payload as the message length.
func SerializedSize(t *digest.Tree) int {
	total, k, lo, hi := t.Header()
	size := len(headerLine(total, k, lo, hi))
	t.Walk(func(n digest.Raw) {
		size += len(nodeLine(n.Lo, n.Hi, n.Count))
	})
	size++ // terminating NUL
	return size
}

// Encode renders t into the wire format described above.
func Encode(t *digest.Tree) []byte {
	total, k, lo, hi := t.Header()
	var b strings.Builder
	b.Grow(SerializedSize(t))
	b.WriteString(headerLine(total, k, lo, hi))
	t.Walk(func(n digest.Raw) {
		b.WriteString(nodeLine(n.Lo, n.Hi, n.Count))
	})
	b.WriteByte(0)
	return []byte(b.String())
}

func headerLine(total, k, lo, hi uint64) string {
	return fmt.Sprintf("%d %d %d %d\n", total, k, lo, hi)
}

func nodeLine(lo, hi, count uint64) string {
	return fmt.Sprintf("%d %d %d\n", lo, hi, count)
}

// Decode parses buf in strict mode: the header must be well-formed, every
// subsequent line up to (but not including) the terminating NUL must be a
// valid "<lo> <hi> <count>" triple, and the reconstructed digest's N_total
// must equal the header's. Any violation returns a *ParseError and no
// Tree. Strict mode is what the reduction protocol uses, since a
// truncated or malformed peer message indicates a transport problem that
// must not be silently masked.
func Decode(buf []byte) (*digest.Tree, error) {
	return decode(buf, true)
}

// DecodeTolerant behaves like Decode but stops at the first line that
// fails to parse as three integers, treating everything from there on as
// trailing content rather than an error. Unlike Decode it also accepts a
// buffer with no terminating NUL and does not compare the reconstructed
// N_total with the header's. It is intended for local
// debugging only, per the source's own "parse tolerance" design note.
func DecodeTolerant(buf []byte) (*digest.Tree, error) {
	return decode(buf, false)
}

func decode(buf []byte, strict bool) (*digest.Tree, error) {
	nul := bytes.IndexByte(buf, 0)
	if strict && nul < 0 {
		return nil, &ParseError{Reason: "missing terminating NUL byte"}
	}
	if nul >= 0 {
		buf = buf[:nul]
	}

	text := string(buf)
	lines := strings.Split(text, "\n")
	if len(lines) < 1 || lines[0] == "" {
		return nil, &ParseError{Reason: "empty input"}
	}

	total, k, _, hi, err := parseHeader(lines[0])
	if err != nil {
		return nil, err
	}

	var nodes []digest.Raw
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		n, ok := parseTriple(line)
		if !ok {
			if strict {
				return nil, &ParseError{Reason: fmt.Sprintf("malformed node line %q", line)}
			}
			break
		}
		nodes = append(nodes, n)
	}

	t := digest.FromRaw(k, hi, nodes)
	if strict && t.Total() != total {
		return nil, &ParseError{Reason: fmt.Sprintf("N_total mismatch: header says %d, reconstructed %d", total, t.Total())}
	}
	return t, nil
}

func parseHeader(line string) (total, k, lo, hi uint64, err error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return 0, 0, 0, 0, &ParseError{Reason: fmt.Sprintf("header must have 4 fields, got %d", len(fields))}
	}
	vals := make([]uint64, 4)
	for i, f := range fields {
		v, perr := strconv.ParseUint(f, 10, 64)
		if perr != nil {
			return 0, 0, 0, 0, &ParseError{Reason: fmt.Sprintf("header field %q is not a non-negative integer", f)}
		}
		vals[i] = v
	}
	if vals[1] == 0 {
		return 0, 0, 0, 0, &ParseError{Reason: "K must be positive"}
	}
	if vals[2] != 0 {
		return 0, 0, 0, 0, &ParseError{Reason: "root lower bound must be 0"}
	}
	return vals[0], vals[1], vals[2], vals[3], nil
}

func parseTriple(line string) (digest.Raw, bool) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return digest.Raw{}, false
	}
	vals := make([]uint64, 3)
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return digest.Raw{}, false
		}
		vals[i] = v
	}
	if vals[0] > vals[1] {
		return digest.Raw{}, false
	}
	return digest.Raw{Lo: vals[0], Hi: vals[1], Count: vals[2]}, true
}

