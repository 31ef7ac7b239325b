package storage

import (
	"encoding/binary"
	"fmt"
)

// Event key schema for Pebble storage:
//
//   e:<8-byte seq>            → Event
//   a:<agent>:<8-byte seq>    → empty, per-agent index

const (
	prefixEvent = "e:"
	prefixAgent = "a:"
)

func seqBytes(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}

// eventKey returns the key for an event
// Big-endian seq keeps iteration in emission order
func eventKey(seq uint64) []byte {
	return append([]byte(prefixEvent), seqBytes(seq)...)
}

func seqFromKey(k []byte) uint64 {
	return binary.BigEndian.Uint64(k[len(k)-8:])
}

// agentPrefix returns the prefix for all index entries of an agent
// Format: "a:{agent}:"
func agentPrefix(agent string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixAgent, agent))
}

func agentKey(agent string, seq uint64) []byte {
	return append(agentPrefix(agent), seqBytes(seq)...)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
