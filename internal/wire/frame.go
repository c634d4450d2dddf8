// Package wire implements the worker<->daemon framing of spec.md §4.7.
// Both ends are co-located processes, so every multi-byte field here
// uses host/little-endian order — unlike the WebSocket codec in
// internal/wsock, which is network-order because it talks to an
// untrusted remote peer (spec.md §9 "Endianness").
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxInboundFrame bounds a single inbound request frame, guarding
// against a corrupt or hostile length prefix turning into an
// unbounded allocation.
const MaxInboundFrame = 64 << 20 // 64MB

// ReadInbound reads one length-prefixed request frame: a uint32
// little-endian length followed by exactly that many raw bytes (the
// full HTTP request as received from the client, spec.md §4.7).
func ReadInbound(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > MaxInboundFrame {
		return nil, fmt.Errorf("wire: inbound frame length %d exceeds max %d", n, MaxInboundFrame)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// outboundHeaderSize is the wire size of the fixed outbound header:
// 1 byte keepAlive flag, 8 bytes little-endian content length. No
// padding is inserted — this is our own protocol, not a foreign C
// struct layout, so the "padding as implementation demands" spec.md
// §4.7 allows for is simply "none".
const outboundHeaderSize = 1 + 8

// WriteOutbound sends the fixed WorkerPayload header followed by
// headers and body (spec.md §4.7). contentLength is the total byte
// count of headers+body that follows the header, not the HTTP
// content-length the response itself carries.
func WriteOutbound(w io.Writer, keepAlive bool, headers, body []byte) error {
	var hdr [outboundHeaderSize]byte
	if keepAlive {
		hdr[0] = 1
	}
	binary.LittleEndian.PutUint64(hdr[1:], uint64(len(headers)+len(body)))

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(headers) > 0 {
		if _, err := w.Write(headers); err != nil {
			return err
		}
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return err
		}
	}
	return nil
}

// ReadOutboundHeader decodes a WorkerPayload header. It exists for
// tests that exercise the wire format end to end; production code on
// the worker side only ever writes this header (the daemon reads it).
func ReadOutboundHeader(r io.Reader) (keepAlive bool, contentLength uint64, err error) {
	var hdr [outboundHeaderSize]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return false, 0, err
	}
	keepAlive = hdr[0] != 0
	contentLength = binary.LittleEndian.Uint64(hdr[1:])
	return keepAlive, contentLength, nil
}
