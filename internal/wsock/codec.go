package wsock

// Message is a fully assembled WebSocket message: one or more frames
// sharing a single opcode (the first fragment's, per RFC 6455 and
// spec.md §4.8 "for fragmented messages the opcode of the first frame
// applies").
type Message struct {
	Opcode  Opcode
	Payload []byte
}

// Decoder accumulates inbound bytes and assembles them into messages,
// transparently stitching together fragmented (non-FIN) frames.
type Decoder struct {
	toParse    []byte
	parsedData []byte
	msgOpcode  Opcode
	assembling bool
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends newly-read bytes to the decode buffer.
func (d *Decoder) Feed(p []byte) {
	d.toParse = append(d.toParse, p...)
}

// Next attempts to decode the next complete message from the
// accumulated buffer. Non-FIN fragments are consumed and kept in the
// decoder; it returns (nil, ErrNeedMoreData) when the buffered bytes do
// not complete a message yet (including after a consumed fragment) —
// the caller should Feed more data and retry.
func (d *Decoder) Next() (*Message, error) {
	for {
		frame, n, err := Decode(d.toParse)
		if err != nil {
			return nil, err
		}
		d.toParse = d.toParse[n:]

		if frame.Opcode.IsControl() {
			// Control frames (spec.md: PING/PONG/CLOSE) are never
			// fragmented and stand on their own.
			return &Message{Opcode: frame.Opcode, Payload: frame.Payload}, nil
		}

		if !d.assembling {
			d.msgOpcode = frame.Opcode
			d.assembling = true
			d.parsedData = d.parsedData[:0]
		}
		d.parsedData = append(d.parsedData, frame.Payload...)

		if frame.Fin {
			msg := &Message{Opcode: d.msgOpcode, Payload: append([]byte(nil), d.parsedData...)}
			d.assembling = false
			d.parsedData = d.parsedData[:0]
			return msg, nil
		}
		// Not FIN: loop to see if another fragment is already buffered.
	}
}
