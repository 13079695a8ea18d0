// Package comm implements the tower serial packet protocol.
package comm

// The wire unit is a 5-byte frame with no delimiters:
//
//	[command][parameter1][parameter2][parameter3][checksum]
//
// where the checksum is the XOR of the first four bytes. Framing is
// recovered purely from the checksum: after a mismatch the decoder
// discards a single leading byte and retries, so a valid frame that
// starts one byte later than assumed is never lost and recovery costs
// at most four extra byte-times.
//
// Bit 7 of the command byte is not part of the opcode: it requests an
// acknowledgement, and in the echoed response it reports success.
