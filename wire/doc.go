// Package wire implements the byte-exact frame layout packets travel in:
// the 5-byte header, its optional 12-byte fragmentation extension, the
// sender-key prefix, and the block-request/block-reply body layouts. Pool
// and TransactionsPacket payloads carried inside a frame are encoded with
// the codec package, following the rest of the codebase's convention.
package wire
