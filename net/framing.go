package net

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

const maxFrameSize = 16 * 1024 * 1024

// writeFrame and readFrame add a 4-byte big-endian length prefix around
// each message so that NetworkTransport behaves identically over a
// stream-oriented net.Conn (TCP) and a message-oriented one (the WebRTC
// data channel wrapper), neither of which is required to preserve
// record boundaries on its own for every possible StreamLayer.
func writeFrame(conn net.Conn, payload []byte) error {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(payload)))
	if _, err := conn.Write(header); err != nil {
		return err
	}
	_, err := conn.Write(payload)
	return err
}

func readFrame(conn net.Conn) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header)
	if size > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds maximum of %d", size, maxFrameSize)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
