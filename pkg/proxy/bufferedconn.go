package proxy

import "net"

// BufferedConn is a connection wrapper that replays bytes a buffered
// reader already consumed before continuing with the underlying
// connection. Used after hijacking, where pipelined client bytes may sit
// in the server's read buffer.
type BufferedConn struct {
	net.Conn
	Buf []byte
	Pos int
}

// Read implements io.Reader interface
func (bc *BufferedConn) Read(b []byte) (n int, err error) {
	if bc.Pos < len(bc.Buf) {
		n = copy(b, bc.Buf[bc.Pos:])
		bc.Pos += n
		return n, nil
	}
	return bc.Conn.Read(b)
}
