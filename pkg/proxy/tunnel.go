package proxy

import (
	"io"
	"net"
)

type closeWriter interface {
	CloseWrite() error
}

type copyResult struct {
	n   int64
	err error
}

// halfClose signals EOF to the peer after one copy direction finishes,
// falling back to a full close when the connection has no CloseWrite.
func halfClose(conn net.Conn) {
	if cw, ok := conn.(closeWriter); ok {
		_ = cw.CloseWrite()
		return
	}
	_ = conn.Close()
}

// Tunnel bridges client and backend until both directions are done.
// Returns bytes sent to the backend, bytes sent back to the client, and
// the first non-EOF copy error.
func Tunnel(client, backend net.Conn) (bytesTx, bytesRx int64, err error) {
	txCh := make(chan copyResult, 1)
	rxCh := make(chan copyResult, 1)

	go func() {
		n, cerr := io.Copy(backend, client)
		halfClose(backend)
		txCh <- copyResult{n: n, err: cerr}
	}()
	go func() {
		n, cerr := io.Copy(client, backend)
		halfClose(client)
		rxCh <- copyResult{n: n, err: cerr}
	}()

	tx := <-txCh
	rx := <-rxCh

	err = tx.err
	if err == nil {
		err = rx.err
	}
	return tx.n, rx.n, err
}
