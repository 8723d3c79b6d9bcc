package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/cast-protocol/cast-go/pkg/log"
)

func TestDialTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(io.Discard, conn)
	}()

	f := NewFactory(ln.Addr().String(), TLSParams{})
	conn, err := f.DialTCP(context.Background())
	if err != nil {
		t.Fatalf("DialTCP: %v", err)
	}
	conn.Close()
}

func TestDialTCPRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	f := NewFactory(addr, TLSParams{})
	if _, err := f.DialTCP(context.Background()); err == nil {
		t.Fatal("DialTCP succeeded against a closed port")
	}
}

func TestDialTCPKeepAliveFailureIsNotFatal(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(io.Discard, conn)
	}()

	orig := enableKeepAlive
	enableKeepAlive = func(net.Conn, time.Duration) error {
		return errors.New("setsockopt failed")
	}
	defer func() { enableKeepAlive = orig }()

	ring := log.NewRing(8)
	f := NewFactory(ln.Addr().String(), TLSParams{})
	f.Logger = ring

	conn, err := f.DialTCP(context.Background())
	if err != nil {
		t.Fatalf("keep-alive failure must not fail the dial: %v", err)
	}
	conn.Close()

	events := ring.Snapshot()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Category != log.CategoryError || events[0].Error == nil {
		t.Fatalf("keep-alive failure was not logged as an error: %+v", events[0])
	}
}
