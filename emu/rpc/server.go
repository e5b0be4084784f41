// Package rpc exposes the control operations of a running machine over
// net/rpc.
package rpc

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"net/rpc"
	"strconv"

	"vmtimer/emu"
	"vmtimer/emu/log"
)

var modRPC = log.NewModule("rpc")

// Machine is the set of machine operations available to control clients.
type Machine interface {
	Pause()
	Resume()
	Stats() emu.Stats
	Save(w io.Writer) error
}

type machineProxy struct {
	m Machine
}

func (mp *machineProxy) Pause(_, _ *struct{}) error  { mp.m.Pause(); return nil }
func (mp *machineProxy) Resume(_, _ *struct{}) error { mp.m.Resume(); return nil }

func (mp *machineProxy) Stats(_ *struct{}, reply *emu.Stats) error {
	*reply = mp.m.Stats()
	return nil
}

func (mp *machineProxy) Save(_ *struct{}, reply *[]byte) error {
	var buf bytes.Buffer
	if err := mp.m.Save(&buf); err != nil {
		return err
	}
	*reply = buf.Bytes()
	return nil
}

func (mp *machineProxy) IsReady(_ *struct{}, reply *bool) error {
	*reply = true
	return nil
}

type Server struct {
	l   net.Listener
	srv *http.Server
}

// NewServer starts serving control requests for m on localhost:port.
func NewServer(port int, m Machine) (*Server, error) {
	rs := rpc.NewServer()
	if err := rs.RegisterName("vm", &machineProxy{m: m}); err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, rs)

	l, err := net.Listen("tcp", "localhost:"+strconv.Itoa(port))
	if err != nil {
		return nil, err
	}

	s := &Server{l: l, srv: &http.Server{Handler: mux}}
	go func() {
		if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			modRPC.ErrorZ("rpc server failed").Error("err", err).End()
		}
	}()
	modRPC.InfoZ("rpc server listening").Int("port", port).End()
	return s, nil
}

func (s *Server) Addr() net.Addr { return s.l.Addr() }

func (s *Server) Close() error {
	return s.srv.Close()
}

// UnusedPort asks the kernel for a free local TCP port.
func UnusedPort() (int, error) {
	l, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
