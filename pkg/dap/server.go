package dap

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net"
)

// Server listens for DAP client connections. Each accepted connection gets
// its own goroutine and its own session (spec.md §5: an accepted
// connection spawns an independent thread owning a fresh simulator;
// simulators never share state).
type Server struct {
	Logger *log.Logger
}

// NewServer returns a Server that logs nothing unless Logger is set
// before calling Serve.
func NewServer() *Server {
	return &Server{}
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

// ListenAndServe opens addr and serves until the listener errors or the
// caller closes it.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("dap: listen %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until it returns an error (typically
// because the caller closed it).
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	sess := newSession()
	r := bufio.NewReader(conn)

	for {
		raw, err := readMessage(r)
		if err != nil {
			return
		}
		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			s.logf("dap: malformed request: %v", err)
			return
		}

		body, err := sess.dispatch(req.Command, req.Arguments)
		resp := Response{
			Type:       "response",
			RequestSeq: req.Seq,
			Command:    req.Command,
			Success:    err == nil,
		}
		if err != nil {
			resp.Message = err.Error()
		} else if body != nil {
			b, merr := json.Marshal(body)
			if merr != nil {
				resp.Success = false
				resp.Message = merr.Error()
			} else {
				resp.Body = b
			}
		}
		if werr := writeFramed(conn, resp); werr != nil {
			s.logf("dap: write response: %v", werr)
			return
		}

		if req.Command == "disconnect" {
			return
		}
	}
}
