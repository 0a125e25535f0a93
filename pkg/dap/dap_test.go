package dap

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
)

// client wraps one end of a net.Pipe with request/response helpers, for
// driving a Server without a real TCP listener.
type client struct {
	conn net.Conn
	r    *bufio.Reader
	seq  int
}

func (c *client) call(t *testing.T, command string, args interface{}) Response {
	t.Helper()
	c.seq++
	var raw json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			t.Fatalf("marshal args: %v", err)
		}
		raw = b
	}
	req := Request{Seq: c.seq, Type: "request", Command: command, Arguments: raw}
	if err := writeFramed(c.conn, req); err != nil {
		t.Fatalf("writeFramed: %v", err)
	}
	body, err := readMessage(c.r)
	if err != nil {
		t.Fatalf("readMessage: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func newTestClient() (*client, *Server) {
	serverConn, clientConn := net.Pipe()
	s := NewServer()
	go s.handleConn(serverConn)
	return &client{conn: clientConn, r: bufio.NewReader(clientConn)}, s
}

func TestDAPSessionLoadRunAndInspect(t *testing.T) {
	c, _ := newTestClient()
	defer c.conn.Close()

	resp := c.call(t, "loadImage", map[string]interface{}{"arch": "seq"})
	if !resp.Success {
		t.Fatalf("loadImage failed: %s", resp.Message)
	}

	resp = c.call(t, "threads", nil)
	if !resp.Success {
		t.Fatalf("threads failed: %s", resp.Message)
	}

	resp = c.call(t, "continue", nil)
	if !resp.Success {
		t.Fatalf("continue failed: %s", resp.Message)
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		t.Fatalf("unmarshal continue body: %v", err)
	}
	// A freshly built architecture's memory is all zero, so the first
	// fetch decodes a halt (icode 0) and the program terminates at once.
	if body.Reason != string(StopPause) {
		t.Errorf("reason = %q, want %q", body.Reason, StopPause)
	}

	resp = c.call(t, "variables", nil)
	if !resp.Success {
		t.Fatalf("variables failed: %s", resp.Message)
	}

	resp = c.call(t, "disconnect", nil)
	if !resp.Success {
		t.Fatalf("disconnect failed: %s", resp.Message)
	}
}

func TestDAPUnknownCommand(t *testing.T) {
	c, _ := newTestClient()
	defer c.conn.Close()

	resp := c.call(t, "bogus", nil)
	if resp.Success {
		t.Fatal("expected failure for an unknown command")
	}
	c.call(t, "disconnect", nil)
}

func TestDAPRequiresImageBeforeStackTrace(t *testing.T) {
	c, _ := newTestClient()
	defer c.conn.Close()

	resp := c.call(t, "stackTrace", nil)
	if resp.Success {
		t.Fatal("expected failure: no image loaded yet")
	}
	c.call(t, "disconnect", nil)
}
