package notify

import (
	"bufio"
	"context"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeTransport records sends and returns a canned receipt or error.
type fakeTransport struct {
	kind    Kind
	name    string
	receipt Receipt
	err     error

	mu    sync.Mutex
	calls int
	last  Notification
}

func (f *fakeTransport) Kind() Kind   { return f.kind }
func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) Send(_ context.Context, n Notification) (Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = n
	return f.receipt, f.err
}

func (f *fakeTransport) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type stubSelector struct {
	transport Transport
	err       error
	calls     int
}

func (s *stubSelector) Select(context.Context) (Transport, error) {
	s.calls++
	return s.transport, s.err
}

type capturedMail struct {
	From string
	To   []string
	Data string
}

// fakeSMTPServer speaks just enough SMTP for net/smtp. It advertises no
// extensions, so sessions stay plaintext and unauthenticated.
type fakeSMTPServer struct {
	ln         net.Listener
	dataReply  string
	rejectRcpt bool

	mu       sync.Mutex
	messages []capturedMail
	wg       sync.WaitGroup
}

func newFakeSMTPServer(t *testing.T, opts ...func(*fakeSMTPServer)) *fakeSMTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeSMTPServer{
		ln:        ln,
		dataReply: "250 Accepted [STATUS=new MSGID=abc123]",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *fakeSMTPServer) host() string {
	host, _, _ := net.SplitHostPort(s.ln.Addr().String())
	return host
}

func (s *fakeSMTPServer) port() int {
	_, port, _ := net.SplitHostPort(s.ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

func (s *fakeSMTPServer) received() []capturedMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]capturedMail(nil), s.messages...)
}

func (s *fakeSMTPServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *fakeSMTPServer) handle(conn net.Conn) {
	defer conn.Close()
	r := textproto.NewReader(bufio.NewReader(conn))
	w := bufio.NewWriter(conn)
	reply := func(line string) {
		_, _ = w.WriteString(line + "\r\n")
		_ = w.Flush()
	}

	reply("220 localhost ESMTP fake")
	var current capturedMail
	for {
		line, err := r.ReadLine()
		if err != nil {
			return
		}
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO", "HELO":
			reply("250 localhost")
		case "MAIL":
			current = capturedMail{From: addressArg(line)}
			reply("250 OK")
		case "RCPT":
			if s.rejectRcpt {
				reply("550 5.1.1 mailbox unavailable")
				continue
			}
			current.To = append(current.To, addressArg(line))
			reply("250 OK")
		case "DATA":
			reply("354 End data with <CR><LF>.<CR><LF>")
			data, err := r.ReadDotBytes()
			if err != nil {
				return
			}
			current.Data = string(data)
			s.mu.Lock()
			s.messages = append(s.messages, current)
			s.mu.Unlock()
			reply(s.dataReply)
		case "RSET", "NOOP":
			reply("250 OK")
		case "QUIT":
			reply("221 Bye")
			return
		default:
			reply("502 command not implemented")
		}
	}
}

func addressArg(line string) string {
	start := strings.Index(line, "<")
	end := strings.LastIndex(line, ">")
	if start < 0 || end <= start {
		return ""
	}
	return line[start+1 : end]
}
