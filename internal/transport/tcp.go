package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/parkhub/parking-service/internal/dispatch"
	"github.com/parkhub/parking-service/internal/protocol"
	"go.uber.org/zap"
)

// Server accepts TCP clients and pumps newline-delimited envelopes through
// the dispatcher. Requests on one connection are handled strictly in order;
// connections are independent goroutines.
type Server struct {
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	wg       sync.WaitGroup
}

func NewServer(dispatcher *dispatch.Dispatcher, logger *zap.Logger) *Server {
	return &Server{dispatcher: dispatcher, logger: logger}
}

// Listen binds the port and serves until Shutdown. It blocks.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return net.ErrClosed
	}
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("tcp server listening", zap.String("addr", addr))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept failed", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	connID := uuid.NewString()
	s.dispatcher.OnConnect(connID)
	defer s.dispatcher.OnDisconnect(connID)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		req, err := protocol.Decode(line)
		if err != nil {
			s.logger.Warn("undecodable frame", zap.String("conn_id", connID), zap.Error(err))
			if werr := s.write(conn, protocol.Error(protocol.TypeError, "Malformed message")); werr != nil {
				return
			}
			continue
		}

		resp := s.dispatcher.Handle(connID, req)
		if err := s.write(conn, resp); err != nil {
			s.logger.Warn("write failed", zap.String("conn_id", connID), zap.Error(err))
			return
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Debug("connection read ended", zap.String("conn_id", connID), zap.Error(err))
	}
}

func (s *Server) write(conn net.Conn, e protocol.Envelope) error {
	b, err := protocol.Encode(e)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	_, err = conn.Write(append(b, '\n'))
	return err
}

// Shutdown stops accepting and waits for in-flight connections to drain,
// bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	ln := s.listener
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// maxFrameSize caps a single envelope; a full subscriber list stays well
// under it.
const maxFrameSize = 1 << 20
