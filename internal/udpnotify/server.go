// Package udpnotify pushes notification entries to UDP subscribers. A
// client sends "SUBSCRIBE" from the socket it wants entries delivered to and
// "UNSUBSCRIBE" to stop.
package udpnotify

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	xglog "moviemania/internal/log"
	"moviemania/pkg/models"
)

const (
	CmdSubscribe   = "SUBSCRIBE"
	CmdUnsubscribe = "UNSUBSCRIBE"
)

// Datagram is the payload of every pushed entry.
type Datagram struct {
	Type      string `json:"type"` // always "notification"
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

type Server struct {
	addr   string
	logger zerolog.Logger

	mu      sync.Mutex
	clients map[string]*net.UDPAddr // key = ip:port
	conn    *net.UDPConn
}

func New(addr string) *Server {
	return &Server{
		addr:    addr,
		logger:  xglog.WithComponent("udpnotify"),
		clients: make(map[string]*net.UDPAddr),
	}
}

// Listen binds the socket.
func (s *Server) Listen() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.logger.Info().Str("addr", conn.LocalAddr().String()).Msg("udp notification feed listening")
	return nil
}

// LocalAddr is the bound address, nil before Listen.
func (s *Server) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Serve handles subscription requests until ctx is cancelled, then closes
// the socket.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("udpnotify: Serve called before Listen")
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	buf := make([]byte, 2048)
	for {
		n, clientAddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn().Err(err).Msg("udp read")
			continue
		}

		switch strings.ToUpper(strings.TrimSpace(string(buf[:n]))) {
		case CmdSubscribe:
			s.mu.Lock()
			s.clients[clientAddr.String()] = clientAddr
			total := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug().Str("client", clientAddr.String()).Int("total", total).Msg("udp subscribed")
		case CmdUnsubscribe:
			s.mu.Lock()
			delete(s.clients, clientAddr.String())
			total := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug().Str("client", clientAddr.String()).Int("total", total).Msg("udp unsubscribed")
		}
	}
}

func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Publish sends n to every subscriber. Delivery is best effort.
func (s *Server) Publish(n models.Notification) {
	b, err := json.Marshal(Datagram{Type: "notification", Message: n.Message, Timestamp: n.Timestamp})
	if err != nil {
		s.logger.Error().Err(err).Msg("udp marshal")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return
	}
	for key, addr := range s.clients {
		if _, err := s.conn.WriteToUDP(b, addr); err != nil {
			s.logger.Warn().Err(err).Str("client", key).Msg("udp send failed")
		}
	}
}
