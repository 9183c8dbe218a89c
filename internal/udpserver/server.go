// Package udpserver answers GATAS devices over UDP: ownship position
// requests get a nearby traffic list, fleet configuration uploads get
// stored and may trigger an address switch command.
package udpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"time"

	"github.com/gatasproject/gatas-server/pkg/model"
	"github.com/gatasproject/gatas-server/pkg/wire"
)

// Store is the slice of the datastore the request handler needs.
type Store interface {
	UpdateOwnship(ctx context.Context, own model.OwnshipPosition) error
	NearbyAircraft(ctx context.Context, lat, lon float64, altitude int) ([]model.AircraftPosition, error)
	SetFleetConfig(ctx context.Context, lat, lon float64, cfg model.FleetConfig) error
	FleetConfigFields(ctx context.Context, gatasID uint32, names ...string) (map[string]json.RawMessage, error)
}

// HeightEstimator resolves a contact's ellipsoid height.
type HeightEstimator interface {
	EllipsoidHeight(p model.AircraftPosition, localQNH float64) int
}

// QNHLookup answers local pressure lookups. One instance serves one
// datagram and is never used concurrently.
type QNHLookup interface {
	QNH(ctx context.Context, lat, lon float64) float64
}

// Config tunes the UDP server.
type Config struct {
	// Addr is the listen address, e.g. ":3000".
	Addr string

	// HandlerTimeout bounds the handling of one datagram. On timeout
	// the device receives the too-slow sentinel instead of silence.
	HandlerTimeout time.Duration

	// MaxContacts caps the traffic list in one reply.
	MaxContacts int

	// GroundRadiusMeters is the keep distance for on-ground contacts.
	GroundRadiusMeters float64

	// AirborneRadiusMeters is the keep distance for airborne contacts.
	AirborneRadiusMeters float64
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Addr:                 ":3000",
		HandlerTimeout:       900 * time.Millisecond,
		MaxContacts:          15,
		GroundRadiusMeters:   5000,
		AirborneRadiusMeters: 100000,
	}
}

const maxDatagramSize = 2048

// Server owns the UDP socket and spawns one handler goroutine per
// datagram, so a slow sender never stalls the others.
type Server struct {
	cfg       Config
	store     Store
	estimator HeightEstimator
	newQNH    func() QNHLookup
	limiter   *senderLimiter

	conn *net.UDPConn
}

// New creates a server. newQNH produces a fresh per-request pressure
// cache for every datagram.
func New(cfg Config, store Store, estimator HeightEstimator, newQNH func() QNHLookup) (*Server, error) {
	limiter, err := newSenderLimiter()
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:       cfg,
		store:     store,
		estimator: estimator,
		newQNH:    newQNH,
		limiter:   limiter,
	}, nil
}

// Listen binds the UDP socket. Run calls it when needed; tests bind
// explicitly to learn the ephemeral port before serving.
func (s *Server) Listen() error {
	addr, err := net.ResolveUDPAddr("udp", s.cfg.Addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

// LocalAddr returns the bound address, nil before Listen.
func (s *Server) LocalAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Run serves until the context is cancelled, then closes the socket.
func (s *Server) Run(ctx context.Context) error {
	if s.conn == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	log.Printf("udp: listening on %s", s.conn.LocalAddr())
	buf := make([]byte, maxDatagramSize)
	for {
		n, sender, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}
			log.Printf("udp: read failed: %v", err)
			continue
		}
		if !s.limiter.allow(sender.IP.String()) {
			continue
		}

		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		go s.handle(ctx, sender, datagram)
	}
}

// handle processes one datagram under the handler deadline and always
// sends some reply: traffic frames, the no-data sentinel or the
// too-slow sentinel. The reply is built fully in memory before the
// single send.
func (s *Server) handle(ctx context.Context, sender *net.UDPAddr, datagram []byte) {
	hctx, cancel := context.WithTimeout(ctx, s.cfg.HandlerTimeout)
	defer cancel()

	reply := s.buildReply(hctx, datagram)
	switch {
	case errors.Is(hctx.Err(), context.DeadlineExceeded):
		reply = wire.FallbackTimeout
	case len(reply) == 0:
		reply = wire.FallbackNoData
	}

	if _, err := s.conn.WriteToUDP(reply, sender); err != nil {
		log.Printf("udp: reply to %s failed: %v", sender, err)
	}
}
