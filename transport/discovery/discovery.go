package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/ipv4"
)

const (
	DefaultGroup    = "224.1.1.1:5007"
	DefaultMessage  = "ESP8266_SERVER_HERE"
	DefaultInterval = 5 * time.Second
	DefaultTTL      = 2
)

var ErrInvalidGroup = errors.New("invalid multicast group")

// Beacon periodically announces the server to a multicast group.
type Beacon struct {
	group    *net.UDPAddr
	message  []byte
	interval time.Duration
	ttl      int
	log      zerolog.Logger
}

// Option configures a Beacon.
type Option func(*Beacon)

// WithMessage sets the announced payload.
func WithMessage(msg string) Option {
	return func(b *Beacon) {
		if msg != "" {
			b.message = []byte(msg)
		}
	}
}

// WithInterval sets the time between announcements.
func WithInterval(d time.Duration) Option {
	return func(b *Beacon) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithTTL sets the multicast hop limit.
func WithTTL(ttl int) Option {
	return func(b *Beacon) {
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

// WithLogger sets the beacon logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Beacon) {
		b.log = l
	}
}

// NewBeacon creates a beacon for group, given as host:port.
func NewBeacon(group string, opts ...Option) (*Beacon, error) {
	addr, err := resolveGroup(group)
	if err != nil {
		return nil, err
	}

	b := &Beacon{
		group:    addr,
		message:  []byte(DefaultMessage),
		interval: DefaultInterval,
		ttl:      DefaultTTL,
		log:      log.Logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With().Str("component", "discovery").Logger()
	return b, nil
}

// Group returns the multicast address the beacon sends to.
func (b *Beacon) Group() string {
	return b.group.String()
}

// Run announces immediately and then every interval until ctx is done.
// Send failures are logged and retried on the next tick.
func (b *Beacon) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp4", "0.0.0.0:0")
	if err != nil {
		return fmt.Errorf("open beacon socket: %w", err)
	}
	defer conn.Close()

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetMulticastTTL(b.ttl); err != nil {
		return fmt.Errorf("set multicast ttl: %w", err)
	}
	if err := pc.SetMulticastLoopback(true); err != nil {
		b.log.Debug().Err(err).Msg("multicast loopback not available")
	}

	b.log.Info().
		Str("group", b.group.String()).
		Dur("interval", b.interval).
		Int("ttl", b.ttl).
		Msg("discovery beacon started")

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		if _, err := pc.WriteTo(b.message, nil, b.group); err != nil {
			b.log.Warn().Err(err).Msg("discovery broadcast failed")
		} else {
			b.log.Debug().Msg("discovery broadcast sent")
		}

		select {
		case <-ctx.Done():
			b.log.Info().Msg("discovery beacon stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Listen joins group and blocks until a datagram equal to message arrives
// or ctx is done. It returns the sender's address.
func Listen(ctx context.Context, group, message string) (*net.UDPAddr, error) {
	addr, err := resolveGroup(group)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenMulticastUDP("udp4", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("join %s: %w", addr, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	want := []byte(message)
	buf := make([]byte, 1024)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read %s: %w", addr, err)
		}
		if bytes.Equal(buf[:n], want) {
			return src, nil
		}
	}
}

func resolveGroup(group string) (*net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp4", group)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidGroup, group, err)
	}
	if !addr.IP.IsMulticast() {
		return nil, fmt.Errorf("%w %q: not a multicast address", ErrInvalidGroup, group)
	}
	return addr, nil
}
