// Package store wraps the Tile38 geospatial datastore. All traffic,
// fleet and weather state lives here under short TTLs, the server keeps
// no authoritative state of its own.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"
)

// Collection keys.
const (
	aircraftKey       = "aircraft"
	fleetKey          = "fleet"
	fleetConfigKey    = "fleetConfig"
	metarByH3Key      = "metarbyh3"
	metarByStationKey = "metarbystation"
)

// Entry lifetimes in seconds. Traffic ages out quickly, weather slowly,
// fleet configuration not at all.
const (
	aircraftTTL       = 10
	fleetTTL          = 60
	metarByH3TTL      = 300
	metarByStationTTL = 3600
)

// Client wraps read and write connection pools against one Tile38
// instance. Every connection switches to JSON output at dial time, so
// all replies are parsed from the same envelope.
type Client struct {
	read  *redis.Pool
	write *redis.Pool
}

// Options configures the datastore connection.
type Options struct {
	// Addr is the Tile38 host:port.
	Addr string

	// MaxIdle and MaxActive bound each connection pool.
	MaxIdle   int
	MaxActive int

	// DialTimeout bounds connection setup, reads and writes.
	DialTimeout time.Duration
}

// Connect establishes read and write pools against Tile38 and verifies
// the connection with a ping.
func Connect(opts Options) (*Client, error) {
	if opts.MaxIdle == 0 {
		opts.MaxIdle = 4
	}
	if opts.MaxActive == 0 {
		opts.MaxActive = 16
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}

	newPool := func() *redis.Pool {
		return &redis.Pool{
			MaxIdle:     opts.MaxIdle,
			MaxActive:   opts.MaxActive,
			Wait:        true,
			IdleTimeout: 4 * time.Minute,
			Dial: func() (redis.Conn, error) {
				conn, err := redis.Dial("tcp", opts.Addr,
					redis.DialConnectTimeout(opts.DialTimeout),
					redis.DialReadTimeout(opts.DialTimeout),
					redis.DialWriteTimeout(opts.DialTimeout),
				)
				if err != nil {
					return nil, err
				}
				if _, err := conn.Do("OUTPUT", "json"); err != nil {
					conn.Close()
					return nil, fmt.Errorf("switch to json output: %w", err)
				}
				return conn, nil
			},
			TestOnBorrow: func(conn redis.Conn, t time.Time) error {
				if time.Since(t) < time.Minute {
					return nil
				}
				_, err := conn.Do("PING")
				return err
			},
		}
	}

	client := &Client{read: newPool(), write: newPool()}

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()
	if _, err := client.do(ctx, client.write, "PING"); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping datastore: %w", err)
	}
	return client, nil
}

// Close releases both connection pools.
func (c *Client) Close() error {
	rerr := c.read.Close()
	werr := c.write.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}

// do runs one command on the given pool and returns the raw JSON reply.
// Tile38 reports command failures inside the JSON envelope, those are
// surfaced as errors here.
func (c *Client) do(ctx context.Context, pool *redis.Pool, cmd string, args ...interface{}) ([]byte, error) {
	conn, err := pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	reply, err := redis.DoContext(conn, ctx, cmd, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd, err)
	}
	raw, err := redis.Bytes(reply, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unexpected reply type: %w", cmd, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%s: parse reply: %w", cmd, err)
	}
	if !env.OK {
		if isNotFound(env.Err) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("%s: %s", cmd, env.Err)
	}
	return raw, nil
}

func (c *Client) doRead(ctx context.Context, cmd string, args ...interface{}) ([]byte, error) {
	return c.do(ctx, c.read, cmd, args...)
}

func (c *Client) doWrite(ctx context.Context, cmd string, args ...interface{}) ([]byte, error) {
	return c.do(ctx, c.write, cmd, args...)
}

func isNotFound(msg string) bool {
	return strings.Contains(msg, "not found")
}
