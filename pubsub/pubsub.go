package pubsub

import (
	"context"
	"fmt"

	"github.com/kasuganosora/mazechase/pubsub/local"
	psredis "github.com/kasuganosora/mazechase/pubsub/redis"
)

// Message is a received pub/sub message.
type Message struct {
	Channel string
	Payload string
}

// PubSub defines channel publish/subscribe operations.
type PubSub interface {
	Publish(ctx context.Context, channel, message string) error
	// Subscribe returns a message channel and a cancel function. The channel
	// is closed after cancel is called or ctx is done.
	Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error)
	Close() error
}

// Config selects the backend: Redis when RedisAddr is set, in-process otherwise.
type Config struct {
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"`
	LocalPubSubBuf int    `mapstructure:"local_pubsub_buf"`
}

// New returns a PubSub backed by Redis if RedisAddr is set,
// otherwise an in-process LocalPubSub wrapped in an adapter.
func New(cfg Config) (PubSub, error) {
	bufSize := cfg.LocalPubSubBuf
	if bufSize <= 0 {
		bufSize = 256
	}
	if cfg.RedisAddr != "" {
		rps, err := psredis.NewPubSub(psredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("pubsub: connect redis %s: %w", cfg.RedisAddr, err)
		}
		return &redisAdapter{ps: rps, buf: bufSize}, nil
	}
	return &localAdapter{ps: local.NewPubSub(bufSize), buf: bufSize}, nil
}

// NewLocal returns an in-process PubSub.
func NewLocal(bufSize int) PubSub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &localAdapter{ps: local.NewPubSub(bufSize), buf: bufSize}
}

// ---- adapters to bridge sub-package message types to pubsub.Message ----

type localAdapter struct {
	ps  *local.LocalPubSub
	buf int
}

func (a *localAdapter) Publish(ctx context.Context, channel, message string) error {
	return a.ps.Publish(ctx, channel, message)
}

func (a *localAdapter) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	localCh, cancel, err := a.ps.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan *Message, a.buf)
	go func() {
		defer close(out)
		for msg := range localCh {
			out <- &Message{Channel: msg.Channel, Payload: msg.Payload}
		}
	}()
	return out, cancel, nil
}

func (a *localAdapter) Close() error { return a.ps.Close() }

type redisAdapter struct {
	ps  *psredis.RedisPubSub
	buf int
}

func (a *redisAdapter) Publish(ctx context.Context, channel, message string) error {
	return a.ps.Publish(ctx, channel, message)
}

func (a *redisAdapter) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	redisCh, cancel, err := a.ps.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan *Message, a.buf)
	go func() {
		defer close(out)
		for msg := range redisCh {
			out <- &Message{Channel: msg.Channel, Payload: msg.Payload}
		}
	}()
	return out, cancel, nil
}

func (a *redisAdapter) Close() error { return a.ps.Close() }
