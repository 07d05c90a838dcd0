package world

import (
	"context"

	"go.uber.org/zap"

	"github.com/kasuganosora/mazechase/game/event"
	"github.com/kasuganosora/mazechase/pubsub"
)

// ChannelFor is the pub/sub channel carrying the events of session id.
func ChannelFor(id string) string { return "session:" + id }

// forwarder relays a session's events to a pub/sub channel. Events are
// encoded on the tick goroutine and published from a separate goroutine so a
// slow backend never stalls the simulation.
type forwarder struct {
	s       *Session
	ps      pubsub.PubSub
	channel string
	out     chan []byte
	logger  *zap.Logger
}

func newForwarder(s *Session, ps pubsub.PubSub, buf int) *forwarder {
	if buf <= 0 {
		buf = 256
	}
	return &forwarder{
		s:       s,
		ps:      ps,
		channel: ChannelFor(s.ID),
		out:     make(chan []byte, buf),
		logger:  s.logger,
	}
}

func (f *forwarder) handle(e event.Event) {
	data, err := event.Encode(f.s.clock.Ticks(), e)
	if err != nil {
		f.logger.Error("encode event", zap.String("type", e.EventType()), zap.Error(err))
		return
	}
	select {
	case f.out <- data:
	default:
		f.logger.Warn("event queue full, dropping event", zap.String("type", e.EventType()))
	}
}

func (f *forwarder) run(ctx context.Context) {
	for {
		select {
		case data := <-f.out:
			if err := f.ps.Publish(ctx, f.channel, string(data)); err != nil {
				f.logger.Debug("publish event", zap.Error(err))
			}
		case <-f.s.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

// Forward starts relaying the session's events to ps on ChannelFor(s.ID)
// until the session stops or ctx is done.
func (s *Session) Forward(ctx context.Context, ps pubsub.PubSub, buf int) {
	f := newForwarder(s, ps, buf)
	unsubscribe := s.Subscribe(f.handle)
	go func() {
		defer unsubscribe()
		f.run(ctx)
	}()
}
