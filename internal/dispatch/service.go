package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alouette-audio/alouette-host/internal/bus"
	"github.com/alouette-audio/alouette-host/internal/config"
	"github.com/alouette-audio/alouette-host/internal/protocol"
	"github.com/nats-io/nats.go"
)

// Service binds a Dispatcher to the method channel subject.
type Service struct {
	cfg        config.ChannelConfig
	bus        *bus.Client
	dispatcher *Dispatcher
	sub        *nats.Subscription
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *slog.Logger
}

func NewService(parent context.Context, cfg config.ChannelConfig, busClient *bus.Client, dispatcher *Dispatcher, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	return &Service{
		cfg:        cfg,
		bus:        busClient,
		dispatcher: dispatcher,
		ctx:        ctx,
		cancel:     cancel,
		logger:     log.With(slog.String("component", "method-channel")),
	}
}

func (s *Service) Start() error {
	sub, err := s.bus.Conn().Subscribe(s.cfg.Subject, s.handleCall)
	if err != nil {
		return fmt.Errorf("subscribe method channel %q: %w", s.cfg.Subject, err)
	}
	s.sub = sub
	s.logger.Info("method channel open", slog.String("subject", s.cfg.Subject))
	return nil
}

func (s *Service) Close() {
	s.cancel()
	if s.sub != nil {
		_ = s.sub.Drain()
	}
}

func (s *Service) Healthy() bool { return s.sub != nil }

func (s *Service) handleCall(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(s.ctx, time.Duration(s.cfg.TimeoutMS)*time.Millisecond)
	defer cancel()

	var call protocol.MethodCall
	if err := json.Unmarshal(msg.Data, &call); err != nil {
		s.logger.Warn("failed to decode method call", slog.String("error", err.Error()))
		s.respond(msg, protocol.NotImplemented())
		return
	}
	s.respond(msg, s.dispatcher.Handle(ctx, call))
}

func (s *Service) respond(msg *nats.Msg, resp protocol.MethodResponse) {
	if msg.Reply == "" {
		// Fire-and-forget caller; nothing to answer.
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn("failed to marshal method response", slog.String("error", err.Error()))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("failed to respond on method channel", slog.String("error", err.Error()))
	}
}
