package poller

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	Topic   = "checkout-completed"
	GroupID = "storefront-cart-consumer"

	readBackoff = time.Second
)

// CheckoutHandler empties the cart of a visitor whose checkout completed.
type CheckoutHandler interface {
	CheckoutCompleted(ctx context.Context, visitorID string) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type checkoutEvent struct {
	VisitorID string `json:"visitor_id"`
}

type Poller struct {
	reader  messageReader
	handler CheckoutHandler
	log     *zap.Logger
}

func NewPoller(handler CheckoutHandler, log *zap.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{reader: reader, handler: handler, log: log}
}

// Run consumes until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if !p.handleNext(ctx) {
			select {
			case <-ctx.Done():
			case <-time.After(readBackoff):
			}
		}
	}
}

// Start runs the poller in the background. The returned shutdown cancels it,
// waits for the loop to exit and then closes the reader, so no message is
// handled after shutdown returns.
func (p *Poller) Start(ctx context.Context) (shutdown func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	return func() {
		cancel()
		<-done
		p.Close()
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Warn("error closing reader", zap.Error(err))
	}
}

// handleNext reports false when the reader failed and the caller should back off.
func (p *Poller) handleNext(ctx context.Context) bool {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.log.Error("error reading message", zap.Error(err))
		}
		return false
	}

	var event checkoutEvent
	if errUnmarshal := json.Unmarshal(m.Value, &event); errUnmarshal != nil {
		p.log.Warn("error parsing message", zap.Int64("offset", m.Offset), zap.Error(errUnmarshal))
		return true
	}
	if event.VisitorID == "" {
		p.log.Warn("missing visitor_id", zap.Int64("offset", m.Offset))
		return true
	}

	if err := p.handler.CheckoutCompleted(ctx, event.VisitorID); err != nil {
		p.log.Error("failed to clear cart", zap.String("visitor_id", event.VisitorID), zap.Error(err))
	}
	return true
}
