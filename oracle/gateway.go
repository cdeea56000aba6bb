package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bitfsorg/libroyalty-go/identity"
	"github.com/bitfsorg/libroyalty-go/ledger"
)

// DefaultMaxAge is how old a report may be when it reaches the gateway.
const DefaultMaxAge = 15 * time.Minute

// maxSkew bounds how far in the future a report timestamp may be.
const maxSkew = time.Minute

// Sink is the part of the ledger the gateway reads and writes.
type Sink interface {
	ApplyStreamReport(ctx context.Context, caller ledger.Principal, r ledger.StreamReport) error
	GetStreamingData(id uint64) (ledger.StreamData, error)
}

// Gateway verifies signed reports and feeds them to a ledger. Accepted
// sequences live in the ledger, so replay protection survives restarts.
type Gateway struct {
	sink    Sink
	network *identity.Network
	log     *zap.Logger
	now     func() time.Time
	maxAge  time.Duration
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(g *Gateway) {
		if log != nil {
			g.log = log
		}
	}
}

// WithClock overrides the time source used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// WithMaxAge sets the accepted report age. Zero disables the check.
func WithMaxAge(d time.Duration) Option {
	return func(g *Gateway) { g.maxAge = d }
}

// NewGateway creates a gateway writing to sink. Principals are derived on
// network; nil means MainNet.
func NewGateway(sink Sink, network *identity.Network, opts ...Option) *Gateway {
	if network == nil {
		network = &identity.MainNet
	}
	g := &Gateway{
		sink:    sink,
		network: network,
		log:     zap.NewNop(),
		now:     time.Now,
		maxAge:  DefaultMaxAge,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Submit verifies s and applies its figures to the ledger as the signer.
// The ledger applies the whole report and its sequence in one commit or
// nothing at all.
func (g *Gateway) Submit(ctx context.Context, s *SignedReport) error {
	principal, err := s.Verify(g.network)
	if err != nil {
		g.log.Warn("oracle report rejected", zap.Error(err))
		return err
	}
	r := s.Report
	log := g.log.With(zap.Uint64("token_id", r.TokenID), zap.Uint64("sequence", r.Sequence), zap.String("signer", principal))

	if err := g.checkFresh(r); err != nil {
		log.Warn("oracle report rejected", zap.Error(err))
		return err
	}

	err = g.sink.ApplyStreamReport(ctx, ledger.Principal(principal), ledger.StreamReport{
		TokenID:          r.TokenID,
		RevenuePerStream: r.RevenuePerStream,
		StreamCount:      r.StreamCount,
		Sequence:         r.Sequence,
	})
	switch {
	case errors.Is(err, ledger.ErrReportSequence):
		log.Warn("oracle report replayed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrReplay, err)
	case err != nil:
		log.Warn("oracle report refused", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}

	log.Info("oracle report applied",
		zap.Uint64("revenue_per_stream", r.RevenuePerStream),
		zap.Uint64("stream_count", r.StreamCount))
	return nil
}

// LastSequence returns the last applied sequence for a token, 0 if none.
func (g *Gateway) LastSequence(tokenID uint64) (uint64, error) {
	d, err := g.sink.GetStreamingData(tokenID)
	if err != nil {
		return 0, err
	}
	return d.Sequence, nil
}

func (g *Gateway) checkFresh(r Report) error {
	if g.maxAge == 0 {
		return nil
	}
	now := g.now()
	at := r.Time()
	if at.After(now.Add(maxSkew)) {
		return fmt.Errorf("%w: timestamp %s is in the future", ErrStale, at.Format(time.RFC3339))
	}
	if now.Sub(at) > g.maxAge {
		return fmt.Errorf("%w: report is %s old", ErrStale, now.Sub(at).Truncate(time.Second))
	}
	return nil
}
