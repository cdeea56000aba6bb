package ledger

import (
	"context"
	"fmt"
	"math/bits"
	"time"

	"github.com/bitfsorg/libroyalty-go/store"
)

// oracleGateway owns per-token streaming data. The oracle principal itself
// lives in the meta record.
type oracleGateway struct {
	streams map[uint64]store.StreamRecord
}

func newOracleGateway() *oracleGateway {
	return &oracleGateway{streams: make(map[uint64]store.StreamRecord)}
}

func (o *oracleGateway) stream(id uint64) store.StreamRecord {
	if s, ok := o.streams[id]; ok {
		return s
	}
	return store.StreamRecord{TokenID: id}
}

func (o *oracleGateway) put(s store.StreamRecord) { o.streams[s.TokenID] = s }

// authorizeOracle checks that caller is the configured oracle. Callers hold l.mu.
func (l *Ledger) authorizeOracle(caller Principal) error {
	if l.meta.Oracle == "" || caller != Principal(l.meta.Oracle) {
		return fmt.Errorf("%w: caller is not the oracle", ErrNotAuthorized)
	}
	return nil
}

// SetOracleAddress replaces the oracle principal. Only the contract owner
// may change it.
func (l *Ledger) SetOracleAddress(ctx context.Context, caller, addr Principal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != Principal(l.meta.Owner) {
		return l.reject("set_oracle_address", caller, fmt.Errorf("%w: oracle change requires the contract owner", ErrNotAuthorized))
	}
	if addr == "" {
		return l.reject("set_oracle_address", caller, fmt.Errorf("%w: oracle", ErrInvalidPrincipal))
	}

	c := l.begin("set_oracle_address")
	prev := Principal(c.meta.Oracle)
	c.meta.Oracle = string(addr)
	l.emit(c, EventOracleChanged, 0, caller, addr, 0)
	if err := l.commit(ctx, c); err != nil {
		return err
	}
	l.log.Sugar().Infow("oracle changed", "from", prev, "to", addr)
	return nil
}

// SetRevenuePerStream records the revenue one stream of a token earns.
func (l *Ledger) SetRevenuePerStream(ctx context.Context, caller Principal, id, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.authorizeOracle(caller); err != nil {
		return l.reject("set_revenue_per_stream", caller, err)
	}
	if _, err := l.lookup(id); err != nil {
		return l.reject("set_revenue_per_stream", caller, err)
	}
	if amount == 0 {
		return l.reject("set_revenue_per_stream", caller, fmt.Errorf("%w: zero revenue per stream", ErrInvalidAmount))
	}

	c := l.begin("set_revenue_per_stream")
	s := l.oracle.stream(id)
	s.RevenuePerStream = amount
	s.UpdatedAt = l.now().Unix()
	c.streams[id] = s
	l.emit(c, EventRevenuePerStream, id, caller, "", amount)
	return l.commit(ctx, c)
}

// UpdateStreamingData records a token's cumulative stream count. Counts
// never decrease. The data is informational; it moves no funds.
func (l *Ledger) UpdateStreamingData(ctx context.Context, caller Principal, id, count uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.authorizeOracle(caller); err != nil {
		return l.reject("update_streaming_data", caller, err)
	}
	if _, err := l.lookup(id); err != nil {
		return l.reject("update_streaming_data", caller, err)
	}
	s := l.oracle.stream(id)
	if count < s.StreamCount {
		return l.reject("update_streaming_data", caller,
			fmt.Errorf("%w: stream count %d below recorded %d", ErrInvalidAmount, count, s.StreamCount))
	}

	c := l.begin("update_streaming_data")
	s.StreamCount = count
	s.UpdatedAt = l.now().Unix()
	c.streams[id] = s
	l.emit(c, EventStreamingData, id, caller, "", count)
	return l.commit(ctx, c)
}

// ApplyStreamReport applies both figures of a signed report and records its
// sequence in one commit. The report is refused as a whole if its sequence
// is not above the recorded one or its stream count would go backwards.
func (l *Ledger) ApplyStreamReport(ctx context.Context, caller Principal, r StreamReport) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.authorizeOracle(caller); err != nil {
		return l.reject("apply_stream_report", caller, err)
	}
	if _, err := l.lookup(r.TokenID); err != nil {
		return l.reject("apply_stream_report", caller, err)
	}
	if r.RevenuePerStream == 0 && r.StreamCount == 0 {
		return l.reject("apply_stream_report", caller, fmt.Errorf("%w: report carries no figures", ErrInvalidAmount))
	}
	s := l.oracle.stream(r.TokenID)
	if r.Sequence <= s.Sequence {
		return l.reject("apply_stream_report", caller,
			fmt.Errorf("%w: sequence %d, last %d", ErrReportSequence, r.Sequence, s.Sequence))
	}
	if r.StreamCount != 0 && r.StreamCount < s.StreamCount {
		return l.reject("apply_stream_report", caller,
			fmt.Errorf("%w: stream count %d below recorded %d", ErrInvalidAmount, r.StreamCount, s.StreamCount))
	}

	c := l.begin("apply_stream_report")
	if r.RevenuePerStream != 0 {
		s.RevenuePerStream = r.RevenuePerStream
		l.emit(c, EventRevenuePerStream, r.TokenID, caller, "", r.RevenuePerStream)
	}
	if r.StreamCount != 0 {
		s.StreamCount = r.StreamCount
		l.emit(c, EventStreamingData, r.TokenID, caller, "", r.StreamCount)
	}
	s.Sequence = r.Sequence
	s.UpdatedAt = l.now().Unix()
	c.streams[r.TokenID] = s
	return l.commit(ctx, c)
}

// GetRevenuePerStream returns the last reported revenue per stream, or 0.
func (l *Ledger) GetRevenuePerStream(id uint64) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, err := l.lookup(id); err != nil {
		return 0, err
	}
	return l.oracle.stream(id).RevenuePerStream, nil
}

// GetStreamingData returns everything the oracle reported for a token.
func (l *Ledger) GetStreamingData(id uint64) (StreamData, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, err := l.lookup(id); err != nil {
		return StreamData{}, err
	}
	s := l.oracle.stream(id)
	d := StreamData{TokenID: id, RevenuePerStream: s.RevenuePerStream, StreamCount: s.StreamCount, Sequence: s.Sequence}
	if s.UpdatedAt != 0 {
		d.UpdatedAt = time.Unix(s.UpdatedAt, 0).UTC()
	}
	return d, nil
}

// OracleAddress returns the current oracle principal, empty if unset.
func (l *Ledger) OracleAddress() Principal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Principal(l.meta.Oracle)
}

// ExpectedRevenue returns RevenuePerStream * StreamCount for a token.
func (l *Ledger) ExpectedRevenue(id uint64) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, err := l.lookup(id); err != nil {
		return 0, err
	}
	s := l.oracle.stream(id)
	hi, lo := bits.Mul64(s.RevenuePerStream, s.StreamCount)
	if hi != 0 {
		return 0, fmt.Errorf("%w: expected revenue of token %d", ErrOverflow, id)
	}
	return lo, nil
}
