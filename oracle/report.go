// Package oracle ingests signed streaming reports into a ledger.
//
// A report is signed by the oracle key over its canonical encoding. The
// gateway verifies the signature, derives the signer's principal from the
// embedded public key and submits the figures to the ledger as that
// principal; the ledger alone decides whether the principal is the oracle.
package oracle

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/bitfsorg/libroyalty-go/identity"
)

// reportDomain separates report signatures from any other message signed
// by the same key.
const reportDomain = "libroyalty/oracle-report/v1"

// Report is one oracle update for a token. A zero RevenuePerStream or
// StreamCount leaves that figure unchanged.
type Report struct {
	TokenID          uint64 `json:"token_id"`
	RevenuePerStream uint64 `json:"revenue_per_stream,omitempty"`
	StreamCount      uint64 `json:"stream_count,omitempty"`
	Sequence         uint64 `json:"sequence"`  // strictly increasing per token
	Timestamp        int64  `json:"timestamp"` // Unix seconds
}

// SignedReport is a report with the signer's compressed public key and a
// DER signature over Report.Encode().
type SignedReport struct {
	Report    Report `json:"report"`
	PublicKey []byte `json:"public_key"`
	Signature []byte `json:"signature"`
}

// Validate checks a report's fields without looking at any signature.
func (r Report) Validate() error {
	if r.TokenID == 0 {
		return fmt.Errorf("%w: zero token id", ErrInvalidReport)
	}
	if r.RevenuePerStream == 0 && r.StreamCount == 0 {
		return fmt.Errorf("%w: no figures", ErrInvalidReport)
	}
	if r.Sequence == 0 {
		return fmt.Errorf("%w: zero sequence", ErrInvalidReport)
	}
	if r.Timestamp <= 0 {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidReport)
	}
	return nil
}

// Encode returns the canonical byte encoding that is signed.
func (r Report) Encode() []byte {
	buf := make([]byte, 0, len(reportDomain)+5*8)
	buf = append(buf, reportDomain...)
	buf = binary.BigEndian.AppendUint64(buf, r.TokenID)
	buf = binary.BigEndian.AppendUint64(buf, r.RevenuePerStream)
	buf = binary.BigEndian.AppendUint64(buf, r.StreamCount)
	buf = binary.BigEndian.AppendUint64(buf, r.Sequence)
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.Timestamp))
	return buf
}

// Time returns the report timestamp.
func (r Report) Time() time.Time { return time.Unix(r.Timestamp, 0).UTC() }

// Sign signs r with kp.
func Sign(r Report, kp *identity.KeyPair) (*SignedReport, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if kp == nil || kp.PrivateKey == nil {
		return nil, fmt.Errorf("%w: nil signing key", ErrInvalidReport)
	}
	sig, err := identity.SignMessage(kp.PrivateKey, r.Encode())
	if err != nil {
		return nil, err
	}
	return &SignedReport{
		Report:    r,
		PublicKey: kp.PrivateKey.PubKey().Compressed(),
		Signature: sig,
	}, nil
}

// Verify checks the signature and returns the signer's principal on network.
func (s *SignedReport) Verify(network *identity.Network) (string, error) {
	if s == nil {
		return "", fmt.Errorf("%w: nil report", ErrInvalidReport)
	}
	if err := s.Report.Validate(); err != nil {
		return "", err
	}
	principal, pub, err := identity.PrincipalFromBytes(s.PublicKey, network)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	if err := identity.VerifyMessage(pub, s.Report.Encode(), s.Signature); err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	return principal, nil
}
