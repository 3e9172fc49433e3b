package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"go.uber.org/zap"
)

const (
	// DefaultChallengeTTL is how long an issued challenge can be verified
	DefaultChallengeTTL = time.Minute

	// DefaultResultTTL is how long an authentication record can be retrieved
	DefaultResultTTL = time.Hour

	// DefaultMessagePrefix is the human readable part of a challenge message
	DefaultMessagePrefix = "Sign this message to prove you own this wallet."

	nonceSize = 32

	challengeKeyPrefix      = "challenge:"
	authenticationKeyPrefix = "authentication:"
)

// Options tune the authentication service
type Options struct {
	ChallengeTTL time.Duration
	ResultTTL    time.Duration // 0 keeps records until the store evicts them

	// RequireIssuedChallenge only accepts signatures over live challenges issued by
	// RequestMessage, and consumes the challenge on success
	RequireIssuedChallenge bool

	MessagePrefix string
	Metrics       *Metrics
	Now           func() time.Time
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		ChallengeTTL:           DefaultChallengeTTL,
		ResultTTL:              DefaultResultTTL,
		RequireIssuedChallenge: true,
		MessagePrefix:          DefaultMessagePrefix,
		Now:                    time.Now,
	}
}

// AuthService handles challenge issuance, signature verification and result retrieval
type AuthService struct {
	store    ports.Store
	registry ports.VerifierRegistry
	eventPub ports.EventPublisher
	logger   *zap.Logger
	opts     Options
}

// NewAuthService creates a new authentication service
func NewAuthService(
	store ports.Store,
	registry ports.VerifierRegistry,
	eventPub ports.EventPublisher,
	logger *zap.Logger,
	opts Options,
) *AuthService {
	if opts.ChallengeTTL <= 0 {
		opts.ChallengeTTL = DefaultChallengeTTL
	}
	if opts.ResultTTL < 0 {
		opts.ResultTTL = DefaultResultTTL
	}
	if opts.MessagePrefix == "" {
		opts.MessagePrefix = DefaultMessagePrefix
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &AuthService{
		store:    store,
		registry: registry,
		eventPub: eventPub,
		logger:   logger.Named("auth"),
		opts:     opts,
	}
}

// ChallengeID derives the id a challenge message is stored under
func ChallengeID(message string) string {
	sum := sha256.Sum256([]byte(message))
	return hex.EncodeToString(sum[:])
}

// RequestMessage issues a new challenge for the client to sign
func (s *AuthService) RequestMessage(ctx context.Context) (*core.IssuedChallenge, error) {
	nonceBytes := make([]byte, nonceSize)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.opts.Now().UTC()
	nonce := hex.EncodeToString(nonceBytes)
	message := fmt.Sprintf("%s\n\nNonce: %s\nIssued At: %s", s.opts.MessagePrefix, nonce, now.Format(time.RFC3339))

	challenge := core.Challenge{
		ID:       ChallengeID(message),
		Message:  message,
		Nonce:    nonce,
		IssuedAt: now,
	}

	payload, err := json.Marshal(challenge)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal challenge: %w", err)
	}

	if err := s.store.Set(ctx, challengeKeyPrefix+challenge.ID, payload, s.opts.ChallengeTTL); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	s.opts.Metrics.challengeIssued()
	s.logger.Debug("challenge issued", zap.String("authentication_id", challenge.ID))

	return &core.IssuedChallenge{
		AuthenticationID: challenge.ID,
		Message:          message,
	}, nil
}

// VerifyMessage checks a signed message and stores the outcome under a new authentication id.
// A signature mismatch is a normal false result, not an error.
//
// A matching signature consumes its challenge before the record is written. If that write
// fails the challenge is put back for the rest of its ttl so the same signature can be retried;
// when the put back fails too the client has to request a new challenge.
func (s *AuthService) VerifyMessage(ctx context.Context, req core.VerifyRequest) (*core.VerifyResult, error) {
	chain, verifier, err := s.registry.Resolve(req.Chain)
	if err != nil {
		return nil, err
	}

	matched := verifier.Verify(req.Message, req.Signature, req.PublicKey)

	var consumed *core.Challenge
	if matched && s.opts.RequireIssuedChallenge {
		consumed, err = s.consumeChallenge(ctx, req.Message)
		if err != nil {
			if !errors.Is(err, core.ErrChallengeNotIssued) {
				return nil, err
			}
			s.logger.Info("rejected signature over unknown challenge", zap.String("chain", chain.String()))
			matched = false
		}
	}

	address, err := verifier.DeriveAddress(req.PublicKey)
	if err != nil {
		s.logger.Debug("failed to derive address", zap.String("chain", chain.String()), zap.Error(err))
		address = ""
	}

	record := core.AuthenticationRecord{
		AuthenticationID: uuid.New().String(),
		Address:          address,
		Result:           matched,
		Chain:            chain,
		VerifiedAt:       s.opts.Now().UTC(),
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal authentication record: %w", err)
	}

	if err := s.store.Set(ctx, authenticationKeyPrefix+record.AuthenticationID, payload, s.opts.ResultTTL); err != nil {
		if consumed != nil {
			s.restoreChallenge(ctx, consumed)
		}
		return nil, fmt.Errorf("failed to store authentication record: %w", err)
	}

	s.opts.Metrics.verified(chain, matched)

	event := core.VerificationEvent{
		AuthenticationID: record.AuthenticationID,
		Address:          record.Address,
		Chain:            record.Chain,
		Result:           record.Result,
		VerifiedAt:       record.VerifiedAt,
	}
	if err := s.eventPub.PublishVerification(ctx, event); err != nil {
		// The record is already stored, which is the critical part
		s.logger.Warn("failed to publish verification event",
			zap.String("authentication_id", record.AuthenticationID),
			zap.Error(err))
	}

	return &core.VerifyResult{
		Result:           matched,
		AuthenticationID: record.AuthenticationID,
		Address:          address,
	}, nil
}

// consumeChallenge removes the live challenge for message.
// Only one caller can consume a given challenge.
func (s *AuthService) consumeChallenge(ctx context.Context, message string) (*core.Challenge, error) {
	payload, err := s.store.Take(ctx, challengeKeyPrefix+ChallengeID(message))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrChallengeNotIssued
		}
		return nil, fmt.Errorf("failed to consume challenge: %w", err)
	}

	var challenge core.Challenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return nil, fmt.Errorf("failed to decode challenge: %w", err)
	}

	if challenge.Message != message {
		return nil, core.ErrChallengeNotIssued
	}

	// The store expires the key too; this keeps the boundary exact when it is coarser
	if !s.opts.Now().Before(challenge.IssuedAt.Add(s.opts.ChallengeTTL)) {
		return nil, core.ErrChallengeNotIssued
	}

	return &challenge, nil
}

// restoreChallenge puts a consumed challenge back with its remaining ttl
func (s *AuthService) restoreChallenge(ctx context.Context, challenge *core.Challenge) {
	remaining := challenge.IssuedAt.Add(s.opts.ChallengeTTL).Sub(s.opts.Now())
	if remaining <= 0 {
		return
	}

	payload, err := json.Marshal(challenge)
	if err == nil {
		err = s.store.Set(ctx, challengeKeyPrefix+challenge.ID, payload, remaining)
	}
	if err != nil {
		s.logger.Warn("failed to restore challenge", zap.String("authentication_id", challenge.ID), zap.Error(err))
	}
}

// Retrieve returns a stored authentication record
func (s *AuthService) Retrieve(ctx context.Context, authenticationID string) (*core.AuthenticationRecord, error) {
	authenticationID = strings.TrimSpace(authenticationID)
	if authenticationID == "" {
		return nil, fmt.Errorf("authentication id is required: %w", core.ErrInvalidInput)
	}

	payload, err := s.store.Get(ctx, authenticationKeyPrefix+authenticationID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrNotFoundOrExpired
		}
		return nil, fmt.Errorf("failed to retrieve authentication: %w", err)
	}

	var record core.AuthenticationRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("failed to decode authentication record: %w", err)
	}

	return &record, nil
}

// Chains lists the chains the service can verify
func (s *AuthService) Chains() []core.Chain {
	return s.registry.Chains()
}
