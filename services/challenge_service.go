package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-kit/log/level"
	"github.com/mailio/go-vault-server/global"
	"github.com/mailio/go-vault-server/metrics"
	"github.com/mailio/go-vault-server/repository"
	"github.com/mailio/go-vault-server/types"
	"github.com/mailio/go-vault-server/util"
)

const (
	DefaultChallengeTTL = 5 * time.Minute

	challengeKeyPrefix      = "challenge:"
	challengeStateKeyPrefix = "challenge_state:"

	// session ids are "<random token>.<expiry in unix millis, base 36>"
	sidExpirySeparator = "."

	challengeStateConsumed = "consumed"
	challengeStateExpired  = "expired"
)

// ChallengeService issues one-time registration challenges bound to a session id.
// A challenge is CREATED on issue and ends up either CONSUMED or EXPIRED.
type ChallengeService struct {
	store repository.KeyValueStore
	ttl   time.Duration
	now   func() time.Time
}

func NewChallengeService(store repository.KeyValueStore, ttl time.Duration) *ChallengeService {
	if store == nil {
		panic("challenge store cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &ChallengeService{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// WithClock replaces the time source (tests)
func (cs *ChallengeService) WithClock(now func() time.Time) *ChallengeService {
	cs.now = now
	return cs
}

// TTL returns the validity window of an issued challenge
func (cs *ChallengeService) TTL() time.Duration {
	return cs.ttl
}

// Create generates a random session id and challenge and stores the mapping.
// userID is optional and records who asked for the options.
func (cs *ChallengeService) Create(ctx context.Context, userID string) (*types.ChallengeSession, error) {
	token, err := util.GenerateToken(util.SessionIDSize)
	if err != nil {
		return nil, err
	}
	challenge, err := util.RandomBytes(util.ChallengeSize)
	if err != nil {
		return nil, err
	}

	now := cs.now().UTC()
	expires := now.Add(cs.ttl).UnixMilli()
	sid := token + sidExpirySeparator + strconv.FormatInt(expires, 36)
	session := &types.ChallengeSession{
		ID:        sid,
		Challenge: challenge,
		UserID:    userID,
		Created:   now.UnixMilli(),
		Expires:   expires,
	}
	sessionBytes, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	// the record outlives its ttl once more so a late completion is reported as expired, not unknown
	if err := cs.store.Put(ctx, challengeKeyPrefix+sid, sessionBytes, 2*cs.ttl); err != nil {
		level.Error(global.Logger).Log("msg", "failed to store challenge session", "error", err)
		return nil, err
	}
	metrics.ChallengesIssuedTotal.Inc()
	return session, nil
}

// Consume returns the challenge session and invalidates it. Of any number of concurrent calls
// for the same sid at most one succeeds, the rest get types.ErrChallengeConsumed.
func (cs *ChallengeService) Consume(ctx context.Context, sid string) (*types.ChallengeSession, error) {
	if sid == "" {
		metrics.ChallengesRejectedTotal.WithLabelValues("not_found").Inc()
		return nil, types.ErrNotFound
	}
	key := challengeKeyPrefix + sid

	raw, err := cs.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, cs.rejection(ctx, sid)
		}
		return nil, err
	}
	var session types.ChallengeSession
	if err := json.Unmarshal(raw, &session); err != nil {
		level.Error(global.Logger).Log("msg", "failed to unmarshal challenge session", "error", err)
		return nil, types.ErrInternal
	}

	if !cs.now().Before(time.UnixMilli(session.Expires)) {
		if err := cs.markState(ctx, sid, challengeStateExpired); err != nil {
			return nil, err
		}
		if _, err := cs.store.DeleteIfPresent(ctx, key); err != nil {
			level.Warn(global.Logger).Log("msg", "failed to delete expired challenge session", "error", err)
		}
		metrics.ChallengesRejectedTotal.WithLabelValues(challengeStateExpired).Inc()
		return nil, types.ErrChallengeExpired
	}

	// the tombstone goes first so a caller that loses the race below always finds it
	if err := cs.markState(ctx, sid, challengeStateConsumed); err != nil {
		return nil, err
	}
	deleted, err := cs.store.DeleteIfPresent(ctx, key)
	if err != nil {
		return nil, err
	}
	if !deleted {
		metrics.ChallengesRejectedTotal.WithLabelValues(challengeStateConsumed).Inc()
		return nil, types.ErrChallengeConsumed
	}
	metrics.ChallengesConsumedTotal.Inc()
	return &session, nil
}

func (cs *ChallengeService) markState(ctx context.Context, sid string, state string) error {
	err := cs.store.Put(ctx, challengeStateKeyPrefix+sid, []byte(state), 2*cs.ttl)
	if err != nil {
		level.Error(global.Logger).Log("msg", "failed to store challenge state", "state", state, "error", err)
	}
	return err
}

// rejection explains why a sid has no live challenge
func (cs *ChallengeService) rejection(ctx context.Context, sid string) error {
	state, err := cs.store.Get(ctx, challengeStateKeyPrefix+sid)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			return err
		}
		// record and tombstone are gone, the sid itself still tells whether it ran out
		if expires, ok := sidExpiry(sid); ok && !cs.now().Before(expires) {
			metrics.ChallengesRejectedTotal.WithLabelValues(challengeStateExpired).Inc()
			return types.ErrChallengeExpired
		}
		metrics.ChallengesRejectedTotal.WithLabelValues("not_found").Inc()
		return types.ErrNotFound
	}
	metrics.ChallengesRejectedTotal.WithLabelValues(string(state)).Inc()
	if string(state) == challengeStateExpired {
		return types.ErrChallengeExpired
	}
	return types.ErrChallengeConsumed
}

func sidExpiry(sid string) (time.Time, bool) {
	idx := strings.LastIndex(sid, sidExpirySeparator)
	if idx < 0 {
		return time.Time{}, false
	}
	millis, err := strconv.ParseInt(sid[idx+1:], 36, 64)
	if err != nil || millis <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}
