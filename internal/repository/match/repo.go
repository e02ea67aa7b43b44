// Package match persists duplicate-match records. Pair uniqueness is enforced
// at the storage layer: the canonical (source, match) pair maps to a claim key
// written with SET NX, so two concurrent scans discovering the same pair cannot
// create two records — the loser of the claim falls back to the update path.
package match

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/markaspot/dedup/internal/db"
	"github.com/markaspot/dedup/internal/domain"
)

// store is the consumer interface for match records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRem(ctx context.Context, key string, members ...string) error
	ZCard(ctx context.Context, key string) (int64, error)
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZRevRangeByScore(ctx context.Context, key, max, min string, offset, count int64) ([]string, error)
}

// Repo implements match record storage.
type Repo struct {
	store store
}

// New creates a match repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// FindByPair returns the record for a canonical pair, or domain.ErrMatchNotFound.
func (r *Repo) FindByPair(ctx context.Context, source, match string) (domain.Match, error) {
	raw, err := r.store.Get(ctx, pairKey(source, match))
	if errors.Is(err, db.ErrKeyNotFound) {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	if err != nil {
		return domain.Match{}, fmt.Errorf("lookup pair (%s,%s): %w", source, match, err)
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return domain.Match{}, fmt.Errorf("corrupt pair key (%s,%s): %w", source, match, err)
	}
	return r.Get(ctx, id)
}

// Create inserts a new record for m's pair. When the pair is already claimed
// (by an earlier scan or a concurrent one), returns the existing record and
// created=false instead of failing.
func (r *Repo) Create(ctx context.Context, m domain.Match) (domain.Match, bool, error) {
	id, err := r.store.Incr(ctx, seqKey())
	if err != nil {
		return domain.Match{}, false, fmt.Errorf("allocate match id: %w", err)
	}
	m.ID = id

	won, err := r.store.SetNX(ctx, pairKey(m.SourceID, m.MatchID), []byte(strconv.FormatInt(id, 10)))
	if err != nil {
		return domain.Match{}, false, fmt.Errorf("claim pair (%s,%s): %w", m.SourceID, m.MatchID, err)
	}
	if !won {
		existing, err := r.FindByPair(ctx, m.SourceID, m.MatchID)
		if err != nil {
			return domain.Match{}, false, fmt.Errorf("pair claimed but unreadable: %w", err)
		}
		return existing, false, nil
	}

	if err := r.writeRecord(ctx, m); err != nil {
		return domain.Match{}, false, err
	}
	return m, true, nil
}

// Get returns a record by id, or domain.ErrMatchNotFound.
func (r *Repo) Get(ctx context.Context, id int64) (domain.Match, error) {
	m, err := r.store.HGetAll(ctx, matchKey(id))
	if err != nil {
		return domain.Match{}, fmt.Errorf("get match %d: %w", id, err)
	}
	if len(m) == 0 {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	return parseHashFields(id, m), nil
}

// Reactivate moves a rejected record back to pending with a refreshed score,
// distance, and creation time, and cleared reviewer fields.
func (r *Repo) Reactivate(
	ctx context.Context, id int64, score float64, distance *float64, at time.Time,
) error {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	existing.Score = score
	existing.DistanceMeters = distance
	existing.Status = domain.MatchPending
	existing.ReviewerID = ""
	existing.ReviewedAt = time.Time{}
	existing.CreatedAt = at

	if err := r.store.ZRem(ctx, statusKey(domain.MatchRejected), memberID(id)); err != nil {
		return fmt.Errorf("unindex rejected match %d: %w", id, err)
	}
	return r.writeRecord(ctx, existing)
}

// SetReview records a reviewer decision and moves the record between status indexes.
func (r *Repo) SetReview(
	ctx context.Context, id int64, status domain.MatchStatus, reviewerID string, at time.Time,
) error {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := r.store.HSet(ctx, matchKey(id), map[string]string{
		fieldStatus:     string(status),
		fieldReviewer:   reviewerID,
		fieldReviewedAt: strconv.FormatInt(at.Unix(), 10),
	}); err != nil {
		return fmt.Errorf("review match %d: %w", id, err)
	}
	if err := r.store.ZRem(ctx, statusKey(existing.Status), memberID(id)); err != nil {
		return fmt.Errorf("unindex match %d: %w", id, err)
	}
	if err := r.store.ZAdd(ctx, statusKey(status), float64(existing.CreatedAt.Unix()), memberID(id)); err != nil {
		return fmt.Errorf("reindex match %d: %w", id, err)
	}
	return nil
}

// ListForEntity returns every record where entityID is either side, ordered by
// score descending.
func (r *Repo) ListForEntity(ctx context.Context, entityID string) ([]domain.Match, error) {
	ids, err := r.store.ZRevRange(ctx, entityKey(entityID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("matches for entity %s: %w", entityID, err)
	}
	return r.fetchAll(ctx, ids)
}

// Pending returns pending records newest first, paginated.
func (r *Repo) Pending(ctx context.Context, offset, limit int) ([]domain.Match, error) {
	ids, err := r.store.ZRevRangeByScore(
		ctx, statusKey(domain.MatchPending), "+inf", "-inf", int64(offset), int64(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("pending matches: %w", err)
	}
	return r.fetchAll(ctx, ids)
}

// Counts aggregates record counts by lifecycle state.
func (r *Repo) Counts(ctx context.Context) (domain.MatchCounts, error) {
	var counts domain.MatchCounts
	for _, s := range []struct {
		status domain.MatchStatus
		dst    *int
	}{
		{domain.MatchPending, &counts.Pending},
		{domain.MatchConfirmed, &counts.Confirmed},
		{domain.MatchRejected, &counts.Rejected},
	} {
		n, err := r.store.ZCard(ctx, statusKey(s.status))
		if err != nil {
			return domain.MatchCounts{}, fmt.Errorf("count %s matches: %w", s.status, err)
		}
		*s.dst = int(n)
	}
	counts.Total = counts.Pending + counts.Confirmed + counts.Rejected
	return counts, nil
}

// DeleteForEntity removes every record where entityID is either side.
// Returns the number of records deleted.
func (r *Repo) DeleteForEntity(ctx context.Context, entityID string) (int, error) {
	ids, err := r.store.ZRevRange(ctx, entityKey(entityID), 0, -1)
	if err != nil {
		return 0, fmt.Errorf("matches for entity %s: %w", entityID, err)
	}

	deleted := 0
	for _, rawID := range ids {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			continue
		}
		m, err := r.Get(ctx, id)
		if errors.Is(err, domain.ErrMatchNotFound) {
			continue
		}
		if err != nil {
			return deleted, err
		}

		if err := r.store.Del(ctx, matchKey(id)); err != nil {
			return deleted, fmt.Errorf("delete match %d: %w", id, err)
		}
		if err := r.store.Del(ctx, pairKey(m.SourceID, m.MatchID)); err != nil {
			return deleted, fmt.Errorf("delete pair key for match %d: %w", id, err)
		}
		if err := r.store.ZRem(ctx, statusKey(m.Status), rawID); err != nil {
			return deleted, fmt.Errorf("unindex match %d: %w", id, err)
		}
		if err := r.store.ZRem(ctx, entityKey(m.Other(entityID)), rawID); err != nil {
			return deleted, fmt.Errorf("unindex match %d for other side: %w", id, err)
		}
		deleted++
	}

	if err := r.store.Del(ctx, entityKey(entityID)); err != nil {
		return deleted, fmt.Errorf("drop entity index %s: %w", entityID, err)
	}
	return deleted, nil
}

func (r *Repo) writeRecord(ctx context.Context, m domain.Match) error {
	if err := r.store.HSet(ctx, matchKey(m.ID), buildHashFields(m)); err != nil {
		return fmt.Errorf("write match %d: %w", m.ID, err)
	}
	if err := r.store.ZAdd(ctx, statusKey(m.Status), float64(m.CreatedAt.Unix()), memberID(m.ID)); err != nil {
		return fmt.Errorf("index match %d by status: %w", m.ID, err)
	}
	for _, side := range []string{m.SourceID, m.MatchID} {
		if err := r.store.ZAdd(ctx, entityKey(side), m.Score, memberID(m.ID)); err != nil {
			return fmt.Errorf("index match %d for entity %s: %w", m.ID, side, err)
		}
	}
	return nil
}

func (r *Repo) fetchAll(ctx context.Context, ids []string) ([]domain.Match, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	numeric := make([]int64, len(ids))
	for i, rawID := range ids {
		id, _ := strconv.ParseInt(rawID, 10, 64)
		numeric[i] = id
		keys[i] = matchKey(id)
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch matches: %w", err)
	}

	out := make([]domain.Match, 0, len(hashes))
	for i, m := range hashes {
		if len(m) == 0 {
			// index entry outlived the hash, skip
			continue
		}
		out = append(out, parseHashFields(numeric[i], m))
	}
	return out, nil
}

func memberID(id int64) string { return strconv.FormatInt(id, 10) }

func seqKey() string             { return domain.KeyPrefix + "match:seq" }
func matchKey(id int64) string   { return domain.KeyPrefix + "match:" + memberID(id) }
func entityKey(id string) string { return domain.KeyPrefix + "matches:entity:" + id }

func statusKey(s domain.MatchStatus) string {
	return domain.KeyPrefix + "matches:" + string(s)
}

func pairKey(source, match string) string {
	return domain.KeyPrefix + "match:pair:" + source + ":" + match
}
