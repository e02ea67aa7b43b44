// Package report persists report snapshots mirrored in from the content store,
// indexed by creation time so the duplicate matcher can query candidates by
// window and bounding box without going back to the CMS.
package report

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/markaspot/dedup/internal/domain"
	"github.com/markaspot/dedup/internal/domain/geo"
)

// store is the consumer interface for report snapshots (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRem(ctx context.Context, key string, members ...string) error
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZRevRangeByScore(ctx context.Context, key, max, min string, offset, count int64) ([]string, error)
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// Repo implements report snapshot storage.
type Repo struct {
	store store
}

// New creates a report repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Upsert stores or replaces a snapshot and maintains the creation-time index.
func (r *Repo) Upsert(ctx context.Context, rep domain.Report) error {
	key := reportKey(rep.ID)
	if err := r.store.HSet(ctx, key, buildHashFields(rep)); err != nil {
		return fmt.Errorf("upsert report %s: %w", rep.ID, err)
	}
	if err := r.store.ZAdd(ctx, createdIndexKey(), float64(rep.CreatedAt.Unix()), rep.ID); err != nil {
		return fmt.Errorf("index report %s: %w", rep.ID, err)
	}
	return nil
}

// Get returns a snapshot by id, or domain.ErrReportNotFound.
func (r *Repo) Get(ctx context.Context, id string) (domain.Report, error) {
	m, err := r.store.HGetAll(ctx, reportKey(id))
	if err != nil {
		return domain.Report{}, fmt.Errorf("get report %s: %w", id, err)
	}
	if len(m) == 0 {
		return domain.Report{}, domain.ErrReportNotFound
	}
	return parseHashFields(id, m), nil
}

// Delete removes the snapshot, its notes, and its index entry.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, reportKey(id)); err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	if err := r.store.Del(ctx, notesKey(id)); err != nil {
		return fmt.Errorf("delete report notes %s: %w", id, err)
	}
	if err := r.store.ZRem(ctx, createdIndexKey(), id); err != nil {
		return fmt.Errorf("unindex report %s: %w", id, err)
	}
	return nil
}

// ListRecentIDs returns report ids newest-first by reverse rank, for
// backfill scans.
func (r *Repo) ListRecentIDs(ctx context.Context, offset, count int) ([]string, error) {
	ids, err := r.store.ZRevRange(ctx, createdIndexKey(), int64(offset), int64(offset+count-1))
	if err != nil {
		return nil, fmt.Errorf("list recent reports: %w", err)
	}
	return ids, nil
}

// FindCandidates returns active reports created at or after since, excluding
// the given ids, restricted to bbox when non-nil. Results come back newest
// first; the matcher re-ranks by score.
func (r *Repo) FindCandidates(
	ctx context.Context, since time.Time, exclude []string, bbox *geo.Box,
) ([]domain.Report, error) {
	ids, err := r.store.ZRevRangeByScore(
		ctx, createdIndexKey(), "+inf", strconv.FormatInt(since.Unix(), 10), 0, -1,
	)
	if err != nil {
		return nil, fmt.Errorf("candidate window scan: %w", err)
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	keys := make([]string, 0, len(ids))
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, skip := excluded[id]; skip {
			continue
		}
		keys = append(keys, reportKey(id))
		kept = append(kept, id)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	out := make([]domain.Report, 0, len(hashes))
	for i, m := range hashes {
		if len(m) == 0 {
			// index entry outlived the hash, skip
			continue
		}
		rep := parseHashFields(kept[i], m)
		if !rep.Active() {
			continue
		}
		if bbox != nil && (!rep.HasLocation() || !bbox.Contains(*rep.Location)) {
			continue
		}
		out = append(out, rep)
	}
	return out, nil
}

// SetStatus updates the snapshot's status field.
func (r *Repo) SetStatus(ctx context.Context, id, status string) error {
	exists, err := r.store.Exists(ctx, reportKey(id))
	if err != nil {
		return fmt.Errorf("check report %s: %w", id, err)
	}
	if !exists {
		return domain.ErrReportNotFound
	}
	if err := r.store.HSet(ctx, reportKey(id), map[string]string{fieldStatus: status}); err != nil {
		return fmt.Errorf("set report %s status: %w", id, err)
	}
	return nil
}

// AppendNote appends to the report's append-only note collection.
func (r *Repo) AppendNote(ctx context.Context, id, note string) error {
	exists, err := r.store.Exists(ctx, reportKey(id))
	if err != nil {
		return fmt.Errorf("check report %s: %w", id, err)
	}
	if !exists {
		return domain.ErrReportNotFound
	}
	if err := r.store.RPush(ctx, notesKey(id), note); err != nil {
		return fmt.Errorf("append note to report %s: %w", id, err)
	}
	return nil
}

// Notes returns the report's notes in append order.
func (r *Repo) Notes(ctx context.Context, id string) ([]string, error) {
	notes, err := r.store.LRange(ctx, notesKey(id), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("notes for report %s: %w", id, err)
	}
	return notes, nil
}

func reportKey(id string) string   { return domain.KeyPrefix + "report:" + id }
func notesKey(id string) string    { return domain.KeyPrefix + "report:" + id + ":notes" }
func createdIndexKey() string      { return domain.KeyPrefix + "reports:by_created" }
