package match

import (
	"context"
	"sort"
	"strconv"

	"github.com/markaspot/dedup/internal/db"
)

// memStore is an in-memory stand-in for the db facade subset this repo uses.
type memStore struct {
	hashes   map[string]map[string]string
	kv       map[string][]byte
	counters map[string]int64
	zsets    map[string]map[string]float64
}

func newMemStore() *memStore {
	return &memStore{
		hashes:   make(map[string]map[string]string),
		kv:       make(map[string][]byte),
		counters: make(map[string]int64),
		zsets:    make(map[string]map[string]float64),
	}
}

func (m *memStore) HSet(_ context.Context, key string, fields map[string]string) error {
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		h, _ := m.HGetAll(ctx, k)
		out[i] = h
	}
	return out, nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	delete(m.hashes, key)
	delete(m.kv, key)
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetNX(_ context.Context, key string, value []byte) (bool, error) {
	if _, ok := m.kv[key]; ok {
		return false, nil
	}
	m.kv[key] = value
	return true, nil
}

func (m *memStore) Incr(_ context.Context, key string) (int64, error) {
	m.counters[key]++
	return m.counters[key], nil
}

func (m *memStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	z, ok := m.zsets[key]
	if !ok {
		z = make(map[string]float64)
		m.zsets[key] = z
	}
	z[member] = score
	return nil
}

func (m *memStore) ZRem(_ context.Context, key string, members ...string) error {
	for _, member := range members {
		delete(m.zsets[key], member)
	}
	return nil
}

func (m *memStore) ZCard(_ context.Context, key string) (int64, error) {
	return int64(len(m.zsets[key])), nil
}

func (m *memStore) membersDesc(key string) []string {
	z := m.zsets[key]
	members := make([]string, 0, len(z))
	for member := range z {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		si, sj := z[members[i]], z[members[j]]
		if si != sj {
			return si > sj
		}
		return members[i] > members[j]
	})
	return members
}

func (m *memStore) ZRevRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	members := m.membersDesc(key)
	if start >= int64(len(members)) {
		return nil, nil
	}
	if stop < 0 || stop >= int64(len(members)) {
		stop = int64(len(members)) - 1
	}
	return members[start : stop+1], nil
}

func (m *memStore) ZRevRangeByScore(
	_ context.Context, key, maxStr, minStr string, offset, count int64,
) ([]string, error) {
	z := m.zsets[key]
	min := parseScore(minStr, -1)
	max := parseScore(maxStr, 1)

	var members []string
	for _, member := range m.membersDesc(key) {
		if z[member] >= min && z[member] <= max {
			members = append(members, member)
		}
	}
	if offset >= int64(len(members)) {
		return nil, nil
	}
	members = members[offset:]
	if count >= 0 && count < int64(len(members)) {
		members = members[:count]
	}
	return members, nil
}

func parseScore(s string, inf float64) float64 {
	switch s {
	case "+inf":
		return 1e308
	case "-inf":
		return -1e308
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return inf * 1e308
	}
	return f
}
