package partition

import (
	"fmt"
	"sort"

	"github.com/spaolacci/murmur3"
	"github.com/txnguard/txnguard/pkg/types"
)

// Router groups transactions into user streams and assigns streams to shards.
type Router struct {
	shards int
}

// NewRouter creates a router spreading users over the given number of shards.
func NewRouter(shards int) (*Router, error) {
	if shards <= 0 {
		return nil, fmt.Errorf("routing: shards must be > 0, got %d", shards)
	}
	return &Router{shards: shards}, nil
}

// Shards returns the configured shard count.
func (r *Router) Shards() int {
	return r.shards
}

// RouteRows groups txns by user. Streams are returned in order of each
// user's first appearance in txns, each sorted by (Timestamp, Ordinal).
func (r *Router) RouteRows(txns []types.Transaction) []*UserStream {
	index := make(map[string]int)
	var streams []*UserStream
	for i := range txns {
		tx := &txns[i]
		pos, ok := index[tx.UserID]
		if !ok {
			pos = len(streams)
			index[tx.UserID] = pos
			streams = append(streams, &UserStream{UserID: tx.UserID})
		}
		streams[pos].Txns = append(streams[pos].Txns, tx)
	}

	for _, s := range streams {
		sortChronological(s.Txns)
	}
	return streams
}

// ShardOf returns the shard a user's stream is processed on.
func (r *Router) ShardOf(userID string) int {
	return routeByHash(userID, r.shards)
}

// Shard splits streams into r.Shards() groups by user hash. A user always
// lands on the same shard for a given shard count.
func (r *Router) Shard(streams []*UserStream) [][]*UserStream {
	out := make([][]*UserStream, r.shards)
	for _, s := range streams {
		i := r.ShardOf(s.UserID)
		out[i] = append(out[i], s)
	}
	return out
}

// sortChronological orders by timestamp, then by input ordinal, so that
// same-instant transactions keep their ingested order.
func sortChronological(txns []*types.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		a, b := txns[i], txns[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Ordinal < b.Ordinal
	})
}

// routeByHash computes a shard index using murmur3 on the user ID.
func routeByHash(userID string, modulo int) int {
	if modulo == 1 {
		return 0
	}
	return int(murmur3.Sum32([]byte(userID)) % uint32(modulo))
}
