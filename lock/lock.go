// Package lock guards entries across processes with Redis-backed mutexes.
package lock

import (
	"context"
	"fmt"
	"sort"
	"time"

	goredislib "github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
)

// Defaults for Args values, if unset.
const (
	DefaultExpiry = 8 * time.Second
	DefaultTries  = 32
)

// Redsync locks entry names with one redsync mutex per name.
type Redsync struct {
	rs        *redsync.Redsync
	namespace string
	expiry    time.Duration
	tries     int
	context   context.Context
}

// Args are the arguments for a new Redsync locker.
type Args struct {
	Client    *goredislib.Client // Required. The Redis client holding the mutexes.
	Namespace string             // Optional. Separates the mutexes of different stores sharing a server.
	Expiry    time.Duration      // Optional. How long a mutex is held before Redis expires it.
	Tries     int                // Optional. How many times to try acquiring each mutex before giving up.
	Context   context.Context    // Optional. The context for Redis calls. Defaults to context.Background().
}

// New builds a Redsync locker.
func New(args Args) *Redsync {
	if args.Expiry == 0 {
		args.Expiry = DefaultExpiry
	}
	if args.Tries == 0 {
		args.Tries = DefaultTries
	}
	if args.Context == nil {
		args.Context = context.Background()
	}
	return &Redsync{
		rs:        redsync.New(goredis.NewPool(args.Client)),
		namespace: args.Namespace,
		expiry:    args.Expiry,
		tries:     args.Tries,
		context:   args.Context,
	}
}

func (r *Redsync) mutexName(name string) string {
	return fmt.Sprintf("notekv-lock:%s:%s", r.namespace, name)
}

// Lock acquires a mutex for every name, in sorted order. On failure the mutexes already held are
// unlocked.
func (r *Redsync) Lock(names ...string) (func(), error) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	held := []*redsync.Mutex{}
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			// an expired mutex fails to unlock; there is nothing left to release then
			_, _ = held[i].UnlockContext(r.context)
		}
	}
	for i, name := range sorted {
		if i > 0 && sorted[i-1] == name {
			continue
		}
		mutex := r.rs.NewMutex(r.mutexName(name), redsync.WithExpiry(r.expiry), redsync.WithTries(r.tries))
		if err := mutex.LockContext(r.context); err != nil {
			release()
			return nil, fmt.Errorf("lock %s: %w", name, err)
		}
		held = append(held, mutex)
	}
	return release, nil
}
