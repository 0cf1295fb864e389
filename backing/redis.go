package backing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/thoas/go-funk"
)

// GlobalNamespace prefixes every key this package writes to Redis.
const GlobalNamespace = "notekv"

// scanCount is the COUNT hint passed to SCAN.
const scanCount = 100

// Redis stores data in a Redis server.
type Redis struct {
	client    *redis.Client
	namespace string
	context   context.Context
}

// RedisArgs are the arguments for creating a new Redis backing.
type RedisArgs struct {
	Client    *redis.Client   // Optional. The Redis client to use. If not provided, one is created for Addr.
	Addr      string          // Optional. The Redis address used when Client is not provided. Defaults to localhost:6379.
	Namespace string          // Optional. The namespace prefixed to all keys when stored in Redis.
	Context   context.Context // Optional. The context to use for Redis operations. If not provided, defaults to context.Background().
}

// NewRedis creates a new backing which stores data in Redis.
func NewRedis(args RedisArgs) *Redis {
	if args.Context == nil {
		args.Context = context.Background()
	}
	if args.Client == nil {
		if args.Addr == "" {
			args.Addr = "localhost:6379"
		}
		args.Client = redis.NewClient(&redis.Options{Addr: args.Addr})
	}
	return &Redis{
		client:    args.Client,
		namespace: args.Namespace,
		context:   args.Context,
	}
}

// Client returns the underlying Redis client.
func (r *Redis) Client() *redis.Client {
	return r.client
}

// nsKey prefixes the given key with the global and store namespaces.
func (r *Redis) nsKey(key Key) string {
	return fmt.Sprintf("%s:%s:%s", GlobalNamespace, r.namespace, key)
}

// List lists all keys in the store with the given prefix. SCAN walks the whole keyspace, so use with caution.
func (r *Redis) List(prefix string) ([]Key, error) {
	raw := []string{}
	iter := r.client.Scan(r.context, 0, escapeGlob(r.nsKey(prefix))+"*", scanCount).Iterator()
	for iter.Next(r.context) {
		raw = append(raw, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return scannedKeys(raw, r.nsKey("")), nil
}

// scannedKeys strips the namespace from SCAN results and drops the repeats SCAN may return while
// the keyspace is rehashing.
func scannedKeys(raw []string, strip string) []Key {
	keys := make([]Key, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, strings.TrimPrefix(k, strip))
	}
	return funk.UniqString(keys)
}

// Get returns the value for the given key and whether the key exists.
func (r *Redis) Get(key Key) (string, bool, error) {
	val, err := r.client.Get(r.context, r.nsKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set sets the value for the given key.
func (r *Redis) Set(key Key, value string) error {
	return r.client.Set(r.context, r.nsKey(key), value, 0).Err()
}

// Del deletes the key-value pair for the given key.
func (r *Redis) Del(key Key) error {
	return r.client.Del(r.context, r.nsKey(key)).Err()
}

// escapeGlob escapes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
