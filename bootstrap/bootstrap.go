package bootstrap

import (
	"fmt"
	"io"
	"log"
	"time"

	goredislib "github.com/go-redis/redis/v8"

	"github.com/mplewis/notekv"
	"github.com/mplewis/notekv/access"
	"github.com/mplewis/notekv/backing"
	"github.com/mplewis/notekv/configuration"
	"github.com/mplewis/notekv/lock"
	"github.com/mplewis/notekv/multilock"
	"github.com/mplewis/notekv/session"
	"github.com/mplewis/notekv/shell"
)

const prompt = "notekv> "

// Bootstrap builds a shell reading commands from in and writing to out, over the backing, locking
// and identities the configuration names.
func Bootstrap(c *configuration.Configuration, in io.Reader, out io.Writer, logger *log.Logger) (*shell.Shell, error) {
	lockTimeout, sessionTimeout, err := c.Durations()
	if err != nil {
		return nil, err
	}

	b, err := newBacking(c)
	if err != nil {
		return nil, err
	}

	locker, err := newLocker(c, b, lockTimeout)
	if err != nil {
		return nil, err
	}

	store, err := notekv.New(notekv.Args{
		Backing: b,
		Locker:  locker,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	sessions := session.New(session.Args{
		Identities: []session.Identity{
			{Username: c.AdminUser, Password: c.AdminPassword, Role: session.Admin},
			{Username: c.NormalUser, Password: c.NormalPassword, Role: session.Normal},
		},
		Timeout: sessionTimeout,
	})

	policy := access.DefaultPolicy()
	policy.NormalCompressedOnly = c.NormalCompressedOnly

	return shell.New(shell.Args{
		In:       in,
		Out:      out,
		Store:    store,
		Sessions: sessions,
		Policy:   &policy,
		Prompt:   prompt,
	})
}

func newBacking(c *configuration.Configuration) (backing.Backing, error) {
	switch c.Backing {
	case "memory":
		return backing.NewMemory(), nil
	case "s3":
		return backing.NewS3(backing.S3Args{
			Bucket:    c.S3Bucket,
			Namespace: c.Namespace,
			Endpoint:  c.S3Endpoint,
		})
	case "redis":
		return backing.NewRedis(backing.RedisArgs{
			Addr:      c.RedisAddr,
			Namespace: c.Namespace,
		}), nil
	default:
		return nil, fmt.Errorf("unknown backing %q, expected memory, s3 or redis", c.Backing)
	}
}

func newLocker(c *configuration.Configuration, b backing.Backing, timeout time.Duration) (notekv.Locker, error) {
	switch c.Locking {
	case "", "none":
		return notekv.NopLocker{}, nil
	case "local":
		return multilock.NewLocker(timeout), nil
	case "redis":
		var client *goredislib.Client
		if r, ok := b.(*backing.Redis); ok {
			client = r.Client()
		} else {
			client = goredislib.NewClient(&goredislib.Options{Addr: c.RedisAddr})
		}
		return lock.New(lock.Args{
			Client:    client,
			Namespace: c.Namespace,
			Tries:     triesWithin(timeout),
		}), nil
	default:
		return nil, fmt.Errorf("unknown locking %q, expected none, local or redis", c.Locking)
	}
}

// triesWithin converts a lock timeout into redsync tries, which back off about 150ms on average.
func triesWithin(timeout time.Duration) int {
	tries := int(timeout / (150 * time.Millisecond))
	if tries < 1 {
		return 1
	}
	return tries
}
