package configuration

import (
	"fmt"
	"time"
)

type Configuration struct {
	Backing   string `usage:"key-value backing: memory | s3 | redis"`
	Namespace string `usage:"namespace prefixed to every stored key"`

	S3Bucket   string `usage:"S3 bucket name"`
	S3Endpoint string `usage:"custom S3 endpoint, for S3-compatible servers"`
	RedisAddr  string `usage:"Redis address, used by the redis backing and redis locking"`

	Locking     string `usage:"write guard: none | local | redis"`
	LockTimeout string `usage:"how long to wait for an entry lock, e.g. 5s"`

	SessionTimeout       string `usage:"how long a login lasts, e.g. 15m"`
	AdminUser            string `usage:"admin username"`
	AdminPassword        string `usage:"admin password"`
	NormalUser           string `usage:"normal username"`
	NormalPassword       string `usage:"normal password"`
	NormalCompressedOnly bool   `usage:"normal users may only read compressed files"`

	Version    bool `usage:"show version and exit"`
	ShowConfig bool `usage:"print config"`
}

func Default() Configuration {
	return Configuration{
		Backing:        "memory",
		Namespace:      "default",
		RedisAddr:      "localhost:6379",
		Locking:        "none",
		LockTimeout:    "5s",
		SessionTimeout: "15m",
		AdminUser:      "admin",
		AdminPassword:  "admin123",
		NormalUser:     "normal",
		NormalPassword: "user123",
	}
}

// Durations parses LockTimeout and SessionTimeout.
func (c Configuration) Durations() (lockTimeout, sessionTimeout time.Duration, err error) {
	lockTimeout, err = time.ParseDuration(c.LockTimeout)
	if err != nil {
		return 0, 0, fmt.Errorf("lock timeout: %w", err)
	}
	sessionTimeout, err = time.ParseDuration(c.SessionTimeout)
	if err != nil {
		return 0, 0, fmt.Errorf("session timeout: %w", err)
	}
	return lockTimeout, sessionTimeout, nil
}
