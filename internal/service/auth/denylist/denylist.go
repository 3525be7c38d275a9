// Denylist of logged out access tokens.
//
// Access tokens are stateless, so logout can not delete them: instead the
// token hash is kept in Redis until the token would expire on its own and
// current user resolution consults the list on every request.
package denylist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "denylist:access"

type Denylist struct {
	client redis.UniversalClient
	prefix string
}

func New(client redis.UniversalClient) *Denylist {
	return &Denylist{
		client: client,
		prefix: defaultKeyPrefix,
	}
}

// Deny token until it expires naturally
// Already expired tokens need no entry: verification rejects them anyway
func (d *Denylist) Deny(ctx context.Context, access string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	err := d.client.Set(ctx, d.key(access), 1, ttl).Err()
	if err != nil {
		return fmt.Errorf("denylist set error: %w", err)
	}

	return nil
}

func (d *Denylist) IsDenied(ctx context.Context, access string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(access)).Result()
	if err != nil {
		return false, fmt.Errorf("denylist check error: %w", err)
	}

	return n > 0, nil
}

func (d *Denylist) key(access string) string {
	sum := sha256.Sum256([]byte(access))
	return d.prefix + ":" + hex.EncodeToString(sum[:])
}
