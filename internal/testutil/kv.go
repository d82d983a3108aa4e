package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	rediskv "github.com/dtroode/fintrack-server/internal/kv/redis"
)

// MakeKV starts an in-memory redis server for the duration of the test and
// returns a key-value client connected to it.
func MakeKV(t *testing.T) (*rediskv.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	client := rediskv.NewClientWithRedis(rdb)
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}
