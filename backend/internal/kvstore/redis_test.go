package kvstore

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// 冒烟测试：需要本地 redis。未启动则跳过。
func TestRedisStoreSmoke(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("skip: redis not available: %v", err)
	}
	defer rdb.FlushAll(context.Background())

	ctx := context.Background()
	s := NewRedisStore(rdb)

	if err := s.Set(ctx, "kvstore:test:str", "hello", time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	v, ok, err := s.Get(ctx, "kvstore:test:str")
	if err != nil || !ok || v != "hello" {
		t.Fatalf("Get got %q ok=%v err=%v", v, ok, err)
	}

	if _, ok, _ := s.Get(ctx, "kvstore:test:absent"); ok {
		t.Fatalf("expected miss for absent key")
	}

	type obj struct {
		Name string `json:"name"`
	}
	if err := s.SetJSON(ctx, "kvstore:test:json", obj{Name: "r1"}, time.Minute); err != nil {
		t.Fatalf("SetJSON error: %v", err)
	}
	var got obj
	ok, err = s.GetJSON(ctx, "kvstore:test:json", &got)
	if err != nil || !ok || got.Name != "r1" {
		t.Fatalf("GetJSON got %+v ok=%v err=%v", got, ok, err)
	}

	if _, err := s.SAdd(ctx, "kvstore:test:set", "a", "b"); err != nil {
		t.Fatalf("SAdd error: %v", err)
	}
	members, err := s.SMembers(ctx, "kvstore:test:set")
	if err != nil || len(members) != 2 {
		t.Fatalf("SMembers got %v err=%v", members, err)
	}

	n, err := s.Incr(ctx, "kvstore:test:counter")
	if err != nil || n != 1 {
		t.Fatalf("Incr got %d err=%v", n, err)
	}

	keys, err := s.Keys(ctx, "kvstore:test:*")
	if err != nil || len(keys) < 3 {
		t.Fatalf("Keys got %v err=%v", keys, err)
	}
}
