package cache

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/JayStevency/livekit-msa-server/backend/internal/kvstore"
)

// Cache：cache-aside 层。缓存内容永远是可丢弃的——
// 缓存缺失只影响性能，不影响正确性。
type Cache struct {
	kv kvstore.Store
	sf singleflight.Group
}

func New(kv kvstore.Store) *Cache {
	return &Cache{kv: kv}
}

func buildKey(key, prefix string) string {
	if prefix == "" {
		prefix = CachePrefix
	}
	return prefix + key
}

// ==================== 通用操作 ====================

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration, prefix string) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return c.kv.SetJSON(ctx, buildKey(key, prefix), value, ttl)
}

// Get：命中返回 true 并填充 dest。脏数据（解析失败）视为未命中。
func (c *Cache) Get(ctx context.Context, key string, dest any, prefix string) (bool, error) {
	return c.kv.GetJSON(ctx, buildKey(key, prefix), dest)
}

// Del：返回是否真的删掉了一个键
func (c *Cache) Del(ctx context.Context, key string, prefix string) (bool, error) {
	n, err := c.kv.Del(ctx, buildKey(key, prefix))
	return n > 0, err
}

func (c *Cache) Exists(ctx context.Context, key string, prefix string) (bool, error) {
	return c.kv.Exists(ctx, buildKey(key, prefix))
}

// GetOrSet：cache-aside。命中直接返回；未命中调用 factory 取数，
// 写入缓存后返回。factory 出错时什么都不缓存，错误原样上抛。
// singleflight 保证同进程并发请求同一个 key 时 factory 只执行一次
// （社交服务防缓存击穿的同一招）。
func (c *Cache) GetOrSet(ctx context.Context, key string, dest any, ttl time.Duration, prefix string, factory func(ctx context.Context) (any, error)) error {
	cacheKey := buildKey(key, prefix)

	v, err, _ := c.sf.Do(cacheKey, func() (any, error) {
		raw, ok, err := c.kv.Get(ctx, cacheKey)
		if err != nil {
			return nil, err
		}
		if ok {
			return []byte(raw), nil
		}

		value, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if ttl <= 0 {
			ttl = DefaultTTL
		}
		if err := c.kv.Set(ctx, cacheKey, string(b), ttl); err != nil {
			return nil, err
		}
		return b, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), dest)
}

// ==================== Room 缓存 ====================

func (c *Cache) CacheRoom(ctx context.Context, roomName string, room any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return c.kv.SetJSON(ctx, roomKey(roomName), room, ttl)
}

func (c *Cache) GetCachedRoom(ctx context.Context, roomName string, dest any) (bool, error) {
	return c.kv.GetJSON(ctx, roomKey(roomName), dest)
}

func (c *Cache) InvalidateRoom(ctx context.Context, roomName string) error {
	_, err := c.kv.Del(ctx, roomKey(roomName))
	return err
}

// ==================== Room 列表缓存 ====================

func (c *Cache) CacheRoomList(ctx context.Context, rooms any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return c.kv.SetJSON(ctx, roomListKey, rooms, ttl)
}

func (c *Cache) GetCachedRoomList(ctx context.Context, dest any) (bool, error) {
	return c.kv.GetJSON(ctx, roomListKey, dest)
}

func (c *Cache) InvalidateRoomList(ctx context.Context) error {
	_, err := c.kv.Del(ctx, roomListKey)
	return err
}

// ==================== Token 缓存 ====================

func (c *Cache) CacheToken(ctx context.Context, roomName, identity, token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return c.kv.Set(ctx, tokenKey(roomName, identity), token, ttl)
}

func (c *Cache) GetCachedToken(ctx context.Context, roomName, identity string) (string, bool, error) {
	return c.kv.Get(ctx, tokenKey(roomName, identity))
}

func (c *Cache) InvalidateToken(ctx context.Context, roomName, identity string) error {
	_, err := c.kv.Del(ctx, tokenKey(roomName, identity))
	return err
}

// InvalidateRoomTokens：扫描 cache:token:{room}:* 逐个删除。
// 扫描期间新建的 token 可能漏删（弱一致性模型下可接受的已知竞态）。
func (c *Cache) InvalidateRoomTokens(ctx context.Context, roomName string) (int, error) {
	keys, err := c.kv.Keys(ctx, TokenPrefix+roomName+":*")
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, key := range keys {
		n, err := c.kv.Del(ctx, key)
		if err != nil {
			return deleted, err
		}
		if n > 0 {
			deleted++
		}
	}
	return deleted, nil
}

// InvalidateByPattern：按模式批量失效（cache: 前缀下），返回删除数
func (c *Cache) InvalidateByPattern(ctx context.Context, pattern string) (int, error) {
	keys, err := c.kv.Keys(ctx, CachePrefix+pattern)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, key := range keys {
		n, err := c.kv.Del(ctx, key)
		if err != nil {
			return deleted, err
		}
		if n > 0 {
			deleted++
		}
	}
	return deleted, nil
}
