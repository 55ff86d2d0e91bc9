package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupWindow 重复提交去重窗口
const DedupWindow = 2 * time.Minute

// DedupCache 申请单幂等创建缓存
// 同发起人+同BOQ+同汇总金额在窗口期内视为重复提交，返回既有记录
// redis未配置时退化为纯数据库窗口查询（见ChangeRequestService.Create）
type DedupCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDedupCache(rdb *redis.Client) *DedupCache {
	return &DedupCache{rdb: rdb, ttl: DedupWindow}
}

// DedupKey 幂等键：sha256(requester|boq|total)
func DedupKey(requesterID, boqID string, totalCost float64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%.2f", requesterID, boqID, totalCost)))
	return "procure:cr:dedup:" + hex.EncodeToString(sum[:])
}

// Lookup 查询幂等键对应的既有申请单ID
// 缓存故障按未命中处理，不阻塞主流程
func (c *DedupCache) Lookup(ctx context.Context, key string) (string, bool) {
	if c == nil || c.rdb == nil {
		return "", false
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[PROCURE] 去重缓存查询失败: %v", err)
		}
		return "", false
	}
	return val, true
}

// Store 记录幂等键（SET NX，窗口期过期）
func (c *DedupCache) Store(ctx context.Context, key, crID string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.SetNX(ctx, key, crID, c.ttl).Err(); err != nil {
		log.Printf("[PROCURE] 去重缓存写入失败: %v", err)
	}
}
