package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketAllowConsumesCapacity(t *testing.T) {
	// 60 QPM = 每秒1个令牌，容量2，初始满桶
	tb := NewTokenBucket(60, 2)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	// 桶空后立即拒绝
	assert.False(t, tb.Allow())
}

func TestTokenBucketRefills(t *testing.T) {
	// 600 QPM = 每秒10个令牌
	tb := NewTokenBucket(600, 1)

	require.True(t, tb.Allow())
	require.False(t, tb.Allow())

	time.Sleep(150 * time.Millisecond)
	assert.True(t, tb.Allow())
}

func TestTokenBucketDefaultCapacity(t *testing.T) {
	// 容量缺省为QPM的一半
	tb := NewTokenBucket(10, 0)
	for i := 0; i < 5; i++ {
		assert.True(t, tb.Allow(), "第%d个请求", i+1)
	}
	assert.False(t, tb.Allow())

	// QPM过小时容量至少为1
	tb = NewTokenBucket(1, 0)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucketWaitCancellation(t *testing.T) {
	// 极低速率，令牌耗尽后Wait只能靠取消返回
	tb := NewTokenBucket(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
