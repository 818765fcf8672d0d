package tracing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("A"))
	assert.Equal(t, "张*", MaskPII("张三"))
	assert.Equal(t, "李**四", MaskPII("李某某四"))
	// 长值保留首尾各2个字符
	assert.Equal(t, "13*******78", MaskPII("13812345678"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))

	truncated := TruncateString("abcdefghijklmnopqrstuvwxyz", 11)
	assert.Equal(t, "abcd...wxyz", truncated)
	assert.LessOrEqual(t, len([]rune(truncated)), 11)

	// 多字节字符按rune截断，不会切断UTF-8序列
	cn := TruncateString("这是一段很长的中文简历内容需要被截断处理", 9)
	assert.Contains(t, cn, "...")
	assert.LessOrEqual(t, len([]rune(cn)), 9)
}

func TestSafeAttributeValue(t *testing.T) {
	// 敏感字段名触发掩码
	assert.Equal(t, "13*******78", SafeAttributeValue("candidate.phone", "13812345678", 200))
	assert.Equal(t, "张*", SafeAttributeValue("姓名", "张三", 200))

	// 非敏感字段仅做截断
	assert.Equal(t, "hello", SafeAttributeValue("db.operation", "hello", 200))
	assert.Contains(t, SafeAttributeValue("db.statement", string(make([]byte, 600)), 10), "...")
}

func TestSafeRedisKey(t *testing.T) {
	key := "app:resume:progress:0190a8b2-1234-7abc-9def-0123456789ab"
	assert.Equal(t, key, SafeRedisKey(key))
}
