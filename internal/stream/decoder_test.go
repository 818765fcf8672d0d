package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameDecoderSingleFrame(t *testing.T) {
	d := NewFrameDecoder()

	frames := d.Feed([]byte("data: {\"type\":\"connection\"}\n\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, Frame(`data: {"type":"connection"}`), frames[0])

	// 规范的流以分隔符结尾，没有残留
	_, ok := d.Flush()
	assert.False(t, ok)
}

func TestFrameDecoderMultipleFramesInOneChunk(t *testing.T) {
	d := NewFrameDecoder()

	frames := d.Feed([]byte("aaa\n\nbbb\n\nccc\n\n"))
	require.Len(t, frames, 3)
	assert.Equal(t, Frame("aaa"), frames[0])
	assert.Equal(t, Frame("bbb"), frames[1])
	assert.Equal(t, Frame("ccc"), frames[2])
}

func TestFrameDecoderSplitAcrossChunks(t *testing.T) {
	d := NewFrameDecoder()

	// 帧被任意切分成多个块
	assert.Empty(t, d.Feed([]byte("data: {\"ty")))
	assert.Empty(t, d.Feed([]byte("pe\":\"progre")))
	frames := d.Feed([]byte("ss\"}\n\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, Frame(`data: {"type":"progress"}`), frames[0])
}

func TestFrameDecoderSplitInsideSeparator(t *testing.T) {
	d := NewFrameDecoder()

	// 块边界恰好落在"\n\n"中间
	assert.Empty(t, d.Feed([]byte("first\n")))
	frames := d.Feed([]byte("\nsecond\n\n"))
	require.Len(t, frames, 2)
	assert.Equal(t, Frame("first"), frames[0])
	assert.Equal(t, Frame("second"), frames[1])
}

func TestFrameDecoderSplitInsideMultibyteRune(t *testing.T) {
	d := NewFrameDecoder()

	payload := []byte("data: {\"message\":\"简历解析中\"}\n\n")
	// 在多字节UTF-8字符内部切分，重组后必须逐字节还原
	// 字节18起是三字节的"简"，19落在它中间
	mid := 19
	assert.Empty(t, d.Feed(payload[:mid]))
	frames := d.Feed(payload[mid:])
	require.Len(t, frames, 1)
	assert.Equal(t, Frame(`data: {"message":"简历解析中"}`), frames[0])
}

func TestFrameDecoderFlushTrailingFragment(t *testing.T) {
	d := NewFrameDecoder()

	frames := d.Feed([]byte("complete\n\ntrailing"))
	require.Len(t, frames, 1)

	frame, ok := d.Flush()
	require.True(t, ok)
	assert.Equal(t, Frame("trailing"), frame)

	// Flush清空缓冲，再次调用无残留
	_, ok = d.Flush()
	assert.False(t, ok)
}

func TestFrameDecoderEmptyChunk(t *testing.T) {
	d := NewFrameDecoder()

	assert.Empty(t, d.Feed(nil))
	assert.Empty(t, d.Feed([]byte{}))

	_, ok := d.Flush()
	assert.False(t, ok)
}

func TestFrameDecoderEmptyFrames(t *testing.T) {
	d := NewFrameDecoder()

	// 连续的分隔符产生空帧，由解析层丢弃而非解码层
	frames := d.Feed([]byte("\n\n\n\n"))
	require.Len(t, frames, 2)
	assert.Equal(t, Frame(""), frames[0])
	assert.Equal(t, Frame(""), frames[1])
}

func TestFrameDecoderReset(t *testing.T) {
	d := NewFrameDecoder()

	d.Feed([]byte("partial frame without separator"))
	d.Reset()

	_, ok := d.Flush()
	assert.False(t, ok)

	// Reset后解码器可以继续使用
	frames := d.Feed([]byte("fresh\n\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, Frame("fresh"), frames[0])
}

func TestFrameDecoderByteAtATime(t *testing.T) {
	d := NewFrameDecoder()

	input := []byte("data: {\"type\":\"connection\"}\n\ndata: [DONE]\n\n")
	var frames []Frame
	for i := range input {
		frames = append(frames, d.Feed(input[i:i+1])...)
	}
	require.Len(t, frames, 2)
	assert.Equal(t, Frame(`data: {"type":"connection"}`), frames[0])
	assert.Equal(t, Frame("data: [DONE]"), frames[1])
}
