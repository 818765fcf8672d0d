package stream

import "bytes"

// 帧分隔符: SSE记录以空行结束
var frameSeparator = []byte("\n\n")

// Frame 一个完整的逻辑帧(JSON解析前的文本记录)
type Frame string

// FrameDecoder 增量帧解码器
// 从任意切分的字节块流中重组完整帧，块边界与帧边界无对齐保证。
// 内部以原始字节保存未完成的尾部数据: 分隔符是纯ASCII("\n\n")，
// 按字节切分不会落在多字节UTF-8字符内部，因此跨块的多字节字符天然安全。
// 非并发安全，一个解码器只属于一个会话。
type FrameDecoder struct {
	pending []byte
}

// NewFrameDecoder 创建帧解码器
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// Feed 追加一个字节块，返回其中已完整的帧(按到达顺序)
// 最后一个不完整的片段保留到下一次Feed，任何字节都不会丢失或重复
func (d *FrameDecoder) Feed(chunk []byte) []Frame {
	if len(chunk) == 0 {
		return nil
	}
	d.pending = append(d.pending, chunk...)

	var frames []Frame
	for {
		idx := bytes.Index(d.pending, frameSeparator)
		if idx < 0 {
			break
		}
		frames = append(frames, Frame(d.pending[:idx]))
		d.pending = d.pending[idx+len(frameSeparator):]
	}
	return frames
}

// Flush 在流结束时取出残留的尾帧
// 规范的流以"\n\n"结尾，此时残留为空，返回false
func (d *FrameDecoder) Flush() (Frame, bool) {
	if len(d.pending) == 0 {
		return "", false
	}
	frame := Frame(d.pending)
	d.pending = nil
	return frame, true
}

// Reset 丢弃缓冲中的全部字节，会话取消时调用
func (d *FrameDecoder) Reset() {
	d.pending = nil
}
