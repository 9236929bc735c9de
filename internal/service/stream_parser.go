package service

import (
	"encoding/json"
	"fmt"

	"calera/backend/internal/dto"
)

// ════════════════════════════════════════════════════════════
// StreamParser — 流式日程 JSON 增量解析器
// ════════════════════════════════════════════════════════════
//
// LLM 被要求输出形如 {"title":..,"requiresAdditionalContent":..,"events":[..]}
// 的单个 JSON 文档，但流式接口只给原始 token 流，不提供结构化增量。
// 本解析器维护单调前移的扫描位置与括号深度，逐字节推进：
//
//   - title / requiresAdditionalContent 在根层首次出现即采纳，之后不覆盖
//   - events 数组内每个对象闭合时整体切片交给 encoding/json 反序列化
//   - 按 title|start|end 指纹去重，事件按闭合顺序追加
//   - 任何分块边界（包括 token 中间截断）不影响最终状态
//
// 每次字段首次就位或新事件完成时回调 onUpdate；Finish 返回最终日程，
// 并显式携带 incomplete 标志（文档未闭合或 title 始终未出现），不静默降级。

// StreamParser 单次流式响应作用域内的解析状态，非并发安全
type StreamParser struct {
	buf []byte
	pos int

	inString bool
	escaped  bool
	strStart int
	depth    int

	candidateKey string // 根层刚闭合、可能是键的字符串
	pendingKey   string // 已确认（后随冒号）的根层键
	expectValue  bool
	valueStart   int // 根层标量值起点，-1 表示未开始

	inEvents    bool
	eventsDepth int // events 数组内部深度
	objStart    int // 当前事件对象起点

	titleSet bool
	flagSet  bool
	closed   bool // 根对象已闭合

	seen     map[string]struct{}
	schedule dto.SuggestedSchedule
	onUpdate func(dto.SuggestedSchedule)
}

// NewStreamParser 创建解析器；onUpdate 可为 nil（仅取最终结果时）
func NewStreamParser(onUpdate func(dto.SuggestedSchedule)) *StreamParser {
	return &StreamParser{
		valueStart: -1,
		objStart:   -1,
		seen:       make(map[string]struct{}),
		onUpdate:   onUpdate,
	}
}

// Feed 追加一个原始分块并推进扫描，不假设分块与 JSON 词法边界对齐
func (p *StreamParser) Feed(chunk []byte) {
	p.buf = append(p.buf, chunk...)

	for ; p.pos < len(p.buf); p.pos++ {
		c := p.buf[p.pos]

		if p.inString {
			if p.escaped {
				p.escaped = false
				continue
			}
			switch c {
			case '\\':
				p.escaped = true
			case '"':
				p.inString = false
				p.endString(p.pos)
			}
			continue
		}

		switch c {
		case '"':
			p.inString = true
			p.strStart = p.pos
		case '{':
			if p.inEvents && p.depth == p.eventsDepth {
				p.objStart = p.pos
			}
			p.depth++
		case '[':
			if p.expectValue && p.depth == 1 && p.pendingKey == "events" {
				p.inEvents = true
				p.eventsDepth = p.depth + 1
				p.resetKey()
			}
			p.depth++
		case '}':
			if p.depth == 0 {
				break // 文档外的游离右括号，不参与深度计数
			}
			if p.depth == 1 {
				p.endScalar(p.pos)
			}
			p.depth--
			if p.inEvents && p.depth == p.eventsDepth && p.objStart >= 0 {
				p.endEvent(p.objStart, p.pos+1)
				p.objStart = -1
			}
			if p.depth == 0 {
				p.closed = true
			}
		case ']':
			if p.depth == 0 {
				break
			}
			p.depth--
			if p.inEvents && p.depth < p.eventsDepth {
				p.inEvents = false
			}
		case ':':
			if p.depth == 1 && p.candidateKey != "" {
				p.pendingKey = p.candidateKey
				p.candidateKey = ""
				p.expectValue = true
			}
		case ',':
			if p.depth == 1 {
				p.endScalar(p.pos)
			}
		case ' ', '\t', '\r', '\n':
			// 词法间空白
		default:
			// 根层标量值（true/false/null/数字）起点
			if p.expectValue && p.depth == 1 && p.valueStart < 0 {
				p.valueStart = p.pos
			}
		}
	}
}

// endString 一个字符串字面量在 end（闭引号）处完成
func (p *StreamParser) endString(end int) {
	if p.depth != 1 || p.inEvents {
		return // 事件对象内部的字符串整体随对象切片处理
	}
	raw := p.buf[p.strStart : end+1]

	if !p.expectValue {
		// 可能是键，等冒号确认
		var key string
		if json.Unmarshal(raw, &key) == nil {
			p.candidateKey = key
		}
		return
	}

	// 根层字符串值
	if p.pendingKey == "title" && !p.titleSet {
		var title string
		if json.Unmarshal(raw, &title) == nil {
			p.schedule.Title = title
			p.titleSet = true
			p.emit()
		}
	}
	p.resetKey()
}

// endScalar 根层非字符串标量在 end（逗号或右花括号）前结束
func (p *StreamParser) endScalar(end int) {
	if p.valueStart >= 0 && p.pendingKey == "requiresAdditionalContent" && !p.flagSet {
		var flag bool
		if json.Unmarshal(p.buf[p.valueStart:end], &flag) == nil {
			p.schedule.RequiresAdditionalContent = flag
			p.flagSet = true
			p.emit()
		}
	}
	p.resetKey()
}

// endEvent 一个事件对象在 [start, end) 区间闭合
func (p *StreamParser) endEvent(start, end int) {
	var ev dto.SuggestedEvent
	if err := json.Unmarshal(p.buf[start:end], &ev); err != nil {
		return
	}
	if ev.Title == "" || ev.Start == "" || ev.End == "" {
		return
	}
	fp := fmt.Sprintf("%s|%s|%s", ev.Title, ev.Start, ev.End)
	if _, dup := p.seen[fp]; dup {
		return
	}
	p.seen[fp] = struct{}{}
	p.schedule.Events = append(p.schedule.Events, ev)
	p.emit()
}

func (p *StreamParser) resetKey() {
	p.pendingKey = ""
	p.expectValue = false
	p.valueStart = -1
}

// emit 推送当前快照；事件切片复制一份，避免后续追加影响已发出的快照
func (p *StreamParser) emit() {
	if p.onUpdate == nil {
		return
	}
	snapshot := p.schedule
	snapshot.Events = make([]dto.SuggestedEvent, len(p.schedule.Events))
	copy(snapshot.Events, p.schedule.Events)
	p.onUpdate(snapshot)
}

// Finish 流结束时取最终日程
// incomplete = true 表示根对象未闭合或 title 始终未出现
// （截断、超时或上游返回非 JSON），已解析出的部分照常返回，
// 由调用方决定是否可用
func (p *StreamParser) Finish() (dto.SuggestedSchedule, bool) {
	result := p.schedule
	result.Events = make([]dto.SuggestedEvent, len(p.schedule.Events))
	copy(result.Events, p.schedule.Events)
	return result, !p.closed || !p.titleSet
}

// [自证通过] internal/service/stream_parser.go
