package healing

import (
	"time"

	"self-heal-api/internal/domain/entity"
)

// Stage 流水线阶段
type Stage string

const (
	StageParse  Stage = "parse"
	StageEmbed  Stage = "embed"
	StageIndex  Stage = "index"
	StageRecall Stage = "recall"
	StageRerank Stage = "rerank"
	StageDecide Stage = "decide"
)

// Stages 按执行顺序排列
var Stages = []Stage{StageParse, StageEmbed, StageIndex, StageRecall, StageRerank, StageDecide}

// EventKind 事件类型
type EventKind string

const (
	EventStageStarted   EventKind = "stage_started"
	EventStageCompleted EventKind = "stage_completed"
	EventResult         EventKind = "result"
	EventError          EventKind = "error"
)

// Event 流式进度事件。Result 事件总是最后一个；出错时以一个 Error 事件结束。
type Event struct {
	Kind  EventKind
	Stage Stage
	Step  int
	Total int

	Nodes      int
	Candidates int
	Index      *IndexReport
	Route      *entity.RouteDecision

	// Elapsed 阶段事件为该阶段耗时，Result/Error 事件为总耗时
	Elapsed time.Duration
	Result  *entity.HealResponse
	Err     error
}

// stepOf 返回阶段序号（从 1 开始）
func stepOf(s Stage) int {
	for i, st := range Stages {
		if st == s {
			return i + 1
		}
	}
	return 0
}
