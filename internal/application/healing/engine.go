// Package healing 实现定位自愈决策流水线：
// Parse → Route/Embed → Index → Recall → Rerank/Fusion → LLM Arbiter
package healing

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"self-heal-api/internal/application/parsing"
	"self-heal-api/internal/domain/entity"
	apperrors "self-heal-api/pkg/errors"
	"self-heal-api/pkg/logger"
	"self-heal-api/pkg/metrics"
	"self-heal-api/pkg/tracer"
)

const reasonNoElements = "no elements parsed from page dump"

// Config 流水线参数
type Config struct {
	RecallK           int
	TopK              int
	InsertConcurrency int
	RouterSampleSize  int
	Router            LLMOptions
	Arbiter           LLMOptions
}

// Deps 外部依赖，全部为跨请求共享的长生命周期客户端
type Deps struct {
	Embedder Embedder
	Reranker Reranker
	Store    VectorStore
	LLM      ChatModelFactory

	// RouteCache 可为 nil
	RouteCache RouteCache
}

// Engine 无请求级状态，可被并发调用
type Engine struct {
	router   *Router
	indexer  *Indexer
	recaller *Recaller
	fuser    *Fuser
	arbiter  *Arbiter
}

func NewEngine(deps Deps, cfg Config) *Engine {
	return &Engine{
		router:   NewRouter(deps.LLM, cfg.Router, cfg.RouterSampleSize).WithCache(deps.RouteCache),
		indexer:  NewIndexer(deps.Embedder, deps.Store, cfg.InsertConcurrency),
		recaller: NewRecaller(deps.Embedder, deps.Store, cfg.RecallK),
		fuser:    NewFuser(deps.Reranker, cfg.TopK),
		arbiter:  NewArbiter(deps.LLM, cfg.Arbiter),
	}
}

// Heal 同步执行完整流水线
func (e *Engine) Heal(ctx context.Context, req *entity.HealRequest) (*entity.HealResponse, error) {
	return e.run(ctx, req, func(Event) bool { return true })
}

// HealStream 在独立 goroutine 中执行流水线并按阶段顺序发送事件，结束后关闭 channel。
// ctx 取消后流水线在下一个阶段边界停止，未被读取的事件被丢弃。
func (e *Engine) HealStream(ctx context.Context, req *entity.HealRequest) <-chan Event {
	ch := make(chan Event, 1)
	go func() {
		defer close(ch)

		start := time.Now()
		emit := func(ev Event) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		resp, err := e.run(ctx, req, emit)
		if err != nil {
			emit(Event{Kind: EventError, Total: len(Stages), Err: err, Elapsed: time.Since(start)})
			return
		}
		emit(Event{Kind: EventResult, Total: len(Stages), Result: resp, Elapsed: time.Since(start)})
	}()
	return ch
}

// pipeline 单次请求的执行状态
type pipeline struct {
	ctx  context.Context
	emit func(Event) bool
}

// stage 执行一个阶段：发送开始事件、计时、打点、发送完成事件
func (p *pipeline) stage(s Stage, fn func(ctx context.Context, ev *Event) error) error {
	if err := p.ctx.Err(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCanceled, "request canceled")
	}

	ev := Event{Stage: s, Step: stepOf(s), Total: len(Stages)}
	started := ev
	started.Kind = EventStageStarted
	if !p.emit(started) {
		return apperrors.Wrap(p.ctx.Err(), apperrors.CodeCanceled, "request canceled")
	}

	ctx, span := tracer.Start(p.ctx, "heal."+string(s))
	defer span.End()

	begin := time.Now()
	err := fn(ctx, &ev)
	ev.Elapsed = time.Since(begin)
	metrics.HealStageDuration.WithLabelValues(string(s)).Observe(ev.Elapsed.Seconds())

	if err != nil {
		if p.ctx.Err() != nil {
			err = apperrors.Wrap(p.ctx.Err(), apperrors.CodeCanceled, "request canceled")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error(ctx, "heal stage failed", err, "stage", string(s), "elapsed_ms", ev.Elapsed.Milliseconds())
		return err
	}

	span.SetAttributes(
		attribute.Int("heal.nodes", ev.Nodes),
		attribute.Int("heal.candidates", ev.Candidates),
	)
	logger.Info(ctx, "heal stage completed",
		"stage", string(s),
		"nodes", ev.Nodes,
		"candidates", ev.Candidates,
		"elapsed_ms", ev.Elapsed.Milliseconds(),
	)

	ev.Kind = EventStageCompleted
	if !p.emit(ev) {
		return apperrors.Wrap(p.ctx.Err(), apperrors.CodeCanceled, "request canceled")
	}
	return nil
}

func (e *Engine) run(ctx context.Context, req *entity.HealRequest, emit func(Event) bool) (resp *entity.HealResponse, err error) {
	if req == nil {
		return nil, apperrors.ErrInvalidParam.WithDetail("request body is required")
	}
	ctx = logger.WithContext(ctx, logger.AppIDKey, req.AppID)
	ctx = logger.WithContext(ctx, logger.PageIDKey, req.PageID)

	platform := "unknown"
	defer func() {
		outcome := "error"
		switch {
		case err != nil:
		case resp.Healed:
			outcome = "healed"
			metrics.HealConfidence.Observe(resp.Confidence)
		default:
			outcome = "not_healed"
		}
		metrics.HealRequestsTotal.WithLabelValues(platform, outcome).Inc()
	}()

	if err := req.Validate(); err != nil {
		return nil, toAppError(err)
	}
	pf, _ := entity.ParsePlatform(req.Platform)
	platform = string(pf)

	p := &pipeline{ctx: ctx, emit: emit}
	query := req.Query()

	var nodes []*entity.ElementNode
	if err := p.stage(StageParse, func(ctx context.Context, ev *Event) error {
		parser, err := parsing.For(pf)
		if err != nil {
			return toAppError(err)
		}
		nodes, err = parser.Parse(req.PageDump)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeParseFailed, "failed to parse page dump")
		}
		ev.Nodes = len(nodes)
		return nil
	}); err != nil {
		return nil, err
	}

	// 页面没有可用节点时不触达任何下游服务
	if len(nodes) == 0 {
		logger.Info(ctx, "no elements parsed, skip downstream stages")
		return entity.NotHealed(reasonNoElements, nil), nil
	}

	var (
		route entity.RouteDecision
		emb   *Embeddings
	)
	if err := p.stage(StageEmbed, func(ctx context.Context, ev *Event) error {
		var err error
		route, err = e.router.Route(ctx, query, nodes)
		if err != nil {
			return apperrors.ErrLLMCallFailed.WithError(err).WithDetail("route")
		}
		metrics.RouteDecisionsTotal.WithLabelValues(route.EmbeddingModel, string(route.SearchMode), boolLabel(route.Fallback)).Inc()
		logger.Info(ctx, "route decided",
			"lang", route.Lang,
			"embedding_model", route.EmbeddingModel,
			"search_mode", string(route.SearchMode),
			"rerank_weight", route.RerankWeight,
		)

		emb, err = e.indexer.Embed(ctx, route.EmbeddingModel, query, nodes)
		if err != nil {
			return apperrors.ErrEmbeddingFailed.WithError(err)
		}
		ev.Nodes = len(nodes)
		ev.Route = &route
		return nil
	}); err != nil {
		return nil, err
	}

	if err := p.stage(StageIndex, func(ctx context.Context, ev *Event) error {
		report := e.indexer.Index(ctx, nodes, emb.PageVectors)
		if report.Failed > 0 {
			logger.Warn(ctx, "some vectors were not stored, recall may degrade",
				"failed", report.Failed,
				"total", len(nodes),
			)
		}
		ev.Nodes = len(nodes)
		ev.Index = &report
		return nil
	}); err != nil {
		return nil, err
	}

	var candidates []*entity.Candidate
	if err := p.stage(StageRecall, func(ctx context.Context, ev *Event) error {
		var err error
		candidates, err = e.recaller.Recall(ctx, route, emb.QueryVec, nodes)
		if err != nil {
			return recallError(err)
		}
		ev.Candidates = len(candidates)
		return nil
	}); err != nil {
		return nil, err
	}

	var top []*entity.Candidate
	if err := p.stage(StageRerank, func(ctx context.Context, ev *Event) error {
		var err error
		top, err = e.fuser.Rerank(ctx, query, route.RerankWeight, candidates)
		if err != nil {
			return apperrors.ErrRerankFailed.WithError(err)
		}
		ev.Candidates = len(top)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := p.stage(StageDecide, func(ctx context.Context, ev *Event) error {
		decision, err := e.arbiter.Choose(ctx, req.OldLocator, top)
		if err != nil {
			return apperrors.ErrLLMCallFailed.WithError(err).WithDetail("arbiter")
		}
		if decision.Fallback {
			logger.Warn(ctx, "arbiter output not parseable, defaulted to first candidate")
		}
		resp = Resolve(decision, top)
		resp.Details.Route = &route
		ev.Candidates = len(top)
		return nil
	}); err != nil {
		return nil, err
	}

	return resp, nil
}

func toAppError(err error) error {
	var ve *entity.ValidationError
	switch {
	case errors.Is(err, entity.ErrUnsupportedPlatform):
		return apperrors.ErrUnsupportedPlatform.WithError(err).WithDetail(err.Error())
	case errors.As(err, &ve):
		return apperrors.ErrInvalidParam.WithError(err).WithDetail(err.Error())
	default:
		return apperrors.ErrInvalidParam.WithError(err)
	}
}

func recallError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.CodeCanceled, "request canceled")
	}
	var embErr *alternateEmbeddingError
	if errors.As(err, &embErr) {
		return apperrors.ErrEmbeddingFailed.WithError(err)
	}
	return apperrors.Wrap(err, apperrors.CodeVectorDBError, "vector search failed")
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
