package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"self-heal-api/internal/application/healing"
)

// streamRenderer 将流水线事件渲染为纯文本进度行
type streamRenderer struct {
	current healing.Event
}

func (r *streamRenderer) render(w io.Writer, ev healing.Event) error {
	var err error
	switch ev.Kind {
	case healing.EventStageStarted:
		r.current = ev
		_, err = fmt.Fprintf(w, "▶ [%d/%d] %s ...\n", ev.Step, ev.Total, ev.Stage)
	case healing.EventStageCompleted:
		_, err = fmt.Fprintf(w, "✔ [%d/%d] %s: %s (%s)\n", ev.Step, ev.Total, ev.Stage, stageSummary(ev), formatElapsed(ev.Elapsed))
	case healing.EventResult:
		err = r.renderResult(w, ev)
	case healing.EventError:
		msg := "unknown error"
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		if r.current.Stage != "" {
			_, err = fmt.Fprintf(w, "✖ [%d/%d] %s failed: %s\n", r.current.Step, r.current.Total, r.current.Stage, msg)
		} else {
			_, err = fmt.Fprintf(w, "✖ failed: %s\n", msg)
		}
	}
	return err
}

func (r *streamRenderer) renderResult(w io.Writer, ev healing.Event) error {
	res := ev.Result
	if res == nil {
		return nil
	}
	status := "FAILED"
	if res.Healed {
		status = "SUCCESS"
	}
	body, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("\n════ FINAL RESULT ════\n")
	fmt.Fprintf(&sb, "Heal       : %s\n", status)
	fmt.Fprintf(&sb, "Confidence : %.2f\n\n", res.Confidence)
	sb.Write(body)
	fmt.Fprintf(&sb, "\n\n⏱ total %s\n", formatElapsed(ev.Elapsed))
	_, err = io.WriteString(w, sb.String())
	return err
}

func stageSummary(ev healing.Event) string {
	switch ev.Stage {
	case healing.StageParse:
		return fmt.Sprintf("nodes=%d", ev.Nodes)
	case healing.StageEmbed:
		if ev.Route == nil {
			return fmt.Sprintf("vectors=%d", ev.Nodes)
		}
		s := fmt.Sprintf("model=%s mode=%s rerank_weight=%.2f vectors=%d",
			ev.Route.EmbeddingModel, ev.Route.SearchMode, ev.Route.RerankWeight, ev.Nodes)
		if ev.Route.Fallback {
			s += " (default route)"
		}
		return s
	case healing.StageIndex:
		if ev.Index == nil {
			return fmt.Sprintf("nodes=%d", ev.Nodes)
		}
		return fmt.Sprintf("inserted=%d duplicate=%d failed=%d", ev.Index.Inserted, ev.Index.Duplicates, ev.Index.Failed)
	case healing.StageRecall:
		return fmt.Sprintf("candidates=%d", ev.Candidates)
	case healing.StageRerank:
		return fmt.Sprintf("top_k=%d", ev.Candidates)
	default:
		return "done"
	}
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
