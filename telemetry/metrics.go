package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all assetflow metric instruments.
type Metrics struct {
	MessagesProcessed metric.Int64Counter
	ChatDuration      metric.Float64Histogram
	AgentsCreated     metric.Int64Counter
	AgentRuns         metric.Int64Counter
	AgentRunDuration  metric.Float64Histogram
	ActiveRuns        metric.Int64UpDownCounter
	AssetSyncs        metric.Int64Counter
}

// NewMetrics creates all metric instruments from the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.MessagesProcessed, err = meter.Int64Counter("assetflow.messages.processed",
		metric.WithDescription("User messages processed, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	m.ChatDuration, err = meter.Float64Histogram("assetflow.chat.duration",
		metric.WithDescription("Chat collaborator call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.AgentsCreated, err = meter.Int64Counter("assetflow.agents.created",
		metric.WithDescription("Agents created from chat side effects"),
	)
	if err != nil {
		return nil, err
	}

	m.AgentRuns, err = meter.Int64Counter("assetflow.agent.runs",
		metric.WithDescription("Agent executions, by type and outcome"),
	)
	if err != nil {
		return nil, err
	}

	m.AgentRunDuration, err = meter.Float64Histogram("assetflow.agent.duration",
		metric.WithDescription("Agent execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.ActiveRuns, err = meter.Int64UpDownCounter("assetflow.agent.active",
		metric.WithDescription("Number of agent executions in flight"),
	)
	if err != nil {
		return nil, err
	}

	m.AssetSyncs, err = meter.Int64Counter("assetflow.asset.syncs",
		metric.WithDescription("Asset persistence operations, by operation and outcome"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Outcome values recorded with AttrOutcome.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Outcome maps err to OutcomeSuccess or OutcomeError.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

// RecordMessage records one processed user message.
func (m *Metrics) RecordMessage(ctx context.Context, chatDuration time.Duration, agents int, err error) {
	m.MessagesProcessed.Add(ctx, 1, metric.WithAttributes(AttrOutcome.String(Outcome(err))))
	m.ChatDuration.Record(ctx, chatDuration.Seconds())
	if agents > 0 {
		m.AgentsCreated.Add(ctx, int64(agents))
	}
}

// RecordAgentRun records one finished agent execution.
func (m *Metrics) RecordAgentRun(ctx context.Context, agentType string, d time.Duration, err error) {
	attrs := metric.WithAttributes(
		AttrAgentType.String(agentType),
		AttrOutcome.String(Outcome(err)),
	)
	m.AgentRuns.Add(ctx, 1, attrs)
	m.AgentRunDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordAssetSync records one persistence operation such as save or delete.
func (m *Metrics) RecordAssetSync(ctx context.Context, op string, err error) {
	m.AssetSyncs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		AttrOutcome.String(Outcome(err)),
	))
}
