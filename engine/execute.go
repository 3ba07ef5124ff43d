package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/assetflow/core"
	"github.com/hupe1980/assetflow/session"
	"github.com/hupe1980/assetflow/telemetry"
)

// ExecuteAgent runs the agent with id.
//
// The agent enters RUNNING before the executor is called. Its input and
// output ids are resolved against the store and ids that no longer resolve
// are dropped. Execute is the only blocking call. On success the i-th
// returned output patch is merged into the asset at OutputAssetIDs[i]
// (status forced to READY, updatedAt and agentId stamped), outputs beyond the
// returned ones are left untouched and the agent ends COMPLETED with the raw
// result stored. Any failure, including an unregistered agent type, leaves
// the agent in ERROR with lastError set and is returned to the caller.
//
// Re-running a COMPLETED or ERROR agent is allowed. Concurrent runs on the
// same agent are not excluded; the later terminal write wins.
func (c *Controller) ExecuteAgent(ctx context.Context, id string) (result *core.ExecutionResult, err error) {
	agent, ok := c.store.Agent(id)
	if !ok {
		return nil, core.NewNotFound("agent", id)
	}

	ctx, span := telemetry.StartSpan(ctx, c.instruments.Tracer, "agent.execute",
		telemetry.AttrAgentID.String(id),
		telemetry.AttrAgentType.String(string(agent.Type)),
	)
	start := time.Now()
	c.instruments.Metrics.ActiveRuns.Add(ctx, 1)
	defer func() {
		c.instruments.Metrics.ActiveRuns.Add(ctx, -1)
		c.instruments.Metrics.RecordAgentRun(ctx, string(agent.Type), time.Since(start), err)
		telemetry.EndSpan(span, err)
	}()

	now := c.clock()
	agent, err = c.store.UpdateAgent(id, core.AgentPatch{
		Status:   core.Ptr(core.AgentStatusRunning),
		Metadata: &core.AgentMetadataPatch{UpdatedAt: &now},
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("agent started", "agent_id", id, "agent_type", string(agent.Type))

	result, err = c.run(ctx, agent)
	if err == nil {
		err = c.commit(agent, result)
	}
	if err != nil {
		return nil, c.failAgent(ctx, agent, err)
	}

	c.logger.Info("agent completed", "agent_id", id, "outputs", len(result.OutputAssets), "duration", time.Since(start))
	return result, nil
}

// run resolves the executor and performs the blocking Execute call.
func (c *Controller) run(ctx context.Context, agent core.Agent) (*core.ExecutionResult, error) {
	ex, err := c.registry.Lookup(agent.Type)
	if err != nil {
		return nil, err
	}

	snapshot := c.store.Snapshot()
	inputs := snapshot.ResolveAssets(agent.InputAssetIDs)
	outputs := snapshot.ResolveAssets(agent.OutputAssetIDs)
	execCtx := core.NewExecutionContext(agent, inputs, outputs, snapshot, c.logger)

	if !ex.ValidateInputs(execCtx) {
		if c.strict {
			return nil, core.NewValidation(fmt.Sprintf("invalid inputs for agent %s (%s)", agent.ID, agent.Type))
		}
		c.logger.Warn("executor input validation failed, running anyway",
			"agent_id", agent.ID,
			"agent_type", string(agent.Type),
			"required_input_types", ex.RequiredInputTypes(),
		)
	}

	cc := &CallbackContext{AgentID: agent.ID, AgentType: agent.Type, Agent: &agent}
	if err := c.callbacks.ExecuteCallbacks(ctx, CallbackBeforeExecute, cc); err != nil {
		return nil, asExecutorFailure(err)
	}

	result, err := safeExecute(ctx, ex, execCtx)
	if err != nil {
		return nil, asExecutorFailure(err)
	}
	if result == nil {
		return nil, core.NewExecutorFailure("executor returned no result", nil)
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "execution failed"
		}
		return nil, core.NewExecutorFailure(msg, nil)
	}

	cc.Result = result
	if err := c.callbacks.ExecuteCallbacks(ctx, CallbackAfterExecute, cc); err != nil {
		return nil, asExecutorFailure(err)
	}
	return result, nil
}

// commit writes the outputs and the COMPLETED state in one store mutation.
// A patch whose data type or content contradicts its target's declared data
// type rolls back the whole commit. Untyped targets adopt the patch's type.
func (c *Controller) commit(agent core.Agent, result *core.ExecutionResult) error {
	now := c.clock()
	return c.store.Dispatch(func(tx *session.Tx) error {
		for i, p := range result.OutputAssets {
			if i >= len(agent.OutputAssetIDs) {
				c.logger.Warn("executor returned more outputs than declared", "agent_id", agent.ID, "declared", len(agent.OutputAssetIDs), "returned", len(result.OutputAssets))
				break
			}
			if p == nil {
				continue
			}
			assetID := agent.OutputAssetIDs[i]
			target, ok := tx.State().Asset(assetID)
			if !ok {
				c.logger.Debug("skipping dangling output asset", "agent_id", agent.ID, "asset_id", assetID)
				continue
			}
			if p.DataType != nil && target.DataType != "" && *p.DataType != target.DataType {
				return fmt.Errorf("output %d: %w", i, core.NewValidation(fmt.Sprintf(
					"output of type %s does not match declared data type %s", *p.DataType, target.DataType)))
			}
			if _, err := tx.UpdateAsset(assetID, outputPatch(*p, agent.ID, now)); err != nil {
				return fmt.Errorf("output %d: %w", i, err)
			}
		}

		if _, ok := tx.State().Agent(agent.ID); !ok {
			c.logger.Warn("agent removed during execution", "agent_id", agent.ID)
			return nil
		}
		_, err := tx.UpdateAgent(agent.ID, core.AgentPatch{
			Status: core.Ptr(core.AgentStatusCompleted),
			Metadata: &core.AgentMetadataPatch{
				UpdatedAt:           &now,
				LastExecutedAt:      &now,
				LastExecutionResult: result,
				LastError:           core.Ptr(""),
			},
		})
		return err
	})
}

// failAgent records err on the agent and returns it.
func (c *Controller) failAgent(ctx context.Context, agent core.Agent, err error) error {
	now := c.clock()
	_, updErr := c.store.UpdateAgent(agent.ID, core.AgentPatch{
		Status: core.Ptr(core.AgentStatusError),
		Metadata: &core.AgentMetadataPatch{
			UpdatedAt:      &now,
			LastExecutedAt: &now,
			LastError:      core.Ptr(err.Error()),
		},
	})
	if updErr != nil {
		c.logger.Warn("agent removed during execution", "agent_id", agent.ID, "error", updErr)
	}
	c.logger.Error("agent failed", "agent_id", agent.ID, "agent_type", string(agent.Type), "error", err, "code", string(core.CodeOf(err)))
	c.runCallbacks(ctx, CallbackOnError, &CallbackContext{AgentID: agent.ID, AgentType: agent.Type, Agent: &agent, Err: err})
	return err
}

// outputPatch forces READY and stamps the producing agent onto p.
func outputPatch(p core.AssetPatch, agentID string, now time.Time) core.AssetPatch {
	mp := core.AssetMetadataPatch{}
	if p.Metadata != nil {
		mp = *p.Metadata
	}
	mp.UpdatedAt = &now
	mp.AgentID = &agentID
	p.Metadata = &mp
	p.Status = core.Ptr(core.AssetStatusReady)
	p.Persistence = nil
	return p
}

// safeExecute converts executor panics into errors.
func safeExecute(ctx context.Context, ex core.Executor, execCtx *core.ExecutionContext) (result *core.ExecutionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = core.NewExecutorFailure(fmt.Sprintf("executor panic: %v", r), nil)
		}
	}()
	return ex.Execute(ctx, execCtx)
}

// asExecutorFailure keeps categorized errors and wraps the rest. The wrapped
// error renders as the cause's text.
func asExecutorFailure(err error) error {
	var ce *core.Error
	if errors.As(err, &ce) {
		return err
	}
	return core.NewExecutorFailure("", err)
}
