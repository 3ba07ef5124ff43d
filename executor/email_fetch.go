package executor

import (
	"context"

	"github.com/hupe1980/assetflow/core"
)

// EmailFetch loads a single message by id. The record is emitted as EMAIL,
// or as a one-element EMAIL_LIST when the first output asset declares that.
type EmailFetch struct {
	messaging core.MessagingService
}

// NewEmailFetch creates an EMAIL_FETCH executor.
func NewEmailFetch(messaging core.MessagingService) *EmailFetch {
	return &EmailFetch{messaging: messaging}
}

// RequiredInputTypes implements core.Executor.
func (e *EmailFetch) RequiredInputTypes() []core.DataType { return nil }

// ValidateInputs implements core.Executor.
func (e *EmailFetch) ValidateInputs(execCtx *core.ExecutionContext) bool {
	return e.messaging != nil && execCtx.StringParam("messageId") != ""
}

// Execute implements core.Executor.
func (e *EmailFetch) Execute(ctx context.Context, execCtx *core.ExecutionContext) (*core.ExecutionResult, error) {
	if e.messaging == nil {
		return nil, core.NewValidation("no messaging service configured")
	}
	id := execCtx.StringParam("messageId")
	if id == "" {
		return nil, core.NewValidation("messageId is required")
	}

	email, err := e.messaging.FetchMessage(ctx, id)
	if err != nil {
		return nil, core.NewTransportFailure("fetch message", err)
	}

	patch := &core.AssetPatch{
		Content:  email,
		DataType: core.Ptr(core.DataTypeEmail),
		Metadata: &core.AssetMetadataPatch{Extra: map[string]any{"messageId": id}},
	}
	if outputDataType(execCtx) == core.DataTypeEmailList {
		patch.Content = core.EmailList{email}
		patch.DataType = core.Ptr(core.DataTypeEmailList)
	}
	return &core.ExecutionResult{Success: true, OutputAssets: []*core.AssetPatch{patch}}, nil
}

// outputDataType returns the declared data type of the first output, taken
// from the resolved asset or, failing that, the agent's output config.
func outputDataType(execCtx *core.ExecutionContext) core.DataType {
	if len(execCtx.OutputAssets) > 0 && execCtx.OutputAssets[0].DataType != "" {
		return execCtx.OutputAssets[0].DataType
	}
	if len(execCtx.Agent.OutputAssetConfigs) > 0 {
		return execCtx.Agent.OutputAssetConfigs[0].DataType
	}
	return ""
}
