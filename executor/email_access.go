package executor

import (
	"context"

	"github.com/hupe1980/assetflow/core"
	"github.com/hupe1980/assetflow/internal/util"
)

// DefaultMaxResults caps mailbox searches without an explicit limit.
const DefaultMaxResults = 25

// EmailAccessParams documents the input parameters accepted by EmailAccess.
type EmailAccessParams struct {
	Query      string `json:"query,omitempty" description:"Free text matched against subject, snippet and body"`
	From       string `json:"from,omitempty" description:"Sender address filter"`
	To         string `json:"to,omitempty" description:"Recipient address filter"`
	Subject    string `json:"subject,omitempty" description:"Subject filter"`
	Label      string `json:"label,omitempty" description:"Mailbox label filter"`
	MaxResults int    `json:"maxResults,omitempty" description:"Maximum number of messages returned"`
}

// EmailAccess searches the mailbox and emits the matches as one EMAIL_LIST
// asset at output position 0.
type EmailAccess struct {
	messaging  core.MessagingService
	maxResults int
	schema     map[string]any
}

// NewEmailAccess creates an EMAIL_ACCESS executor.
func NewEmailAccess(messaging core.MessagingService, maxResults int) *EmailAccess {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &EmailAccess{
		messaging:  messaging,
		maxResults: maxResults,
		schema:     util.CreateSchema(EmailAccessParams{}),
	}
}

// RequiredInputTypes implements core.Executor. Searches need no input assets.
func (e *EmailAccess) RequiredInputTypes() []core.DataType { return nil }

// ValidateInputs implements core.Executor.
func (e *EmailAccess) ValidateInputs(execCtx *core.ExecutionContext) bool {
	if e.messaging == nil {
		return false
	}
	return util.ValidateParameters(execCtx.Agent.InputParameters, e.schema) == nil
}

// Execute implements core.Executor.
func (e *EmailAccess) Execute(ctx context.Context, execCtx *core.ExecutionContext) (*core.ExecutionResult, error) {
	if e.messaging == nil {
		return nil, core.NewValidation("no messaging service configured")
	}
	filter := e.filter(execCtx)
	execCtx.Logger().Debug("searching mailbox", "agent_id", execCtx.Agent.ID, "query", filter.Query, "max_results", filter.MaxResults)

	emails, err := e.messaging.FetchMessages(ctx, filter)
	if err != nil {
		return nil, core.NewTransportFailure("fetch messages", err)
	}
	list := make(core.EmailList, len(emails))
	copy(list, emails)

	return &core.ExecutionResult{
		Success: true,
		OutputAssets: []*core.AssetPatch{{
			Content:  list,
			DataType: core.Ptr(core.DataTypeEmailList),
			Metadata: &core.AssetMetadataPatch{Extra: map[string]any{
				"recordCount": len(list),
				"query":       filter.Query,
			}},
		}},
	}, nil
}

func (e *EmailAccess) filter(execCtx *core.ExecutionContext) core.MessageFilter {
	f := core.MessageFilter{
		Query:      execCtx.StringParam("query"),
		From:       execCtx.StringParam("from"),
		To:         execCtx.StringParam("to"),
		Subject:    execCtx.StringParam("subject"),
		Label:      execCtx.StringParam("label"),
		MaxResults: execCtx.IntParam("maxResults", e.maxResults),
	}
	if f.MaxResults <= 0 || f.MaxResults > e.maxResults {
		f.MaxResults = e.maxResults
	}
	return f
}
