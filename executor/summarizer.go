package executor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hupe1980/assetflow/core"
)

// DefaultSummaryBodyLimit is the number of body runes kept in a digest.
const DefaultSummaryBodyLimit = 200

// Summarizer turns exactly one email record into a deterministic text digest.
// It performs no I/O.
type Summarizer struct {
	bodyLimit int
}

// NewSummarizer creates an EMAIL_SUMMARIZER executor.
func NewSummarizer(bodyLimit int) *Summarizer {
	if bodyLimit <= 0 {
		bodyLimit = DefaultSummaryBodyLimit
	}
	return &Summarizer{bodyLimit: bodyLimit}
}

// RequiredInputTypes implements core.Executor.
func (s *Summarizer) RequiredInputTypes() []core.DataType {
	return []core.DataType{core.DataTypeEmailList}
}

// ValidateInputs implements core.Executor.
func (s *Summarizer) ValidateInputs(execCtx *core.ExecutionContext) bool {
	_, ok := singleEmail(execCtx.InputAssets)
	return ok
}

// Execute implements core.Executor. Invalid input yields an unsuccessful
// result rather than an error.
func (s *Summarizer) Execute(_ context.Context, execCtx *core.ExecutionContext) (*core.ExecutionResult, error) {
	email, ok := singleEmail(execCtx.InputAssets)
	if !ok {
		return &core.ExecutionResult{
			Success: false,
			Error:   "summarizer requires exactly one input asset containing exactly one email",
		}, nil
	}

	return &core.ExecutionResult{
		Success: true,
		OutputAssets: []*core.AssetPatch{{
			Content:  core.Text(s.Digest(email)),
			DataType: core.Ptr(core.DataTypeText),
			Metadata: &core.AssetMetadataPatch{Extra: map[string]any{"sourceAssetId": execCtx.InputAssets[0].ID}},
		}},
	}, nil
}

// Digest renders the summary text for one email.
func (s *Summarizer) Digest(e core.Email) string {
	var b strings.Builder
	b.WriteString("Email Summary:\n")
	fmt.Fprintf(&b, "From: %s\n", e.From)
	fmt.Fprintf(&b, "To: %s\n", e.To)
	fmt.Fprintf(&b, "Subject: %s\n", e.Subject)
	fmt.Fprintf(&b, "Date: %s\n\n", formatDate(e.Date))
	b.WriteString(truncate(emailBody(e), s.bodyLimit))
	return b.String()
}

func singleEmail(inputs []core.Asset) (core.Email, bool) {
	if len(inputs) != 1 {
		return core.Email{}, false
	}
	switch c := inputs[0].Content.(type) {
	case core.EmailList:
		if len(c) == 1 {
			return c[0], true
		}
	case core.Email:
		return c, true
	}
	return core.Email{}, false
}

func emailBody(e core.Email) string {
	switch {
	case strings.TrimSpace(e.Body.Plain) != "":
		return strings.TrimSpace(e.Body.Plain)
	case strings.TrimSpace(e.Snippet) != "":
		return strings.TrimSpace(e.Snippet)
	default:
		return strings.TrimSpace(e.Body.HTML)
	}
}

// formatDate renders epoch milliseconds as RFC1123 in UTC. Other values are
// returned unchanged.
func formatDate(raw string) string {
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return raw
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC1123)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit]) + "..."
}
