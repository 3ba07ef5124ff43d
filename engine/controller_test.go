package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/assetflow/artifact"
	"github.com/hupe1980/assetflow/core"
	"github.com/hupe1980/assetflow/executor"
	"github.com/hupe1980/assetflow/internal/testutil"
	"github.com/hupe1980/assetflow/notify"
	"github.com/hupe1980/assetflow/session"
)

// Interface compliance (compile-time assertions)
var (
	_ core.AgentFactory = (*AgentFactory)(nil)
	_ Callback          = (*FunctionCallback)(nil)
	_ Callback          = (*LoggingCallback)(nil)
	_ Callback          = (*ResultValidationCallback)(nil)
)

var t0 = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctrl     *Controller
	store    *session.Store
	chat     *testutil.StubChat
	notes    *notify.Recorder
	clock    *testutil.FixedClock
	registry map[core.AgentType]core.Executor
}

func newFixture(t *testing.T, optFns ...func(o *Options)) *fixture {
	t.Helper()
	f := &fixture{
		chat:     testutil.NewStubChat(),
		notes:    notify.NewRecorder(0),
		clock:    testutil.NewFixedClock(t0),
		registry: map[core.AgentType]core.Executor{},
	}
	f.store = session.New(func(o *session.Options) { o.Clock = f.clock.Now })
	f.ctrl = New(append([]func(o *Options){func(o *Options) {
		o.Store = f.store
		o.Chat = f.chat
		o.Notifier = f.notes
		o.Clock = f.clock.Now
		o.Registry = executor.NewRegistry(f.registry)
		o.Repository = artifact.NewInMemoryStore()
	}}, optFns...)...)
	return f
}

// withExecutor rebuilds the registry including ex for t.
func withExecutor(f *fixture, t core.AgentType, ex core.Executor) {
	f.registry[t] = ex
	f.ctrl.registry = executor.NewRegistry(f.registry)
}

func accessJob() core.AgentJob {
	return core.AgentJob{
		AgentType:       core.AgentTypeEmailAccess,
		Name:            "Find alice",
		InputParameters: map[string]any{"from": "alice"},
		OutputAssetConfigs: []core.OutputAssetConfig{
			{Name: "Results", DataType: core.DataTypeEmailList, FileType: core.FileTypeJSON},
		},
	}
}

func TestProcessMessage_CreatesAgentAndPlaceholder(t *testing.T) {
	f := newFixture(t)
	f.chat.Responses = []*core.ChatResponse{{
		Message:     core.Message{Content: "Searching your mailbox."},
		SideEffects: core.SideEffects{AgentJobs: []core.AgentJob{accessJob()}},
	}}

	resp, err := f.ctrl.ProcessMessage(context.Background(), "find emails from alice")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, core.RoleAssistant, resp.Message.Role)

	state := f.ctrl.State()
	agents := state.AgentList()
	require.Len(t, agents, 1)
	agent := agents[0]
	assert.Equal(t, core.AgentStatusIdle, agent.Status)
	assert.Equal(t, core.AgentTypeEmailAccess, agent.Type)
	require.Len(t, agent.OutputAssetIDs, 1)
	assert.Equal(t, []string{}, agent.InputAssetIDs)
	data, err := json.Marshal(agent)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"input_asset_ids":[]`)

	assets := state.AssetList()
	require.Len(t, assets, 1)
	placeholder := assets[0]
	assert.Equal(t, agent.OutputAssetIDs[0], placeholder.ID)
	assert.Equal(t, core.AssetStatusPending, placeholder.Status)
	assert.Nil(t, placeholder.Content)
	assert.Equal(t, agent.ID, placeholder.Metadata.AgentID)
	assert.Equal(t, "Results", placeholder.Name)
	assert.Equal(t, core.DataTypeEmailList, placeholder.DataType)

	require.Len(t, state.Messages, 2)
	assert.Equal(t, core.RoleUser, state.Messages[0].Role)
	assert.Equal(t, "find emails from alice", state.Messages[0].Content)
	assert.Equal(t, core.RoleAssistant, state.Messages[1].Role)
	assert.False(t, state.Metadata.IsProcessing)
}

func TestProcessMessage_BlankInputIsNoOp(t *testing.T) {
	f := newFixture(t)
	resp, err := f.ctrl.ProcessMessage(context.Background(), "   \n\t")
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Empty(t, f.ctrl.State().Messages)
	assert.Equal(t, 0, f.chat.CallCount())
}

func TestProcessMessage_PassesHistoryAndAssets(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.AddAsset(testutil.NewAssetBuilder("a1").Content(core.Text("x")).Build())
	require.NoError(t, err)

	_, err = f.ctrl.ProcessMessage(context.Background(), "first")
	require.NoError(t, err)
	_, err = f.ctrl.ProcessMessage(context.Background(), "second")
	require.NoError(t, err)

	require.Len(t, f.chat.Calls, 2)
	assert.Empty(t, f.chat.Calls[0].History)
	second := f.chat.Calls[1]
	assert.Equal(t, "second", second.Text)
	require.Len(t, second.History, 2)
	assert.Equal(t, "first", second.History[0].Content)
	assert.Equal(t, core.RoleAssistant, second.History[1].Role)
	require.Len(t, second.Assets, 1)
	assert.Equal(t, "a1", second.Assets[0].ID)
}

func TestProcessMessage_ProcessingFlagDuringChat(t *testing.T) {
	f := newFixture(t)
	var during bool
	f.ctrl.chat = chatFunc(func(context.Context, string, []core.Message, []core.Asset) (*core.ChatResponse, error) {
		during = f.store.Snapshot().Metadata.IsProcessing
		return &core.ChatResponse{Message: core.Message{Content: "ok"}}, nil
	})

	_, err := f.ctrl.ProcessMessage(context.Background(), "hi")
	require.NoError(t, err)
	assert.True(t, during)
	assert.False(t, f.store.Snapshot().Metadata.IsProcessing)
}

func TestProcessMessage_ChatFailure(t *testing.T) {
	f := newFixture(t)
	f.chat.Err = errors.New("upstream 503")

	resp, err := f.ctrl.ProcessMessage(context.Background(), "find emails from alice")
	assert.Nil(t, resp)
	require.ErrorIs(t, err, core.ErrTransportFailure)
	assert.Contains(t, err.Error(), "upstream 503")

	state := f.ctrl.State()
	require.Len(t, state.Messages, 1)
	assert.Equal(t, core.RoleUser, state.Messages[0].Role)
	assert.Empty(t, state.AgentList())
	assert.Empty(t, state.AssetList())
	assert.False(t, state.Metadata.IsProcessing)

	note, ok := f.notes.Last()
	require.True(t, ok)
	assert.Equal(t, core.NotificationError, note.Level)
	assert.Contains(t, note.Message, "upstream 503")
}

func TestProcessMessage_InvalidSideEffectFailsTurnAtomically(t *testing.T) {
	f := newFixture(t)
	f.chat.Responses = []*core.ChatResponse{{
		Message: core.Message{Content: "done"},
		SideEffects: core.SideEffects{
			AgentJobs: []core.AgentJob{accessJob()},
			Assets: []core.Asset{{
				Name:     "bad",
				DataType: core.DataTypeEmailList,
				Content:  core.Text("not a list"),
			}},
		},
	}}

	_, err := f.ctrl.ProcessMessage(context.Background(), "go")
	require.ErrorIs(t, err, core.ErrValidation)

	state := f.ctrl.State()
	assert.Len(t, state.Messages, 1)
	assert.Empty(t, state.AgentList())
	assert.Empty(t, state.AssetList())
	assert.False(t, state.Metadata.IsProcessing)
	assert.Len(t, f.notes.All(), 1)
}

func TestProcessMessage_SideEffectAssets(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.AddAsset(testutil.NewAssetBuilder("taken").Build())
	require.NoError(t, err)

	f.chat.Responses = []*core.ChatResponse{{
		Message: core.Message{Content: "here you go"},
		SideEffects: core.SideEffects{Assets: []core.Asset{
			{ID: "taken", Name: "note", DataType: core.DataTypeText, Content: core.Text("hi"), Status: core.AssetStatusReady,
				Persistence: core.Persistence{IsInDB: true}},
		}},
	}}

	_, err = f.ctrl.ProcessMessage(context.Background(), "make a note")
	require.NoError(t, err)

	assets := f.ctrl.State().AssetList()
	require.Len(t, assets, 2)
	added := assets[1]
	assert.NotEqual(t, "taken", added.ID)
	assert.Equal(t, "note", added.Name)
	assert.False(t, added.Persistence.IsInDB)
}

func TestProcessMessage_RequiresChat(t *testing.T) {
	ctrl := New()
	_, err := ctrl.ProcessMessage(context.Background(), "hi")
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Empty(t, ctrl.State().Messages)
}

func TestExecuteAgent_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctrl.ExecuteAgent(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestExecuteAgent_UnregisteredType(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.AddAgent(testutil.NewAgentBuilder("ag1", core.AgentTypeEmailAccess).Build())
	require.NoError(t, err)

	var statuses []core.AgentStatus
	cm := NewCallbackManager()
	cm.RegisterCallback(NewFunctionCallback(CallbackOnError, func(_ context.Context, cc *CallbackContext) error {
		statuses = append(statuses, cc.Agent.Status)
		return nil
	}))
	f.ctrl.callbacks = cm

	_, err = f.ctrl.ExecuteAgent(context.Background(), "ag1")
	require.ErrorIs(t, err, core.ErrExecutorNotFound)

	agent, _ := f.store.Agent("ag1")
	assert.Equal(t, core.AgentStatusError, agent.Status)
	assert.Equal(t, "No executor found for agent type: EMAIL_ACCESS", agent.Metadata.LastError)
	require.NotNil(t, agent.Metadata.LastExecutedAt)
	assert.Equal(t, t0, *agent.Metadata.LastExecutedAt)
	assert.Equal(t, []core.AgentStatus{core.AgentStatusRunning}, statuses)
}

func TestExecuteAgent_RunningBeforeExecute(t *testing.T) {
	f := newFixture(t)
	var seen core.AgentStatus
	withExecutor(f, core.AgentTypeEmailAccess, testutil.NewStubExecutor(func(_ context.Context, execCtx *core.ExecutionContext) (*core.ExecutionResult, error) {
		a, _ := f.store.Agent(execCtx.Agent.ID)
		seen = a.Status
		return &core.ExecutionResult{Success: true}, nil
	}))
	_, err := f.store.AddAgent(testutil.NewAgentBuilder("ag1", core.AgentTypeEmailAccess).Build())
	require.NoError(t, err)

	_, err = f.ctrl.ExecuteAgent(context.Background(), "ag1")
	require.NoError(t, err)
	assert.Equal(t, core.AgentStatusRunning, seen)

	agent, _ := f.store.Agent("ag1")
	assert.Equal(t, core.AgentStatusCompleted, agent.Status)
	require.NotNil(t, agent.Metadata.LastExecutionResult)
	assert.True(t, agent.Metadata.LastExecutionResult.Success)
}

func TestExecuteAgent_PositionalMerge(t *testing.T) {
	f := newFixture(t)
	withExecutor(f, core.AgentTypeEmailAccess, testutil.Succeed(
		&core.AssetPatch{Content: core.EmailList{{Subject: "one"}}},
		nil,
	))

	cfg := core.OutputAssetConfig{Name: "out", DataType: core.DataTypeEmailList}
	for _, id := range []string{"o1", "o2", "o3"} {
		_, err := f.store.AddAsset(testutil.NewAssetBuilder(id).DataType(core.DataTypeEmailList).Pending().Build())
		require.NoError(t, err)
	}
	_, err := f.store.AddAgent(testutil.NewAgentBuilder("ag1", core.AgentTypeEmailAccess).
		Output("o1", cfg).Output("o2", cfg).Output("o3", cfg).Build())
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.ctrl.ExecuteAgent(context.Background(), "ag1")
	require.NoError(t, err)

	o1, _ := f.store.Asset("o1")
	assert.Equal(t, core.AssetStatusReady, o1.Status)
	assert.Equal(t, core.EmailList{{Subject: "one"}}, o1.Content)
	assert.Equal(t, "ag1", o1.Metadata.AgentID)
	assert.Equal(t, t0.Add(time.Minute), o1.Metadata.UpdatedAt)

	// nil entry and positions beyond the returned array are untouched
	for _, id := range []string{"o2", "o3"} {
		o, _ := f.store.Asset(id)
		assert.Equal(t, core.AssetStatusPending, o.Status, id)
		assert.Nil(t, o.Content, id)
		assert.Equal(t, t0, o.Metadata.UpdatedAt, id)
	}
}

func TestExecuteAgent_DanglingReferencesDropped(t *testing.T) {
	f := newFixture(t)
	var inputs, outputs int
	withExecutor(f, core.AgentTypeEmailSummarizer, testutil.NewStubExecutor(func(_ context.Context, execCtx *core.ExecutionContext) (*core.ExecutionResult, error) {
		inputs, outputs = len(execCtx.InputAssets), len(execCtx.OutputAssets)
		return &core.ExecutionResult{Success: true, OutputAssets: []*core.AssetPatch{{Content: core.Text("x")}}}, nil
	}))
	_, err := f.store.AddAsset(testutil.NewAssetBuilder("in").Content(core.Text("t")).Build())
	require.NoError(t, err)
	_, err = f.store.AddAgent(testutil.NewAgentBuilder("ag1", core.AgentTypeEmailSummarizer).
		Inputs("in", "gone").Output("removed", core.OutputAssetConfig{Name: "r"}).Build())
	require.NoError(t, err)

	_, err = f.ctrl.ExecuteAgent(context.Background(), "ag1")
	require.NoError(t, err)
	assert.Equal(t, 1, inputs)
	assert.Equal(t, 0, outputs)
	agent, _ := f.store.Agent("ag1")
	assert.Equal(t, core.AgentStatusCompleted, agent.Status)
}

func TestExecuteAgent_SummarizerScenario(t *testing.T) {
	f := newFixture(t)
	f.ctrl.registry = executor.DefaultRegistry(nil)

	email := core.Email{Subject: "Hi", From: "a@x.com", To: "b@x.com", Date: "1700000000000", Body: core.EmailBody{Plain: "Hello world"}}
	_, err := f.store.AddAsset(testutil.NewAssetBuilder("in").Content(core.EmailList{email}).Build())
	require.NoError(t, err)
	_, err = f.store.AddAsset(testutil.NewAssetBuilder("digest").DataType(core.DataTypeText).Pending().Build())
	require.NoError(t, err)
	_, err = f.store.AddAgent(testutil.NewAgentBuilder("sum", core.AgentTypeEmailSummarizer).
		Inputs("in").Output("digest", core.OutputAssetConfig{Name: "Digest", DataType: core.DataTypeText}).Build())
	require.NoError(t, err)

	_, err = f.ctrl.ExecuteAgent(context.Background(), "sum")
	require.NoError(t, err)

	out, _ := f.store.Asset("digest")
	assert.Equal(t, core.AssetStatusReady, out.Status)
	text, ok := out.Content.(core.Text)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(string(text), "Email Summary:\nFrom: a@x.com"), string(text))
	assert.Equal(t, "sum", out.Metadata.AgentID)
}

func TestExecuteAgent_ExecutorFailures(t *testing.T) {
	tests := []struct {
		name    string
		ex      core.Executor
		wantMsg string
	}{
		{
			name: "returned error",
			ex: testutil.NewStubExecutor(func(context.Context, *core.ExecutionContext) (*core.ExecutionResult, error) {
				return nil, errors.New("mailbox unreachable")
			}),
			wantMsg: "mailbox unreachable",
		},
		{
			name: "success false",
			ex: testutil.NewStubExecutor(func(context.Context, *core.ExecutionContext) (*core.ExecutionResult, error) {
				return &core.ExecutionResult{Success: false, Error: "bad input"}, nil
			}),
			wantMsg: "bad input",
		},
		{
			name: "panic",
			ex: testutil.NewStubExecutor(func(context.Context, *core.ExecutionContext) (*core.ExecutionResult, error) {
				panic("boom")
			}),
			wantMsg: "executor panic: boom",
		},
		{
			name: "nil result",
			ex: testutil.NewStubExecutor(func(context.Context, *core.ExecutionContext) (*core.ExecutionResult, error) {
				return nil, nil
			}),
			wantMsg: "executor returned no result",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			withExecutor(f, core.AgentTypeEmailFetch, tt.ex)
			_, err := f.store.AddAgent(testutil.NewAgentBuilder("ag1", core.AgentTypeEmailFetch).Build())
			require.NoError(t, err)

			_, err = f.ctrl.ExecuteAgent(context.Background(), "ag1")
			require.ErrorIs(t, err, core.ErrExecutorFailure)

			agent, _ := f.store.Agent("ag1")
			assert.Equal(t, core.AgentStatusError, agent.Status)
			assert.Equal(t, tt.wantMsg, agent.Metadata.LastError)
			assert.Nil(t, agent.Metadata.LastExecutionResult)
		})
	}
}

func TestExecuteAgent_OutputContentMismatch(t *testing.T) {
	f := newFixture(t)
	withExecutor(f, core.AgentTypeEmailAccess, testutil.Succeed(&core.AssetPatch{Content: core.Text("not a list")}))
	_, err := f.store.AddAsset(testutil.NewAssetBuilder("o1").DataType(core.DataTypeEmailList).Pending().Build())
	require.NoError(t, err)
	_, err = f.store.AddAgent(testutil.NewAgentBuilder("ag1", core.AgentTypeEmailAccess).
		Output("o1", core.OutputAssetConfig{Name: "o1", DataType: core.DataTypeEmailList}).Build())
	require.NoError(t, err)

	_, err = f.ctrl.ExecuteAgent(context.Background(), "ag1")
	require.ErrorIs(t, err, core.ErrValidation)

	agent, _ := f.store.Agent("ag1")
	assert.Equal(t, core.AgentStatusError, agent.Status)
	o1, _ := f.store.Asset("o1")
	assert.Equal(t, core.AssetStatusPending, o1.Status)
}

func TestExecuteAgent_OutputDataTypeMismatch(t *testing.T) {
	f := newFixture(t)
	withExecutor(f, core.AgentTypeEmailSummarizer, testutil.Succeed(&core.AssetPatch{
		Content:  core.Text("digest"),
		DataType: core.Ptr(core.DataTypeText),
	}))
	_, err := f.store.AddAsset(testutil.NewAssetBuilder("o1").DataType(core.DataTypeEmailList).Pending().Build())
	require.NoError(t, err)
	_, err = f.store.AddAgent(testutil.NewAgentBuilder("ag1", core.AgentTypeEmailSummarizer).
		Output("o1", core.OutputAssetConfig{Name: "o1", DataType: core.DataTypeEmailList}).Build())
	require.NoError(t, err)

	_, err = f.ctrl.ExecuteAgent(context.Background(), "ag1")
	require.ErrorIs(t, err, core.ErrValidation)

	agent, _ := f.store.Agent("ag1")
	assert.Equal(t, core.AgentStatusError, agent.Status)
	assert.Contains(t, agent.Metadata.LastError, "does not match declared data type EMAIL_LIST")
	o1, _ := f.store.Asset("o1")
	assert.Equal(t, core.AssetStatusPending, o1.Status)
	assert.Equal(t, core.DataTypeEmailList, o1.DataType)
}

func TestExecuteAgent_UntypedOutputAdoptsDataType(t *testing.T) {
	f := newFixture(t)
	withExecutor(f, core.AgentTypeEmailSummarizer, testutil.Succeed(&core.AssetPatch{
		Content:  core.Text("digest"),
		DataType: core.Ptr(core.DataTypeText),
	}))
	_, err := f.store.AddAsset(testutil.NewAssetBuilder("o1").Pending().Build())
	require.NoError(t, err)
	_, err = f.store.AddAgent(testutil.NewAgentBuilder("ag1", core.AgentTypeEmailSummarizer).
		Output("o1", core.OutputAssetConfig{Name: "o1"}).Build())
	require.NoError(t, err)

	_, err = f.ctrl.ExecuteAgent(context.Background(), "ag1")
	require.NoError(t, err)
	o1, _ := f.store.Asset("o1")
	assert.Equal(t, core.DataTypeText, o1.DataType)
	assert.Equal(t, core.Text("digest"), o1.Content)
}

func TestExecuteAgent_ValidationPolicy(t *testing.T) {
	invalid := testutil.Succeed()
	invalid.Valid = false

	t.Run("advisory by default", func(t *testing.T) {
		f := newFixture(t)
		withExecutor(f, core.AgentTypeEmailFetch, invalid)
		_, err := f.store.AddAgent(testutil.NewAgentBuilder("ag1", core.AgentTypeEmailFetch).Build())
		require.NoError(t, err)

		_, err = f.ctrl.ExecuteAgent(context.Background(), "ag1")
		require.NoError(t, err)
		agent, _ := f.store.Agent("ag1")
		assert.Equal(t, core.AgentStatusCompleted, agent.Status)
	})

	t.Run("strict", func(t *testing.T) {
		f := newFixture(t, func(o *Options) { o.StrictValidation = true })
		withExecutor(f, core.AgentTypeEmailFetch, invalid)
		_, err := f.store.AddAgent(testutil.NewAgentBuilder("ag1", core.AgentTypeEmailFetch).Build())
		require.NoError(t, err)

		_, err = f.ctrl.ExecuteAgent(context.Background(), "ag1")
		require.ErrorIs(t, err, core.ErrValidation)
		agent, _ := f.store.Agent("ag1")
		assert.Equal(t, core.AgentStatusError, agent.Status)
		assert.Contains(t, agent.Metadata.LastError, "invalid inputs")
	})
}

func TestExecuteAgent_ReRunClearsError(t *testing.T) {
	f := newFixture(t)
	fail := true
	withExecutor(f, core.AgentTypeEmailFetch, testutil.NewStubExecutor(func(context.Context, *core.ExecutionContext) (*core.ExecutionResult, error) {
		if fail {
			return &core.ExecutionResult{Success: false, Error: "first run fails"}, nil
		}
		return &core.ExecutionResult{Success: true}, nil
	}))
	_, err := f.store.AddAgent(testutil.NewAgentBuilder("ag1", core.AgentTypeEmailFetch).Build())
	require.NoError(t, err)

	_, err = f.ctrl.ExecuteAgent(context.Background(), "ag1")
	require.Error(t, err)

	fail = false
	_, err = f.ctrl.ExecuteAgent(context.Background(), "ag1")
	require.NoError(t, err)
	agent, _ := f.store.Agent("ag1")
	assert.Equal(t, core.AgentStatusCompleted, agent.Status)
	assert.Empty(t, agent.Metadata.LastError)
}

// TestExecuteAgent_ConcurrentRunsLastWriteWins runs two executions of one
// agent whose executors finish in a controlled order. Both complete and the
// stored status is whatever the later terminal write set.
func TestExecuteAgent_ConcurrentRunsLastWriteWins(t *testing.T) {
	type outcome struct {
		success bool
		status  core.AgentStatus
	}
	tests := []struct {
		name       string
		first      outcome // run started first
		second     outcome // run started second
		finishLast string  // which run finishes last
	}{
		{"first finishes last with success", outcome{true, core.AgentStatusCompleted}, outcome{false, core.AgentStatusError}, "first"},
		{"second finishes last with failure", outcome{true, core.AgentStatusCompleted}, outcome{false, core.AgentStatusError}, "second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			entered := make(chan struct{})
			gates := []chan bool{make(chan bool), make(chan bool)}
			var calls int
			withExecutor(f, core.AgentTypeEmailFetch, testutil.NewStubExecutor(func(context.Context, *core.ExecutionContext) (*core.ExecutionResult, error) {
				gate := gates[calls]
				calls++
				entered <- struct{}{}
				if ok := <-gate; ok {
					return &core.ExecutionResult{Success: true}, nil
				}
				return &core.ExecutionResult{Success: false, Error: "lost"}, nil
			}))
			_, err := f.store.AddAgent(testutil.NewAgentBuilder("ag1", core.AgentTypeEmailFetch).Build())
			require.NoError(t, err)

			done := []chan error{make(chan error, 1), make(chan error, 1)}
			run := func(i int) {
				_, err := f.ctrl.ExecuteAgent(context.Background(), "ag1")
				done[i] <- err
			}

			go run(0)
			<-entered
			go run(1)
			<-entered

			// both runs are in flight and observe RUNNING
			agent, _ := f.store.Agent("ag1")
			require.Equal(t, core.AgentStatusRunning, agent.Status)

			order := []int{1, 0}
			if tt.finishLast == "second" {
				order = []int{0, 1}
			}
			results := []outcome{tt.first, tt.second}
			for _, i := range order {
				gates[i] <- results[i].success
				<-done[i]
			}

			last := results[order[1]]
			agent, _ = f.store.Agent("ag1")
			assert.Equal(t, last.status, agent.Status)
		})
	}
}

func TestCallbacks_BeforeExecuteFailsRun(t *testing.T) {
	f := newFixture(t)
	withExecutor(f, core.AgentTypeEmailFetch, testutil.Succeed())
	cm := NewCallbackManager()
	cm.RegisterCallback(NewFunctionCallback(CallbackBeforeExecute, func(context.Context, *CallbackContext) error {
		return errors.New("quota exceeded")
	}))
	f.ctrl.callbacks = cm
	_, err := f.store.AddAgent(testutil.NewAgentBuilder("ag1", core.AgentTypeEmailFetch).Build())
	require.NoError(t, err)

	_, err = f.ctrl.ExecuteAgent(context.Background(), "ag1")
	require.ErrorIs(t, err, core.ErrExecutorFailure)
	agent, _ := f.store.Agent("ag1")
	assert.Equal(t, "quota exceeded", agent.Metadata.LastError)
}

func TestCallbacks_ResultValidationAndOnMessage(t *testing.T) {
	f := newFixture(t)
	withExecutor(f, core.AgentTypeEmailFetch, testutil.Succeed())

	var logged []string
	var replies []string
	cm := NewCallbackManager()
	cm.RegisterCallback(NewResultValidationCallback(func(r *core.ExecutionResult) error {
		if len(r.OutputAssets) == 0 {
			return errors.New("no outputs")
		}
		return nil
	}))
	cm.RegisterCallback(NewLoggingCallback(CallbackOnError, func(m string) { logged = append(logged, m) }))
	cm.RegisterCallback(NewFunctionCallback(CallbackOnMessage, func(_ context.Context, cc *CallbackContext) error {
		replies = append(replies, cc.Message.Content)
		return errors.New("ignored")
	}))
	f.ctrl.callbacks = cm

	_, err := f.store.AddAgent(testutil.NewAgentBuilder("ag1", core.AgentTypeEmailFetch).Build())
	require.NoError(t, err)
	_, err = f.ctrl.ExecuteAgent(context.Background(), "ag1")
	require.Error(t, err)
	require.Len(t, logged, 1)
	assert.Contains(t, logged[0], "[on_error] Agent: ag1 (EMAIL_FETCH), Error: no outputs")

	_, err = f.ctrl.ProcessMessage(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, replies)
}

func TestController_AssetFacadeNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.store.AddAsset(testutil.NewAssetBuilder("a1").Name("digest").Content(core.Text("x")).Build())
	require.NoError(t, err)

	saved, err := f.ctrl.SaveAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, saved.Persistence.IsInDB)
	note, _ := f.notes.Last()
	assert.Equal(t, core.NotificationSuccess, note.Level)

	_, err = f.ctrl.SaveAsset(ctx, "missing")
	require.ErrorIs(t, err, core.ErrNotFound)
	note, _ = f.notes.Last()
	assert.Equal(t, core.NotificationError, note.Level)

	up, err := f.ctrl.UploadFile(ctx, core.FileUpload{FileName: "r.csv", Data: []byte("a,b")})
	require.NoError(t, err)
	data, err := f.ctrl.DownloadFile(ctx, up.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("a,b"), data)

	require.NoError(t, f.ctrl.DeleteAsset(ctx, a.ID))
	_, ok := f.store.Asset(a.ID)
	assert.False(t, ok)

	loaded, err := f.ctrl.LoadAssets(ctx, core.DataTypeFile)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, up.ID, loaded[0].ID)
}

func TestController_RemoveAgentResetAndTypes(t *testing.T) {
	f := newFixture(t)
	withExecutor(f, core.AgentTypeEmailFetch, testutil.Succeed())
	withExecutor(f, core.AgentTypeEmailAccess, testutil.Succeed())
	assert.Equal(t, []core.AgentType{core.AgentTypeEmailAccess, core.AgentTypeEmailFetch}, f.ctrl.RegisteredTypes())

	_, err := f.store.AddAgent(testutil.NewAgentBuilder("ag1", core.AgentTypeEmailFetch).Build())
	require.NoError(t, err)
	require.NoError(t, f.ctrl.RemoveAgent("ag1"))
	assert.ErrorIs(t, f.ctrl.RemoveAgent("ag1"), core.ErrNotFound)

	before := f.ctrl.State().Metadata.SessionID
	_, err = f.ctrl.ProcessMessage(context.Background(), "hi")
	require.NoError(t, err)
	f.ctrl.Reset()
	state := f.ctrl.State()
	assert.Empty(t, state.Messages)
	assert.NotEqual(t, before, state.Metadata.SessionID)
}

func TestAgentFactory_CreateAgent(t *testing.T) {
	ids := []string{"o1", "o2", "ag"}
	n := 0
	factory := NewAgentFactory(func(o *FactoryOptions) {
		o.Clock = func() time.Time { return t0 }
		o.IDGenerator = func() string {
			id := ids[n%len(ids)]
			n++
			return id
		}
	})

	agent, err := factory.CreateAgent(core.AgentSpec{
		AgentType: core.AgentTypeEmailAccess,
		OutputAssetConfigs: []core.OutputAssetConfig{
			{DataType: core.DataTypeEmailList},
			{Name: "Second"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, core.AgentStatusIdle, agent.Status)
	assert.Equal(t, "EMAIL_ACCESS", agent.Name)
	assert.Len(t, agent.OutputAssetIDs, 2)
	assert.Equal(t, "ag", agent.ID)
	assert.Equal(t, []string{"o1", "o2"}, agent.OutputAssetIDs)
	assert.Equal(t, "Output 1", agent.OutputAssetConfigs[0].Name)
	assert.Equal(t, "Second", agent.OutputAssetConfigs[1].Name)
	assert.Equal(t, []string{}, agent.InputAssetIDs)
	assert.Equal(t, t0, agent.Metadata.CreatedAt)

	_, err = factory.CreateAgent(core.AgentSpec{})
	assert.ErrorIs(t, err, core.ErrValidation)
}

type chatFunc func(ctx context.Context, text string, history []core.Message, assets []core.Asset) (*core.ChatResponse, error)

func (f chatFunc) SendMessage(ctx context.Context, text string, history []core.Message, assets []core.Asset) (*core.ChatResponse, error) {
	return f(ctx, text, history, assets)
}
