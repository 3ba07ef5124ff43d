package core

import (
	"context"
	"encoding/json"
	"time"
)

// AgentJob is an agent declaration returned by the chat collaborator.
type AgentJob struct {
	AgentType          AgentType           `json:"agentType"`
	Name               string              `json:"name,omitempty"`
	Description        string              `json:"description,omitempty"`
	InputParameters    map[string]any      `json:"input_parameters,omitempty"`
	InputAssetIDs      []string            `json:"input_asset_ids,omitempty"`
	OutputAssetConfigs []OutputAssetConfig `json:"output_asset_configs"`
}

// SideEffects are the assets and agent jobs returned alongside a chat reply.
type SideEffects struct {
	Assets    []Asset    `json:"assets,omitempty"`
	AgentJobs []AgentJob `json:"agent_jobs,omitempty"`
}

// ChatResponse is the chat collaborator's reply to one user message.
type ChatResponse struct {
	Message     Message     `json:"message"`
	SideEffects SideEffects `json:"sideEffects"`
}

// ChatService turns a user message plus the conversation history and current
// asset snapshot into an assistant reply with optional side effects.
type ChatService interface {
	SendMessage(ctx context.Context, text string, history []Message, assets []Asset) (*ChatResponse, error)
}

// AssetInput is the payload sent to the asset repository on create/update.
type AssetInput struct {
	Name        string   `json:"name"`
	FileType    FileType `json:"fileType,omitempty"`
	DataType    DataType `json:"dataType,omitempty"`
	Description string   `json:"description,omitempty"`
	Content     Content  `json:"content"`
	Creator     string   `json:"creator,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// UnmarshalJSON decodes the content according to the declared data type.
func (in *AssetInput) UnmarshalJSON(data []byte) error {
	type alias AssetInput
	aux := struct {
		*alias
		Content json.RawMessage `json:"content"`
	}{alias: (*alias)(in)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	content, err := DecodeContent(in.DataType, aux.Content)
	if err != nil {
		return err
	}
	in.Content = content
	return nil
}

// InputFromAsset builds the repository payload for a local asset.
func InputFromAsset(a Asset) AssetInput {
	return AssetInput{
		Name:        a.Name,
		FileType:    a.FileType,
		DataType:    a.DataType,
		Description: a.Description,
		Content:     a.Content,
		Creator:     a.Metadata.Creator,
		Tags:        a.Metadata.Tags,
	}
}

// FileUpload is a binary file handed to the repository.
type FileUpload struct {
	Name        string
	Description string
	FileName    string
	ContentType string
	Data        []byte
}

// AssetRepository is the remote of record for assets. Every method returns
// the canonical server representation.
type AssetRepository interface {
	Create(ctx context.Context, in AssetInput) (Asset, error)
	Update(ctx context.Context, id string, in AssetInput) (Asset, error)
	Delete(ctx context.Context, id string) error
	// List returns all stored assets, or only those of dataType when non-empty.
	List(ctx context.Context, dataType DataType) ([]Asset, error)
	Upload(ctx context.Context, file FileUpload) (Asset, error)
	Download(ctx context.Context, id string) ([]byte, error)
}

// MessageFilter narrows a mailbox search. Empty fields match everything.
type MessageFilter struct {
	Query      string `json:"query,omitempty"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Label      string `json:"label,omitempty"`
	MaxResults int    `json:"maxResults,omitempty"`
}

// MessagingService is the mailbox collaborator consumed by executors.
type MessagingService interface {
	FetchMessages(ctx context.Context, filter MessageFilter) ([]Email, error)
	FetchMessage(ctx context.Context, id string) (Email, error)
}

// NotificationLevel grades a user-visible notification.
type NotificationLevel string

const (
	NotificationInfo    NotificationLevel = "info"
	NotificationSuccess NotificationLevel = "success"
	NotificationError   NotificationLevel = "error"
)

// Notification is a transient user-visible message.
type Notification struct {
	Level     NotificationLevel `json:"level"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
}

// Notifier surfaces transient notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// AgentSpec is the input of an AgentFactory.
type AgentSpec struct {
	AgentType          AgentType
	Name               string
	Description        string
	InputParameters    map[string]any
	InputAssetIDs      []string
	OutputAssetConfigs []OutputAssetConfig
	Metadata           map[string]any
}

// AgentFactory creates IDLE agents with a fresh agent id and one fresh output
// asset id per declared output config.
type AgentFactory interface {
	CreateAgent(spec AgentSpec) (Agent, error)
}
