package core

import (
	"encoding/json"
	"time"
)

// AssetStatus is the lifecycle state of an asset.
type AssetStatus string

const (
	AssetStatusPending    AssetStatus = "PENDING"
	AssetStatusProcessing AssetStatus = "PROCESSING"
	AssetStatusReady      AssetStatus = "READY"
	AssetStatusError      AssetStatus = "ERROR"
)

// Persistence tracks how an in-memory asset relates to its remote of record.
//
// IsInDB flips true only through the persistence bridge. IsDirty flips true
// on any local mutation made after a successful sync and clears only on the
// next successful sync. RemoteID is the identifier assigned by the remote; the
// local key never changes.
type Persistence struct {
	IsInDB       bool       `json:"isInDb"`
	IsDirty      bool       `json:"isDirty"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	RemoteID     string     `json:"remoteId,omitempty"`
}

// AssetMetadata is the typed core metadata of an asset. Extra is the open
// extension map for everything outside the core schema.
type AssetMetadata struct {
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Creator   string         `json:"creator,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Version   int            `json:"version,omitempty"`
	AgentID   string         `json:"agentId,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Asset is a named, content-bearing artifact. Content must match DataType
// (see CheckContent).
type Asset struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	FileType    FileType      `json:"fileType,omitempty"`
	DataType    DataType      `json:"dataType,omitempty"`
	Content     Content       `json:"content"`
	Status      AssetStatus   `json:"status"`
	Persistence Persistence   `json:"persistence"`
	Metadata    AssetMetadata `json:"metadata"`
}

// UnmarshalJSON decodes the content according to the declared data type.
func (a *Asset) UnmarshalJSON(data []byte) error {
	type alias Asset
	aux := struct {
		*alias
		Content json.RawMessage `json:"content"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	content, err := DecodeContent(a.DataType, aux.Content)
	if err != nil {
		return err
	}
	a.Content = content
	return nil
}

// Clone returns a deep copy of the asset.
func (a Asset) Clone() Asset {
	a.Content = cloneContent(a.Content)
	if a.Persistence.LastSyncedAt != nil {
		t := *a.Persistence.LastSyncedAt
		a.Persistence.LastSyncedAt = &t
	}
	if a.Metadata.Tags != nil {
		a.Metadata.Tags = append([]string(nil), a.Metadata.Tags...)
	}
	a.Metadata.Extra = cloneMap(a.Metadata.Extra)
	return a
}

// PersistencePatch is a partial update of Persistence; nil fields are untouched.
type PersistencePatch struct {
	IsInDB       *bool
	IsDirty      *bool
	LastSyncedAt *time.Time
	RemoteID     *string
}

// AssetMetadataPatch is a partial update of AssetMetadata. A nil Tags leaves
// the tags untouched; Extra is merged key by key.
type AssetMetadataPatch struct {
	CreatedAt *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
	Creator   *string        `json:"creator,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Version   *int           `json:"version,omitempty"`
	AgentID   *string        `json:"agentId,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// AssetPatch is a partial asset. Top-level fields are replaced when set, the
// Persistence and Metadata sub-patches are merged field by field. A nil
// Content leaves the content untouched.
type AssetPatch struct {
	Name        *string             `json:"name,omitempty"`
	Description *string             `json:"description,omitempty"`
	FileType    *FileType           `json:"fileType,omitempty"`
	DataType    *DataType           `json:"dataType,omitempty"`
	Content     Content             `json:"content,omitempty"`
	Status      *AssetStatus        `json:"status,omitempty"`
	Persistence *PersistencePatch   `json:"-"`
	Metadata    *AssetMetadataPatch `json:"metadata,omitempty"`
}

// UnmarshalJSON decodes the content according to the patch's data type.
// Without one the payload is kept as untyped RawContent.
func (p *AssetPatch) UnmarshalJSON(data []byte) error {
	type alias AssetPatch
	aux := struct {
		*alias
		Content json.RawMessage `json:"content"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var dt DataType
	if p.DataType != nil {
		dt = *p.DataType
	}
	content, err := DecodeContent(dt, aux.Content)
	if err != nil {
		return err
	}
	p.Content = content
	return nil
}

// Apply returns a copy of a with p merged in. a itself is never modified.
func (a Asset) Apply(p AssetPatch) Asset {
	out := a.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.FileType != nil {
		out.FileType = *p.FileType
	}
	if p.DataType != nil {
		out.DataType = *p.DataType
	}
	if p.Content != nil {
		out.Content = cloneContent(p.Content)
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if pp := p.Persistence; pp != nil {
		if pp.IsInDB != nil {
			out.Persistence.IsInDB = *pp.IsInDB
		}
		if pp.IsDirty != nil {
			out.Persistence.IsDirty = *pp.IsDirty
		}
		if pp.LastSyncedAt != nil {
			t := *pp.LastSyncedAt
			out.Persistence.LastSyncedAt = &t
		}
		if pp.RemoteID != nil {
			out.Persistence.RemoteID = *pp.RemoteID
		}
	}
	if mp := p.Metadata; mp != nil {
		if mp.CreatedAt != nil {
			out.Metadata.CreatedAt = *mp.CreatedAt
		}
		if mp.UpdatedAt != nil {
			out.Metadata.UpdatedAt = *mp.UpdatedAt
		}
		if mp.Creator != nil {
			out.Metadata.Creator = *mp.Creator
		}
		if mp.Tags != nil {
			out.Metadata.Tags = append([]string(nil), mp.Tags...)
		}
		if mp.Version != nil {
			out.Metadata.Version = *mp.Version
		}
		if mp.AgentID != nil {
			out.Metadata.AgentID = *mp.AgentID
		}
		out.Metadata.Extra = mergeMap(out.Metadata.Extra, mp.Extra)
	}
	return out
}

// RemoteKey returns the identifier the remote of record knows this asset by.
func (a Asset) RemoteKey() string {
	if a.Persistence.RemoteID != "" {
		return a.Persistence.RemoteID
	}
	return a.ID
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// mergeMap returns a new map holding base overlaid with delta.
func mergeMap(base, delta map[string]any) map[string]any {
	if len(delta) == 0 {
		return base
	}
	out := make(map[string]any, len(base)+len(delta))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range delta {
		out[k] = v
	}
	return out
}
