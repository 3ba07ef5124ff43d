package artifact

import (
	"strings"
	"time"

	"github.com/hupe1980/assetflow/core"
)

// ValidateInput checks the fields every backend requires before storing.
func ValidateInput(in core.AssetInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return core.NewValidation("asset name is required")
	}
	return core.CheckContent(in.DataType, in.Content)
}

// NewRecord builds the canonical representation of a freshly created asset.
func NewRecord(id string, in core.AssetInput, now time.Time) core.Asset {
	a := core.Asset{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		FileType:    in.FileType,
		DataType:    in.DataType,
		Content:     in.Content,
		Status:      core.AssetStatusReady,
		Metadata: core.AssetMetadata{
			CreatedAt: now,
			UpdatedAt: now,
			Creator:   in.Creator,
			Tags:      in.Tags,
			Version:   1,
		},
	}
	return a.Clone()
}

// UpdateRecord applies in to the stored representation cur.
func UpdateRecord(cur core.Asset, in core.AssetInput, now time.Time) core.Asset {
	next := cur.Clone()
	next.Name = in.Name
	next.Description = in.Description
	if in.FileType != "" {
		next.FileType = in.FileType
	}
	if in.DataType != "" {
		next.DataType = in.DataType
	}
	if in.Content != nil {
		next.Content = in.Content
	}
	if in.Creator != "" {
		next.Metadata.Creator = in.Creator
	}
	if in.Tags != nil {
		next.Metadata.Tags = in.Tags
	}
	next.Metadata.UpdatedAt = now
	next.Metadata.Version = cur.Metadata.Version + 1
	return next.Clone()
}

// FileRecord builds the canonical representation of an uploaded file.
func FileRecord(id string, file core.FileUpload, now time.Time) core.Asset {
	return NewRecord(id, core.AssetInput{
		Name:        file.Name,
		Description: file.Description,
		FileType:    core.FileTypeBinary,
		DataType:    core.DataTypeFile,
		Content: core.FileRef{
			FileName:    file.FileName,
			ContentType: file.ContentType,
			Size:        int64(len(file.Data)),
		},
	}, now)
}

// Matches reports whether a satisfies a List filter.
func Matches(a core.Asset, dataType core.DataType) bool {
	return dataType == "" || a.DataType == dataType
}
