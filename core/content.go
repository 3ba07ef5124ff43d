package core

import (
	"encoding/json"
	"fmt"
)

// DataType is the semantic tag describing the shape of an asset's content.
type DataType string

const (
	// DataTypeEmailList holds an ordered sequence of email records.
	DataTypeEmailList DataType = "EMAIL_LIST"
	// DataTypeEmail holds a single email record.
	DataTypeEmail DataType = "EMAIL"
	// DataTypeText holds plain text.
	DataTypeText DataType = "TEXT"
	// DataTypeFile references an uploaded binary file.
	DataTypeFile DataType = "FILE"
	// DataTypeJSON holds arbitrary JSON.
	DataTypeJSON DataType = "JSON"
)

// FileType is the storage format tag of an asset.
type FileType string

const (
	FileTypeJSON     FileType = "JSON"
	FileTypeText     FileType = "TEXT"
	FileTypeMarkdown FileType = "MARKDOWN"
	FileTypeCSV      FileType = "CSV"
	FileTypeBinary   FileType = "BINARY"
)

// Content is the closed set of asset payload shapes. A nil Content means the
// asset has no content yet (e.g. a PENDING placeholder).
type Content interface {
	DataType() DataType
	isContent()
}

// EmailBody carries the rendered bodies of an email.
type EmailBody struct {
	Plain string `json:"plain,omitempty"`
	HTML  string `json:"html,omitempty"`
}

// Email is a single message record as returned by the messaging collaborator.
// Date holds the provider timestamp, usually epoch milliseconds as a string.
type Email struct {
	ID       string    `json:"id,omitempty"`
	ThreadID string    `json:"threadId,omitempty"`
	Subject  string    `json:"subject"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Date     string    `json:"date"`
	Snippet  string    `json:"snippet,omitempty"`
	Body     EmailBody `json:"body"`
	Labels   []string  `json:"labels,omitempty"`
}

// EmailList is an ordered sequence of email records.
type EmailList []Email

// Text is plain text content.
type Text string

// FileRef describes an uploaded file whose bytes live with the repository.
type FileRef struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
}

// RawContent carries JSON content for data types without a dedicated shape.
type RawContent struct {
	Type DataType
	Data json.RawMessage
}

func (Email) DataType() DataType { return DataTypeEmail }
func (EmailList) DataType() DataType { return DataTypeEmailList }
func (Text) DataType() DataType { return DataTypeText }
func (FileRef) DataType() DataType { return DataTypeFile }
func (r RawContent) DataType() DataType { return r.Type }

func (Email) isContent() {}
func (EmailList) isContent() {}
func (Text) isContent() {}
func (FileRef) isContent() {}
func (RawContent) isContent() {}

// MarshalJSON emits the raw payload unchanged.
func (r RawContent) MarshalJSON() ([]byte, error) {
	if len(r.Data) == 0 {
		return []byte("null"), nil
	}
	return r.Data, nil
}

// DecodeContent decodes a JSON payload into the Content shape declared by dt.
// Empty input and JSON null decode to nil content.
func DecodeContent(dt DataType, data json.RawMessage) (Content, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	switch dt {
	case DataTypeEmailList:
		var list EmailList
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, NewValidation(fmt.Sprintf("content is not a valid %s: %v", dt, err))
		}
		return list, nil
	case DataTypeEmail:
		var email Email
		if err := json.Unmarshal(data, &email); err != nil {
			return nil, NewValidation(fmt.Sprintf("content is not a valid %s: %v", dt, err))
		}
		return email, nil
	case DataTypeText:
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return nil, NewValidation(fmt.Sprintf("content is not a valid %s: %v", dt, err))
		}
		return Text(text), nil
	case DataTypeFile:
		var ref FileRef
		if err := json.Unmarshal(data, &ref); err != nil {
			return nil, NewValidation(fmt.Sprintf("content is not a valid %s: %v", dt, err))
		}
		return ref, nil
	default:
		if !json.Valid(data) {
			return nil, NewValidation(fmt.Sprintf("content is not valid JSON for %s", dt))
		}
		cp := make(json.RawMessage, len(data))
		copy(cp, data)
		return RawContent{Type: dt, Data: cp}, nil
	}
}

// CheckContent reports a ValidationError when c does not match the declared
// data type. Nil content and an undeclared data type always pass.
func CheckContent(dt DataType, c Content) error {
	if c == nil || dt == "" {
		return nil
	}
	if c.DataType() != dt {
		return NewValidation(fmt.Sprintf("content of type %s does not match declared data type %s", c.DataType(), dt))
	}
	return nil
}

// RecordCount returns the number of email records held by c.
func RecordCount(c Content) int {
	switch v := c.(type) {
	case EmailList:
		return len(v)
	case Email:
		return 1
	default:
		return 0
	}
}

// cloneContent copies the mutable parts of c so stored values never alias
// caller-owned slices.
func cloneContent(c Content) Content {
	switch v := c.(type) {
	case EmailList:
		out := make(EmailList, len(v))
		for i, e := range v {
			out[i] = e.clone()
		}
		return out
	case Email:
		return v.clone()
	case RawContent:
		data := make(json.RawMessage, len(v.Data))
		copy(data, v.Data)
		return RawContent{Type: v.Type, Data: data}
	default:
		return c
	}
}

func (e Email) clone() Email {
	if e.Labels != nil {
		e.Labels = append([]string(nil), e.Labels...)
	}
	return e
}
