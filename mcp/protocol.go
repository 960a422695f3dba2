// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Meta carries the reserved "_meta" object that may appear on any request's
// params. Its only field used by this module is the progress token. X holds
// additional keys for GetMeta to report; it is never encoded or decoded.
type Meta struct {
	ProgressToken any            `json:"progressToken,omitempty"`
	X             map[string]any `json:"-"`
}

const progressTokenKey = "progressToken"

// GetMeta returns the X keys and the progress token, if set, as one plain
// map. Progress tokens are read through GetProgressToken, not through GetMeta.
func (m Meta) GetMeta() map[string]any {
	out := map[string]any{}
	for k, v := range m.X {
		out[k] = v
	}
	if m.ProgressToken != nil {
		out[progressTokenKey] = m.ProgressToken
	}
	return out
}

// Params is implemented by every RPC params type.
type Params interface {
	isParams()
	GetProgressToken() any
	SetProgressToken(t any)
}

// Result is implemented by every RPC result type.
type Result interface {
	isResult()
}

type hasMetaField interface{ metaField() *Meta }

func getProgressToken(p any) any {
	if hm, ok := p.(hasMetaField); ok {
		return hm.metaField().ProgressToken
	}
	return nil
}

func setProgressToken(p any, t any) {
	if hm, ok := p.(hasMetaField); ok {
		hm.metaField().ProgressToken = t
	}
}

// Role identifies the originator of a sampling message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Implementation identifies a client or server application.
type Implementation struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Version string `json:"version"`
}

// RootCapabilities describes the client's support for the roots/list method.
type RootCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// SamplingCapabilities describes the client's support for sampling/createMessage.
type SamplingCapabilities struct{}

// ElicitationCapabilities describes the client's support for elicitation.
type ElicitationCapabilities struct{}

// ClientCapabilities is sent by the client during initialize.
type ClientCapabilities struct {
	Experimental map[string]any           `json:"experimental,omitempty"`
	Roots        *RootCapabilities        `json:"roots,omitempty"`
	Sampling     *SamplingCapabilities    `json:"sampling,omitempty"`
	Elicitation  *ElicitationCapabilities `json:"elicitation,omitempty"`
}

// ToolCapabilities, PromptCapabilities, ResourceCapabilities, and
// LoggingCapabilities describe the server's advertised feature set.
type ToolCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type PromptCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type ResourceCapabilities struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

type LoggingCapabilities struct{}

// ServerCapabilities is returned by the server during initialize.
type ServerCapabilities struct {
	Experimental map[string]any        `json:"experimental,omitempty"`
	Logging      *LoggingCapabilities  `json:"logging,omitempty"`
	Prompts      *PromptCapabilities   `json:"prompts,omitempty"`
	Resources    *ResourceCapabilities `json:"resources,omitempty"`
	Tools        *ToolCapabilities     `json:"tools,omitempty"`
}

// InitializeParams are the parameters of an initialize request.
type InitializeParams struct {
	Meta
	Capabilities    *ClientCapabilities `json:"capabilities"`
	ClientInfo      *Implementation     `json:"clientInfo"`
	ProtocolVersion string              `json:"protocolVersion"`
}

func (p *InitializeParams) metaField() *Meta      { return &p.Meta }
func (*InitializeParams) isParams()               {}
func (p *InitializeParams) GetProgressToken() any  { return getProgressToken(p) }
func (p *InitializeParams) SetProgressToken(t any) { setProgressToken(p, t) }

// InitializeResult is returned from a successful initialize request.
type InitializeResult struct {
	Meta
	Capabilities    *ServerCapabilities `json:"capabilities"`
	Instructions    string              `json:"instructions,omitempty"`
	ProtocolVersion string              `json:"protocolVersion"`
	ServerInfo      *Implementation     `json:"serverInfo"`
}

func (*InitializeResult) isResult() {}

// PingParams are the (empty) parameters of a ping request.
type PingParams struct {
	Meta
}

func (p *PingParams) metaField() *Meta      { return &p.Meta }
func (*PingParams) isParams()               {}
func (p *PingParams) GetProgressToken() any  { return getProgressToken(p) }
func (p *PingParams) SetProgressToken(t any) { setProgressToken(p, t) }

// PingResult is the (empty) result of a ping request.
type PingResult struct{ Meta }

func (*PingResult) isResult() {}

// CancelledParams are the parameters of a notifications/cancelled notification.
type CancelledParams struct {
	Meta
	Reason    string `json:"reason,omitempty"`
	RequestID any    `json:"requestId"`
}

func (p *CancelledParams) metaField() *Meta      { return &p.Meta }
func (*CancelledParams) isParams()               {}
func (p *CancelledParams) GetProgressToken() any  { return getProgressToken(p) }
func (p *CancelledParams) SetProgressToken(t any) { setProgressToken(p, t) }

// ProgressNotificationParams are the parameters of a notifications/progress notification.
type ProgressNotificationParams struct {
	Meta
	Message       string  `json:"message,omitempty"`
	Progress      float64 `json:"progress"`
	ProgressToken any     `json:"progressToken"`
	Total         float64 `json:"total,omitempty"`
}

func (p *ProgressNotificationParams) metaField() *Meta { return &p.Meta }
func (*ProgressNotificationParams) isParams()          {}

// LoggingLevel is one of the RFC 5424 syslog severity levels, as used by
// logging/setLevel and notifications/message.
type LoggingLevel string

const (
	LoggingLevelDebug     LoggingLevel = "debug"
	LoggingLevelInfo      LoggingLevel = "info"
	LoggingLevelNotice    LoggingLevel = "notice"
	LoggingLevelWarning   LoggingLevel = "warning"
	LoggingLevelError     LoggingLevel = "error"
	LoggingLevelCritical  LoggingLevel = "critical"
	LoggingLevelAlert     LoggingLevel = "alert"
	LoggingLevelEmergency LoggingLevel = "emergency"
)

// SetLoggingLevelParams are the parameters of a logging/setLevel request.
type SetLoggingLevelParams struct {
	Meta
	Level LoggingLevel `json:"level"`
}

func (p *SetLoggingLevelParams) metaField() *Meta      { return &p.Meta }
func (*SetLoggingLevelParams) isParams()               {}
func (p *SetLoggingLevelParams) GetProgressToken() any  { return getProgressToken(p) }
func (p *SetLoggingLevelParams) SetProgressToken(t any) { setProgressToken(p, t) }

// SetLoggingLevelResult is the (empty) result of logging/setLevel.
type SetLoggingLevelResult struct{ Meta }

func (*SetLoggingLevelResult) isResult() {}

// LoggingMessageParams are the parameters of a notifications/message notification.
type LoggingMessageParams struct {
	Meta
	Data   any          `json:"data"`
	Level  LoggingLevel `json:"level"`
	Logger string       `json:"logger,omitempty"`
}

func (p *LoggingMessageParams) metaField() *Meta { return &p.Meta }
func (*LoggingMessageParams) isParams()          {}

// Annotations provide optional hints about how a resource or content block
// should be used.
type Annotations struct {
	Audience     []Role  `json:"audience,omitempty"`
	LastModified string  `json:"lastModified,omitempty"`
	Priority     float64 `json:"priority,omitempty"`
}

// ListParams is embedded by every paginated list request. The cursor
// convention (§4.2) is: the name (or uri, for resources) of the last
// returned item; absent means start from the beginning.
type ListParams struct {
	Meta
	Cursor string `json:"cursor,omitempty"`
}

func (p *ListParams) metaField() *Meta      { return &p.Meta }
func (*ListParams) isParams()               {}
func (p *ListParams) GetProgressToken() any  { return getProgressToken(p) }
func (p *ListParams) SetProgressToken(t any) { setProgressToken(p, t) }

// ListResult is embedded by every paginated list result.
type ListResult struct {
	Meta
	NextCursor string `json:"nextCursor,omitempty"`
}

// Tool describes a single callable tool.
type Tool struct {
	Annotations  *ToolAnnotations    `json:"annotations,omitempty"`
	Description  string              `json:"description,omitempty"`
	InputSchema  *jsonschema.Schema  `json:"inputSchema"`
	Name         string              `json:"name"`
	OutputSchema *jsonschema.Schema  `json:"outputSchema,omitempty"`
	Title        string              `json:"title,omitempty"`

	// newArgs constructs a fresh value to unmarshal tools/call arguments
	// into. Set by newServerTool/newTypedServerTool; nil for a Tool that
	// was only ever received from a peer (e.g. tools/list on the client).
	newArgs func() any `json:"-"`
}

// ToolAnnotations are hints about a tool's behavior.
type ToolAnnotations struct {
	DestructiveHint *bool  `json:"destructiveHint,omitempty"`
	IdempotentHint  bool   `json:"idempotentHint,omitempty"`
	OpenWorldHint   *bool  `json:"openWorldHint,omitempty"`
	ReadOnlyHint    bool   `json:"readOnlyHint,omitempty"`
	Title           string `json:"title,omitempty"`
}

// ListToolsParams are the parameters of a tools/list request.
type ListToolsParams struct{ ListParams }

// ListToolsResult is the result of a tools/list request.
type ListToolsResult struct {
	ListResult
	Tools []*Tool `json:"tools"`
}

func (*ListToolsResult) isResult() {}

// CallToolParams are the parameters of a tools/call request.
type CallToolParams struct {
	Meta
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Name      string          `json:"name"`
}

func (p *CallToolParams) metaField() *Meta      { return &p.Meta }
func (*CallToolParams) isParams()               {}
func (p *CallToolParams) GetProgressToken() any  { return getProgressToken(p) }
func (p *CallToolParams) SetProgressToken(t any) { setProgressToken(p, t) }

// CallToolResult is the result of a tools/call request.
type CallToolResult struct {
	Meta
	Content           []Content `json:"content"`
	IsError           bool      `json:"isError,omitempty"`
	StructuredContent any       `json:"structuredContent,omitempty"`
}

func (*CallToolResult) isResult() {}

// SetError records err on the result and marks it as an error result,
// matching the convention that tool errors are reported in-band rather than
// as JSON-RPC errors (spec §7: "domain errors from handlers").
func (r *CallToolResult) SetError(err error) {
	if err == nil {
		return
	}
	r.IsError = true
	r.Content = append(r.Content, &TextContent{Text: err.Error()})
}

// Resource describes a single server-exposed resource.
type Resource struct {
	Annotations *Annotations `json:"annotations,omitempty"`
	Description string       `json:"description,omitempty"`
	MIMEType    string       `json:"mimeType,omitempty"`
	Name        string       `json:"name"`
	Size        *int64       `json:"size,omitempty"`
	Title       string       `json:"title,omitempty"`
	URI         string       `json:"uri"`
}

// ResourceTemplate describes a parameterized family of resources.
type ResourceTemplate struct {
	Annotations *Annotations `json:"annotations,omitempty"`
	Description string       `json:"description,omitempty"`
	MIMEType    string       `json:"mimeType,omitempty"`
	Name        string       `json:"name"`
	Title       string       `json:"title,omitempty"`
	URITemplate string       `json:"uriTemplate"`
}

// ListResourcesParams are the parameters of a resources/list request.
type ListResourcesParams struct{ ListParams }

// ListResourcesResult is the result of a resources/list request.
type ListResourcesResult struct {
	ListResult
	Resources []*Resource `json:"resources"`
}

func (*ListResourcesResult) isResult() {}

// ListResourceTemplatesParams are the parameters of a resources/templates/list request.
type ListResourceTemplatesParams struct{ ListParams }

// ListResourceTemplatesResult is the result of a resources/templates/list request.
type ListResourceTemplatesResult struct {
	ListResult
	ResourceTemplates []*ResourceTemplate `json:"resourceTemplates"`
}

func (*ListResourceTemplatesResult) isResult() {}

// ReadResourceParams are the parameters of a resources/read request.
type ReadResourceParams struct {
	Meta
	URI string `json:"uri"`
}

func (p *ReadResourceParams) metaField() *Meta      { return &p.Meta }
func (*ReadResourceParams) isParams()               {}
func (p *ReadResourceParams) GetProgressToken() any  { return getProgressToken(p) }
func (p *ReadResourceParams) SetProgressToken(t any) { setProgressToken(p, t) }

// ResourceContents is a single item returned from resources/read.
type ResourceContents struct {
	Blob     string `json:"blob,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	URI      string `json:"uri"`
}

// ReadResourceResult is the result of a resources/read request.
type ReadResourceResult struct {
	Meta
	Contents []*ResourceContents `json:"contents"`
}

func (*ReadResourceResult) isResult() {}

// SubscribeParams are the parameters of a resources/subscribe request.
type SubscribeParams struct {
	Meta
	URI string `json:"uri"`
}

func (p *SubscribeParams) metaField() *Meta      { return &p.Meta }
func (*SubscribeParams) isParams()               {}
func (p *SubscribeParams) GetProgressToken() any  { return getProgressToken(p) }
func (p *SubscribeParams) SetProgressToken(t any) { setProgressToken(p, t) }

// SubscribeResult is the (empty) result of resources/subscribe.
type SubscribeResult struct{ Meta }

func (*SubscribeResult) isResult() {}

// UnsubscribeParams are the parameters of a resources/unsubscribe request.
type UnsubscribeParams struct {
	Meta
	URI string `json:"uri"`
}

func (p *UnsubscribeParams) metaField() *Meta      { return &p.Meta }
func (*UnsubscribeParams) isParams()               {}
func (p *UnsubscribeParams) GetProgressToken() any  { return getProgressToken(p) }
func (p *UnsubscribeParams) SetProgressToken(t any) { setProgressToken(p, t) }

// UnsubscribeResult is the (empty) result of resources/unsubscribe.
type UnsubscribeResult struct{ Meta }

func (*UnsubscribeResult) isResult() {}

// ResourceUpdatedNotificationParams are the parameters of a
// notifications/resources/updated notification.
type ResourceUpdatedNotificationParams struct {
	Meta
	URI string `json:"uri"`
}

func (p *ResourceUpdatedNotificationParams) metaField() *Meta { return &p.Meta }
func (*ResourceUpdatedNotificationParams) isParams()          {}

// ListChangedParams are the (empty) parameters shared by the
// notifications/{tools,prompts,resources}/list_changed notifications.
type ListChangedParams struct{ Meta }

func (p *ListChangedParams) metaField() *Meta { return &p.Meta }
func (*ListChangedParams) isParams()          {}

// Prompt describes a single prompt template.
type Prompt struct {
	Arguments   []*PromptArgument `json:"arguments,omitempty"`
	Description string            `json:"description,omitempty"`
	Name        string            `json:"name"`
	Title       string            `json:"title,omitempty"`
}

// PromptArgument describes a single argument a prompt accepts.
type PromptArgument struct {
	Description string `json:"description,omitempty"`
	Name        string `json:"name"`
	Required    bool   `json:"required,omitempty"`
	Title       string `json:"title,omitempty"`
}

// PromptMessage is one message in a prompts/get result.
type PromptMessage struct {
	Content Content `json:"content"`
	Role    Role    `json:"role"`
}

// ListPromptsParams are the parameters of a prompts/list request.
type ListPromptsParams struct{ ListParams }

// ListPromptsResult is the result of a prompts/list request.
type ListPromptsResult struct {
	ListResult
	Prompts []*Prompt `json:"prompts"`
}

func (*ListPromptsResult) isResult() {}

// GetPromptParams are the parameters of a prompts/get request.
type GetPromptParams struct {
	Meta
	Arguments map[string]string `json:"arguments,omitempty"`
	Name      string            `json:"name"`
}

func (p *GetPromptParams) metaField() *Meta      { return &p.Meta }
func (*GetPromptParams) isParams()               {}
func (p *GetPromptParams) GetProgressToken() any  { return getProgressToken(p) }
func (p *GetPromptParams) SetProgressToken(t any) { setProgressToken(p, t) }

// GetPromptResult is the result of a prompts/get request.
type GetPromptResult struct {
	Meta
	Description string           `json:"description,omitempty"`
	Messages    []*PromptMessage `json:"messages"`
}

func (*GetPromptResult) isResult() {}

// CompleteReference identifies the prompt or resource a completion/complete
// request is completing an argument for.
type CompleteReference struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// CompleteParamsArgument is the argument being completed.
type CompleteParamsArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CompleteContext carries already-resolved argument values for completion.
type CompleteContext struct {
	Arguments map[string]string `json:"arguments,omitempty"`
}

// CompleteParams are the parameters of a completion/complete request.
type CompleteParams struct {
	Meta
	Argument CompleteParamsArgument `json:"argument"`
	Context  *CompleteContext       `json:"context,omitempty"`
	Ref      *CompleteReference     `json:"ref"`
}

func (p *CompleteParams) metaField() *Meta      { return &p.Meta }
func (*CompleteParams) isParams()               {}
func (p *CompleteParams) GetProgressToken() any  { return getProgressToken(p) }
func (p *CompleteParams) SetProgressToken(t any) { setProgressToken(p, t) }

// CompletionResultDetails carries the candidate completion values.
type CompletionResultDetails struct {
	HasMore bool     `json:"hasMore,omitempty"`
	Total   int      `json:"total,omitempty"`
	Values  []string `json:"values"`
}

// CompleteResult is the result of a completion/complete request.
type CompleteResult struct {
	Meta
	Completion CompletionResultDetails `json:"completion"`
}

func (*CompleteResult) isResult() {}

// SamplingMessage is one message in a sampling/createMessage request. Full
// content generation is a Non-goal; the type is carried so the envelope and
// notification plumbing exist for a host to wire an external sampler.
type SamplingMessage struct {
	Content Content `json:"content"`
	Role    Role    `json:"role"`
}
