package providers

import (
	"encoding/json"
	"net/http"

	"github.com/bashclaw/bashclaw/internal/catalog"
	"github.com/bashclaw/bashclaw/pkg/protocol"
	"github.com/google/uuid"
)

// googleAdapter speaks the Gemini generateContent wire format. Gemini has no
// tool-call ids on the wire, so the adapter synthesizes unique ids on decode
// and maps them back to function names on encode.
type googleAdapter struct{}

type googleRequest struct {
	SystemInstruction *googleContent   `json:"systemInstruction,omitempty"`
	Contents          []googleContent  `json:"contents"`
	Tools             []googleToolDecl `json:"tools,omitempty"`
	GenerationConfig  *googleGenConfig `json:"generationConfig,omitempty"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *googleFuncCall   `json:"functionCall,omitempty"`
	FunctionResponse *googleFuncResult `json:"functionResponse,omitempty"`
	InlineData       *googleInlineData `json:"inlineData,omitempty"`
}

type googleFuncCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type googleFuncResult struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type googleInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type googleToolDecl struct {
	FunctionDeclarations []googleFuncDecl `json:"functionDeclarations"`
}

type googleFuncDecl struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type googleGenConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type googleResponse struct {
	Candidates []struct {
		Content      googleContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

func (googleAdapter) EncodeRequest(p catalog.Provider, req *Request) ([]byte, error) {
	wire := googleRequest{}
	if req.System != "" {
		wire.SystemInstruction = &googleContent{Parts: []googlePart{{Text: req.System}}}
	}

	cfg := &googleGenConfig{MaxOutputTokens: req.MaxTokens}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = catalog.LookupModel(req.Model).MaxOutput
	}
	if req.Temperature > 0 {
		t := req.Temperature
		cfg.Temperature = &t
	}
	wire.GenerationConfig = cfg

	if len(req.Tools) > 0 {
		decl := googleToolDecl{}
		for _, t := range req.Tools {
			decl.FunctionDeclarations = append(decl.FunctionDeclarations, googleFuncDecl{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			})
		}
		wire.Tools = []googleToolDecl{decl}
	}

	// Gemini identifies a function response by name, not id. Track id->name
	// from the tool_use blocks seen so far.
	callNames := map[string]string{}
	for _, msg := range req.Messages {
		role := "user"
		if msg.Role == protocol.RoleAssistant {
			role = "model"
		}
		wc := googleContent{Role: role}
		for _, b := range msg.Content {
			switch b.Type {
			case protocol.BlockText:
				wc.Parts = append(wc.Parts, googlePart{Text: b.Text})
			case protocol.BlockToolUse:
				callNames[b.ID] = b.Name
				wc.Parts = append(wc.Parts, googlePart{FunctionCall: &googleFuncCall{Name: b.Name, Args: b.Input}})
			case protocol.BlockToolResult:
				name := callNames[b.ToolUseID]
				if name == "" {
					name = b.ToolUseID
				}
				response := map[string]any{"result": b.Content}
				if b.IsError {
					response["error"] = b.Content
				}
				wc.Parts = append(wc.Parts, googlePart{FunctionResponse: &googleFuncResult{Name: name, Response: response}})
			case protocol.BlockImage:
				wc.Parts = append(wc.Parts, googlePart{InlineData: &googleInlineData{MimeType: b.MediaType, Data: b.Data}})
			}
		}
		if len(wc.Parts) > 0 {
			wire.Contents = append(wire.Contents, wc)
		}
	}
	return json.Marshal(wire)
}

func (googleAdapter) DecodeResponse(body []byte) (*protocol.Response, error) {
	var wire googleResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, err
	}

	resp := &protocol.Response{Model: wire.ModelVersion, StopReason: protocol.StopEndTurn}
	resp.Usage.InputTokens = wire.UsageMetadata.PromptTokenCount
	resp.Usage.OutputTokens = wire.UsageMetadata.CandidatesTokenCount

	if len(wire.Candidates) == 0 {
		return resp, nil
	}
	candidate := wire.Candidates[0]

	hasCall := false
	for _, part := range candidate.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			hasCall = true
			id := "call-" + uuid.NewString()[:8]
			resp.Content = append(resp.Content, protocol.ToolUseBlock(id, part.FunctionCall.Name, part.FunctionCall.Args))
		case part.Text != "":
			if text := stripThinking(part.Text); text != "" {
				resp.Content = append(resp.Content, protocol.TextBlock(text))
			}
		}
	}

	switch {
	case hasCall:
		resp.StopReason = protocol.StopToolUse
	case candidate.FinishReason == "MAX_TOKENS":
		resp.StopReason = protocol.StopMaxTokens
	default:
		resp.StopReason = protocol.StopEndTurn
	}
	return resp, nil
}

func (googleAdapter) Endpoint(p catalog.Provider, model string) string {
	return p.ResolveBaseURL() + "/models/" + model + ":generateContent"
}

func (googleAdapter) Headers(p catalog.Provider) http.Header {
	h := http.Header{}
	h.Set("x-goog-api-key", p.APIKey())
	return h
}
