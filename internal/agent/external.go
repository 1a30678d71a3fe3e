package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/bashclaw/bashclaw/internal/session"
)

// externalTimeout bounds one delegated CLI invocation.
const externalTimeout = 5 * time.Minute

// contextEnvelope wraps the user message when a turn is delegated to an
// external CLI, telling it what it is running inside of.
const contextEnvelope = `<bashclaw-context>
You are handling a message for the bashclaw agent %q. The bashclaw CLI is
available for follow-up work: "bashclaw agent -m <text>" runs another agent
turn, "bashclaw sessions list" shows stored sessions, "bashclaw cron list"
shows scheduled jobs. Reply with your final answer only.
</bashclaw-context>

%s`

// externalResult is the JSON the delegated CLI prints on success.
type externalResult struct {
	Result    string `json:"result"`
	SessionID string `json:"session_id"`
	IsError   bool   `json:"is_error"`
	Usage     struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// sessionMetaKey names the meta entry holding the external CLI's session id,
// replayed as --resume on the next delegated turn.
func sessionMetaKey(e Engine) string {
	if e == EngineClaude {
		return "cc_session_id"
	}
	return string(e) + "_session_id"
}

// runExternal delegates one turn to an external CLI. Invalid JSON or empty
// output yields empty text without surfacing an error to the caller.
func (r *Runtime) runExternal(ctx context.Context, store *session.Store, engine Engine, res Resolved, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, externalTimeout)
	defer cancel()

	prompt := fmt.Sprintf(contextEnvelope, res.AgentID, text)
	resume, _ := store.MetaValue(sessionMetaKey(engine))

	var args []string
	switch engine {
	case EngineClaude:
		args = []string{"-p", "--output-format", "json"}
		if resume != "" {
			args = append(args, "--resume", resume)
		}
		args = append(args, prompt)
	case EngineCodex:
		args = []string{"exec", "--json"}
		if resume != "" {
			args = append(args, "resume", resume)
		}
		args = append(args, prompt)
	default:
		return "", fmt.Errorf("engine %s cannot be delegated", engine)
	}

	cmd := exec.CommandContext(ctx, string(engine), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		r.logger.Warn("external engine failed", "engine", engine, "error", err, "stderr", strings.TrimSpace(stderr.String()))
	}

	if err := store.Append(session.UserEntry(text)); err != nil {
		return "", fmt.Errorf("append user entry: %w", err)
	}

	result, ok := parseExternalOutput(stdout.Bytes())
	if !ok {
		r.logger.Warn("external engine produced no parseable result", "engine", engine)
		return "", nil
	}

	if result.Result != "" {
		if err := store.Append(session.AssistantEntry(result.Result)); err != nil {
			return "", fmt.Errorf("append assistant entry: %w", err)
		}
	}
	if result.SessionID != "" {
		if err := store.SetMeta(sessionMetaKey(engine), result.SessionID); err != nil {
			r.logger.Warn("persist external session id failed", "error", err)
		}
	}
	r.logger.Debug("external engine turn complete",
		"engine", engine,
		"is_error", result.IsError,
		"input_tokens", result.Usage.InputTokens,
		"output_tokens", result.Usage.OutputTokens)

	return result.Result, nil
}

// parseExternalOutput extracts the result object from CLI output: either the
// whole output is one JSON object, or the last line that parses as one wins.
func parseExternalOutput(out []byte) (externalResult, bool) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return externalResult{}, false
	}

	var result externalResult
	if err := json.Unmarshal(trimmed, &result); err == nil {
		return result, true
	}

	lines := bytes.Split(trimmed, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		if err := json.Unmarshal(line, &result); err == nil {
			return result, true
		}
	}
	return externalResult{}, false
}
