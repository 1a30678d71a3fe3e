package agent

import "os/exec"

// Engine selects what executes a turn: the built-in tool loop or an external
// coding CLI the turn is delegated to.
type Engine string

const (
	EngineBuiltin Engine = "builtin"
	EngineClaude  Engine = "claude"
	EngineCodex   Engine = "codex"
	EngineAuto    Engine = "auto"
)

// ParseEngine normalizes a config value. Unknown values fall back to builtin.
func ParseEngine(s string) Engine {
	switch Engine(s) {
	case EngineClaude, EngineCodex, EngineAuto:
		return Engine(s)
	default:
		return EngineBuiltin
	}
}

// resolveAuto picks the first external CLI found on PATH, or builtin when
// neither is installed. Non-auto engines pass through unchanged.
func resolveAuto(e Engine, lookPath func(string) (string, error)) Engine {
	if e != EngineAuto {
		return e
	}
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for _, candidate := range []Engine{EngineClaude, EngineCodex} {
		if _, err := lookPath(string(candidate)); err == nil {
			return candidate
		}
	}
	return EngineBuiltin
}
