package session

import (
	"path/filepath"
	"strings"
)

// Scope selects how sessions are partitioned across senders and channels.
type Scope string

const (
	// ScopePerSender gives every (channel, sender) pair its own session.
	ScopePerSender Scope = "per-sender"
	// ScopePerChannel shares one session per channel.
	ScopePerChannel Scope = "per-channel"
	// ScopeGlobal shares one session for the whole agent.
	ScopeGlobal Scope = "global"
)

// ParseScope maps a config string to a Scope, defaulting to per-sender.
func ParseScope(s string) Scope {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ScopePerChannel):
		return ScopePerChannel
	case string(ScopeGlobal):
		return ScopeGlobal
	default:
		return ScopePerSender
	}
}

// Path resolves the session file for an identity under root. The layout is a
// pure function of scope plus identity:
//
//	per-sender:  {root}/{agent}/{channel}/{sender}.jsonl
//	per-channel: {root}/{agent}/{channel}.jsonl
//	global:      {root}/{agent}.jsonl
//
// A per-sender scope with an empty sender degrades to the per-channel path.
func Path(root, agentID, channel, sender string, scope Scope) string {
	agentID = sanitizeSegment(agentID)
	channel = sanitizeSegment(channel)
	sender = sanitizeSegment(sender)
	if agentID == "" {
		agentID = "main"
	}

	switch scope {
	case ScopeGlobal:
		return filepath.Join(root, agentID+".jsonl")
	case ScopePerChannel:
		return filepath.Join(root, agentID, channel+".jsonl")
	default:
		if sender == "" {
			return filepath.Join(root, agentID, channel+".jsonl")
		}
		return filepath.Join(root, agentID, channel, sender+".jsonl")
	}
}

// sanitizeSegment keeps identity parts from escaping the session root or
// producing hostile file names.
func sanitizeSegment(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	out = strings.Trim(out, ".")
	return out
}
