package tools

import (
	"sort"
	"strings"
)

// Profile names a curated tool set.
type Profile string

const (
	ProfileMinimal   Profile = "minimal"
	ProfileCoding    Profile = "coding"
	ProfileMessaging Profile = "messaging"
	ProfileFull      Profile = "full"
)

// profileTools lists the base tool set per profile. The full profile is
// resolved against the registry at evaluation time.
var profileTools = map[Profile][]string{
	ProfileMinimal:   {"memory"},
	ProfileCoding:    {"memory", "read_file", "write_file", "list_files", "file_search", "shell", "web_fetch", "web_search"},
	ProfileMessaging: {"memory", "web_fetch", "web_search", "message", "sessions_list", "session_status"},
}

// ParseProfile maps a config string to a profile, defaulting to full.
func ParseProfile(s string) Profile {
	switch Profile(strings.ToLower(strings.TrimSpace(s))) {
	case ProfileMinimal:
		return ProfileMinimal
	case ProfileCoding:
		return ProfileCoding
	case ProfileMessaging:
		return ProfileMessaging
	default:
		return ProfileFull
	}
}

// Effective computes the tool names an agent may call:
//
//	effective = (profile ∪ allow) \ deny \ unavailable
//
// Optional tools are included only when the allow list names them. The result
// is sorted for stable tool specs.
func (r *Registry) Effective(profile Profile, allow, deny []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	base := map[string]bool{}
	if profile == ProfileFull {
		for name := range r.tools {
			base[name] = true
		}
	} else {
		for _, name := range profileTools[profile] {
			base[name] = true
		}
	}
	for _, name := range allow {
		base[name] = true
	}

	allowed := map[string]bool{}
	for _, name := range allow {
		allowed[name] = true
	}
	denied := map[string]bool{}
	for _, name := range deny {
		denied[name] = true
	}

	var out []string
	for name := range base {
		tool, ok := r.tools[name]
		if !ok || denied[name] {
			continue
		}
		if opt, isOpt := tool.(Optional); isOpt && opt.Optional() && !allowed[name] {
			continue
		}
		if avail, hasAvail := tool.(Availability); hasAvail && !avail.Available() {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// BridgeTools returns the names of tools visible through the MCP bridge.
func (r *Registry) BridgeTools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for name, tool := range r.tools {
		if be, ok := tool.(BridgeExposed); ok && !be.BridgeExposed() {
			continue
		}
		if avail, ok := tool.(Availability); ok && !avail.Available() {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
