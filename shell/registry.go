package shell

import (
	"regexp"
	"sync"
)

// Handle removes a registered matcher.
type Handle struct {
	remove func()
}

// Remove unregisters the matcher. It is safe to call more than once.
func (h Handle) Remove() {
	if h.remove != nil {
		h.remove()
	}
}

type commandMatcher struct {
	id      uint64
	pattern Pattern
	fn      func(Match)
}

type lineMatcher struct {
	id uint64
	re *regexp.Regexp
	fn func(line string, groups []string)
}

// Registry holds persistent matchers. Command matchers run for every
// successful exchange whose command text they match, before the issuing
// command's OnSuccess. Line matchers run for unsolicited lines.
type Registry struct {
	mu       sync.RWMutex
	nextID   uint64
	commands []commandMatcher
	lines    []lineMatcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// OnCommand registers fn for confirmed exchanges matching p.
func (r *Registry) OnCommand(p Pattern, fn func(Match)) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.commands = append(r.commands, commandMatcher{id: id, pattern: p, fn: fn})
	return Handle{remove: func() { r.removeCommand(id) }}
}

// OnLine registers fn for unsolicited lines matching re.
func (r *Registry) OnLine(re *regexp.Regexp, fn func(line string, groups []string)) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.lines = append(r.lines, lineMatcher{id: id, re: re, fn: fn})
	return Handle{remove: func() { r.removeLine(id) }}
}

func (r *Registry) removeCommand(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.commands {
		if m.id == id {
			r.commands = append(r.commands[:i:i], r.commands[i+1:]...)
			return
		}
	}
}

func (r *Registry) removeLine(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.lines {
		if m.id == id {
			r.lines = append(r.lines[:i:i], r.lines[i+1:]...)
			return
		}
	}
}

// DispatchCommand runs every command matcher matching command with the
// given reply and returns how many ran.
func (r *Registry) DispatchCommand(command, reply string) int {
	r.mu.RLock()
	matchers := make([]commandMatcher, len(r.commands))
	copy(matchers, r.commands)
	r.mu.RUnlock()

	n := 0
	for _, cm := range matchers {
		m, ok := cm.pattern.Match(command)
		if !ok {
			continue
		}
		m.Response = reply
		cm.fn(m)
		n++
	}
	return n
}

// DispatchLine runs every line matcher matching line and returns how many
// ran.
func (r *Registry) DispatchLine(line string) int {
	r.mu.RLock()
	matchers := make([]lineMatcher, len(r.lines))
	copy(matchers, r.lines)
	r.mu.RUnlock()

	n := 0
	for _, lm := range matchers {
		g := lm.re.FindStringSubmatch(line)
		if g == nil {
			continue
		}
		lm.fn(line, g)
		n++
	}
	return n
}

// Len returns the number of registered matchers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands) + len(r.lines)
}
