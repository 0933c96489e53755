package commands

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"respawnbradley.gg/internal/protocol"
	"respawnbradley.gg/internal/respawn"
)

const ResultError = "ERROR"

type Result struct {
	Command  string
	Result   string
	Reason   string
	Code     string
	Charged  bool
	Refunded bool
	Err      error
}

type Handler func(caller respawn.Player, args []string) Result

// Table dispatches chat/console commands. The host runs commands one at a
// time, so Dispatch holds a lock for the whole handler call.
type Table struct {
	mu       sync.Mutex
	handlers map[string]Handler
	stats    map[string]map[string]int
}

func NewTable() *Table {
	return &Table{handlers: map[string]Handler{}, stats: map[string]map[string]int{}}
}

func (t *Table) Register(name string, h Handler) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || h == nil {
		return fmt.Errorf("register command %q: invalid", name)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.handlers[name]; ok {
		return fmt.Errorf("register command %q: already registered", name)
	}
	t.handlers[name] = h
	return nil
}

func (t *Table) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.handlers))
	for n := range t.handlers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (t *Table) Dispatch(caller respawn.Player, name string, args []string) Result {
	name = strings.ToLower(strings.TrimSpace(name))
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.handlers[name]
	if !ok {
		return Result{Command: name, Result: ResultError, Code: protocol.ErrUnknownCommand}
	}
	res := h(caller, args)
	res.Command = name
	if t.stats[name] == nil {
		t.stats[name] = map[string]int{}
	}
	t.stats[name][res.Result]++
	return res
}

// Stats returns invocation counts by command and result.
func (t *Table) Stats() map[string]map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]map[string]int, len(t.stats))
	for cmd, m := range t.stats {
		cp := make(map[string]int, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out[cmd] = cp
	}
	return out
}
