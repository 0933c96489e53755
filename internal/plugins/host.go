package plugins

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
)

var (
	ErrAlreadyLoaded = errors.New("plugin already loaded")
	ErrNotFound      = errors.New("plugin not found")
	ErrInvalidName   = errors.New("invalid plugin name")
)

type Info struct {
	Name        string `json:"name"`
	Author      string `json:"author"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

type Plugin interface {
	Info() Info
}

// Initializer is called once when the plugin is loaded. A failing Init keeps
// the plugin unloaded.
type Initializer interface {
	Init(h *Host) error
}

type Unloader interface {
	Unload() error
}

type EventKind int

const (
	EventLoaded EventKind = iota + 1
	EventUnloaded
)

type Event struct {
	Kind EventKind
	Name string
}

type Host struct {
	log *log.Logger

	mu      sync.RWMutex
	plugins map[string]Plugin
	subs    []func(Event)
}

func NewHost(logger *log.Logger) *Host {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Host{log: logger, plugins: map[string]Plugin{}}
}

func (h *Host) Load(p Plugin) error {
	if p == nil {
		return fmt.Errorf("load: %w", ErrInvalidName)
	}
	info := p.Info()
	name := strings.TrimSpace(info.Name)
	if name == "" {
		return fmt.Errorf("load: %w", ErrInvalidName)
	}

	h.mu.RLock()
	_, exists := h.plugins[name]
	h.mu.RUnlock()
	if exists {
		return fmt.Errorf("load %s: %w", name, ErrAlreadyLoaded)
	}
	if in, ok := p.(Initializer); ok {
		if err := in.Init(h); err != nil {
			return fmt.Errorf("init %s: %w", name, err)
		}
	}

	h.mu.Lock()
	if _, exists := h.plugins[name]; exists {
		h.mu.Unlock()
		return fmt.Errorf("load %s: %w", name, ErrAlreadyLoaded)
	}
	h.plugins[name] = p
	h.mu.Unlock()

	h.log.Printf("Loaded plugin %s v%s by %s", name, info.Version, info.Author)
	h.emit(Event{Kind: EventLoaded, Name: name})
	return nil
}

func (h *Host) Unload(name string) error {
	h.mu.Lock()
	p, ok := h.plugins[name]
	if ok {
		delete(h.plugins, name)
	}
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("unload %s: %w", name, ErrNotFound)
	}

	var err error
	if u, ok := p.(Unloader); ok {
		err = u.Unload()
	}
	h.log.Printf("Unloaded plugin %s", name)
	h.emit(Event{Kind: EventUnloaded, Name: name})
	return err
}

// UnloadAll unloads in reverse name order and returns the first error.
func (h *Host) UnloadAll() error {
	names := h.Names()
	var first error
	for i := len(names) - 1; i >= 0; i-- {
		if err := h.Unload(names[i]); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (h *Host) Get(name string) (Plugin, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.plugins[name]
	return p, ok
}

func (h *Host) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.plugins))
	for name := range h.plugins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (h *Host) Infos() []Info {
	names := h.Names()
	out := make([]Info, 0, len(names))
	for _, n := range names {
		if p, ok := h.Get(n); ok {
			out = append(out, p.Info())
		}
	}
	return out
}

func (h *Host) Subscribe(fn func(Event)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.subs = append(h.subs, fn)
	h.mu.Unlock()
}

func (h *Host) emit(ev Event) {
	h.mu.RLock()
	subs := append([]func(Event){}, h.subs...)
	h.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}
