package lang

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Message keys.
const (
	KeyNoPermission       = "NoPermission"
	KeyUnableToCharge     = "UnableToCharge"
	KeyPlayerCharged      = "PlayerCharged"
	KeyUnableToRefund     = "UnableToRefund"
	KeyPlayerRefunded     = "PlayerRefunded"
	KeyUnableToRespawn    = "UnableToRespawnBradley"
	KeyRespawnFailed      = "RespawnFailed"
	KeyBradleyRespawned   = "BradleyHasBeenRespawned"
	KeyBradleyLockedToYou = "BradleyLockedToYou"
)

var english = map[string]string{
	KeyNoPermission:       "{ErrCol}You do not have permission to use this command!{ColEnd}",
	KeyUnableToCharge:     "{ErrCol}We were unable to charge you {amount} {currency}! Please contact an admin{ColEnd}",
	KeyPlayerCharged:      "{MsgCol}You have been charged {ColEnd}{HilCol}{amount} {currency}{ColEnd} {MsgCol}for respawning Bradley{ColEnd}",
	KeyUnableToRefund:     "{ErrCol}Unable to refund you {amount} {currency}! Please contact an admin{ColEnd}",
	KeyPlayerRefunded:     "{HilCol}You have been refunded {amount} {currency}{ColEnd}",
	KeyUnableToRespawn:    "{MsgCol}Unable to respawn Bradley as it's still alive or not all of its debris has been cleared{ColEnd}",
	KeyRespawnFailed:      "{ErrCol}Bradley could not be respawned right now{ColEnd}",
	KeyBradleyRespawned:   "{HilCol}Bradley has been respawned{ColEnd}",
	KeyBradleyLockedToYou: "{MsgCol}Bradley is locked to you until it is destroyed{ColEnd}",
}

var german = map[string]string{
	KeyNoPermission:       "{ErrCol}Du hast keine Berechtigung, diesen Befehl zu nutzen!{ColEnd}",
	KeyUnableToCharge:     "{ErrCol}Wir konnten dir {amount} {currency} nicht abbuchen! Bitte wende dich an einen Admin{ColEnd}",
	KeyPlayerCharged:      "{MsgCol}Dir wurden {ColEnd}{HilCol}{amount} {currency}{ColEnd} {MsgCol}für das Respawnen von Bradley abgebucht{ColEnd}",
	KeyUnableToRefund:     "{ErrCol}Wir konnten dir {amount} {currency} nicht erstatten! Bitte wende dich an einen Admin{ColEnd}",
	KeyPlayerRefunded:     "{HilCol}Dir wurden {amount} {currency} erstattet{ColEnd}",
	KeyUnableToRespawn:    "{MsgCol}Bradley kann nicht respawnt werden, da er noch lebt oder seine Trümmer noch nicht beseitigt wurden{ColEnd}",
	KeyRespawnFailed:      "{ErrCol}Bradley konnte gerade nicht respawnt werden{ColEnd}",
	KeyBradleyRespawned:   "{HilCol}Bradley wurde respawnt{ColEnd}",
	KeyBradleyLockedToYou: "{MsgCol}Bradley ist für dich gesperrt, bis er zerstört wurde{ColEnd}",
}

// Catalog holds one message table per language. English is the fallback
// for unknown languages and for keys missing from a translation.
type Catalog struct {
	mu      sync.RWMutex
	tags    []language.Tag
	tables  map[string]map[string]string
	matcher language.Matcher
}

func Default() *Catalog {
	c := &Catalog{tables: map[string]map[string]string{}}
	c.set(language.English, copyTable(english))
	c.set(language.German, copyTable(german))
	return c
}

func copyTable(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// set must keep English at index 0 so the matcher falls back to it.
func (c *Catalog) set(tag language.Tag, table map[string]string) {
	key := tag.String()
	if _, ok := c.tables[key]; !ok {
		c.tags = append(c.tags, tag)
	}
	c.tables[key] = table
	c.matcher = language.NewMatcher(c.tags)
}

// Merge overlays messages for a language. Unknown languages are added.
func (c *Catalog) Merge(lang string, messages map[string]string) error {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return fmt.Errorf("lang %q: %w", lang, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	table, ok := c.tables[tag.String()]
	if !ok {
		table = map[string]string{}
	}
	for k, v := range messages {
		if strings.TrimSpace(k) == "" {
			continue
		}
		table[k] = v
	}
	c.set(tag, table)
	return nil
}

// LoadDir reads <tag>.yaml override files (flat key: template maps) from dir.
// A missing directory is not an error.
func (c *Catalog) LoadDir(dir string) error {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		var messages map[string]string
		if err := yaml.Unmarshal(raw, &messages); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := c.Merge(strings.TrimSuffix(name, filepath.Ext(name)), messages); err != nil {
			return err
		}
	}
	return nil
}

// Message returns the raw template for key in the best matching language.
// Unknown keys come back as the key itself.
func (c *Catalog) Message(key, lang string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tag := language.English
	if lang != "" {
		if want, err := language.Parse(lang); err == nil {
			_, idx, conf := c.matcher.Match(want)
			if conf != language.No {
				tag = c.tags[idx]
			}
		}
	}
	if msg, ok := c.tables[tag.String()][key]; ok {
		return msg
	}
	if msg, ok := c.tables[language.English.String()][key]; ok {
		return msg
	}
	return key
}

func (c *Catalog) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.tags))
	for _, t := range c.tags {
		out = append(out, t.String())
	}
	return out
}
