package lang

import "strings"

const colorEnd = "</color>"

type Colors struct {
	Msg string
	Hil string
	Err string
}

// Colorize replaces the color placeholders with the configured markup.
func Colorize(msg string, c Colors) string {
	return strings.NewReplacer(
		"{MsgCol}", c.Msg,
		"{HilCol}", c.Hil,
		"{ErrCol}", c.Err,
		"{ColEnd}", colorEnd,
	).Replace(msg)
}

// Renderer resolves a player's language and returns colorized templates.
type Renderer struct {
	Catalog *Catalog
	Colors  Colors
	LangOf  func(playerID string) string
}

func (r Renderer) Get(key, playerID string) string {
	lang := ""
	if r.LangOf != nil {
		lang = r.LangOf(playerID)
	}
	cat := r.Catalog
	if cat == nil {
		cat = Default()
	}
	return Colorize(cat.Message(key, lang), r.Colors)
}
