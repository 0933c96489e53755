package protocol

// HELLO (client -> server). Players send their id and the token issued for
// it; console sessions set Console and the console token instead.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerID        string `json:"player_id,omitempty"`
	Name            string `json:"name,omitempty"`
	Lang            string `json:"lang,omitempty"`
	Console         bool   `json:"console,omitempty"`
	Token           string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	PlayerID        string   `json:"player_id"`
	Server          string   `json:"server"`
	Commands        []string `json:"commands"`
}

// CMD (client -> server)
type CmdMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ID              string   `json:"id,omitempty"`
	Command         string   `json:"command"`
	Args            []string `json:"args,omitempty"`
}

// REPLY (server -> client): chat text for the player.
type ReplyMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Text            string `json:"text"`
}

// RESULT (server -> client): outcome of one CMD.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Command         string `json:"command"`
	Result          string `json:"result"`
	Reason          string `json:"reason,omitempty"`
	Code            string `json:"code,omitempty"`
	Charged         bool   `json:"charged,omitempty"`
	Refunded        bool   `json:"refunded,omitempty"`
	Message         string `json:"message,omitempty"`
}

// ERROR (server -> client): protocol level failure.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewReply(text string) ReplyMsg {
	return ReplyMsg{Type: TypeReply, ProtocolVersion: Version, Text: text}
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: msg}
}
