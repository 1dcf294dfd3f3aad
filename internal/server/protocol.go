package server

type MessageType string

const (
	MsgWelcome  MessageType = "welcome"
	MsgResponse MessageType = "response"
	MsgCommand  MessageType = "command"
)

// Message is the JSON envelope on /ws. The welcome uses Message; commands and
// responses use Text.
type Message struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message,omitempty"`
	Text    string      `json:"text,omitempty"`
}

const welcomeText = "Hello! I'm YAAN, your AI assistant. How can I help you today?"

// Status is the body of GET /api/status.
type Status struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Version     string `json:"version"`
	User        string `json:"user"`
	Connections int    `json:"connections"`
}

// CommandResult is the body returned by POST /api/command.
type CommandResult struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}
