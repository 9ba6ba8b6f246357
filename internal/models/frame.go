package models

// Frame is one inbound JSON object read from a connection.
// Type is the legacy alias of Action.
type Frame struct {
	Action   string  `json:"action"`
	Type     string  `json:"type"`
	To       string  `json:"to"`
	Message  *string `json:"message"`
	ImageURL *string `json:"image_url"`
	Private  bool    `json:"private"`
}

// Kind returns the action name, preferring Action over the legacy Type field.
func (f Frame) Kind() string {
	if f.Action != "" {
		return f.Action
	}
	return f.Type
}
