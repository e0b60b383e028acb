package request

import "fmt"

// Message is the JSON body of every response the monitoring server writes itself.
type Message struct {
	Message string `json:"Message"`
}

// NewMessage formats a Message. args are applied with fmt.Sprintf when present.
func NewMessage(message string, args ...any) *Message {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	return &Message{Message: message}
}
