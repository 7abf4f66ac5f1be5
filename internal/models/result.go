package models

// Result is the structured outcome returned by operations that validate
// input locally before touching the network.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// OK is a successful Result.
func OK() Result { return Result{Success: true} }

// Fail builds a failed Result carrying a user-facing message.
func Fail(message string) Result { return Result{Success: false, Message: message} }
