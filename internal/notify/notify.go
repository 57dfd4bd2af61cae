// Package notify is the fire-and-forget boundary used to surface sync and
// validation outcomes to a human. The core never depends on the outcome of
// a notification.
package notify

import "log"

// Notifier receives human-facing messages.
type Notifier interface {
	Info(message string)
	Success(message string)
	Warning(message string)
	Error(message string)
}

// Log writes notifications to the standard logger.
type Log struct{}

func (Log) Info(message string)    { log.Printf("info: %s", message) }
func (Log) Success(message string) { log.Printf("ok: %s", message) }
func (Log) Warning(message string) { log.Printf("warning: %s", message) }
func (Log) Error(message string)   { log.Printf("error: %s", message) }

// Discard drops every notification. Useful in tests.
type Discard struct{}

func (Discard) Info(string)    {}
func (Discard) Success(string) {}
func (Discard) Warning(string) {}
func (Discard) Error(string)   {}
