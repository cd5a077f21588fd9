// Package notify delivers account lifecycle emails in the background.
package notify

import "fmt"

// Message is a plain-text email.
type Message struct {
	To      string
	Name    string // Recipient display name, optional.
	Subject string
	Text    string
}

// WelcomeMessage is sent after signup.
func WelcomeMessage(email, name string) Message {
	return Message{
		To:      email,
		Name:    name,
		Subject: "Thanks for joining in!",
		Text:    fmt.Sprintf("Welcome to the app, %s. Let me know how you get along with the app.", name),
	}
}

// CancellationMessage is sent after an account is deleted.
func CancellationMessage(email, name string) Message {
	return Message{
		To:      email,
		Name:    name,
		Subject: "We are sad to see you leave.",
		Text:    fmt.Sprintf("We are sad to see you leave our site, %s. If there is anything that we can improve on, do let us know.", name),
	}
}
