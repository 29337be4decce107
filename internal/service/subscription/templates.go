package subscription

import (
	"fmt"

	"github.com/osteele/liquid"
)

const confirmationSubject = "Welcome!"

const confirmationHTML = `Welcome to our newsletter!<br />` +
	`Click <a href="{{ link }}">here</a> to confirm your subscription.`

const confirmationText = "Welcome to our newsletter!\nVisit {{ link }} to confirm your subscription."

// confirmationTemplates holds the parsed confirmation email bodies.
type confirmationTemplates struct {
	html *liquid.Template
	text *liquid.Template
}

func parseConfirmationTemplates() (*confirmationTemplates, error) {
	engine := liquid.NewEngine()

	html, err := engine.ParseString(confirmationHTML)
	if err != nil {
		return nil, fmt.Errorf("parse html template: %w", err)
	}
	text, err := engine.ParseString(confirmationText)
	if err != nil {
		return nil, fmt.Errorf("parse text template: %w", err)
	}
	return &confirmationTemplates{html: html, text: text}, nil
}

// render returns the html and text bodies for a confirmation link.
func (t *confirmationTemplates) render(link string) (string, string, error) {
	bindings := map[string]interface{}{"link": link}

	html, err := t.html.RenderString(bindings)
	if err != nil {
		return "", "", fmt.Errorf("render html body: %w", err)
	}
	text, err := t.text.RenderString(bindings)
	if err != nil {
		return "", "", fmt.Errorf("render text body: %w", err)
	}
	return html, text, nil
}
