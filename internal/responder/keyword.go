package responder

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Keyword answers from a fixed table of canned replies. Rules are checked in
// order and the first match wins.
type Keyword struct {
	now func() time.Time
}

// NewKeyword creates a Keyword responder using the wall clock.
func NewKeyword() *Keyword {
	return &Keyword{now: time.Now}
}

type keywordRule struct {
	words   []string // any whole word matches
	phrases []string // any substring matches
	reply   func(k *Keyword, transcript string) string
}

func fixed(s string) func(*Keyword, string) string {
	return func(*Keyword, string) string { return s }
}

var keywordRules = []keywordRule{
	{words: []string{"hello", "hi"}, reply: fixed("Hello! Nice to meet you. How can I help you today?")},
	{phrases: []string{"how are you"}, reply: fixed("I'm doing well, thank you for asking! How about you?")},
	{words: []string{"bye", "goodbye"}, reply: fixed("Goodbye! It was nice chatting with you.")},
	{words: []string{"weather"}, reply: fixed("I can't check the weather, but I hope it's nice where you are!")},
	{words: []string{"time"}, reply: func(k *Keyword, _ string) string {
		return fmt.Sprintf("The current time is %s.", k.now().Format("15:04"))
	}},
	{words: []string{"name"}, reply: fixed("My name is Voice Assistant. What's your name?")},
}

// Respond implements Responder. It never fails.
func (k *Keyword) Respond(_ context.Context, transcript string) (string, error) {
	lower := strings.ToLower(transcript)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	for _, rule := range keywordRules {
		if rule.matches(lower, words) {
			return rule.reply(k, transcript), nil
		}
	}
	return fmt.Sprintf("I heard you say: '%s'. That's interesting! Tell me more.", strings.TrimSpace(transcript)), nil
}

func (r keywordRule) matches(lower string, words []string) bool {
	for _, p := range r.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	for _, w := range words {
		for _, want := range r.words {
			if w == want {
				return true
			}
		}
	}
	return false
}
