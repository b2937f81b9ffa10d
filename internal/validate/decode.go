package validate

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const snippetLen = 120

// extractObject locates the JSON object in raw model output. It accepts a
// bare object, an object inside a fenced code block, and an object wrapped
// in prose.
func extractObject(raw []byte) ([]byte, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, &MalformedOutputError{Err: errors.New("empty output")}
	}

	if fenced, ok := unfence(text); ok {
		text = fenced
	}

	if gjson.Valid(text) {
		if gjson.Parse(text).IsObject() {
			return []byte(text), nil
		}
		return nil, &MalformedOutputError{Snippet: snippet(text), Err: errors.New("top-level value is not an object")}
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		candidate := text[start : end+1]
		if gjson.Valid(candidate) {
			return []byte(candidate), nil
		}
	}
	return nil, &MalformedOutputError{Snippet: snippet(text), Err: errors.New("no decodable JSON object")}
}

// unfence returns the body of the first ``` block, dropping an optional
// language tag on the opening line.
func unfence(text string) (string, bool) {
	open := strings.Index(text, "```")
	if open < 0 {
		return "", false
	}
	body := text[open+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}

func snippet(s string) string {
	if len(s) <= snippetLen {
		return s
	}
	cut := snippetLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
