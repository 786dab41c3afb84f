package tools

// Content is one block of a tool result. Only text blocks are produced by
// this module, but the wire shape leaves room for other kinds.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// TextContent builds a single text block.
func TextContent(text string) Content {
	return Content{Type: "text", Text: text}
}

// Result is one invocation outcome. IsError marks the content as a domain
// failure description; the call itself still succeeded at the protocol level.
type Result struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// TextResult wraps a successful textual payload.
func TextResult(text string) *Result {
	return &Result{Content: []Content{TextContent(text)}}
}

// ErrorResult wraps a domain failure description.
func ErrorResult(text string) *Result {
	return &Result{Content: []Content{TextContent(text)}, IsError: true}
}

// Text concatenates the text of all content blocks. Convenient for callers
// that only care about the flat payload.
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	var out string
	for _, c := range r.Content {
		out += c.Text
	}
	return out
}
