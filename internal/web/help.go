package web

import (
	"bytes"
	"html/template"
	"net/http"
	"sync"

	"todo-cli/internal/docs"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// docsMarkdown converts the embedded docs. html.WithUnsafe is not set, so raw
// HTML in a topic is dropped and the output can be trusted as template.HTML.
var docsMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM, emoji.Emoji),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

type helpTopicVM struct {
	Topic string
	Title string
	HTML  template.HTML
}

// helpTopics renders every docs topic once; the docs are compiled in.
var helpTopics = sync.OnceValue(func() []helpTopicVM {
	topics := docs.Topics()
	out := make([]helpTopicVM, 0, len(topics))
	for _, topic := range topics {
		md, ok := docs.Get(topic)
		if !ok {
			continue
		}
		out = append(out, helpTopicVM{Topic: topic, Title: docs.Title(topic), HTML: topicHTML(md)})
	}
	return out
})

func topicHTML(md string) template.HTML {
	var b bytes.Buffer
	if err := docsMarkdown.Convert([]byte(md), &b); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(md) + "</pre>")
	}
	return template.HTML(b.String())
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	s.writeHTMLTemplate(w, "help.html", helpTopics())
}
