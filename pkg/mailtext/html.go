package mailtext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// invisibleSelector matches elements whose text never renders.
const invisibleSelector = "script, style, template, head > meta, head > link"

// HTMLToText extracts the visible text of an HTML document. Text nodes are
// trimmed and joined with single spaces; every whitespace run in the result
// collapses to one space, so the output has no blank lines.
func HTMLToText(src string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return "", err
	}
	doc.Find(invisibleSelector).Remove()

	var chunks []string
	for _, root := range doc.Nodes {
		collectText(root, &chunks)
	}

	return strings.Join(strings.Fields(strings.Join(chunks, " ")), " "), nil
}

func collectText(n *html.Node, chunks *[]string) {
	switch n.Type {
	case html.TextNode:
		if s := strings.TrimSpace(n.Data); s != "" {
			*chunks = append(*chunks, s)
		}
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, chunks)
	}
}
