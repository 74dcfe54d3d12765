package scraper

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const overdueLabel = "Overdue invoices amount"

var ErrAmountNotFound = errors.New("overdue invoices amount not found on page")

// extractOverdueAmount finds the h5 labelled "Overdue invoices amount",
// climbs three ancestors to the dashboard widget and returns the text of
// its h1.no-margins.
func extractOverdueAmount(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	label := findFirst(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.H5 && strings.Contains(ownText(n), overdueLabel)
	})
	if label == nil {
		return "", ErrAmountNotFound
	}

	widget := label
	for i := 0; i < 3 && widget != nil; i++ {
		widget = widget.Parent
	}
	if widget == nil {
		return "", ErrAmountNotFound
	}

	amount := findFirst(widget, func(n *html.Node) bool {
		return n.DataAtom == atom.H1 && attr(n, "class") == "no-margins"
	})
	if amount == nil {
		return "", ErrAmountNotFound
	}
	return strings.TrimSpace(textContent(amount)), nil
}

// loginForm returns the hidden inputs of the form holding the Password
// field, or ok=false when the page has no such form.
func loginForm(r io.Reader) (action string, hidden map[string]string, ok bool, err error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", nil, false, err
	}
	form := findFirst(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Form && findFirst(n, isPasswordInput) != nil
	})
	if form == nil {
		return "", nil, false, nil
	}

	hidden = make(map[string]string)
	walk(form, func(n *html.Node) {
		if n.DataAtom == atom.Input && strings.EqualFold(attr(n, "type"), "hidden") && attr(n, "name") != "" {
			hidden[attr(n, "name")] = attr(n, "value")
		}
	})
	return attr(form, "action"), hidden, true, nil
}

func isPasswordInput(n *html.Node) bool {
	return n.DataAtom == atom.Input && (attr(n, "id") == "Password" || attr(n, "name") == "Password")
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// ownText is the text of n's direct text children.
func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return b.String()
}
