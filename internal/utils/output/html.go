package output

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/law-makers/pricewatch/pkg/models"
)

// WriteHTML renders outcomes as a standalone HTML table
func WriteHTML(w io.Writer, outcomes []models.CrawlOutcome) error {
	table := element(atom.Table)
	head := element(atom.Tr)
	for _, h := range []string{"Component", "Site", "Price", "Match", "Similarity"} {
		head.AppendChild(textElement(atom.Th, h))
	}
	table.AppendChild(head)

	for _, o := range outcomes {
		row := element(atom.Tr)
		row.AppendChild(textElement(atom.Td, o.ComponentName))
		row.AppendChild(textElement(atom.Td, o.SiteID))
		if o.OK() {
			s := o.Success
			row.AppendChild(textElement(atom.Td, fmt.Sprintf("%s%.2f", s.Currency, s.Price)))
			match := element(atom.Td)
			link := textElement(atom.A, s.MatchedTitle)
			link.Attr = []html.Attribute{{Key: "href", Val: s.URL}}
			match.AppendChild(link)
			row.AppendChild(match)
			row.AppendChild(textElement(atom.Td, fmt.Sprintf("%.2f", s.Similarity)))
		} else {
			row.AppendChild(textElement(atom.Td, "n/a"))
			row.AppendChild(textElement(atom.Td, reason(o)))
			row.AppendChild(element(atom.Td))
		}
		table.AppendChild(row)
	}

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	root := element(atom.Html)
	hd := element(atom.Head)
	hd.AppendChild(textElement(atom.Title, "Price report"))
	body := element(atom.Body)
	body.AppendChild(table)
	root.AppendChild(hd)
	root.AppendChild(body)
	doc.AppendChild(root)

	return html.Render(w, doc)
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func textElement(a atom.Atom, text string) *html.Node {
	n := element(a)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}
