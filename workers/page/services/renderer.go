package services

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/samsterpiece/nostalgiasite/workers/page/dom"
	"github.com/samsterpiece/nostalgiasite/workers/page/domain"
)

// ResultRenderer turns payload records into element trees. Record text only ever becomes
// text nodes and URLs only ever become attribute values, so payload content cannot inject markup.
type ResultRenderer struct {
	doc *dom.Document
}

func NewResultRenderer(doc *dom.Document) *ResultRenderer {
	return &ResultRenderer{doc: doc}
}

func (r *ResultRenderer) PopulateFacts(container *dom.Element, facts []domain.FactRecord) {
	container.Clear()
	if len(facts) == 0 {
		r.placeholder(container, domain.NoFactsText)
		return
	}
	for _, f := range facts {
		container.AppendChild(r.dated(container, "fact-item", f.Year, f.Title, f.Description, f.SourceURL))
	}
}

func (r *ResultRenderer) PopulateEvents(container *dom.Element, events []domain.EventRecord) {
	container.Clear()
	if len(events) == 0 {
		r.placeholder(container, domain.NoEventsText)
		return
	}
	for _, e := range events {
		container.AppendChild(r.dated(container, "event-item", e.Year, e.Title, e.Description, e.SourceURL))
	}
}

func (r *ResultRenderer) PopulateReading(container *dom.Element, books []domain.BookRecord) {
	container.Clear()
	if len(books) == 0 {
		r.placeholder(container, domain.NoReadingText)
		return
	}
	for _, b := range books {
		container.AppendChild(r.book(container, b))
	}
}

func (r *ResultRenderer) dated(container *dom.Element, class string, year int, title, description, source string) *dom.Element {
	item := r.doc.CreateElement(itemTag(container))
	item.SetAttr("class", class)

	heading := r.doc.CreateElement("h3")
	yearSpan := r.text("span", "record-year", strconv.Itoa(year))
	heading.AppendChild(yearSpan)
	heading.AppendText(" ")
	heading.AppendChild(r.text("span", "record-title", title))
	item.AppendChild(heading)

	item.AppendChild(r.text("p", "record-description", description))
	if link := r.learnMore(source); link != nil {
		item.AppendChild(link)
	}
	return item
}

func (r *ResultRenderer) book(container *dom.Element, b domain.BookRecord) *dom.Element {
	item := r.doc.CreateElement(itemTag(container))
	item.SetAttr("class", "book-item")

	if cover, ok := safeURL(b.CoverURL); ok {
		img := r.doc.CreateElement("img")
		img.SetAttr("class", "book-cover")
		img.SetAttr("src", cover)
		img.SetAttr("alt", "Cover of "+b.Title)
		item.AppendChild(img)
	}

	item.AppendChild(r.text("h3", "book-title", b.Title))
	item.AppendChild(r.text("p", "book-author", "by "+b.Author))

	description := b.Description
	if strings.TrimSpace(description) == "" {
		description = domain.NoDescriptionText
	}
	item.AppendChild(r.text("p", "book-description", description))

	categories := domain.NotCategorizedText
	if len(b.Categories) > 0 {
		categories = strings.Join(b.Categories, ", ")
	}
	item.AppendChild(r.text("p", "book-categories", "Categories: "+categories))

	if link := r.learnMore(b.SourceURL); link != nil {
		item.AppendChild(link)
	}
	return item
}

func (r *ResultRenderer) placeholder(container *dom.Element, message string) {
	tag := "p"
	if itemTag(container) == "li" {
		tag = "li"
	}
	container.AppendChild(r.text(tag, "no-data", message))
}

func (r *ResultRenderer) learnMore(source string) *dom.Element {
	href, ok := safeURL(source)
	if !ok {
		return nil
	}
	a := r.text("a", "learn-more", domain.LearnMoreText)
	a.SetAttr("href", href)
	a.SetAttr("target", "_blank")
	a.SetAttr("rel", "noopener noreferrer")
	return a
}

func (r *ResultRenderer) text(tag, class, content string) *dom.Element {
	el := r.doc.CreateElement(tag)
	if class != "" {
		el.SetAttr("class", class)
	}
	el.SetText(content)
	return el
}

// itemTag keeps list containers valid: records go in <li> under <ul>/<ol>, <div> elsewhere.
func itemTag(container *dom.Element) string {
	switch container.Tag() {
	case "ul", "ol":
		return "li"
	}
	return "div"
}

// safeURL accepts http(s) and relative URLs only.
func safeURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https":
		return raw, true
	}
	return "", false
}
