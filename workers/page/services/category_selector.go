package services

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/samsterpiece/nostalgiasite/workers/page/dom"
	"github.com/samsterpiece/nostalgiasite/workers/page/domain"
)

type categoryFetcher interface {
	FetchData(category string) error
}

// CategorySelector keeps at most one category button active and refetches on selection.
type CategorySelector struct {
	buttons []*dom.Element
	active  *dom.Element
	fetcher categoryFetcher
	logger  *zap.Logger
}

func NewCategorySelector(buttons []*dom.Element, fetcher categoryFetcher, logger *zap.Logger) *CategorySelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategorySelector{buttons: buttons, fetcher: fetcher, logger: logger}
}

// Select is the click handler of a category button.
func (s *CategorySelector) Select(button *dom.Element) error {
	if s.active != nil {
		s.active.RemoveClass(domain.ClassActive)
	}
	button.AddClass(domain.ClassActive)
	s.active = button

	category, ok := button.Attr(domain.AttrDataCategory)
	if !ok || category == "" {
		category = domain.CategoryAll
	}
	s.logger.Debug("category selected", zap.String("category", category))
	return s.fetcher.FetchData(category)
}

// SelectCategory clicks the button whose data-category is category.
func (s *CategorySelector) SelectCategory(category string) error {
	for _, b := range s.buttons {
		if v, _ := b.Attr(domain.AttrDataCategory); v == category {
			return s.Select(b)
		}
	}
	return fmt.Errorf("no category button for %q", category)
}

// Active returns the token of the active button, or "" before the first selection.
func (s *CategorySelector) Active() string {
	if s.active == nil {
		return ""
	}
	if v, ok := s.active.Attr(domain.AttrDataCategory); ok && v != "" {
		return v
	}
	return domain.CategoryAll
}

// Categories lists the tokens offered by the page, in button order.
func (s *CategorySelector) Categories() []string {
	out := make([]string, 0, len(s.buttons))
	for _, b := range s.buttons {
		if v, ok := b.Attr(domain.AttrDataCategory); ok && v != "" {
			out = append(out, v)
		}
	}
	return out
}
