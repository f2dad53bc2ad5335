package workspace

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/codeper/playground/internal/preview/composer"
	"github.com/codeper/playground/internal/store"
)

// MaxTitleLength is the title limit in characters.
const MaxTitleLength = 30

// Fragment names a user-editable source.
type Fragment string

const (
	FragmentHTML Fragment = "html"
	FragmentCSS  Fragment = "css"
	FragmentJS   Fragment = "js"
)

// ParseFragment validates a fragment name.
func ParseFragment(s string) (Fragment, error) {
	switch f := Fragment(strings.ToLower(s)); f {
	case FragmentHTML, FragmentCSS, FragmentJS:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFragment, s)
}

func (f Fragment) key() string {
	switch f {
	case FragmentHTML:
		return store.KeyHTML
	case FragmentCSS:
		return store.KeyCSS
	default:
		return store.KeyJS
	}
}

// Project is the editable state of the single project slot.
type Project struct {
	Title string `json:"title"`
	HTML  string `json:"html"`
	CSS   string `json:"css"`
	JS    string `json:"js"`
}

// DefaultProject returns the built-in starter project.
func DefaultProject() Project {
	return Project{Title: DefaultTitle, HTML: DefaultHTML, CSS: DefaultCSS, JS: DefaultJS}
}

// Fragments returns the composer input for p.
func (p Project) Fragments() composer.Fragments {
	return composer.Fragments{HTML: p.HTML, CSS: p.CSS, JS: p.JS}
}

// Get returns the value of fragment f.
func (p Project) Get(f Fragment) string {
	switch f {
	case FragmentHTML:
		return p.HTML
	case FragmentCSS:
		return p.CSS
	default:
		return p.JS
	}
}

func (p *Project) set(f Fragment, value string) {
	switch f {
	case FragmentHTML:
		p.HTML = value
	case FragmentCSS:
		p.CSS = value
	default:
		p.JS = value
	}
}

// LoadProject reads the project from s. Each field falls back to its default
// when it is absent or empty; read errors fall back the same way and are
// returned joined so the caller can log them.
func LoadProject(s store.Store) (Project, error) {
	p := DefaultProject()
	var errs []error
	for _, field := range []struct {
		key string
		dst *string
	}{
		{store.KeyTitle, &p.Title},
		{store.KeyHTML, &p.HTML},
		{store.KeyCSS, &p.CSS},
		{store.KeyJS, &p.JS},
	} {
		value, ok, err := s.Get(field.key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok && value != "" {
			*field.dst = value
		}
	}
	p.Title = NormalizeTitle(p.Title)
	if len(errs) > 0 {
		return p, fmt.Errorf("workspace: load project: %w", errors.Join(errs...))
	}
	return p, nil
}

// NormalizeTitle trims surrounding space, substitutes the default for an
// empty title and keeps at most MaxTitleLength characters. The title is
// literal text: markup-like input is kept as typed.
func NormalizeTitle(title string) string {
	clean := strings.TrimSpace(title)
	if clean == "" {
		return DefaultTitle
	}
	if utf8.RuneCountInString(clean) > MaxTitleLength {
		clean = string([]rune(clean)[:MaxTitleLength])
	}
	return clean
}
