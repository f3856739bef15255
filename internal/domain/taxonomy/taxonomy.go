// Package taxonomy builds and validates the placement naming string shared
// with downstream ad platforms.
//
// The token order {brand}_{title}_{category}_{market}_{channel} is a contract
// with the platforms; changing it requires bumping Version.
package taxonomy

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	Version   = "v1"
	Separator = "_"

	// MinTokens is the token count of a v1 string whose components carry no
	// underscore of their own.
	MinTokens = 5
)

var ErrInvalidReference = errors.New("invalid taxonomy reference")

// Field names one component of the taxonomy string.
type Field string

const (
	FieldBrand    Field = "brand"
	FieldTitle    Field = "title"
	FieldCategory Field = "category"
	FieldMarket   Field = "market"
	FieldChannel  Field = "channel"
)

// InvalidReferenceError reports an empty component or one with characters
// outside [A-Za-z0-9_].
type InvalidReferenceError struct {
	Field Field
	Value string
}

func (e *InvalidReferenceError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("taxonomy %s is empty", e.Field)
	}
	return fmt.Sprintf("taxonomy %s %q contains characters outside [A-Za-z0-9_]", e.Field, e.Value)
}

func (e *InvalidReferenceError) Unwrap() error { return ErrInvalidReference }

func (e *InvalidReferenceError) Reason() string {
	return "Invalid taxonomy input: " + e.Error()
}

// Parts are the ordered taxonomy inputs.
type Parts struct {
	Brand    string
	Title    string
	Category string
	Market   string
	Channel  string
}

// Tokens returns the components in contract order.
func (p Parts) Tokens() []string {
	return []string{p.Brand, p.Title, p.Category, p.Market, p.Channel}
}

func (p Parts) fields() []Field {
	return []Field{FieldBrand, FieldTitle, FieldCategory, FieldMarket, FieldChannel}
}

// Build joins the parts in contract order. It is pure and deterministic.
func Build(p Parts) (string, error) {
	tokens := p.Tokens()
	for i, field := range p.fields() {
		if err := validateComponent(field, tokens[i]); err != nil {
			return "", err
		}
	}
	return strings.Join(tokens, Separator), nil
}

// Validate re-checks a finished taxonomy string against the alphabet and the
// token layout: no empty tokens and at least MinTokens of them.
func Validate(s string) error {
	if s == "" {
		return &InvalidReferenceError{Field: "taxonomy"}
	}
	if !inAlphabet(s) {
		return &InvalidReferenceError{Field: "taxonomy", Value: s}
	}

	tokens := strings.Split(s, Separator)
	for _, token := range tokens {
		if token == "" {
			return fmt.Errorf("%w: %q has an empty token", ErrInvalidReference, s)
		}
	}
	if len(tokens) < MinTokens {
		return fmt.Errorf("%w: %q has %d tokens, want at least %d", ErrInvalidReference, s, len(tokens), MinTokens)
	}
	return nil
}

// Slug turns a display name into a title token: words are capitalised and
// joined, anything outside the alphabet is dropped ("Guardians of the Galaxy
// Vol. 3" -> "GuardiansOfTheGalaxyVol3").
func Slug(name string) string {
	var b strings.Builder
	for _, word := range strings.FieldsFunc(name, func(r rune) bool {
		return !isAlphabetRune(r) || r == '_'
	}) {
		runes := []rune(word)
		b.WriteRune(unicode.ToUpper(runes[0]))
		b.WriteString(string(runes[1:]))
	}
	return b.String()
}

func validateComponent(field Field, value string) error {
	if value == "" {
		return &InvalidReferenceError{Field: field}
	}
	if !inAlphabet(value) || strings.HasPrefix(value, Separator) || strings.HasSuffix(value, Separator) {
		return &InvalidReferenceError{Field: field, Value: value}
	}
	return nil
}

func inAlphabet(s string) bool {
	for _, r := range s {
		if !isAlphabetRune(r) {
			return false
		}
	}
	return true
}

func isAlphabetRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}
