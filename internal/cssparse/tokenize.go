// Package cssparse is a small, forgiving CSS reader built on the tdewolff
// lexer. It targets common declaration shapes rather than the full CSS
// grammar: rule blocks, nested at-rules, declarations with byte offsets,
// and the value-level helpers the rewriting stages need.
package cssparse

import (
	"math"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Token is one lexer token with its byte offset in the source.
type Token struct {
	Type   css.TokenType
	Data   string
	Offset int
}

// End returns the offset just past the token.
func (t Token) End() int {
	return t.Offset + len(t.Data)
}

// Tokenize splits src into tokens. Concatenating every token's Data yields
// src again.
func Tokenize(src string) []Token {
	lexer := css.NewLexer(parse.NewInputString(src))

	toks := make([]Token, 0, len(src)/3+1)
	offset := 0
	for {
		tt, data := lexer.Next()
		if tt == css.ErrorToken {
			// ErrorToken at EOF is normal
			break
		}
		toks = append(toks, Token{Type: tt, Data: string(data), Offset: offset})
		offset += len(data)
	}
	return toks
}

// opens reports whether the token opens a nesting level inside a value.
func opens(tt css.TokenType) bool {
	return tt == css.FunctionToken || tt == css.LeftParenthesisToken || tt == css.LeftBracketToken
}

// closes reports whether the token closes a nesting level inside a value.
func closes(tt css.TokenType) bool {
	return tt == css.RightParenthesisToken || tt == css.RightBracketToken
}

// Fields splits a value on whitespace that is not nested inside a function,
// parenthesis or bracket. "0 4px rgba(0, 0, 0, .1)" yields three fields.
func Fields(value string) []string {
	var (
		out   []string
		cur   strings.Builder
		depth int
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}

	for _, tok := range Tokenize(value) {
		switch {
		case tok.Type == css.WhitespaceToken && depth == 0:
			flush()
			continue
		case tok.Type == css.CommentToken:
			continue
		case opens(tok.Type):
			depth++
		case closes(tok.Type) && depth > 0:
			depth--
		}
		cur.WriteString(tok.Data)
	}
	flush()
	return out
}

// SplitTopLevel splits a value on commas that are not nested inside a
// function, parenthesis or bracket. Parts are trimmed.
func SplitTopLevel(value string) []string {
	var (
		out   []string
		cur   strings.Builder
		depth int
	)

	for _, tok := range Tokenize(value) {
		switch {
		case tok.Type == css.CommaToken && depth == 0:
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		case opens(tok.Type):
			depth++
		case closes(tok.Type) && depth > 0:
			depth--
		}
		cur.WriteString(tok.Data)
	}
	out = append(out, strings.TrimSpace(cur.String()))
	return out
}

// ValidValue reports whether v can stand as a declaration value: it is
// non-empty, its parentheses and brackets balance, and it contains no
// statement or block delimiters.
func ValidValue(v string) bool {
	if strings.TrimSpace(v) == "" {
		return false
	}

	depth := 0
	for _, tok := range Tokenize(v) {
		switch tok.Type {
		case css.SemicolonToken, css.LeftBraceToken, css.RightBraceToken,
			css.BadStringToken, css.BadURLToken:
			return false
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
			if depth < 0 {
				return false
			}
		case css.CommentToken:
			if !strings.HasSuffix(tok.Data, "*/") {
				return false
			}
		}
	}
	return depth == 0
}

// ParseDimension splits "16px", "-1.5rem", "50%" or "0" into number and unit.
// The unit is lowercased. ok is false unless the whole string is numeric.
func ParseDimension(s string) (num float64, unit string, ok bool) {
	s = strings.TrimSpace(s)
	b := []byte(s)
	n, u := parse.Dimension(b)
	if n == 0 || n+u != len(b) {
		return 0, "", false
	}

	num, err := strconv.ParseFloat(s[:n], 64)
	if err != nil {
		return 0, "", false
	}
	return num, strings.ToLower(s[n:]), true
}

// FormatNumber renders f with at most four decimals and no trailing zeros.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(math.Round(f*1e4)/1e4, 'f', -1, 64)
}

// ToPx converts a length to pixels. Only px and rem (and unitless zero) are
// convertible; rem uses remBase pixels.
func ToPx(num float64, unit string, remBase float64) (float64, bool) {
	switch unit {
	case "px":
		return num, true
	case "rem":
		return num * remBase, true
	case "":
		return num, num == 0
	}
	return 0, false
}

// MapTopLevel rewrites the tokens of value that are not nested inside a
// function, parenthesis or bracket. fn returns the replacement and true to
// substitute a token.
func MapTopLevel(value string, fn func(tok Token) (string, bool)) (string, bool) {
	var b strings.Builder
	depth := 0
	changed := false

	for _, tok := range Tokenize(value) {
		switch {
		case opens(tok.Type):
			depth++
		case closes(tok.Type):
			if depth > 0 {
				depth--
			}
		case depth == 0:
			if rep, ok := fn(tok); ok {
				b.WriteString(rep)
				changed = true
				continue
			}
		}
		b.WriteString(tok.Data)
	}
	return b.String(), changed
}
