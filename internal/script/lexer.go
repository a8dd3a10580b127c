package script

import (
	"fmt"
	"strings"
	"text/scanner"
	"unicode"
)

type token struct {
	kind rune // scanner.Ident, scanner.Int, scanner.String, scanner.EOF or a punctuation rune
	text string
	pos  Pos
}

func (t token) String() string {
	switch t.kind {
	case scanner.EOF:
		return "end of input"
	case scanner.Ident, scanner.Int, scanner.String:
		return t.text
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// isIdentRune accepts Go identifiers plus a leading '$' so that $this lexes
// as one identifier.
func isIdentRune(ch rune, i int) bool {
	return ch == '_' || unicode.IsLetter(ch) || (ch == '$' && i == 0) || (unicode.IsDigit(ch) && i > 0)
}

// tokenize splits src into tokens. Comments are dropped.
func tokenize(name, src string) ([]token, error) {
	var s scanner.Scanner
	s.Init(strings.NewReader(src))
	s.Filename = name
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanStrings | scanner.ScanComments | scanner.SkipComments
	s.IsIdentRune = isIdentRune

	var scanErr error
	s.Error = func(s *scanner.Scanner, msg string) {
		if scanErr == nil {
			pos := s.Position
			if !pos.IsValid() {
				pos = s.Pos()
			}
			scanErr = &ParseError{Name: name, Pos: Pos{Line: pos.Line, Column: pos.Column}, Message: msg}
		}
	}

	var toks []token
	for {
		kind := s.Scan()
		if scanErr != nil {
			return nil, scanErr
		}
		tok := token{kind: kind, text: s.TokenText(), pos: Pos{Line: s.Position.Line, Column: s.Position.Column}}
		if kind == scanner.EOF {
			tok.pos = Pos{Line: s.Pos().Line, Column: s.Pos().Column}
			toks = append(toks, tok)
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

// HasComments reports whether src contains a // or /* */ comment. Format
// never reproduces comments.
func HasComments(src string) bool {
	var s scanner.Scanner
	s.Init(strings.NewReader(src))
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanStrings | scanner.ScanComments
	s.IsIdentRune = isIdentRune
	s.Error = func(*scanner.Scanner, string) {}
	for tok := s.Scan(); tok != scanner.EOF; tok = s.Scan() {
		if tok == scanner.Comment {
			return true
		}
	}
	return false
}
