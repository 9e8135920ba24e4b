// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package pinmap parses connection strings mapping port names to signal
// names:
//
//	read=m_read, address=m_address, used=u_fifo.wrusedw
//
package pinmap

import (
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Type is a token type.
//
type Type int

// Tokens
const (
	EOF Type = iota
	Raw
	Ident
	Comma
	Equal
)

func (t Type) String() string {
	switch t {
	case EOF:
		return "end of input"
	case Ident:
		return "identifier"
	case Comma:
		return "','"
	case Equal:
		return "'='"
	}
	return "invalid character"
}

// Item is a lexed token.
//
type Item struct {
	Type  Type
	Pos   int
	Value string
}

type stateFn func(l *lexer) stateFn

type lexer struct {
	input string
	start int
	pos   int
	items []Item
}

const eof = -1

func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.pos = len(l.input) + 1
		return eof
	}
	r, n := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += n
	return r
}

func (l *lexer) backup() {
	if l.pos > len(l.input) {
		l.pos = len(l.input)
		return
	}
	_, n := utf8.DecodeLastRuneInString(l.input[:l.pos])
	l.pos -= n
}

func (l *lexer) emit(t Type) {
	end := l.pos
	if end > len(l.input) {
		end = len(l.input)
	}
	l.items = append(l.items, Item{t, l.start, l.input[l.start:end]})
	l.start = l.pos
}

func lexInit(l *lexer) stateFn {
	r := l.next()
	switch {
	case r == eof:
		l.start = len(l.input)
		l.emit(EOF)
		return nil
	case unicode.IsSpace(r):
		for unicode.IsSpace(r) {
			r = l.next()
		}
		l.backup()
		l.start = l.pos
	case unicode.IsLetter(r) || r == '_':
		return lexIdent
	case r == ',':
		l.emit(Comma)
	case r == '=':
		l.emit(Equal)
	default:
		l.emit(Raw)
		return nil
	}
	return lexInit
}

// identifiers may contain dots to address signals inside sub-modules.
func lexIdent(l *lexer) stateFn {
	r := l.next()
	for unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' {
		r = l.next()
	}
	l.backup()
	l.emit(Ident)
	return lexInit
}

// Lex splits input into tokens. The last item is always EOF or Raw.
//
func Lex(input string) []Item {
	l := &lexer{input: input}
	for st := stateFn(lexInit); st != nil; {
		st = st(l)
	}
	return l.items
}

// Assignment maps a port name to a signal name.
//
type Assignment struct {
	Port   string
	Signal string
	Pos    int
}

// Parse parses a connection string. An empty string yields no assignments.
//
func Parse(input string) ([]Assignment, error) {
	items := Lex(input)
	var out []Assignment
	i := 0
	if items[0].Type == EOF {
		return nil, nil
	}
	for {
		lhs := items[i]
		if lhs.Type != Ident {
			return nil, parseError(input, lhs, "expected port name")
		}
		if eq := items[i+1]; eq.Type != Equal {
			return nil, parseError(input, eq, "expected '='")
		}
		rhs := items[i+2]
		if rhs.Type != Ident {
			return nil, parseError(input, rhs, "expected signal name")
		}
		out = append(out, Assignment{lhs.Value, rhs.Value, lhs.Pos})
		i += 3
		switch sep := items[i]; sep.Type {
		case EOF:
			return out, nil
		case Comma:
			i++
		default:
			return nil, parseError(input, sep, "expected ',' or end of input")
		}
	}
}

// Map parses a connection string into a port name to signal name map.
// Assigning the same port twice is an error.
//
func Map(input string) (map[string]string, error) {
	as, err := Parse(input)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(as))
	for _, a := range as {
		if _, ok := m[a.Port]; ok {
			return nil, errors.Errorf("in %q at pos %d: port %s assigned twice", input, a.Pos+1, a.Port)
		}
		m[a.Port] = a.Signal
	}
	return m, nil
}

func parseError(in string, i Item, msg string) error {
	return errors.Errorf("in %q at pos %d: %s, got %s", in, i.Pos+1, msg, i.Type)
}
