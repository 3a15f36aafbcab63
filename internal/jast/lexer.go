package jast

import (
	"fmt"
	"strings"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokLong
	tokFloat
	tokDouble
	tokChar
	tokString
	tokOp
)

type token struct {
	kind tokKind
	text string
	off  int
	end  int
}

// ParseError reports a lexing or parsing failure at a source position.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

var keywords = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true, "byte": true, "case": true,
	"catch": true, "char": true, "class": true, "const": true, "continue": true, "default": true,
	"do": true, "double": true, "else": true, "enum": true, "extends": true, "final": true,
	"finally": true, "float": true, "for": true, "goto": true, "if": true, "implements": true,
	"import": true, "instanceof": true, "int": true, "interface": true, "long": true, "native": true,
	"new": true, "package": true, "private": true, "protected": true, "public": true, "return": true,
	"short": true, "static": true, "strictfp": true, "super": true, "switch": true, "synchronized": true,
	"this": true, "throw": true, "throws": true, "transient": true, "try": true, "void": true,
	"volatile": true, "while": true, "true": true, "false": true, "null": true,
}

// Longest operators first. '>' is always emitted alone so that nested type
// arguments close cleanly; the parser glues shift and comparison operators.
var operators = []string{
	"<<=", "...", "->", "::", "++", "--", "&&", "||", "==", "!=", "<=", "<<",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
	"(", ")", "{", "}", "[", "]", ";", ",", ".", "@", "=", "<", ">", "!", "~",
	"?", ":", "+", "-", "*", "/", "&", "|", "^", "%",
}

type lexer struct {
	src  string
	pos  int
	toks []token
}

func lex(src string) ([]token, error) {
	lx := &lexer{src: src}
	if err := lx.run(); err != nil {
		return nil, err
	}

	return lx.toks, nil
}

func (lx *lexer) errorf(off int, format string, args ...any) error {
	line, col := position(lx.src, off)
	return &ParseError{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

func position(src string, off int) (int, int) {
	if off > len(src) {
		off = len(src)
	}

	line := 1 + strings.Count(src[:off], "\n")
	col := off - strings.LastIndex(src[:off], "\n")

	return line, col
}

//nolint:cyclop // a lexer is a big switch
func (lx *lexer) run() error {
	for {
		if err := lx.skipSpace(); err != nil {
			return err
		}

		if lx.pos >= len(lx.src) {
			lx.toks = append(lx.toks, token{kind: tokEOF, off: lx.pos, end: lx.pos})
			return nil
		}

		start := lx.pos
		c := lx.src[lx.pos]

		var err error

		switch {
		case isIdentStart(c):
			for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
				lx.pos++
			}

			lx.emit(tokIdent, start)
		case isDigit(c) || (c == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1])):
			lx.lexNumber(start)
		case c == '"':
			err = lx.lexString(start)
		case c == '\'':
			err = lx.lexChar(start)
		default:
			err = lx.lexOperator(start)
		}

		if err != nil {
			return err
		}
	}
}

func (lx *lexer) emit(kind tokKind, start int) {
	lx.toks = append(lx.toks, token{kind: kind, text: lx.src[start:lx.pos], off: start, end: lx.pos})
}

func (lx *lexer) skipSpace() error {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			lx.pos++
		case strings.HasPrefix(lx.src[lx.pos:], "//"):
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		case strings.HasPrefix(lx.src[lx.pos:], "/*"):
			end := strings.Index(lx.src[lx.pos+2:], "*/")
			if end < 0 {
				return lx.errorf(lx.pos, "unterminated comment")
			}

			lx.pos += end + 4
		default:
			return nil
		}
	}

	return nil
}

func (lx *lexer) lexNumber(start int) {
	src := lx.src
	hex := false

	if strings.HasPrefix(src[lx.pos:], "0x") || strings.HasPrefix(src[lx.pos:], "0X") ||
		strings.HasPrefix(src[lx.pos:], "0b") || strings.HasPrefix(src[lx.pos:], "0B") {
		hex = true
		lx.pos += 2
	}

	floating := false

	for lx.pos < len(src) {
		c := src[lx.pos]

		switch {
		case isDigit(c) || c == '_' || (hex && isHexLetter(c)):
			lx.pos++
		case c == '.' && !hex && lx.pos+1 < len(src) && src[lx.pos+1] != '.' && !isIdentStart(src[lx.pos+1]):
			floating = true
			lx.pos++
		case (c == 'e' || c == 'E') && !hex:
			floating = true
			lx.pos++

			if lx.pos < len(src) && (src[lx.pos] == '+' || src[lx.pos] == '-') {
				lx.pos++
			}
		default:
			lx.finishNumber(start, floating, hex)
			return
		}
	}

	lx.finishNumber(start, floating, hex)
}

func (lx *lexer) finishNumber(start int, floating, hex bool) {
	kind := tokInt
	if floating {
		kind = tokDouble
	}

	if lx.pos < len(lx.src) {
		switch lx.src[lx.pos] {
		case 'l', 'L':
			kind = tokLong
			lx.pos++
		case 'f', 'F':
			if !hex {
				kind = tokFloat
				lx.pos++
			}
		case 'd', 'D':
			if !hex {
				kind = tokDouble
				lx.pos++
			}
		}
	}

	lx.emit(kind, start)
}

func (lx *lexer) lexString(start int) error {
	if strings.HasPrefix(lx.src[lx.pos:], `"""`) {
		end := strings.Index(lx.src[lx.pos+3:], `"""`)
		if end < 0 {
			return lx.errorf(start, "unterminated text block")
		}

		lx.pos += end + 6
		lx.emit(tokString, start)

		return nil
	}

	lx.pos++

	for lx.pos < len(lx.src) {
		switch lx.src[lx.pos] {
		case '\\':
			lx.pos += 2
		case '"':
			lx.pos++
			lx.emit(tokString, start)

			return nil
		case '\n':
			return lx.errorf(start, "unterminated string literal")
		default:
			lx.pos++
		}
	}

	return lx.errorf(start, "unterminated string literal")
}

func (lx *lexer) lexChar(start int) error {
	lx.pos++

	for lx.pos < len(lx.src) {
		switch lx.src[lx.pos] {
		case '\\':
			lx.pos += 2
		case '\'':
			lx.pos++
			lx.emit(tokChar, start)

			return nil
		case '\n':
			return lx.errorf(start, "unterminated character literal")
		default:
			lx.pos++
		}
	}

	return lx.errorf(start, "unterminated character literal")
}

func (lx *lexer) lexOperator(start int) error {
	for _, op := range operators {
		if strings.HasPrefix(lx.src[lx.pos:], op) {
			lx.pos += len(op)
			lx.emit(tokOp, start)

			return nil
		}
	}

	return lx.errorf(start, "unexpected character %q", lx.src[start])
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexLetter(c byte) bool {
	return (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
