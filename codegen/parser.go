package codegen

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseErrorCode identifies the kind of grammar violation a Parse call
// hit, mirroring the teacher's small numeric-coded error structs
// (CapUrnError, CapHostRegistryError) rather than an open string reason.
type ParseErrorCode int

const (
	ErrUnexpectedEOF ParseErrorCode = iota + 1
	ErrUnexpectedToken
	ErrUnsupportedConstruct
	ErrDuplicateField
	ErrUnknownTypeName
)

// ParseError is returned by Parse on malformed or unsupported input.
type ParseError struct {
	Code    ParseErrorCode
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("codegen: line %d: %s", e.Line, e.Message)
}

// Parse reads a constrained subset of Rust-like struct definitions and
// returns their IR. Supported: `struct` blocks, `///` doc comments,
// a single `#[serde(rename = "...")]` attribute per field, and field
// types drawn from TypeKind's closed set. Anything else (enum, impl,
// trait, tuple struct, generic struct, lifetime parameter) is rejected
// with ErrUnsupportedConstruct.
func Parse(src string) (*IR, error) {
	p := &parser{s: newScanner(src)}
	return p.parseFile()
}

type parser struct {
	s *scanner
}

func (p *parser) parseFile() (*IR, error) {
	ir := &IR{}
	seenNames := map[string]bool{}

	for {
		docs := p.s.consumeDocComments()
		p.s.consumeAttributes() // top-level attributes (e.g. derive macros) are ignored

		if p.s.atEOF() {
			break
		}

		word, line := p.s.peekIdent()
		switch word {
		case "struct":
			msg, err := p.parseStruct(docs)
			if err != nil {
				return nil, err
			}
			if seenNames[msg.Name] {
				return nil, &ParseError{Code: ErrDuplicateField, Line: line, Message: fmt.Sprintf("duplicate type name %q", msg.Name)}
			}
			seenNames[msg.Name] = true
			ir.Messages = append(ir.Messages, msg)
		case "enum", "trait", "impl", "type", "mod", "pub":
			return nil, &ParseError{Code: ErrUnsupportedConstruct, Line: line, Message: fmt.Sprintf("top-level %q is not supported; structs only", word)}
		default:
			return nil, &ParseError{Code: ErrUnexpectedToken, Line: line, Message: fmt.Sprintf("expected 'struct', found %q", word)}
		}
	}
	return ir, nil
}

func (p *parser) parseStruct(docs string) (MessageType, error) {
	p.s.expectWord("struct")
	name, line := p.s.readIdent()
	if name == "" {
		return MessageType{}, &ParseError{Code: ErrUnexpectedToken, Line: line, Message: "expected struct name"}
	}
	if p.s.peekRune() == '<' {
		return MessageType{}, &ParseError{Code: ErrUnsupportedConstruct, Line: line, Message: "generic structs are not supported"}
	}
	if p.s.peekRune() == '(' {
		return MessageType{}, &ParseError{Code: ErrUnsupportedConstruct, Line: line, Message: "tuple structs are not supported"}
	}
	if err := p.s.expectRune('{'); err != nil {
		return MessageType{}, err
	}

	msg := MessageType{Name: name, Docs: docs}
	seen := map[string]bool{}
	for {
		p.s.skipWhitespaceAndComments()
		if p.s.peekRune() == '}' {
			p.s.advanceRune()
			break
		}
		field, err := p.parseField()
		if err != nil {
			return MessageType{}, err
		}
		if seen[field.Name] {
			return MessageType{}, &ParseError{Code: ErrDuplicateField, Line: p.s.curLine, Message: fmt.Sprintf("duplicate field %q in %s", field.Name, name)}
		}
		seen[field.Name] = true
		msg.Fields = append(msg.Fields, field)
	}
	return msg, nil
}

func (p *parser) parseField() (Field, error) {
	docs := p.s.consumeDocComments()
	rename := p.s.consumeRenameAttribute()

	fieldName, line := p.s.readIdent()
	if fieldName == "" {
		return Field{}, &ParseError{Code: ErrUnexpectedToken, Line: line, Message: "expected field name"}
	}
	if err := p.s.expectRune(':'); err != nil {
		return Field{}, err
	}
	ty, err := p.parseType()
	if err != nil {
		return Field{}, err
	}
	p.s.skipWhitespaceAndComments()
	if p.s.peekRune() == ',' {
		p.s.advanceRune()
	}

	return Field{
		Name:     fieldName,
		Type:     ty,
		Docs:     docs,
		Optional: ty.Kind == KindOptional,
		Rename:   rename,
	}, nil
}

func (p *parser) parseType() (Type, error) {
	name, line := p.s.readIdent()
	if name == "" {
		return Type{}, &ParseError{Code: ErrUnexpectedToken, Line: line, Message: "expected type name"}
	}

	switch name {
	case "Vec":
		if err := p.s.expectRune('<'); err != nil {
			return Type{}, err
		}
		elem, err := p.parseType()
		if err != nil {
			return Type{}, err
		}
		if err := p.s.expectRune('>'); err != nil {
			return Type{}, err
		}
		return Type{Kind: KindSequence, Elem: &elem}, nil
	case "Option":
		if err := p.s.expectRune('<'); err != nil {
			return Type{}, err
		}
		elem, err := p.parseType()
		if err != nil {
			return Type{}, err
		}
		if err := p.s.expectRune('>'); err != nil {
			return Type{}, err
		}
		return Type{Kind: KindOptional, Elem: &elem}, nil
	case "HashMap", "BTreeMap":
		return Type{}, &ParseError{Code: ErrUnsupportedConstruct, Line: line, Message: "map types are not supported"}
	}

	if kind, ok := primitiveKinds[name]; ok {
		return Type{Kind: kind}, nil
	}
	return Type{Kind: KindCustom, Name: name}, nil
}

var primitiveKinds = map[string]TypeKind{
	"bool": KindBool,
	"i8":   KindI8, "i16": KindI16, "i32": KindI32, "i64": KindI64,
	"u8": KindU8, "u16": KindU16, "u32": KindU32, "u64": KindU64,
	"f32": KindF32, "f64": KindF64,
	"String": KindString, "str": KindString,
}

// --- scanner -----------------------------------------------------------

type scanner struct {
	src     []rune
	pos     int
	curLine int
}

func newScanner(src string) *scanner {
	return &scanner{src: []rune(src), curLine: 1}
}

func (s *scanner) atEOF() bool {
	s.skipWhitespaceAndComments()
	return s.pos >= len(s.src)
}

func (s *scanner) peekRune() rune {
	s.skipWhitespaceAndComments()
	if s.pos >= len(s.src) {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) advanceRune() {
	if s.pos < len(s.src) {
		if s.src[s.pos] == '\n' {
			s.curLine++
		}
		s.pos++
	}
}

func (s *scanner) expectRune(r rune) error {
	s.skipWhitespaceAndComments()
	if s.pos >= len(s.src) || s.src[s.pos] != r {
		return &ParseError{Code: ErrUnexpectedToken, Line: s.curLine, Message: fmt.Sprintf("expected %q", r)}
	}
	s.advanceRune()
	return nil
}

func (s *scanner) expectWord(word string) {
	s.readIdent() // caller has already peeked; this just consumes it
	_ = word
}

func (s *scanner) skipWhitespaceAndComments() {
	for s.pos < len(s.src) {
		r := s.src[s.pos]
		if r == '\n' {
			s.curLine++
			s.pos++
			continue
		}
		if unicode.IsSpace(r) {
			s.pos++
			continue
		}
		// A non-doc line comment ("// ...", not "/// ...") is skipped
		// entirely; doc comments are handled by consumeDocComments at
		// the call sites that care about them.
		if r == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/' && !(s.pos+2 < len(s.src) && s.src[s.pos+2] == '/') {
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
			continue
		}
		break
	}
}

// peekIdent returns the next identifier without consuming it, used for
// top-level dispatch between `struct` and unsupported keywords.
func (s *scanner) peekIdent() (string, int) {
	save := s.pos
	saveLine := s.curLine
	word, line := s.readIdent()
	s.pos = save
	s.curLine = saveLine
	return word, line
}

func (s *scanner) readIdent() (string, int) {
	s.skipWhitespaceAndComments()
	line := s.curLine
	start := s.pos
	for s.pos < len(s.src) && (unicode.IsLetter(s.src[s.pos]) || unicode.IsDigit(s.src[s.pos]) || s.src[s.pos] == '_') {
		s.pos++
	}
	return string(s.src[start:s.pos]), line
}

// consumeDocComments reads zero or more consecutive `/// ...` lines and
// joins them into one docs string.
func (s *scanner) consumeDocComments() string {
	var lines []string
	for {
		s.skipBlankAndPlainComments()
		if s.pos+2 >= len(s.src) || s.src[s.pos] != '/' || s.src[s.pos+1] != '/' || s.src[s.pos+2] != '/' {
			break
		}
		s.pos += 3
		start := s.pos
		for s.pos < len(s.src) && s.src[s.pos] != '\n' {
			s.pos++
		}
		lines = append(lines, strings.TrimSpace(string(s.src[start:s.pos])))
	}
	return strings.Join(lines, "\n")
}

func (s *scanner) skipBlankAndPlainComments() {
	for s.pos < len(s.src) {
		r := s.src[s.pos]
		if r == '\n' {
			s.curLine++
			s.pos++
			continue
		}
		if unicode.IsSpace(r) {
			s.pos++
			continue
		}
		if r == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/' &&
			!(s.pos+2 < len(s.src) && s.src[s.pos+2] == '/') {
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
			continue
		}
		break
	}
}

// consumeAttributes skips zero or more `#[...]` attributes whose content
// this module does not otherwise interpret (e.g. `#[derive(Debug)]`).
func (s *scanner) consumeAttributes() {
	for {
		s.skipWhitespaceAndComments()
		if s.pos+1 >= len(s.src) || s.src[s.pos] != '#' || s.src[s.pos+1] != '[' {
			return
		}
		s.pos += 2
		for s.pos < len(s.src) && s.src[s.pos] != ']' {
			s.advanceRune()
		}
		if s.pos < len(s.src) {
			s.pos++ // consume ']'
		}
	}
}

// consumeRenameAttribute reads `#[serde(rename = "wire_name")]` if
// present, returning "wire_name", and otherwise skips any other
// attribute and returns "".
func (s *scanner) consumeRenameAttribute() string {
	s.skipWhitespaceAndComments()
	if s.pos+1 >= len(s.src) || s.src[s.pos] != '#' || s.src[s.pos+1] != '[' {
		return ""
	}
	start := s.pos
	s.pos += 2
	contentStart := s.pos
	for s.pos < len(s.src) && s.src[s.pos] != ']' {
		s.advanceRune()
	}
	content := string(s.src[contentStart:s.pos])
	if s.pos < len(s.src) {
		s.pos++
	}
	_ = start

	const marker = `rename = "`
	if idx := strings.Index(content, marker); idx >= 0 {
		rest := content[idx+len(marker):]
		if end := strings.IndexByte(rest, '"'); end >= 0 {
			return rest[:end]
		}
	}
	return ""
}
