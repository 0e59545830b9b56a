package query

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes start at 1 to avoid clashing with parsly.EOF.
const (
	whitespaceCode = iota + 1
	fieldCode
	methodCode
	compareCode
	numberCode
	stringCode
	andCode
	orCode
	notCode
	openParenCode
	closeParenCode
	commaCode
)

var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	fieldToken      = parsly.NewToken(fieldCode, "Field", &fieldMatcher{})
	methodToken     = parsly.NewToken(methodCode, "Method", &methodMatcher{})
	compareToken    = parsly.NewToken(compareCode, "Comparison", &compareMatcher{})
	numberToken     = parsly.NewToken(numberCode, "Number", &numberMatcher{})
	stringToken     = parsly.NewToken(stringCode, "String", &stringMatcher{})
	andToken        = parsly.NewToken(andCode, "&", matcher.NewByte('&'))
	orToken         = parsly.NewToken(orCode, "|", matcher.NewByte('|'))
	notToken        = parsly.NewToken(notCode, "~", matcher.NewByte('~'))
	openParenToken  = parsly.NewToken(openParenCode, "(", matcher.NewByte('('))
	closeParenToken = parsly.NewToken(closeParenCode, ")", matcher.NewByte(')'))
	commaToken      = parsly.NewToken(commaCode, ",", matcher.NewByte(','))
)

// matchIdentifier returns the length of the identifier starting at pos.
func matchIdentifier(input []byte, pos, size int) int {
	if pos >= size || !(isLetter(input[pos]) || input[pos] == '_') {
		return 0
	}
	matched := 1
	for i := pos + 1; i < size; i++ {
		if !isLetter(input[i]) && !isDigit(input[i]) && input[i] != '_' {
			break
		}
		matched++
	}
	return matched
}

// fieldMatcher matches a table-qualified field name: table.field
type fieldMatcher struct{}

func (m *fieldMatcher) Match(cursor *parsly.Cursor) int {
	input, pos, size := cursor.Input, cursor.Pos, cursor.InputSize
	table := matchIdentifier(input, pos, size)
	if table == 0 || pos+table >= size || input[pos+table] != '.' {
		return 0
	}
	name := matchIdentifier(input, pos+table+1, size)
	if name == 0 {
		return 0
	}
	return table + 1 + name
}

// methodMatcher matches a method suffix such as .between
type methodMatcher struct{}

func (m *methodMatcher) Match(cursor *parsly.Cursor) int {
	input, pos, size := cursor.Input, cursor.Pos, cursor.InputSize
	if pos >= size || input[pos] != '.' {
		return 0
	}
	name := matchIdentifier(input, pos+1, size)
	if name == 0 {
		return 0
	}
	return 1 + name
}

// compareMatcher matches ==, !=, <=, >=, <, > and =
type compareMatcher struct{}

func (m *compareMatcher) Match(cursor *parsly.Cursor) int {
	input, pos, size := cursor.Input, cursor.Pos, cursor.InputSize
	if pos >= size {
		return 0
	}
	next := byte(0)
	if pos+1 < size {
		next = input[pos+1]
	}
	switch input[pos] {
	case '=':
		if next == '=' {
			return 2
		}
		return 1
	case '!':
		if next == '=' {
			return 2
		}
	case '<', '>':
		if next == '=' {
			return 2
		}
		return 1
	}
	return 0
}

// numberMatcher matches a decimal literal with optional sign and exponent.
type numberMatcher struct{}

func (m *numberMatcher) Match(cursor *parsly.Cursor) int {
	input, pos, size := cursor.Input, cursor.Pos, cursor.InputSize
	i := pos
	if i < size && (input[i] == '-' || input[i] == '+') {
		i++
	}
	digits := 0
	for ; i < size && isDigit(input[i]); i++ {
		digits++
	}
	if i < size && input[i] == '.' {
		i++
		for ; i < size && isDigit(input[i]); i++ {
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	if i < size && (input[i] == 'e' || input[i] == 'E') {
		j := i + 1
		if j < size && (input[j] == '-' || input[j] == '+') {
			j++
		}
		if j < size && isDigit(input[j]) {
			for j < size && isDigit(input[j]) {
				j++
			}
			i = j
		}
	}
	return i - pos
}

// stringMatcher matches a single- or double-quoted literal with backslash escapes.
type stringMatcher struct{}

func (m *stringMatcher) Match(cursor *parsly.Cursor) int {
	input, pos, size := cursor.Input, cursor.Pos, cursor.InputSize
	if pos >= size || (input[pos] != '\'' && input[pos] != '"') {
		return 0
	}
	quote := input[pos]
	for i := pos + 1; i < size; i++ {
		switch input[i] {
		case '\\':
			i++
		case quote:
			return i - pos + 1
		}
	}
	return 0
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
