// Package query parses the text form of allocation constraints.
//
// Grammar, loosest binding first:
//
//	expr      := and ( '|' and )*
//	and       := unary ( '&' unary )*
//	unary     := '~' unary | '(' expr ')' | predicate
//	predicate := field op value
//	           | field '.between(' value ',' value ')'
//	           | field '.isin(' value ( ',' value )* ')'
//	           | field '.is_null()' | field '.is_not_null()'
//	field     := table '.' name            e.g. slot.inst, config.nslot
//	op        := '==' | '=' | '!=' | '<' | '<=' | '>' | '>='
//	value     := number | 'text' | "text"
//
// Every pure.Expr renders back into this language through its String method.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/parsly"

	"github.com/jwpure/jwpure/pure"
)

// Parse parses a constraint. Blank text yields a nil expression, which
// matches every slot. The returned expression has been validated.
func Parse(text string) (pure.Expr, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	p := &parser{cursor: parsly.NewCursor("constraint", []byte(text), 0)}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.cursor.MatchOne(whitespaceToken)
	if p.cursor.HasMore() {
		return nil, p.errorf("unexpected %q", string(p.cursor.Input[p.cursor.Pos:]))
	}
	if err := expr.Validate(); err != nil {
		return nil, fmt.Errorf("constraint %q: %w", text, err)
	}
	return expr, nil
}

// MustParse is like Parse but panics on error. Intended for fixed constraints
// in tests and examples.
func MustParse(text string) pure.Expr {
	expr, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return expr
}

type parser struct {
	cursor *parsly.Cursor
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("constraint: at offset %d: %s", p.cursor.Pos, fmt.Sprintf(format, args...))
}

func (p *parser) parseOr() (pure.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	args := []pure.Expr{left}
	for p.cursor.MatchAfterOptional(whitespaceToken, orToken).Code == orCode {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		args = append(args, right)
	}
	if len(args) == 1 {
		return left, nil
	}
	return pure.Or(args...), nil
}

func (p *parser) parseAnd() (pure.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	args := []pure.Expr{left}
	for p.cursor.MatchAfterOptional(whitespaceToken, andToken).Code == andCode {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		args = append(args, right)
	}
	if len(args) == 1 {
		return left, nil
	}
	return pure.And(args...), nil
}

func (p *parser) parseUnary() (pure.Expr, error) {
	matched := p.cursor.MatchAfterOptional(whitespaceToken, notToken, openParenToken, fieldToken)
	switch matched.Code {
	case notCode:
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return pure.Not(operand), nil
	case openParenCode:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cursor.MatchAfterOptional(whitespaceToken, closeParenToken).Code != closeParenCode {
			return nil, p.cursor.NewError(closeParenToken)
		}
		return inner, nil
	case fieldCode:
		return p.parsePredicate(matched.Text(p.cursor))
	case parsly.EOF:
		return nil, p.errorf("unexpected end of constraint")
	default:
		return nil, p.cursor.NewError(notToken, openParenToken, fieldToken)
	}
}

func (p *parser) parsePredicate(name string) (pure.Expr, error) {
	field, err := pure.LookupField(name)
	if err != nil {
		return nil, fmt.Errorf("constraint: at offset %d: %w", p.cursor.Pos, err)
	}
	matched := p.cursor.MatchAfterOptional(whitespaceToken, methodToken, compareToken)
	switch matched.Code {
	case compareCode:
		op := pure.CompareOp(matched.Text(p.cursor))
		if op == "=" {
			op = pure.OpEq
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return field.Compare(op, value), nil
	case methodCode:
		return p.parseMethod(field, strings.TrimPrefix(matched.Text(p.cursor), "."))
	default:
		return nil, p.cursor.NewError(compareToken, methodToken)
	}
}

func (p *parser) parseMethod(field pure.Field, method string) (pure.Expr, error) {
	if p.cursor.MatchAfterOptional(whitespaceToken, openParenToken).Code != openParenCode {
		return nil, p.cursor.NewError(openParenToken)
	}
	var args []any
	if p.cursor.MatchAfterOptional(whitespaceToken, closeParenToken).Code != closeParenCode {
		for {
			value, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			args = append(args, value)
			next := p.cursor.MatchAfterOptional(whitespaceToken, commaToken, closeParenToken)
			if next.Code == closeParenCode {
				break
			}
			if next.Code != commaCode {
				return nil, p.cursor.NewError(commaToken, closeParenToken)
			}
		}
	}

	switch method {
	case "between":
		if len(args) != 2 {
			return nil, p.errorf("%s.between takes 2 arguments, got %d", field, len(args))
		}
		return field.Between(args[0], args[1]), nil
	case "isin":
		return field.In(args...), nil
	case "is_null", "is_not_null":
		if len(args) != 0 {
			return nil, p.errorf("%s.%s takes no arguments, got %d", field, method, len(args))
		}
		if method == "is_null" {
			return field.IsNull(), nil
		}
		return field.IsNotNull(), nil
	default:
		return nil, p.errorf("unknown method %q; valid: between, isin, is_null, is_not_null", method)
	}
}

func (p *parser) parseValue() (any, error) {
	matched := p.cursor.MatchAfterOptional(whitespaceToken, numberToken, stringToken)
	switch matched.Code {
	case numberCode:
		text := matched.Text(p.cursor)
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q: %v", text, err)
		}
		return v, nil
	case stringCode:
		return unquote(matched.Text(p.cursor)), nil
	default:
		return nil, p.cursor.NewError(numberToken, stringToken)
	}
}

// unquote strips the surrounding quotes and resolves backslash escapes.
func unquote(literal string) string {
	body := literal[1 : len(literal)-1]
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		sb.WriteByte(body[i])
	}
	return sb.String()
}
