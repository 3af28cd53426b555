// Package filter parses filterQuery expressions such as
//
//	status='in_review' AND (contentCategory='hype' OR title LIKE '%launch%')
//
// and compiles them to parameterized SQL over a whitelist of columns.
package filter

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Expression is a disjunction of conjunctions.
type Expression struct {
	Or []*AndExpr `parser:"@@ ( 'OR' @@ )*"`
}

// AndExpr is a conjunction of terms.
type AndExpr struct {
	And []*Term `parser:"@@ ( 'AND' @@ )*"`
}

// Term is a parenthesized expression or a single condition.
type Term struct {
	Sub  *Expression `parser:"  '(' @@ ')'"`
	Cond *Condition  `parser:"| @@"`
}

// Condition compares a field to one value, or tests membership in a list.
type Condition struct {
	Field string   `parser:"@Ident"`
	Op    string   `parser:"( @( '!=' | '>=' | '<=' | '=' | '>' | '<' | 'LIKE' )"`
	Value *Value   `parser:"  @@"`
	In    []*Value `parser:"| 'IN' '(' @@ ( ',' @@ )* ')' )"`
}

// Value is a literal operand.
type Value struct {
	String *string  `parser:"  @String"`
	Number *float64 `parser:"| @Number"`
	Bool   *string  `parser:"| @( 'true' | 'false' )"`
}

func (v *Value) arg() any {
	switch {
	case v.String != nil:
		return *v.String
	case v.Number != nil:
		return *v.Number
	case v.Bool != nil:
		return strings.EqualFold(*v.Bool, "true")
	}
	return nil
}

var queryLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `(?i)\b(AND|OR|IN|LIKE)\b`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.]*`},
	{Name: "String", Pattern: `'[^']*'|"[^"]*"`},
	{Name: "Number", Pattern: `[-+]?\d+(\.\d+)?`},
	{Name: "Operator", Pattern: `!=|>=|<=|=|>|<`},
	{Name: "Punct", Pattern: `[(),]`},
	{Name: "whitespace", Pattern: `\s+`},
})

var parser = participle.MustBuild[Expression](
	participle.Lexer(queryLexer),
	participle.Unquote("String"),
	participle.CaseInsensitive("Keyword"),
	participle.UseLookahead(2),
)

// Parse parses a filterQuery expression.
func Parse(query string) (*Expression, error) {
	expr, err := parser.ParseString("", query)
	if err != nil {
		return nil, fmt.Errorf("invalid filterQuery: %w", err)
	}
	return expr, nil
}

// Columns maps the field names accepted in expressions to SQL columns.
type Columns map[string]string

// SQL compiles the expression to a WHERE fragment with positional
// placeholders. Fields missing from columns are rejected.
func (e *Expression) SQL(columns Columns) (string, []any, error) {
	var b strings.Builder
	var args []any
	if err := e.write(&b, &args, columns); err != nil {
		return "", nil, err
	}
	return b.String(), args, nil
}

func (e *Expression) write(b *strings.Builder, args *[]any, columns Columns) error {
	if len(e.Or) > 1 {
		b.WriteString("(")
	}
	for i, and := range e.Or {
		if i > 0 {
			b.WriteString(" OR ")
		}
		for j, term := range and.And {
			if j > 0 {
				b.WriteString(" AND ")
			}
			if err := term.write(b, args, columns); err != nil {
				return err
			}
		}
	}
	if len(e.Or) > 1 {
		b.WriteString(")")
	}
	return nil
}

func (t *Term) write(b *strings.Builder, args *[]any, columns Columns) error {
	if t.Sub != nil {
		b.WriteString("(")
		if err := t.Sub.write(b, args, columns); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	}
	return t.Cond.write(b, args, columns)
}

func (c *Condition) write(b *strings.Builder, args *[]any, columns Columns) error {
	column, ok := columns[c.Field]
	if !ok {
		return fmt.Errorf("invalid filterQuery: unknown field %q", c.Field)
	}

	if c.In != nil {
		b.WriteString(column)
		b.WriteString(" IN (")
		for i, v := range c.In {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			*args = append(*args, v.arg())
		}
		b.WriteString(")")
		return nil
	}

	op := strings.ToUpper(c.Op)
	if op == "LIKE" && c.Value.String == nil {
		return fmt.Errorf("invalid filterQuery: LIKE on %q needs a string", c.Field)
	}
	fmt.Fprintf(b, "%s %s ?", column, op)
	*args = append(*args, c.Value.arg())
	return nil
}
