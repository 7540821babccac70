package filter

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Translation is a filter pushdown rendered for the document store.
type Translation struct {
	// FilterQuery is the fq fragment; empty when nothing could be pushed.
	FilterQuery string
	// Query is the q fragment holding wildcard text predicates.
	Query string
	// Fields lists the store fields constrained by the pushed fragments,
	// sorted and without duplicates.
	Fields []string
}

// Translator turns a parsed filter into store query fragments.
type Translator interface {
	Translate(fp *FilterPushdown) Translation
}

// Encoder converts parsed filter expressions to store query strings.
type Encoder interface {
	Encode(expr Expression) string
	EncodeFilters(fp *FilterPushdown) string
}

// EncoderOptions configures a SolrEncoder.
type EncoderOptions struct {
	// ColumnMapping maps column names to store field names.
	// Unmapped columns keep their names.
	ColumnMapping map[string]string
}

// SolrEncoder renders expressions in the Lucene query syntax understood by
// the store. Expressions that cannot be rendered are dropped:
//   - inside AND the unsupported child is skipped
//   - inside OR the whole OR is skipped
//
// Dropping widens the result set, which is safe because DuckDB applies the
// full filter to the returned rows.
//
// A SolrEncoder is safe for concurrent use.
type SolrEncoder struct {
	opts EncoderOptions
}

var (
	_ Encoder    = (*SolrEncoder)(nil)
	_ Translator = (*SolrEncoder)(nil)
)

// NewSolrEncoder creates an encoder. opts may be nil.
func NewSolrEncoder(opts *EncoderOptions) *SolrEncoder {
	e := &SolrEncoder{}
	if opts != nil {
		e.opts = *opts
	}
	return e
}

// Encode renders a single expression, or returns "" when it cannot be
// pushed. Without column bindings a column reference resolves to its
// alias; references without one make the expression unsupported.
func (e *SolrEncoder) Encode(expr Expression) string {
	s, _, _ := e.lucene(nil).encode(expr)
	return s
}

// EncodeFilters renders every filter as one fq fragment, text predicates
// included.
func (e *SolrEncoder) EncodeFilters(fp *FilterPushdown) string {
	if fp == nil {
		return ""
	}
	l := e.lucene(fp)
	var parts []string
	for _, f := range fp.Filters {
		if s, _, _ := l.encode(f); s != "" {
			parts = append(parts, s)
		}
	}
	return joinFilters(parts)
}

// Translate implements Translator. Top-level wildcard text predicates go
// to Query, everything else to FilterQuery.
func (e *SolrEncoder) Translate(fp *FilterPushdown) Translation {
	var t Translation
	if fp == nil {
		return t
	}
	l := e.lucene(fp)
	var fq, q []string
	seen := make(map[string]struct{})
	for _, f := range fp.Filters {
		s, fields, _ := l.encode(f)
		if s == "" {
			continue
		}
		if isTextPredicate(f) {
			q = append(q, s)
		} else {
			fq = append(fq, s)
		}
		for _, name := range fields {
			seen[name] = struct{}{}
		}
	}
	t.FilterQuery = joinFilters(fq)
	t.Query = joinFilters(q)
	for name := range seen {
		t.Fields = append(t.Fields, name)
	}
	sort.Strings(t.Fields)
	return t
}

func joinFilters(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return "(" + strings.Join(parts, ") AND (") + ")"
	}
}

func (e *SolrEncoder) lucene(fp *FilterPushdown) *lucene {
	return &lucene{mapping: e.opts.ColumnMapping, fp: fp}
}

// lucene encodes the expressions of one FilterPushdown.
type lucene struct {
	mapping map[string]string
	fp      *FilterPushdown
}

// encode returns the rendered fragment and the fields it constrains, or
// "" when expr cannot be rendered. exact reports whether the fragment
// matches expr itself rather than a widened form of it; only exact
// fragments may be negated.
func (l *lucene) encode(expr Expression) (s string, fields []string, exact bool) {
	switch ex := expr.(type) {
	case *ComparisonExpression:
		s, fields = l.comparison(ex)
	case *ConjunctionExpression:
		return l.conjunction(ex)
	case *BetweenExpression:
		s, fields = l.between(ex)
	case *OperatorExpression:
		if ex.Type() == TypeOperatorNot {
			return l.not(ex)
		}
		s, fields = l.operator(ex)
	case *FunctionExpression:
		s, fields = l.function(ex)
	default:
		return "", nil, false
	}
	return s, fields, s != ""
}

// field resolves a column reference, looking through casts.
func (l *lucene) field(expr Expression) (string, bool) {
	switch ex := expr.(type) {
	case *ColumnRefExpression:
		name := ex.Alias()
		if l.fp != nil {
			var err error
			if name, err = l.fp.ColumnName(ex); err != nil {
				return "", false
			}
		}
		if name == "" {
			return "", false
		}
		if mapped, ok := l.mapping[name]; ok {
			name = mapped
		}
		return name, true
	case *CastExpression:
		return l.field(ex.Child)
	default:
		return "", false
	}
}

// constant returns the value of a constant, looking through casts.
func constant(expr Expression) (Value, bool) {
	switch ex := expr.(type) {
	case *ConstantExpression:
		return ex.Value, true
	case *CastExpression:
		return constant(ex.Child)
	default:
		return Value{}, false
	}
}

// mirrored maps a comparison to its form with swapped operands.
var mirrored = map[ExpressionType]ExpressionType{
	TypeCompareEqual:              TypeCompareEqual,
	TypeCompareNotEqual:           TypeCompareNotEqual,
	TypeCompareLessThan:           TypeCompareGreaterThan,
	TypeCompareGreaterThan:        TypeCompareLessThan,
	TypeCompareLessThanOrEqual:    TypeCompareGreaterThanOrEqual,
	TypeCompareGreaterThanOrEqual: TypeCompareLessThanOrEqual,
}

func (l *lucene) comparison(c *ComparisonExpression) (string, []string) {
	switch c.Type() {
	case TypeCompareIn, TypeCompareNotIn:
		list, ok := c.Right.(*FunctionExpression)
		if !ok {
			return "", nil
		}
		return l.in(c.Left, list.Children, c.Type() == TypeCompareNotIn)
	}

	op := c.Type()
	left, right := c.Left, c.Right
	if _, ok := l.field(left); !ok {
		m, ok := mirrored[op]
		if !ok {
			return "", nil
		}
		op, left, right = m, right, left
	}

	field, ok := l.field(left)
	if !ok {
		return "", nil
	}
	v, ok := constant(right)
	if !ok {
		return "", nil
	}
	term, ok := formatTerm(v)
	if !ok {
		return "", nil
	}

	f := escapeField(field)
	fields := []string{field}
	switch op {
	case TypeCompareEqual:
		return f + ":" + term, fields
	case TypeCompareNotEqual:
		return negate(f + ":" + term), fields
	case TypeCompareLessThan:
		return f + ":{* TO " + term + "}", fields
	case TypeCompareLessThanOrEqual:
		return f + ":[* TO " + term + "]", fields
	case TypeCompareGreaterThan:
		return f + ":{" + term + " TO *}", fields
	case TypeCompareGreaterThanOrEqual:
		return f + ":[" + term + " TO *]", fields
	default:
		return "", nil
	}
}

func (l *lucene) in(target Expression, values []Expression, not bool) (string, []string) {
	field, ok := l.field(target)
	if !ok || len(values) == 0 {
		return "", nil
	}
	terms := make([]string, 0, len(values))
	for _, v := range values {
		c, ok := constant(v)
		if !ok {
			return "", nil
		}
		term, ok := formatTerm(c)
		if !ok {
			return "", nil
		}
		terms = append(terms, term)
	}
	s := escapeField(field) + ":(" + strings.Join(terms, " OR ") + ")"
	if not {
		s = negate(s)
	}
	return s, []string{field}
}

func (l *lucene) conjunction(c *ConjunctionExpression) (string, []string, bool) {
	var parts, fields []string
	exact := true
	for _, child := range c.Children {
		s, f, ok := l.encode(child)
		if s != "" {
			parts = append(parts, s)
			fields = append(fields, f...)
		}
		exact = exact && ok
	}

	op := " AND "
	if c.Type() == TypeConjunctionOr {
		if len(parts) != len(c.Children) {
			return "", nil, false
		}
		op = " OR "
	}

	switch len(parts) {
	case 0:
		return "", nil, false
	case 1:
		return parts[0], fields, exact
	default:
		return "(" + strings.Join(parts, op) + ")", fields, exact
	}
}

func (l *lucene) between(b *BetweenExpression) (string, []string) {
	field, ok := l.field(b.Input)
	if !ok {
		return "", nil
	}
	lo, ok := constant(b.Lower)
	if !ok {
		return "", nil
	}
	hi, ok := constant(b.Upper)
	if !ok {
		return "", nil
	}
	loTerm, ok := formatTerm(lo)
	if !ok {
		return "", nil
	}
	hiTerm, ok := formatTerm(hi)
	if !ok {
		return "", nil
	}

	open, closing := "{", "}"
	if b.LowerInclusive {
		open = "["
	}
	if b.UpperInclusive {
		closing = "]"
	}
	s := escapeField(field) + ":" + open + loTerm + " TO " + hiTerm + closing
	if b.Type() == TypeCompareNotBetween {
		s = negate(s)
	}
	return s, []string{field}
}

func (l *lucene) operator(o *OperatorExpression) (string, []string) {
	if len(o.Children) == 0 {
		return "", nil
	}
	switch o.Type() {
	case TypeOperatorIsNull, TypeOperatorIsNotNull:
		field, ok := l.field(o.Children[0])
		if !ok {
			return "", nil
		}
		s := escapeField(field) + ":[* TO *]"
		if o.Type() == TypeOperatorIsNull {
			s = negate(s)
		}
		return s, []string{field}

	case TypeCompareIn, TypeCompareNotIn:
		return l.in(o.Children[0], o.Children[1:], o.Type() == TypeCompareNotIn)

	default:
		return "", nil
	}
}

// not negates its child only when the child rendered exactly. Negating a
// widened child, such as an AND with a skipped predicate, would narrow the
// result and lose rows.
func (l *lucene) not(o *OperatorExpression) (string, []string, bool) {
	if len(o.Children) == 0 {
		return "", nil, false
	}
	s, fields, exact := l.encode(o.Children[0])
	if s == "" || !exact {
		return "", nil, false
	}
	return negate(group(s)), fields, true
}

// textPredicates maps function names to a wildcard pattern builder.
var textPredicates = map[string]func(string) string{
	"prefix":      func(s string) string { return escapeTerm(s) + "*" },
	"starts_with": func(s string) string { return escapeTerm(s) + "*" },
	"suffix":      func(s string) string { return "*" + escapeTerm(s) },
	"ends_with":   func(s string) string { return "*" + escapeTerm(s) },
	"contains":    func(s string) string { return "*" + escapeTerm(s) + "*" },
	"~~":          likePattern,
	"!~~":         likePattern,
}

func isTextPredicate(expr Expression) bool {
	f, ok := expr.(*FunctionExpression)
	if !ok {
		return false
	}
	_, ok = textPredicates[f.Name]
	return ok
}

func (l *lucene) function(f *FunctionExpression) (string, []string) {
	build, ok := textPredicates[f.Name]
	if !ok || len(f.Children) != 2 {
		return "", nil
	}
	field, ok := l.field(f.Children[0])
	if !ok {
		return "", nil
	}
	v, ok := constant(f.Children[1])
	if !ok || v.IsNull {
		return "", nil
	}
	pattern, ok := v.Data.(string)
	if !ok || pattern == "" {
		return "", nil
	}
	s := escapeField(field) + ":" + build(pattern)
	if f.Name == "!~~" {
		s = negate(s)
	}
	return s, []string{field}
}

// likePattern converts a SQL LIKE pattern to a wildcard term.
func likePattern(p string) string {
	var sb strings.Builder
	escaped := false
	for _, r := range p {
		switch {
		case escaped:
			sb.WriteString(escapeTerm(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			sb.WriteByte('*')
		case r == '_':
			sb.WriteByte('?')
		default:
			sb.WriteString(escapeTerm(string(r)))
		}
	}
	return sb.String()
}

// negate matches every document not matching q.
func negate(q string) string {
	return "(*:* -" + q + ")"
}

func group(q string) string {
	if strings.HasPrefix(q, "(") && strings.HasSuffix(q, ")") {
		return q
	}
	return "(" + q + ")"
}

// formatTerm renders a constant as a query term.
func formatTerm(v Value) (string, bool) {
	if v.IsNull {
		return "", false
	}
	switch d := v.Data.(type) {
	case bool:
		return strconv.FormatBool(d), true
	case int64:
		if v.Type.ID.IsTemporal() {
			return formatInstant(d, v.Type.ID)
		}
		if v.Type.ID == TypeIDTime {
			return "", false
		}
		return strconv.FormatInt(d, 10), true
	case uint64:
		return strconv.FormatUint(d, 10), true
	case float64:
		return strconv.FormatFloat(d, 'f', -1, 64), true
	case string:
		if v.Type.ID == TypeIDDecimal {
			return d, true
		}
		return quote(d), true
	default:
		return "", false
	}
}

// formatInstant renders a date or timestamp as an ISO-8601 UTC instant.
func formatInstant(n int64, id LogicalTypeID) (string, bool) {
	var t time.Time
	switch id {
	case TypeIDDate:
		t = time.Unix(n*86400, 0)
	case TypeIDTimestampSec:
		t = time.Unix(n, 0)
	case TypeIDTimestampMs:
		t = time.UnixMilli(n)
	case TypeIDTimestampNs:
		t = time.Unix(0, n)
	default:
		t = time.UnixMicro(n)
	}
	return quote(t.UTC().Format(time.RFC3339Nano)), true
}

// quote renders s as a phrase.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

const special = `+-&|!(){}[]^"~*?:\/ `

// escapeTerm escapes query syntax characters of an unquoted term.
func escapeTerm(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// escapeField escapes a field name.
func escapeField(name string) string {
	return escapeTerm(name)
}
