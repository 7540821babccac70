package filter

import "strconv"

// ExpressionClass identifies the category of expression.
type ExpressionClass string

const (
	ClassBoundBetween     ExpressionClass = "BOUND_BETWEEN"
	ClassBoundCast        ExpressionClass = "BOUND_CAST"
	ClassBoundColumnRef   ExpressionClass = "BOUND_COLUMN_REF"
	ClassBoundComparison  ExpressionClass = "BOUND_COMPARISON"
	ClassBoundConjunction ExpressionClass = "BOUND_CONJUNCTION"
	ClassBoundConstant    ExpressionClass = "BOUND_CONSTANT"
	ClassBoundFunction    ExpressionClass = "BOUND_FUNCTION"
	ClassBoundOperator    ExpressionClass = "BOUND_OPERATOR"
)

// ExpressionType identifies the specific operation.
type ExpressionType string

const (
	TypeCompareEqual              ExpressionType = "COMPARE_EQUAL"
	TypeCompareNotEqual           ExpressionType = "COMPARE_NOTEQUAL"
	TypeCompareLessThan           ExpressionType = "COMPARE_LESSTHAN"
	TypeCompareGreaterThan        ExpressionType = "COMPARE_GREATERTHAN"
	TypeCompareLessThanOrEqual    ExpressionType = "COMPARE_LESSTHANOREQUALTO"
	TypeCompareGreaterThanOrEqual ExpressionType = "COMPARE_GREATERTHANOREQUALTO"
	TypeCompareIn                 ExpressionType = "COMPARE_IN"
	TypeCompareNotIn              ExpressionType = "COMPARE_NOT_IN"
	TypeCompareBetween            ExpressionType = "COMPARE_BETWEEN"
	TypeCompareNotBetween         ExpressionType = "COMPARE_NOT_BETWEEN"

	TypeConjunctionAnd ExpressionType = "CONJUNCTION_AND"
	TypeConjunctionOr  ExpressionType = "CONJUNCTION_OR"

	TypeOperatorNot       ExpressionType = "OPERATOR_NOT"
	TypeOperatorIsNull    ExpressionType = "OPERATOR_IS_NULL"
	TypeOperatorIsNotNull ExpressionType = "OPERATOR_IS_NOT_NULL"
)

// Expression is implemented by all parsed filter expressions.
// Use a type switch to access the concrete expression.
type Expression interface {
	Class() ExpressionClass
	Type() ExpressionType
	expressionMarker()
}

// BaseExpression carries the fields common to every expression.
type BaseExpression struct {
	ExprClass ExpressionClass
	ExprType  ExpressionType
	ExprAlias string
}

func (b *BaseExpression) Class() ExpressionClass { return b.ExprClass }
func (b *BaseExpression) Type() ExpressionType   { return b.ExprType }
func (b *BaseExpression) Alias() string          { return b.ExprAlias }
func (b *BaseExpression) expressionMarker()      {}

// ColumnBinding identifies a column by table and column index.
type ColumnBinding struct {
	TableIndex  int `json:"table_index"`
	ColumnIndex int `json:"column_index"`
}

// FilterPushdown is the parsed filter document. Filters are implicitly
// joined with AND.
type FilterPushdown struct {
	Filters []Expression

	// ColumnBindings maps a binding's column index to a column name.
	ColumnBindings []string
}

// ColumnName resolves the column referenced by ref.
func (fp *FilterPushdown) ColumnName(ref *ColumnRefExpression) (string, error) {
	if ref.Binding.ColumnIndex < 0 || ref.Binding.ColumnIndex >= len(fp.ColumnBindings) {
		return "", &ColumnBindingError{Index: ref.Binding.ColumnIndex, Max: len(fp.ColumnBindings)}
	}
	return fp.ColumnBindings[ref.Binding.ColumnIndex], nil
}

// ColumnBindingError indicates an out of range column binding index.
type ColumnBindingError struct {
	Index int
	Max   int
}

func (e *ColumnBindingError) Error() string {
	return "invalid column binding index: " + strconv.Itoa(e.Index) + " (max: " + strconv.Itoa(e.Max-1) + ")"
}

// ComparisonExpression is a binary comparison, including IN and NOT IN
// whose right side is a list_value function.
type ComparisonExpression struct {
	BaseExpression
	Left  Expression
	Right Expression
}

// ConjunctionExpression is AND or OR over its children.
type ConjunctionExpression struct {
	BaseExpression
	Children []Expression
}

// ConstantExpression is a literal.
type ConstantExpression struct {
	BaseExpression
	Value Value
}

// ColumnRefExpression references a table column.
type ColumnRefExpression struct {
	BaseExpression
	Binding    ColumnBinding
	ReturnType LogicalType
}

// FunctionExpression is a function call. Operators such as LIKE (~~) are
// functions with IsOperator set.
type FunctionExpression struct {
	BaseExpression
	Name       string
	Children   []Expression
	ReturnType LogicalType
	IsOperator bool
}

// CastExpression is CAST or TRY_CAST.
type CastExpression struct {
	BaseExpression
	Child      Expression
	ReturnType LogicalType
	TryCast    bool
}

// BetweenExpression is input BETWEEN lower AND upper.
type BetweenExpression struct {
	BaseExpression
	Input          Expression
	Lower          Expression
	Upper          Expression
	LowerInclusive bool
	UpperInclusive bool
}

// OperatorExpression is IS NULL, IS NOT NULL, NOT, or an IN list
// (children[0] IN children[1:]).
type OperatorExpression struct {
	BaseExpression
	Children []Expression
}

// UnsupportedExpression is any expression class the translator does not
// understand. It parses successfully and is dropped during encoding.
type UnsupportedExpression struct {
	BaseExpression
}
