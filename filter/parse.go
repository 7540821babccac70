package filter

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Parse parses the filter pushdown JSON sent by the DuckDB Airport
// extension. Empty input yields an empty FilterPushdown. Expression
// classes the package does not model parse as UnsupportedExpression.
func Parse(data []byte) (*FilterPushdown, error) {
	if len(data) == 0 {
		return &FilterPushdown{}, nil
	}

	var raw struct {
		Filters        []*node  `json:"filters"`
		ColumnBindings []string `json:"column_binding_names_by_index"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("filter: invalid JSON: %w", err)
	}

	fp := &FilterPushdown{
		ColumnBindings: raw.ColumnBindings,
		Filters:        make([]Expression, 0, len(raw.Filters)),
	}
	for i, n := range raw.Filters {
		expr, err := n.expression()
		if err != nil {
			return nil, fmt.Errorf("filter: error parsing filter %d: %w", i, err)
		}
		fp.Filters = append(fp.Filters, expr)
	}
	return fp, nil
}

// node is the union of every expression shape in the JSON document.
type node struct {
	ExpressionClass string        `json:"expression_class"`
	Type            string        `json:"type"`
	Alias           string        `json:"alias"`
	ReturnType      rawType       `json:"return_type"`
	Left            *node         `json:"left"`
	Right           *node         `json:"right"`
	Children        []*node       `json:"children"`
	Child           *node         `json:"child"`
	Input           *node         `json:"input"`
	Lower           *node         `json:"lower"`
	Upper           *node         `json:"upper"`
	LowerInclusive  bool          `json:"lower_inclusive"`
	UpperInclusive  bool          `json:"upper_inclusive"`
	Value           *rawValue     `json:"value"`
	Binding         ColumnBinding `json:"binding"`
	Name            string        `json:"name"`
	IsOperator      bool          `json:"is_operator"`
	TryCast         bool          `json:"try_cast"`
}

func (n *node) base() BaseExpression {
	return BaseExpression{
		ExprClass: ExpressionClass(n.ExpressionClass),
		ExprType:  ExpressionType(n.Type),
		ExprAlias: n.Alias,
	}
}

func (n *node) expression() (Expression, error) {
	if n == nil {
		return nil, fmt.Errorf("missing expression")
	}

	switch ExpressionClass(n.ExpressionClass) {
	case ClassBoundComparison:
		left, err := n.Left.expression()
		if err != nil {
			return nil, fmt.Errorf("invalid left operand: %w", err)
		}
		right, err := n.Right.expression()
		if err != nil {
			return nil, fmt.Errorf("invalid right operand: %w", err)
		}
		return &ComparisonExpression{BaseExpression: n.base(), Left: left, Right: right}, nil

	case ClassBoundConjunction:
		children, err := expressions(n.Children)
		if err != nil {
			return nil, err
		}
		return &ConjunctionExpression{BaseExpression: n.base(), Children: children}, nil

	case ClassBoundConstant:
		if n.Value == nil {
			return nil, fmt.Errorf("constant without value")
		}
		v, err := n.Value.decode()
		if err != nil {
			return nil, err
		}
		return &ConstantExpression{BaseExpression: n.base(), Value: v}, nil

	case ClassBoundColumnRef:
		return &ColumnRefExpression{
			BaseExpression: n.base(),
			Binding:        n.Binding,
			ReturnType:     LogicalType{ID: LogicalTypeID(n.ReturnType.ID).Normalize()},
		}, nil

	case ClassBoundFunction:
		children, err := expressions(n.Children)
		if err != nil {
			return nil, err
		}
		return &FunctionExpression{
			BaseExpression: n.base(),
			Name:           n.Name,
			Children:       children,
			ReturnType:     LogicalType{ID: LogicalTypeID(n.ReturnType.ID).Normalize()},
			IsOperator:     n.IsOperator,
		}, nil

	case ClassBoundCast:
		child, err := n.Child.expression()
		if err != nil {
			return nil, fmt.Errorf("invalid cast child: %w", err)
		}
		return &CastExpression{
			BaseExpression: n.base(),
			Child:          child,
			ReturnType:     LogicalType{ID: LogicalTypeID(n.ReturnType.ID).Normalize()},
			TryCast:        n.TryCast,
		}, nil

	case ClassBoundBetween:
		input, err := n.Input.expression()
		if err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}
		lower, err := n.Lower.expression()
		if err != nil {
			return nil, fmt.Errorf("invalid lower bound: %w", err)
		}
		upper, err := n.Upper.expression()
		if err != nil {
			return nil, fmt.Errorf("invalid upper bound: %w", err)
		}
		return &BetweenExpression{
			BaseExpression: n.base(),
			Input:          input,
			Lower:          lower,
			Upper:          upper,
			LowerInclusive: n.LowerInclusive,
			UpperInclusive: n.UpperInclusive,
		}, nil

	case ClassBoundOperator:
		children, err := expressions(n.Children)
		if err != nil {
			return nil, err
		}
		return &OperatorExpression{BaseExpression: n.base(), Children: children}, nil

	default:
		return &UnsupportedExpression{BaseExpression: n.base()}, nil
	}
}

func expressions(nodes []*node) ([]Expression, error) {
	out := make([]Expression, 0, len(nodes))
	for i, c := range nodes {
		expr, err := c.expression()
		if err != nil {
			return nil, fmt.Errorf("invalid child %d: %w", i, err)
		}
		out = append(out, expr)
	}
	return out, nil
}
