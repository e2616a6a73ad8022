package branch

import "github.com/polisai/polis-flow/pkg/domain"

// AllOperators lists every comparison operator in display order.
var AllOperators = []domain.ComparisonOperator{
	domain.OpEqual,
	domain.OpNotEqual,
	domain.OpGreater,
	domain.OpLess,
	domain.OpGreaterEqual,
	domain.OpLessEqual,
	domain.OpContains,
	domain.OpIs,
	domain.OpIsNot,
	domain.OpEmpty,
	domain.OpNotEmpty,
}

// NoValueOperators need no comparison value.
var NoValueOperators = []domain.ComparisonOperator{domain.OpEmpty, domain.OpNotEmpty}

// OperatorLabels are the human readable names of the operators.
var OperatorLabels = map[domain.ComparisonOperator]string{
	domain.OpEqual:        "Equals (=)",
	domain.OpNotEqual:     "Not equal (≠)",
	domain.OpGreater:      "Greater than (>)",
	domain.OpLess:         "Less than (<)",
	domain.OpGreaterEqual: "At least (≥)",
	domain.OpLessEqual:    "At most (≤)",
	domain.OpContains:     "Contains",
	domain.OpIs:           "Is exactly",
	domain.OpIsNot:        "Is not",
	domain.OpEmpty:        "Is empty",
	domain.OpNotEmpty:     "Is not empty",
}

// OperatorsFor returns the operators offered for a variable type.
func OperatorsFor(varType domain.PortType) []domain.ComparisonOperator {
	switch varType {
	case domain.PortTypeString:
		return []domain.ComparisonOperator{
			domain.OpEqual, domain.OpNotEqual, domain.OpContains,
			domain.OpIs, domain.OpIsNot, domain.OpEmpty, domain.OpNotEmpty,
		}
	case domain.PortTypeNumber:
		return []domain.ComparisonOperator{
			domain.OpEqual, domain.OpNotEqual, domain.OpGreater, domain.OpLess,
			domain.OpGreaterEqual, domain.OpLessEqual, domain.OpEmpty, domain.OpNotEmpty,
		}
	case domain.PortTypeBoolean:
		return []domain.ComparisonOperator{domain.OpIs, domain.OpIsNot}
	default:
		return append([]domain.ComparisonOperator(nil), AllOperators...)
	}
}

// NeedsValue reports whether op compares against a value.
func NeedsValue(op domain.ComparisonOperator) bool {
	for _, noValue := range NoValueOperators {
		if op == noValue {
			return false
		}
	}
	return true
}
