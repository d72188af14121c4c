package ast

// ContainsYield reports whether stmt yields anywhere in its own body.
// Nested procedure and class declarations are separate bodies and are not
// searched.
func ContainsYield(stmt Statement) bool {
	switch s := stmt.(type) {
	case nil:
		return false
	case *YieldStatement:
		return true
	case *Block:
		if s == nil {
			return false
		}
		for _, child := range s.Statements {
			if ContainsYield(child) {
				return true
			}
		}
		return false
	case *IfStatement:
		return ContainsYield(s.Then) || ContainsYield(s.Else)
	case *WhileStatement:
		return ContainsYield(s.Body)
	case *ForStatement:
		return ContainsYield(s.Body)
	case *MatchStatement:
		for _, c := range s.Cases {
			if ContainsYield(c.Body) {
				return true
			}
		}
		return ContainsYield(s.Default)
	case *TryStatement:
		if ContainsYield(s.Body) || ContainsYield(s.Finally) {
			return true
		}
		for _, c := range s.Catches {
			if ContainsYield(c.Body) {
				return true
			}
		}
		return false
	case *DeferStatement:
		return ContainsYield(s.Statement)
	default:
		return false
	}
}
