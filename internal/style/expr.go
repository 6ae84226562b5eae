package style

// IconRef is the classified form of a layer's icon-image value. The sprite
// filter pattern-matches on the concrete variant instead of re-walking the
// raw expression tree at every decision point.
type IconRef interface {
	iconRef()
}

// IconNone means the layer declares no icon.
type IconNone struct{}

// IconLiteral is a plain sprite name.
type IconLiteral struct {
	Name string
}

// IconCandidates is a static expression whose possible sprite names are
// finite and known up front (match/case/step outputs). Names preserves
// first-appearance order and may be empty when nothing enumerable was found.
type IconCandidates struct {
	Names []string
}

// IconDataDriven is an expression that reads feature data at render time,
// so the concrete sprite name cannot be known statically.
type IconDataDriven struct{}

func (IconNone) iconRef()       {}
func (IconLiteral) iconRef()    {}
func (IconCandidates) iconRef() {}
func (IconDataDriven) iconRef() {}

// featureOps are expression operators whose value depends on the feature
// being rendered.
var featureOps = map[string]bool{
	"get":           true,
	"has":           false, // boolean, only ever a condition
	"feature-state": true,
	"properties":    true,
	"id":            true,
	"at":            true,
}

// ClassifyIconImage classifies a raw icon-image value.
func ClassifyIconImage(v interface{}) IconRef {
	switch val := v.(type) {
	case nil:
		return IconNone{}
	case string:
		if val == "" {
			return IconNone{}
		}
		return IconLiteral{Name: val}
	case []interface{}:
		if len(val) == 0 {
			return IconNone{}
		}
		if isDataDriven(val) {
			return IconDataDriven{}
		}
		return IconCandidates{Names: outputNames(val)}
	default:
		return IconNone{}
	}
}

// isDataDriven reports whether any output position of the expression reads
// feature data. Condition and input positions are ignored: a match on a
// feature property that selects between literal sprite names still has a
// statically known name set.
func isDataDriven(expr []interface{}) bool {
	op, _ := expr[0].(string)
	if featureOps[op] {
		return true
	}
	outs, known := outputValues(expr)
	if !known {
		return containsFeatureOp(expr)
	}
	for _, out := range outs {
		if sub, ok := out.([]interface{}); ok && len(sub) > 0 && isDataDriven(sub) {
			return true
		}
	}
	return false
}

// outputValues returns the subexpressions an operator can evaluate to. The
// second result is false for operators this package does not model.
func outputValues(expr []interface{}) ([]interface{}, bool) {
	op, _ := expr[0].(string)
	switch op {
	case "case":
		// ["case", cond, out, ..., fallback]
		var outs []interface{}
		for i := 2; i+1 < len(expr); i += 2 {
			outs = append(outs, expr[i])
		}
		if len(expr) >= 2 {
			outs = append(outs, expr[len(expr)-1])
		}
		return outs, true
	case "match":
		// ["match", input, label, out, ..., fallback]
		var outs []interface{}
		for i := 3; i+1 < len(expr); i += 2 {
			outs = append(outs, expr[i])
		}
		if len(expr) >= 3 {
			outs = append(outs, expr[len(expr)-1])
		}
		return outs, true
	case "step":
		// ["step", input, out, stop, out, ...]
		var outs []interface{}
		for i := 2; i < len(expr); i += 2 {
			outs = append(outs, expr[i])
		}
		return outs, true
	case "coalesce", "string", "to-string":
		return expr[1:], true
	case "image", "literal":
		if len(expr) > 1 {
			return expr[1:2], true
		}
		return nil, true
	case "concat":
		return expr[1:], true
	default:
		return nil, false
	}
}

// outputNames enumerates the literal sprite names an expression can
// statically produce. It returns nil when the names are not enumerable.
func outputNames(expr []interface{}) []string {
	if len(expr) == 0 {
		return nil
	}
	op, _ := expr[0].(string)
	if op == "concat" {
		// A fully literal concat produces exactly one name.
		name := ""
		for _, part := range expr[1:] {
			s, ok := part.(string)
			if !ok {
				return nil
			}
			name += s
		}
		if name == "" {
			return nil
		}
		return []string{name}
	}

	outs, known := outputValues(expr)
	if !known {
		return nil
	}
	var names []string
	seen := map[string]bool{}
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, out := range outs {
		switch o := out.(type) {
		case string:
			add(o)
		case []interface{}:
			for _, nested := range outputNames(o) {
				add(nested)
			}
		}
	}
	return names
}

// containsFeatureOp scans a whole expression tree for feature-data
// operators. Used only for operators outputValues does not model, where
// output positions are unknown.
func containsFeatureOp(expr []interface{}) bool {
	if op, ok := expr[0].(string); ok && featureOps[op] {
		return true
	}
	for _, item := range expr[1:] {
		if sub, ok := item.([]interface{}); ok && len(sub) > 0 && containsFeatureOp(sub) {
			return true
		}
	}
	return false
}

// DegradeIconExpression wraps a data-driven icon expression so a value that
// resolves to a missing sprite renders with no icon instead of a broken
// placeholder. Already-wrapped expressions pass through unchanged.
func DegradeIconExpression(v interface{}) interface{} {
	if isDegraded(v) {
		return v
	}
	return []interface{}{"coalesce", []interface{}{"image", v}}
}

func isDegraded(v interface{}) bool {
	expr, ok := v.([]interface{})
	if !ok || len(expr) < 2 {
		return false
	}
	if op, _ := expr[0].(string); op != "coalesce" {
		return false
	}
	first, ok := expr[1].([]interface{})
	if !ok || len(first) == 0 {
		return false
	}
	op, _ := first[0].(string)
	return op == "image"
}
