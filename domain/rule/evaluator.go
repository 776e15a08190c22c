package rule

// Verdict applies the given logic to an ordered sequence of condition
// results. It is pure: no side effects, identical inputs yield identical
// verdicts. An empty result sequence is never satisfied.
func Verdict(logic Logic, results []bool, n int) bool {
	if len(results) == 0 {
		return false
	}

	switch logic {
	case LogicAll:
		for _, r := range results {
			if !r {
				return false
			}
		}
		return true
	case LogicAny:
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	case LogicNOf:
		if n < 1 {
			return false
		}
		count := 0
		for _, r := range results {
			if r {
				count++
			}
		}
		return count >= n
	default:
		return false
	}
}

// Evaluate computes the rule's verdict from per-condition results given in
// AllConditions order: each group's conditions first, then standalone
// conditions. Group verdicts are computed under the group's own logic and
// combined with the standalone results under the rule's top-level logic.
func Evaluate(r *Rule, results []bool) bool {
	if len(results) != r.ConditionCount() {
		return false
	}

	var combined []bool
	offset := 0
	for _, g := range r.Groups {
		n := len(g.Conditions)
		combined = append(combined, Verdict(g.Logic, results[offset:offset+n], g.N))
		offset += n
	}
	combined = append(combined, results[offset:]...)

	return Verdict(r.Logic, combined, r.N)
}
