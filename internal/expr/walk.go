package expr

// Walk visits the DAG rooted at e in preorder. Shared sub-DAGs are visited
// once. The visit function may return false to stop descending below a node.
func Walk(e *Expr, visit func(*Expr) bool) {
	seen := make(map[*Expr]bool)
	var walk func(*Expr)
	walk = func(n *Expr) {
		if seen[n] {
			return
		}
		seen[n] = true
		if !visit(n) {
			return
		}
		for _, op := range n.Ops() {
			walk(op)
		}
	}
	walk(e)
}

// Rewrite rebuilds the DAG bottom-up, invoking fn on every node with its
// already-rewritten operands. Results are memoized by node identity so
// shared sub-DAGs are transformed once. fn may return the original node
// when the operands are unchanged.
func Rewrite(e *Expr, fn func(old *Expr, ops []*Expr) *Expr) *Expr {
	memo := make(map[*Expr]*Expr)
	var rew func(*Expr) *Expr
	rew = func(n *Expr) *Expr {
		if r, ok := memo[n]; ok {
			return r
		}
		ops := make([]*Expr, len(n.Ops()))
		for i, op := range n.Ops() {
			ops[i] = rew(op)
		}
		r := fn(n, ops)
		memo[n] = r
		return r
	}
	return rew(e)
}

// FreeVariables returns every variable referenced in the DAG, in first-seen
// order.
func FreeVariables(e *Expr) []*Variable {
	var vars []*Variable
	Walk(e, func(n *Expr) bool {
		if v := n.Variable(); v != nil {
			vars = append(vars, v)
		}
		return true
	})
	return vars
}
