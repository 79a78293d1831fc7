package engine

import (
	"github.com/yuin/gopher-lua/ast"
)

// Instrument rewrites a parsed chunk so cooperative preemption has a place
// to fire. A call to the trap global is injected at every loop back-edge,
// after every label (the target of any backward goto) and at every function
// entry. Together these guarantee that any unbounded computation crosses a
// trap call at least once per iteration, which is what bounds a single
// resume to the thread's step quantum.
//
// The chunk is modified in place.
func Instrument(chunk []ast.Stmt, trap string) []ast.Stmt {
	return instrumentBlock(chunk, trap, false)
}

// instrumentBlock walks one statement block. When loop is true the block is
// a loop body and gets a trailing trap call on the back-edge.
func instrumentBlock(stmts []ast.Stmt, trap string, loop bool) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts)+1)
	line := 0

	for _, st := range stmts {
		line = st.Line()
		switch s := st.(type) {
		case *ast.WhileStmt:
			instrumentExpr(s.Condition, trap)
			s.Stmts = instrumentBlock(s.Stmts, trap, true)
		case *ast.RepeatStmt:
			instrumentExpr(s.Condition, trap)
			s.Stmts = instrumentBlock(s.Stmts, trap, true)
		case *ast.NumberForStmt:
			instrumentExpr(s.Init, trap)
			instrumentExpr(s.Limit, trap)
			if s.Step != nil {
				instrumentExpr(s.Step, trap)
			}
			s.Stmts = instrumentBlock(s.Stmts, trap, true)
		case *ast.GenericForStmt:
			for _, e := range s.Exprs {
				instrumentExpr(e, trap)
			}
			s.Stmts = instrumentBlock(s.Stmts, trap, true)
		case *ast.DoBlockStmt:
			s.Stmts = instrumentBlock(s.Stmts, trap, false)
		case *ast.IfStmt:
			instrumentExpr(s.Condition, trap)
			s.Then = instrumentBlock(s.Then, trap, false)
			s.Else = instrumentBlock(s.Else, trap, false)
		case *ast.FuncDefStmt:
			instrumentFunc(s.Func, trap)
		case *ast.AssignStmt:
			for _, e := range s.Lhs {
				instrumentExpr(e, trap)
			}
			for _, e := range s.Rhs {
				instrumentExpr(e, trap)
			}
		case *ast.LocalAssignStmt:
			for _, e := range s.Exprs {
				instrumentExpr(e, trap)
			}
		case *ast.FuncCallStmt:
			instrumentExpr(s.Expr, trap)
		case *ast.ReturnStmt:
			for _, e := range s.Exprs {
				instrumentExpr(e, trap)
			}
		}

		out = append(out, st)

		// A backward goto lands on a label, so a trap right after the
		// label bounds goto loops the same way back-edge traps bound
		// structured ones.
		if _, ok := st.(*ast.LabelStmt); ok {
			out = append(out, trapCall(trap, line))
		}
	}

	if loop {
		out = append(out, trapCall(trap, line))
	}
	return out
}

func instrumentFunc(fn *ast.FunctionExpr, trap string) {
	body := instrumentBlock(fn.Stmts, trap, false)
	entry := trapCall(trap, fn.Line())
	fn.Stmts = append([]ast.Stmt{entry}, body...)
}

func instrumentExpr(expr ast.Expr, trap string) {
	switch e := expr.(type) {
	case *ast.FunctionExpr:
		instrumentFunc(e, trap)
	case *ast.FuncCallExpr:
		if e.Func != nil {
			instrumentExpr(e.Func, trap)
		}
		if e.Receiver != nil {
			instrumentExpr(e.Receiver, trap)
		}
		for _, a := range e.Args {
			instrumentExpr(a, trap)
		}
	case *ast.AttrGetExpr:
		instrumentExpr(e.Object, trap)
		instrumentExpr(e.Key, trap)
	case *ast.TableExpr:
		for _, f := range e.Fields {
			if f.Key != nil {
				instrumentExpr(f.Key, trap)
			}
			instrumentExpr(f.Value, trap)
		}
	case *ast.LogicalOpExpr:
		instrumentExpr(e.Lhs, trap)
		instrumentExpr(e.Rhs, trap)
	case *ast.RelationalOpExpr:
		instrumentExpr(e.Lhs, trap)
		instrumentExpr(e.Rhs, trap)
	case *ast.ArithmeticOpExpr:
		instrumentExpr(e.Lhs, trap)
		instrumentExpr(e.Rhs, trap)
	case *ast.StringConcatOpExpr:
		instrumentExpr(e.Lhs, trap)
		instrumentExpr(e.Rhs, trap)
	case *ast.UnaryMinusOpExpr:
		instrumentExpr(e.Expr, trap)
	case *ast.UnaryNotOpExpr:
		instrumentExpr(e.Expr, trap)
	case *ast.UnaryLenOpExpr:
		instrumentExpr(e.Expr, trap)
	}
}

// trapCall builds the statement `<trap>()` positioned at line so stack
// traces through instrumented code stay plausible.
func trapCall(trap string, line int) ast.Stmt {
	ident := &ast.IdentExpr{Value: trap}
	ident.SetLine(line)
	ident.SetLastLine(line)

	call := &ast.FuncCallExpr{Func: ident}
	call.SetLine(line)
	call.SetLastLine(line)

	st := &ast.FuncCallStmt{Expr: call}
	st.SetLine(line)
	st.SetLastLine(line)
	return st
}
