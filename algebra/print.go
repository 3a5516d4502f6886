package algebra

import (
	"fmt"
	"strings"
)

// Print renders n as a nested call expression (`BGP([?s ?p ?o])`,
// `Join(BGP([...]), BGP([...]))`, ...), for tests and EXPLAIN output
// only, never parsed back.
func Print(n Node) string {
	var b strings.Builder
	printNode(&b, n)
	return b.String()
}

func printNode(b *strings.Builder, n Node) {
	switch v := n.(type) {
	case BGP:
		b.WriteString("BGP([")
		for i, p := range v.Patterns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(printTriplePattern(p))
		}
		b.WriteString("])")
	case Join:
		printBinary(b, "Join", v.L, v.R)
	case LeftJoin:
		b.WriteString("LeftJoin(")
		printNode(b, v.L)
		b.WriteString(", ")
		printNode(b, v.R)
		if v.Filter != nil {
			b.WriteString(", ")
			b.WriteString(PrintExpr(v.Filter))
		}
		b.WriteString(")")
	case Minus:
		printBinary(b, "Minus", v.L, v.R)
	case Union:
		printBinary(b, "Union", v.L, v.R)
	case Filter:
		fmt.Fprintf(b, "Filter(%s, ", PrintExpr(v.Expr))
		printNode(b, v.P)
		b.WriteString(")")
	case Extend:
		fmt.Fprintf(b, "Extend(")
		printNode(b, v.P)
		fmt.Fprintf(b, ", %s, %s)", v.Var, PrintExpr(v.Expr))
	case Group:
		fmt.Fprintf(b, "Group(")
		printNode(b, v.P)
		fmt.Fprintf(b, ", %v, %v)", v.By, v.Aggs)
	case Project:
		b.WriteString("Project(")
		printNode(b, v.P)
		fmt.Fprintf(b, ", %v)", v.Vars)
	case Distinct:
		b.WriteString("Distinct(")
		printNode(b, v.P)
		b.WriteString(")")
	case Reduced:
		b.WriteString("Reduced(")
		printNode(b, v.P)
		b.WriteString(")")
	case OrderBy:
		b.WriteString("OrderBy(")
		printNode(b, v.P)
		fmt.Fprintf(b, ", %d keys)", len(v.Keys))
	case Slice:
		b.WriteString("Slice(")
		printNode(b, v.P)
		fmt.Fprintf(b, ", %d, %d)", v.Offset, v.Limit)
	case Values:
		fmt.Fprintf(b, "Values(%v, %d rows)", v.Vars, len(v.Rows))
	case Service:
		fmt.Fprintf(b, "Service(%s, ", v.Endpoint.String())
		printNode(b, v.P)
		fmt.Fprintf(b, ", silent=%v)", v.Silent)
	case Graph:
		fmt.Fprintf(b, "Graph(%s, ", printPatternTerm(v.Term))
		printNode(b, v.P)
		b.WriteString(")")
	case Path:
		fmt.Fprintf(b, "Path(%s, %s, %s)", printPatternTerm(v.Subject), v.Path.Raw, printPatternTerm(v.Object))
	default:
		b.WriteString("?")
	}
}

func printBinary(b *strings.Builder, name string, l, r Node) {
	fmt.Fprintf(b, "%s(", name)
	printNode(b, l)
	b.WriteString(", ")
	printNode(b, r)
	b.WriteString(")")
}

func printTriplePattern(p TriplePattern) string {
	return fmt.Sprintf("%s %s %s", printPatternTerm(p.Subject), printPatternTerm(p.Predicate), printPatternTerm(p.Object))
}

func printPatternTerm(p PatternTerm) string {
	if p.IsVariable() {
		return string(p.Variable())
	}
	return p.Term().String()
}

// PrintExpr renders an expression tree as a call expression.
func PrintExpr(e Expr) string {
	switch v := e.(type) {
	case VarRef:
		return string(v.Name)
	case Lit:
		return v.Value.String()
	case Call:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = PrintExpr(a)
		}
		return fmt.Sprintf("%s(%s)", v.Func, strings.Join(args, ", "))
	}
	return "?"
}
