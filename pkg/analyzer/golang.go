package analyzer

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// parseGoFunctions extracts function and method declarations from a Go
// source file using the real AST, so line boundaries are exact.
func parseGoFunctions(path string) ([]Function, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var functions []Function
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}

		kind := KindFunction
		if fn.Recv != nil {
			kind = KindMethod
		}

		doc := ""
		if fn.Doc != nil {
			doc = strings.TrimSpace(fn.Doc.Text())
		}

		functions = append(functions, Function{
			Name:         fn.Name.Name,
			Kind:         kind,
			StartLine:    fset.Position(fn.Pos()).Line,
			EndLine:      fset.Position(fn.End()).Line,
			Signature:    goSignature(fn),
			Doc:          doc,
			Complexity:   bucketComplexity(goDecisionPoints(fn)),
			Dependencies: goCallees(fn),
			Exported:     fn.Name.IsExported(),
		})
	}
	return functions, nil
}

func goSignature(fn *ast.FuncDecl) string {
	var b strings.Builder
	b.WriteString("func ")
	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		b.WriteString("(")
		b.WriteString(exprString(fn.Recv.List[0].Type))
		b.WriteString(") ")
	}
	b.WriteString(fn.Name.Name)
	b.WriteString("(")
	for i, param := range fn.Type.Params.List {
		if i > 0 {
			b.WriteString(", ")
		}
		for j, name := range param.Names {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(name.Name)
		}
		if len(param.Names) > 0 {
			b.WriteString(" ")
		}
		b.WriteString(exprString(param.Type))
	}
	b.WriteString(")")
	return b.String()
}

func exprString(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return "*" + exprString(e.X)
	case *ast.SelectorExpr:
		return exprString(e.X) + "." + e.Sel.Name
	case *ast.ArrayType:
		return "[]" + exprString(e.Elt)
	case *ast.MapType:
		return "map[" + exprString(e.Key) + "]" + exprString(e.Value)
	case *ast.Ellipsis:
		return "..." + exprString(e.Elt)
	case *ast.FuncType:
		return "func(...)"
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.ChanType:
		return "chan " + exprString(e.Value)
	default:
		return "?"
	}
}

func goDecisionPoints(fn *ast.FuncDecl) int {
	count := 1
	ast.Inspect(fn.Body, func(node ast.Node) bool {
		switch n := node.(type) {
		case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
			count++
		case *ast.SwitchStmt:
			count++
		case *ast.BinaryExpr:
			if n.Op == token.LAND || n.Op == token.LOR {
				count++
			}
		}
		return true
	})
	return count
}

// goCallees collects the distinct names a function calls, used as a proxy
// for its external dependencies when prompting for mocks.
func goCallees(fn *ast.FuncDecl) []string {
	seen := map[string]bool{}
	var callees []string
	ast.Inspect(fn.Body, func(node ast.Node) bool {
		call, ok := node.(*ast.CallExpr)
		if !ok {
			return true
		}
		var name string
		switch callee := call.Fun.(type) {
		case *ast.Ident:
			name = callee.Name
		case *ast.SelectorExpr:
			name = exprString(callee)
		}
		if name != "" && !seen[name] {
			seen[name] = true
			callees = append(callees, name)
		}
		return true
	})
	return callees
}
