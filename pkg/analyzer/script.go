package analyzer

import (
	"regexp"
	"strings"
)

// The non-Go languages are parsed with line heuristics, not real grammars.
// Boundaries are good enough to intersect with missing-line sets; exactness
// is not required because the generator receives surrounding context anyway.

var (
	pythonDefRe   = regexp.MustCompile(`^(\s*)def\s+(\w+)\s*\(([^)]*)\)`)
	pythonClassRe = regexp.MustCompile(`^(\s*)class\s+(\w+)`)

	scriptFuncRe  = regexp.MustCompile(`(?:function\s+(\w+)|(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s*)?(?:function|\([^)]*\)\s*=>)|(\w+)\s*:\s*(?:async\s*)?function)`)
	javaMethodRe  = regexp.MustCompile(`^\s*(?:public|private|protected)?\s*(?:static\s+)?[\w<>\[\],\s]+\s+(\w+)\s*\([^)]*\)\s*\{`)
	decisionWords = regexp.MustCompile(`\b(if|elif|else if|for|while|case|catch|except)\b|&&|\|\||\band\b|\bor\b`)
)

func parsePythonFunctions(source []string) []Function {
	var functions []Function
	classIndents := map[int]bool{}

	for i, line := range source {
		if m := pythonClassRe.FindStringSubmatch(line); m != nil {
			end := pythonBlockEnd(source, i, len(m[1]))
			classIndents[len(m[1])] = true
			functions = append(functions, Function{
				Name:      m[2],
				Kind:      KindClass,
				StartLine: i + 1,
				EndLine:   end,
				Signature: strings.TrimSpace(line),
				Exported:  !strings.HasPrefix(m[2], "_"),
			})
			continue
		}

		m := pythonDefRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		indent := len(m[1])
		end := pythonBlockEnd(source, i, indent)
		kind := KindFunction
		if indent > 0 {
			kind = KindMethod
		}

		block := strings.Join(source[i:end], "\n")
		functions = append(functions, Function{
			Name:       m[2],
			Kind:       kind,
			StartLine:  i + 1,
			EndLine:    end,
			Signature:  "def " + m[2] + "(" + m[3] + ")",
			Complexity: bucketComplexity(1 + len(decisionWords.FindAllString(block, -1))),
			Exported:   !strings.HasPrefix(m[2], "_"),
		})
	}
	return functions
}

// pythonBlockEnd returns the 1-based last line of the block starting at
// startIdx, ended by the next non-blank line at the same or lower indent.
func pythonBlockEnd(source []string, startIdx, indent int) int {
	end := len(source)
	for i := startIdx + 1; i < len(source); i++ {
		line := source[i]
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineIndent := len(line) - len(strings.TrimLeft(line, " \t"))
		if lineIndent <= indent {
			end = i
			break
		}
	}
	// Trim trailing blank lines off the block.
	for end > startIdx+1 && strings.TrimSpace(source[end-1]) == "" {
		end--
	}
	return end
}

func parseScriptFunctions(source []string) []Function {
	var functions []Function
	for i, line := range source {
		m := scriptFuncRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if name == "" {
			name = m[3]
		}
		if name == "" {
			continue
		}

		end := braceBlockEnd(source, i)
		block := strings.Join(source[i:end], "\n")
		functions = append(functions, Function{
			Name:       name,
			Kind:       KindFunction,
			StartLine:  i + 1,
			EndLine:    end,
			Signature:  strings.TrimSpace(line),
			Complexity: bucketComplexity(1 + len(decisionWords.FindAllString(block, -1))),
			Exported:   !strings.HasPrefix(name, "_"),
		})
	}
	return functions
}

func parseJavaFunctions(source []string) []Function {
	var functions []Function
	for i, line := range source {
		m := javaMethodRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[1]
		switch name {
		case "if", "for", "while", "switch", "catch", "return", "new":
			continue
		}

		end := braceBlockEnd(source, i)
		block := strings.Join(source[i:end], "\n")
		functions = append(functions, Function{
			Name:       name,
			Kind:       KindMethod,
			StartLine:  i + 1,
			EndLine:    end,
			Signature:  strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), "{")),
			Complexity: bucketComplexity(1 + len(decisionWords.FindAllString(block, -1))),
			Exported:   strings.Contains(line, "public"),
		})
	}
	return functions
}

// braceBlockEnd finds the 1-based line where the brace block opened at
// startIdx closes. When braces never balance it falls back to a fixed-size
// window, matching how approximate these boundaries are allowed to be.
func braceBlockEnd(source []string, startIdx int) int {
	depth := 0
	opened := false
	for i := startIdx; i < len(source); i++ {
		for _, r := range source[i] {
			switch r {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
			}
		}
		if opened && depth <= 0 {
			return i + 1
		}
	}

	end := startIdx + 11
	if end > len(source) {
		end = len(source)
	}
	return end
}
