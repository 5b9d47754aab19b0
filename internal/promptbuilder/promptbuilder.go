// Package promptbuilder produces strictly templated prompts for eight
// agent prompt kinds (format-inference, generator, generator-fallback,
// generator-revision, validator, validator-revision, checker,
// checker-revision). Stateless
// and pure: every function is a deterministic string transform. Grounded
// on the original prompt_template_service.py's prompt bodies, re-expressed
// in English and in the teacher's plain string-building idiom (no
// text/template — the templates are fixed, not data-driven).
package promptbuilder

import (
	"fmt"
	"strconv"
	"strings"

	"tcsynth/internal/model"
)

func escapeForDisplay(s string) string {
	return strconv.Quote(s)
}

func renderExamples(examples []model.Example, includeEscaped bool) string {
	if len(examples) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nEXAMPLES PROVIDED:\n")
	for i, ex := range examples {
		fmt.Fprintf(&b, "\nExample %d:\nInput:\n```\n%s\n```\n", i+1, ex.Input)
		if includeEscaped {
			fmt.Fprintf(&b, "Input (escaped): %s\n", escapeForDisplay(ex.Input))
		}
		if ex.Output != "" {
			fmt.Fprintf(&b, "Output:\n```\n%s\n```\n", ex.Output)
		}
	}
	return b.String()
}

func renderConstraints(constraints string) string {
	if constraints == "" {
		return ""
	}
	return "\n\nADDITIONAL CONSTRAINTS:\n" + constraints
}

// BuildFormatInferencePrompt produces the C8 format-inference prompt: a
// fixed JSON-only response protocol, the closed set of InputLine kinds,
// and the power-notation conversion instruction (10^5 -> 100000). neighbors
// is the Corpus Retriever's (C15) nearest-precedent list, rendered as
// few-shot precedent when non-empty; a nil/empty slice omits the section
// entirely (retrieval disabled or no precedent yet indexed). oracleHint is
// the Oracle Analyzer's (C13) best-effort read of the oracle's expected
// input shape; a zero-value OracleAnalysis (Source == "") omits its section.
func BuildFormatInferencePrompt(statement string, examples []model.Example, constraints string, neighbors []model.CorpusNeighbor, oracleHint model.OracleAnalysis) string {
	return fmt.Sprintf(`You are an expert at inferring the input format of competitive-programming problems.

Read the statement and examples fully and extract the complete input structure: types, counts, relationships, and both explicit and implicit constraints.

Return ONLY valid JSON — no markdown fences, no explanation.

CRITICAL RULES

1. Read everything. Use the examples to validate hypotheses about structure.

2. Extract every constraint: min/max bounds, dependencies ("n followed by n integers"), complex structures (graphs, trees, DAGs, matrices), and semantic relations (is the graph acyclic? connected? is the permutation 1..n? which characters are allowed?).

3. Classify each line as one of: integer, two_integers, three_integers, array, string, matrix, edge, graph_edges, custom.

4. If the input describes a graph, include a "graph" object with directed, acyclic, connected, is_tree, num_nodes_var, num_edges_var.

5. If multiple test cases are read in a loop, set has_test_count=true and name test_count_variable.

6. Convert power notation: 10^5 -> 100000, 10^6 -> 1000000.
%s%s
PROBLEM STATEMENT:
%s%s%s

REQUIRED OUTPUT SHAPE (JSON only, no code fences):

{
  "has_test_count": false,
  "test_count_variable": null,
  "input_structure": {
    "lines": [
      {"line_number": 1, "type": "two_integers", "variable_names": ["n", "m"], "constraints": {"n": {"min": 1, "max": 100000}, "m": {"min": 0, "max": 100000}}}
    ],
    "total_lines": 1,
    "is_variable_length": false
  },
  "semantic_constraints": {},
  "algorithm_type": "default"
}

Return ONLY the JSON object.`, renderOracleHint(oracleHint), renderNeighbors(neighbors), statement, renderExamples(examples, false), renderConstraints(constraints))
}

// renderOracleHint renders the Oracle Analyzer's (C13) reading of the
// oracle's own input-parsing code as a hint section. A zero-value analysis
// (no oracle source was available) omits the section entirely.
func renderOracleHint(hint model.OracleAnalysis) string {
	if hint.Source == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nORACLE CODE ANALYSIS (read from the reference solution's own input parsing, treat as a strong hint):\n")
	fmt.Fprintf(&b, "- multiple test cases: %t", hint.MultipleTestCases)
	if hint.TestCountVariable != "" {
		fmt.Fprintf(&b, " (count variable: %s)", hint.TestCountVariable)
	}
	b.WriteString("\n")
	for _, line := range hint.InputLines {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	for _, rel := range hint.VariableRelationships {
		fmt.Fprintf(&b, "- relationship: %s\n", rel)
	}
	for _, note := range hint.SpecialNotes {
		fmt.Fprintf(&b, "- note: %s\n", note)
	}
	return b.String()
}

// renderNeighbors renders C15's retrieved precedents as few-shot guidance:
// similar past statements paired with the algorithm_type this pipeline
// previously resolved them to. Similarity score is omitted — it is an
// internal ranking signal, not something the model should reason about.
func renderNeighbors(neighbors []model.CorpusNeighbor) string {
	if len(neighbors) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nSIMILAR PRIOR PROBLEMS (for reference only, this problem may differ):\n")
	for i, n := range neighbors {
		fmt.Fprintf(&b, "\nPrecedent %d (algorithm_type=%s):\n%s\n", i+1, n.FormatSchema.AlgorithmType, truncate(n.StatementExcerpt, 400))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// BuildGeneratorPrompt produces the C9 generator-synthesis prompt.
func BuildGeneratorPrompt(bundle model.ProblemBundle) string {
	return fmt.Sprintf(`[IMPORTANT INSTRUCTIONS - READ FIRST]

You are a professional test-case generator author. Produce EXACTLY ONE complete, compilable C++ file that uses testlib.h.

STATEMENT: %s
EXAMPLE INPUTS: %s

MANDATORY REQUIREMENTS (follow precisely):
1) RETURN ONLY THE C++ SOURCE BETWEEN THE MARKERS:
   <<CODE>>
   ...complete C++ code...
   <<ENDCODE>>
   NOTHING outside that range - no prose, no explanation.

2) THE CODE MUST:
   - Compile with: g++ -std=c++17 -O2 generator.cpp -o gen
   - Include "testlib.h" and <bits/stdc++.h>
   - Define int main(int argc, char* argv[]) calling registerGen(argc, argv, 1); as its first statement
   - Read parameters via opt<T>("name", default)
   - Use ONLY rnd.next() (testlib) for randomness, and be deterministic: same command line -> same output
   - Avoid self-loops and duplicate edges (use a set/unordered_set) where the format implies a graph
   - For a tree: guarantee exactly m = n-1 edges and connectivity
   - For a DAG: generate a topological permutation and only add forward edges (pos[u] < pos[v])
   - For a simple undirected graph: ensure m <= n*(n-1)/2
   - Never shadow the reserved identifiers: %s

3) At the end of the file, include EXACTLY one comment block:
   /* COMMANDS:
   ./gen -n 1 -type tree
   ./gen -n 10 -type tree
   ... at least 20 invocations covering the option space ...
   */

4) Do not explain, do not annotate, do not send partial snippets. Only the <<CODE>>...<<ENDCODE>> block.

Now produce the complete C++ generator between the markers. <<CODE>>`,
		bundle.Statement, renderExamples(bundle.Examples, false), strings.Join(model.ReservedIdentifiers, ", "))
}

// BuildGeneratorFallbackPrompt wraps a partial response (missing main)
// into a request for a complete program.
func BuildGeneratorFallbackPrompt(partialSource string) string {
	return fmt.Sprintf(`The previous response returned only helper code (no main()). Your task is to WRAP the partial code below into one complete, compilable C++ file.

Rules:
1) Insert the partial code below in the appropriate place.
2) Create int main(int argc, char* argv[]) { registerGen(argc, argv, 1); /* parse opt() */ /* call the helper functions */ }.
3) Use rnd.next() for randomness and handle -n, -m, -type style parameters.
4) Avoid duplicates (use unordered_set) and keep the output deterministic.
5) Return ONLY the complete source between <<CODE>> ... <<ENDCODE>> - no explanation.

<<CODE>>
%s`, partialSource)
}

// BuildGeneratorRevisionPrompt produces the C9 revision prompt, combining
// validation and compile error logs into one structured feedback block.
func BuildGeneratorRevisionPrompt(source string, validationErrors []model.ValidationFeedback, compileErrors string) string {
	var b strings.Builder
	b.WriteString("The following generator source was rejected. Revise it, fixing every issue listed, and return the complete corrected file between <<CODE>> ... <<ENDCODE>>.\n\n")
	b.WriteString("CURRENT SOURCE:\n```cpp\n")
	b.WriteString(source)
	b.WriteString("\n```\n\n")

	if compileErrors != "" {
		fmt.Fprintf(&b, "COMPILE ERRORS:\n%s\n\n", compileErrors)
	}

	if len(validationErrors) > 0 {
		b.WriteString("VALIDATION FAILURES (each is an input the validator rejected, or a candidate the generator produced that failed):\n")
		for i, fb := range validationErrors {
			fmt.Fprintf(&b, "\n#%d\nLiteral input:\n%s\nEscaped: %s\nLine count: %d\nError: %s\n",
				i+1, fb.Input, fb.InputEscaped, fb.LineCount, fb.ErrorMessage)
			if fb.ErrorLine > 0 {
				fmt.Fprintf(&b, "Error line: %d\n", fb.ErrorLine)
			}
		}
	}

	b.WriteString("\nReturn ONLY the revised source between <<CODE>> ... <<ENDCODE>>. <<CODE>>")
	return b.String()
}

// BuildValidatorPrompt produces the C10 validator-synthesis prompt.
func BuildValidatorPrompt(bundle model.ProblemBundle, schema model.FormatSchema) string {
	return fmt.Sprintf(`You are the Validator Agent. Write a complete validator in C++ using testlib.h.

PROBLEM:
%s%s%s

MANDATORY RULES

1. Use testlib.h:
   - registerValidation(argc, argv); as the FIRST statement of main
   - Read everything with inf.readInt, inf.readLong, inf.readToken, etc.
   - Terminate with inf.readEof();

2. Validate every declared constraint: counts, value ranges, absence of self-loops/duplicate edges where applicable, connectivity/acyclicity where applicable.

3. Use ensuref() for every check, e.g. ensuref(x >= 1 && x <= n, "x out of range [1, n]");

4. The worked examples above are ALWAYS valid; the validator must accept every one of them.

5. Success = exit status 0 after inf.readEof(); never use a "quit ok"-style primitive as the success signal.

6. Return ONLY the complete C++ source between <<CODE>> ... <<ENDCODE>>.

Inferred format (algorithm_type=%s, %d line(s), has_test_count=%t):
%s

<<CODE>>`,
		bundle.Statement,
		renderExamples(bundle.Examples, true),
		renderConstraints(bundle.Constraints),
		schema.AlgorithmType,
		len(schema.InputStructure.Lines),
		schema.HasTestCount,
		describeLines(schema),
	)
}

func describeLines(schema model.FormatSchema) string {
	var b strings.Builder
	for _, line := range schema.InputStructure.Lines {
		fmt.Fprintf(&b, "- line %d: %s vars=%v count=%s\n", line.LineNumber, line.Type, line.VariableNames, line.Count)
	}
	return b.String()
}

// BuildValidatorRevisionPrompt produces the C10 revision prompt with
// per-sample diagnostics (literal + escaped input, line count, per-line
// contents) so newline sensitivity is visible to the model.
func BuildValidatorRevisionPrompt(source string, sampleInputs []string, sampleResults []model.ValidationResult, compileErrors string) string {
	var b strings.Builder
	b.WriteString("The following validator rejected one or more of the problem's own worked examples, which must always be accepted. Revise it and return the complete corrected file between <<CODE>> ... <<ENDCODE>>.\n\n")
	b.WriteString("CURRENT SOURCE:\n```cpp\n")
	b.WriteString(source)
	b.WriteString("\n```\n\n")

	if compileErrors != "" {
		fmt.Fprintf(&b, "COMPILE ERRORS:\n%s\n\n", compileErrors)
	}

	for i, input := range sampleInputs {
		var res model.ValidationResult
		if i < len(sampleResults) {
			res = sampleResults[i]
		}
		if res.Valid {
			continue
		}
		lines := strings.Split(input, "\n")
		fmt.Fprintf(&b, "\nSample #%d REJECTED\nLiteral:\n%s\nEscaped: %s\nLine count: %d\n",
			i+1, input, escapeForDisplay(input), len(lines))
		for ln, content := range lines {
			fmt.Fprintf(&b, "  line %d: %q\n", ln+1, content)
		}
		fmt.Fprintf(&b, "Error: %s\n", res.ErrorMessage)
		if res.ErrorLine > 0 {
			fmt.Fprintf(&b, "Reported error line: %d\n", res.ErrorLine)
		}
	}

	b.WriteString("\nReturn ONLY the revised source between <<CODE>> ... <<ENDCODE>>. <<CODE>>")
	return b.String()
}

// BuildCheckerPrompt produces the C12 checker-synthesis prompt, used only
// when the Checker Agent has already decided a custom checker is needed.
func BuildCheckerPrompt(bundle model.ProblemBundle, reason string) string {
	return fmt.Sprintf(`You are the Checker Agent. This problem may have multiple correct outputs (%s).

Write a complete testlib checker in C++: int main(int argc, char* argv[]) { registerTestlibCmd(argc, argv); ... } that reads the input file (inf), the contestant's output (ouf), and the jury's reference output (ans), and decides correctness by the problem's actual semantics rather than exact string equality.

PROBLEM:
%s%s

Return ONLY the complete C++ source between <<CODE>> ... <<ENDCODE>>. <<CODE>>`,
		reason, bundle.Statement, renderExamples(bundle.Examples, false))
}

// BuildCheckerRevisionPrompt produces the C12 checker revision prompt,
// symmetric to BuildGeneratorRevisionPrompt/BuildValidatorRevisionPrompt.
func BuildCheckerRevisionPrompt(source string, compileErrors string) string {
	var b strings.Builder
	b.WriteString("The following testlib checker failed to compile. Revise it and return the complete corrected file between <<CODE>> ... <<ENDCODE>>.\n\n")
	b.WriteString("CURRENT SOURCE:\n```cpp\n")
	b.WriteString(source)
	b.WriteString("\n```\n\n")
	if compileErrors != "" {
		fmt.Fprintf(&b, "COMPILE ERRORS:\n%s\n\n", compileErrors)
	}
	b.WriteString("Return ONLY the revised source between <<CODE>> ... <<ENDCODE>>. <<CODE>>")
	return b.String()
}
