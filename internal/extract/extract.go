// Package extract recovers source code and embedded command lists from
// LLM free-form responses. Grounded on the original Python extraction
// cascade (strict delimiter, then fenced blocks, then a heuristic scan),
// reimplemented as idiomatic Go with compiled regexps. Structural
// completeness checking prefers a real tree-sitter C++ parse over the
// brace-counting heuristic when the fragment parses cleanly enough to
// build a tree at all.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"

	"tcsynth/internal/model"
	"tcsynth/internal/telemetry"
)

// ErrExtractionFailure is reported when no strategy recovers source code
// from a response.
type ErrExtractionFailure struct {
	Reason string
}

func (e *ErrExtractionFailure) Error() string {
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

var (
	strictDelimiterRe = regexp.MustCompile(`(?s)<<CODE>>\s*(.*?)\s*<<ENDCODE>>`)
	fencedCppRe        = regexp.MustCompile("(?s)```(?:cpp|c\\+\\+)\\s*\\n(.*?)```")
	fencedGenericRe    = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n(.*?)```")
	commandsBlockRe    = regexp.MustCompile(`(?s)/\*\s*COMMANDS:\s*(.*?)\*/`)
)

// GeneratorInvocationMarker is the fixed program marker every generator
// CLI command begins with (see the /* COMMANDS: ./gen ... */ convention).
const GeneratorInvocationMarker = "./gen"

var includeHeaderRe = regexp.MustCompile(`(?m)^\s*#include\b`)
var mainEntryRe = regexp.MustCompile(`(?m)\bint\s+main\s*\(`)
var namespaceUseRe = regexp.MustCompile(`(?m)^\s*using\s+namespace\b`)

var registrationCalls = map[model.Role]string{
	model.RoleGenerator: "registerGen",
	model.RoleValidator: "registerValidation",
	model.RoleChecker:   "registerTestlibCmd",
}

// ExtractSource recovers source text from a free-form LLM response,
// trying the strict delimiter, then a labeled fenced block, then an
// unlabeled fenced block (rejected under three lines), then a heuristic
// scan for include/main/namespace lines.
func ExtractSource(response string) (string, error) {
	log := telemetry.Get(telemetry.CategoryExtractor)

	if m := strictDelimiterRe.FindStringSubmatch(response); len(m) == 2 {
		return strings.TrimSpace(m[1]), nil
	}

	if m := fencedCppRe.FindStringSubmatch(response); len(m) == 2 {
		return strings.TrimSpace(m[1]), nil
	}

	if m := fencedGenericRe.FindStringSubmatch(response); len(m) == 2 {
		body := strings.TrimSpace(m[1])
		if countLines(body) >= 3 {
			return body, nil
		}
	}

	if body := heuristicScan(response); body != "" {
		return body, nil
	}

	log.Warn("extraction failed: no strategy matched response of length %d", len(response))
	return "", &ErrExtractionFailure{Reason: "no delimiter, fenced block, or heuristic scan matched"}
}

// heuristicScan keeps lines from the first include/main/using-namespace
// line onward, on the assumption the model emitted bare source with no
// delimiters at all.
func heuristicScan(response string) string {
	lines := strings.Split(response, "\n")
	start := -1
	for i, line := range lines {
		if includeHeaderRe.MatchString(line) || mainEntryRe.MatchString(line) || namespaceUseRe.MatchString(line) {
			start = i
			break
		}
	}
	if start == -1 {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[start:], "\n"))
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return len(strings.Split(s, "\n"))
}

// ExtractCommands recovers the generator command list from a /* COMMANDS:
// ... */ block, falling back to scanning bare lines that start with the
// generator invocation marker.
func ExtractCommands(response string) []string {
	if m := commandsBlockRe.FindStringSubmatch(response); len(m) == 2 {
		return parseCommandLines(m[1])
	}

	var fallback []string
	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, GeneratorInvocationMarker) {
			fallback = append(fallback, trimmed)
		}
	}
	return fallback
}

func parseCommandLines(block string) []string {
	var commands []string
	for _, line := range strings.Split(block, "\n") {
		trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		trimmed = strings.TrimSpace(trimmed)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, GeneratorInvocationMarker) {
			commands = append(commands, trimmed)
		}
	}
	return commands
}

// CompletenessResult is the verdict of CheckCompleteness.
type CompletenessResult struct {
	OK          bool
	Diagnostics []string
}

// CheckCompleteness verifies source carries the structural markers a
// compilable program of the given role must have: an include directive,
// a main entry point, structurally sound braces, and the role's
// registration call.
func CheckCompleteness(source string, role model.Role) CompletenessResult {
	var diagnostics []string

	if !includeHeaderRe.MatchString(source) {
		diagnostics = append(diagnostics, "missing #include directive")
	}
	if !mainEntryRe.MatchString(source) {
		diagnostics = append(diagnostics, "missing int main(...) entry point")
	}

	structurallySound, parsed := parseCheck(source)
	if parsed {
		if !structurallySound {
			diagnostics = append(diagnostics, "unbalanced braces")
		}
	} else if !bracesBalanced(source) {
		diagnostics = append(diagnostics, "unbalanced braces")
	}

	if call, ok := registrationCalls[role]; ok && !strings.Contains(source, call) {
		diagnostics = append(diagnostics, fmt.Sprintf("missing %s registration call", call))
	}

	return CompletenessResult{OK: len(diagnostics) == 0, Diagnostics: diagnostics}
}

// parseCheck runs source through the tree-sitter C++ grammar and reports
// whether the resulting tree is free of ERROR/MISSING nodes. parsed is
// false when the fragment couldn't be parsed at all (empty source, parser
// setup failure), in which case the caller should fall back to
// bracesBalanced instead of trusting the zero value of ok.
func parseCheck(source string) (ok bool, parsed bool) {
	if strings.TrimSpace(source) == "" {
		return false, false
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(cpp.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(source))
	if err != nil || tree == nil {
		return false, false
	}
	defer tree.Close()

	return !tree.RootNode().HasError(), true
}

func bracesBalanced(source string) bool {
	depth := 0
	for _, r := range source {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
		}
		if depth < 0 {
			return false
		}
	}
	return depth == 0
}
