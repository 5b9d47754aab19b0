// Package oracleanalyzer implements the Oracle Analyzer (C13): a hybrid
// read of the oracle's expected input shape, used to seed format
// inference when a problem statement alone is ambiguous. Grounded on
// original_source/test-case-manager/app/services/oracle_analyzer_service.py's
// two-tier analyze_with_gemini / _analyze_with_regex strategy, ported
// from Python's re module to Go's regexp and from the async Gemini call
// to the shared LLM Gateway.
package oracleanalyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"tcsynth/internal/llmgateway"
	"tcsynth/internal/model"
	"tcsynth/internal/telemetry"
)

const analysisTemperature = 0.2

// AnalyzeOracle attempts an LLM-based read of oracleSource first; on any
// failure (gateway error or an unparsable response) it falls back to the
// regex pattern battery. Never blocks the caller: a failed LLM analysis
// never surfaces as an error, only a degraded OracleAnalysis.
func AnalyzeOracle(ctx context.Context, gateway *llmgateway.Gateway, oracleSource string) model.OracleAnalysis {
	log := telemetry.Get(telemetry.CategoryOracleAnalyzer)

	if oracleSource == "" {
		return model.OracleAnalysis{}
	}

	if gateway != nil {
		response, err := gateway.Generate(ctx, buildAnalysisPrompt(oracleSource), analysisTemperature, 1000)
		if err != nil {
			log.Warn("oracle analysis: gateway call failed, falling back to regex: %v", err)
		} else if analysis, ok := parseAnalysisResponse(response); ok {
			log.Info("oracle analysis succeeded via LLM, %d input line(s) detected", len(analysis.InputLines))
			return analysis
		} else {
			log.Warn("oracle analysis: could not parse LLM response, falling back to regex")
		}
	}

	return analyzeWithRegex(oracleSource)
}

func buildAnalysisPrompt(oracleSource string) string {
	return fmt.Sprintf(`Analyze this oracle solution code and extract the INPUT FORMAT information.

ORACLE CODE:
%s

Extract and provide in this EXACT format:

MULTIPLE_TEST_CASES: yes/no
TEST_COUNT_VARIABLE: <variable name or "none">
INPUT_STRUCTURE:
- Line 1: <description>
- Line 2: <description>
...

VARIABLE_RELATIONSHIPS:
- <relationship>

SPECIAL_NOTES:
- <any special format notes>

Be concise and precise. Focus ONLY on INPUT format, not on solution logic.`, oracleSource)
}

var (
	multipleTestsRe = regexp.MustCompile(`(?i)MULTIPLE_TEST_CASES:\s*yes`)
	testCountVarRe  = regexp.MustCompile(`(?i)TEST_COUNT_VARIABLE:\s*(\w+)`)
	inputLineRe     = regexp.MustCompile(`(?m)^-\s*Line\s+\d+:\s*(.+)$`)
	relationshipSectionRe = regexp.MustCompile(`(?s)VARIABLE_RELATIONSHIPS:(.*?)(?:SPECIAL_NOTES:|$)`)
	notesSectionRe        = regexp.MustCompile(`(?s)SPECIAL_NOTES:(.*?)$`)
	bulletRe              = regexp.MustCompile(`(?m)^-\s*(.+)$`)
)

// parseAnalysisResponse parses the fixed textual protocol the analysis
// prompt requests. Returns ok=false if no input lines were found, which
// the caller treats as an unusable response.
func parseAnalysisResponse(response string) (model.OracleAnalysis, bool) {
	analysis := model.OracleAnalysis{Source: "llm"}

	analysis.MultipleTestCases = multipleTestsRe.MatchString(response)
	if m := testCountVarRe.FindStringSubmatch(response); len(m) == 2 && !strings.EqualFold(m[1], "none") {
		analysis.TestCountVariable = m[1]
	}

	for _, m := range inputLineRe.FindAllStringSubmatch(response, -1) {
		analysis.InputLines = append(analysis.InputLines, strings.TrimSpace(m[1]))
	}

	if m := relationshipSectionRe.FindStringSubmatch(response); len(m) == 2 {
		for _, b := range bulletRe.FindAllStringSubmatch(m[1], -1) {
			analysis.VariableRelationships = append(analysis.VariableRelationships, strings.TrimSpace(b[1]))
		}
	}

	if m := notesSectionRe.FindStringSubmatch(response); len(m) == 2 {
		for _, b := range bulletRe.FindAllStringSubmatch(m[1], -1) {
			analysis.SpecialNotes = append(analysis.SpecialNotes, strings.TrimSpace(b[1]))
		}
	}

	return analysis, len(analysis.InputLines) > 0
}

var (
	multipleTestsLoopRe = regexp.MustCompile(`for\s+\w+\s+in\s+range\s*\(\s*(?:int\s*\(\s*input\s*\(\s*\)\s*\)|[tT])\s*\)`)
	testVarAssignRe     = regexp.MustCompile(`([tT])\s*=\s*int\s*\(\s*input\s*\(\s*\)\s*\)`)
	multipleIntsRe      = regexp.MustCompile(`(\w+(?:\s*,\s*\w+)+)\s*=\s*map\s*\(\s*int\s*,\s*input\s*\(\s*\)\s*\.split\s*\(\s*\)\s*\)`)
	intArrayRe          = regexp.MustCompile(`(?:list\s*\(\s*)?map\s*\(\s*int\s*,\s*input\s*\(\s*\)\s*\.split\s*\(\s*\)\s*\)`)
	singleIntRe         = regexp.MustCompile(`int\s*\(\s*input\s*\(\s*\)\s*\)`)
	stringInputRe       = regexp.MustCompile(`input\s*\(\s*\)(?:\.strip\s*\(\s*\))?`)
	assignedVarRe       = regexp.MustCompile(`^(\w+)\s*=`)
)

// analyzeWithRegex is the fallback path, ported from the original
// Python pattern battery: it only recognizes Python-style input() idioms,
// since the oracle language this port targets for analysis is the one
// the original supervisor accepted for its Sandboxed Code Runner.
func analyzeWithRegex(oracleSource string) model.OracleAnalysis {
	analysis := model.OracleAnalysis{Source: "regex"}

	if multipleTestsLoopRe.MatchString(oracleSource) || testVarAssignRe.MatchString(oracleSource) {
		analysis.MultipleTestCases = true
		if m := testVarAssignRe.FindStringSubmatch(oracleSource); len(m) == 2 {
			analysis.TestCountVariable = m[1]
		}
	}

	for _, line := range strings.Split(oracleSource, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "input()") {
			continue
		}
		if desc := describeInputLine(line); desc != "" {
			analysis.InputLines = append(analysis.InputLines, desc)
		}
	}

	return analysis
}

func describeInputLine(line string) string {
	if m := multipleIntsRe.FindStringSubmatch(line); len(m) == 2 {
		vars := strings.Split(m[1], ",")
		for i := range vars {
			vars[i] = strings.TrimSpace(vars[i])
		}
		return fmt.Sprintf("%d integers (%s), space-separated", len(vars), strings.Join(vars, ", "))
	}
	if intArrayRe.MatchString(line) {
		name := "array"
		if m := assignedVarRe.FindStringSubmatch(line); len(m) == 2 {
			name = m[1]
		}
		return fmt.Sprintf("array of integers (variable: %s), space-separated", name)
	}
	if singleIntRe.MatchString(line) {
		name := "value"
		if m := assignedVarRe.FindStringSubmatch(line); len(m) == 2 {
			name = m[1]
		}
		return fmt.Sprintf("single integer (variable: %s)", name)
	}
	if stringInputRe.MatchString(line) {
		name := "text"
		if m := assignedVarRe.FindStringSubmatch(line); len(m) == 2 {
			name = m[1]
		}
		return fmt.Sprintf("single line of text (variable: %s)", name)
	}
	return ""
}
