// Package generator implements the Generator Agent (C9): producing and
// revising a testlib generator's source and command list, then running a
// fixed battery of deterministic post-processing passes over whatever the
// model returned. Grounded on spec.md §4.C9's five-pass description; the
// passes themselves follow the original Python implementation's
// post-processing helpers, reimplemented with Go's regexp package in
// place of Python's re.
package generator

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"tcsynth/internal/extract"
	"tcsynth/internal/llmgateway"
	"tcsynth/internal/model"
	"tcsynth/internal/promptbuilder"
	"tcsynth/internal/telemetry"
)

const generationTemperature = 0.7

// GenerateGeneratorProgram builds the generator prompt, calls the
// gateway, extracts source, falls back to the wrap-partial-code prompt if
// completeness fails, and runs the fixed post-processing passes.
func GenerateGeneratorProgram(ctx context.Context, gateway *llmgateway.Gateway, bundle model.ProblemBundle) model.GeneratorProgram {
	log := telemetry.Get(telemetry.CategoryGenAgent)

	prompt := promptbuilder.BuildGeneratorPrompt(bundle)
	response, err := gateway.Generate(ctx, prompt, generationTemperature, 8192)
	if err != nil {
		log.Error("generator synthesis: gateway call failed: %v", err)
		return model.GeneratorProgram{Commands: synthesizeFallbackCommands(nil)}
	}

	source, commands := extractAndComplete(ctx, gateway, log, response)
	return postProcess(source, commands)
}

// ReviseGeneratorProgram invokes the revision prompt with the combined
// error log and applies the same post-processing passes.
func ReviseGeneratorProgram(ctx context.Context, gateway *llmgateway.Gateway, source string, validationErrors []model.ValidationFeedback, compileErrors string) model.GeneratorProgram {
	log := telemetry.Get(telemetry.CategoryGenAgent)

	prompt := promptbuilder.BuildGeneratorRevisionPrompt(source, validationErrors, compileErrors)
	response, err := gateway.Generate(ctx, prompt, generationTemperature, 8192)
	if err != nil {
		log.Error("generator revision: gateway call failed: %v", err)
		return postProcess(source, extract.ExtractCommands(source))
	}

	revisedSource, commands := extractAndComplete(ctx, gateway, log, response)
	return postProcess(revisedSource, commands)
}

// extractAndComplete extracts source and commands from response, and if
// the extracted source fails the completeness check, makes one fallback
// call asking the model to wrap its partial output into a complete
// program.
func extractAndComplete(ctx context.Context, gateway *llmgateway.Gateway, log *telemetry.Logger, response string) (string, []string) {
	source, err := extract.ExtractSource(response)
	if err != nil {
		log.Warn("generator extraction failed: %v", err)
		return "", nil
	}
	commands := extract.ExtractCommands(response)

	if result := extract.CheckCompleteness(source, model.RoleGenerator); !result.OK {
		log.Warn("generator source incomplete (%v), requesting fallback wrap", result.Diagnostics)
		fallbackPrompt := promptbuilder.BuildGeneratorFallbackPrompt(source)
		fallbackResponse, err := gateway.Generate(ctx, fallbackPrompt, generationTemperature, 8192)
		if err != nil {
			log.Error("generator fallback wrap failed: %v", err)
			return source, commands
		}
		if wrapped, err := extract.ExtractSource(fallbackResponse); err == nil {
			source = wrapped
			if cmds := extract.ExtractCommands(fallbackResponse); len(cmds) > 0 {
				commands = cmds
			}
		}
	}

	return source, commands
}

// postProcess runs the fixed C9 post-processing battery over source and
// commands: reserved-identifier renaming, brace balancing, known-bad-API
// repair, command validation against declared options, and fallback
// command synthesis when nothing survives validation.
func postProcess(source string, commands []string) model.GeneratorProgram {
	source = renameReservedIdentifiers(source)
	source = repairNonexistentAPICalls(source)
	source = balanceBraces(source)

	options := declaredOptions(source)
	valid := validateCommands(source, commands, options)
	if len(valid) == 0 {
		valid = synthesizeFallbackCommands(options)
	}

	return model.GeneratorProgram{Source: source, Commands: valid}
}

var optRe = regexp.MustCompile(`\bopt\s*<[^>]*>\s*\(\s*"([a-zA-Z_][a-zA-Z0-9_]*)"`)

// declaredOptions finds every option name the source actually parses via
// testlib's opt<T>("name", ...) helper.
func declaredOptions(source string) []string {
	matches := optRe.FindAllStringSubmatch(source, -1)
	seen := make(map[string]bool, len(matches))
	var names []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	sort.Strings(names)
	return names
}

// validateCommands drops any command that references a flag not declared
// as an option by source, preserving the order of the surviving commands.
func validateCommands(source string, commands []string, options []string) []string {
	declared := make(map[string]bool, len(options))
	for _, o := range options {
		declared[o] = true
	}

	var kept []string
	for _, cmd := range commands {
		if commandFlagsAllDeclared(cmd, declared) {
			kept = append(kept, cmd)
		}
	}
	return kept
}

func commandFlagsAllDeclared(command string, declared map[string]bool) bool {
	for _, tok := range strings.Fields(command) {
		if !strings.HasPrefix(tok, "-") {
			continue
		}
		flag := strings.TrimLeft(tok, "-")
		if flag == "" || flag == "seed" {
			continue
		}
		if !declared[flag] {
			return false
		}
	}
	return true
}

// fallbackCatalog is the fixed "small/medium/large" value set commands
// are synthesized from, in this exact order.
var fallbackCatalog = []struct {
	label string
	value string
}{
	{"small", "1"},
	{"medium", "1000"},
	{"large", "100000"},
}

// synthesizeFallbackCommands cross-products declared option names (sorted)
// with the small/medium/large catalog, deterministically, when every
// agent-supplied command was dropped by validateCommands. If the source
// declares no options at all, a single bare invocation is returned so the
// GeneratorProgram.Commands invariant (non-empty) still holds.
func synthesizeFallbackCommands(options []string) []string {
	if len(options) == 0 {
		return []string{extract.GeneratorInvocationMarker}
	}

	sorted := append([]string{}, options...)
	sort.Strings(sorted)

	var commands []string
	for _, opt := range sorted {
		for _, c := range fallbackCatalog {
			commands = append(commands, fmt.Sprintf("%s -%s %s", extract.GeneratorInvocationMarker, opt, c.value))
		}
	}
	return commands
}

var reservedDeclRe = regexp.MustCompile(`\b(?:int|long long|long|double|float|bool|string|char|auto)\s+(ans|inf|ouf|rnd|cin|cout)\s*[=;,\[]`)

// renameReservedIdentifiers finds local declarations that shadow a
// reserved testlib/iostream stream name and renames every occurrence of
// that identifier to name+"_usr", deterministically.
func renameReservedIdentifiers(source string) string {
	matches := reservedDeclRe.FindAllStringSubmatch(source, -1)
	if len(matches) == 0 {
		return source
	}

	shadowed := make(map[string]bool)
	for _, m := range matches {
		shadowed[m[1]] = true
	}

	for name := range shadowed {
		wordRe := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
		source = wordRe.ReplaceAllString(source, name+"_usr")
	}
	return source
}

var shuffleCallRe = regexp.MustCompile(`\brnd\.shuffle\s*\(\s*([a-zA-Z_][a-zA-Z0-9_]*)\.begin\(\)\s*,\s*\1\.end\(\)\s*\)\s*;`)

// repairNonexistentAPICalls rewrites calls to the hallucinated
// rnd.shuffle(v.begin(), v.end()) primitive (testlib has no such method)
// into an explicit in-place Fisher-Yates loop using rnd.next().
func repairNonexistentAPICalls(source string) string {
	return shuffleCallRe.ReplaceAllStringFunc(source, func(call string) string {
		m := shuffleCallRe.FindStringSubmatch(call)
		vec := m[1]
		return fmt.Sprintf("for (int i = (int)%s.size() - 1; i > 0; i--) { int j = rnd.next(0, i); swap(%s[i], %s[j]); }", vec, vec, vec)
	})
}

// balanceBraces drops surplus closing braces and appends any missing
// closers, so the source always ends brace-balanced even when the model
// truncated or over-closed its output.
func balanceBraces(source string) string {
	depth := 0
	var b strings.Builder
	b.Grow(len(source))
	for _, r := range source {
		switch r {
		case '{':
			depth++
			b.WriteRune(r)
		case '}':
			depth--
			if depth < 0 {
				depth = 0
				continue // drop surplus closer
			}
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if depth > 0 {
		out += strings.Repeat("}", depth)
	}
	return out
}
