// Package invariants implements the Invariant Engine (C16): the §8
// testable properties expressed as a small Mangle fact/rule program and
// evaluated once per iteration, so the Supervisor's acceptance decision
// is a query over derived facts rather than conditionals scattered
// through its state machine. Grounded on the raw github.com/google/mangle
// library usage shown in the teacher's own mangle-programming skill
// boilerplate (parse.Unit -> analysis.AnalyzeOneUnit ->
// factstore.NewSimpleInMemoryStore -> engine.EvalProgramWithStats), used
// directly rather than through the teacher's much larger bespoke
// internal/mangle engine — that engine exists to incrementally verify a
// live coding agent's generated code against a world model, a concern
// this domain does not have; the raw library API is the right-sized fit.
package invariants

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"tcsynth/internal/telemetry"
)

const rules = `
Decl testcase(suite, idx, output).
Decl reservedIdentifier(name).
Decl declaredVariable(suite, name).
Decl declaredOption(suite, name).
Decl commandFlag(suite, name).

distinctOutput(Suite, Output) :- testcase(Suite, _, Output).
reservedCollision(Suite, Name) :- declaredVariable(Suite, Name), reservedIdentifier(Name).
undeclaredFlag(Suite, Name) :- commandFlag(Suite, Name), !declaredOption(Suite, Name).
`

// Facts is everything the Supervisor knows about one iteration's
// suite-in-progress, reduced to the fields §8's testable properties
// actually reference.
type Facts struct {
	SuiteID             string
	Outputs             []string // stripped oracle stdout per accepted candidate, in suite order
	TargetCount         int
	ReservedIdentifiers []string
	DeclaredVariables   []string // variable names the generator source actually declares
	DeclaredOptions     []string
	CommandFlags        []string // flag names referenced across the generator's final command list
}

// Violation is one named property violation, mapped directly onto the
// §7 error taxonomy's Kind column by the Supervisor.
type Violation struct {
	Kind   string
	Detail string
}

// Evaluate loads facts into a fresh in-memory Mangle store, evaluates the
// rule set above to a fixed point, and translates the derived predicates
// back into Violations. Every rule here is one already named in §8; this
// package introduces no new acceptance criterion of its own.
func Evaluate(ctx context.Context, facts Facts) ([]Violation, error) {
	log := telemetry.Get(telemetry.CategoryInvariants)

	unit, err := parse.Unit(strings.NewReader(rules))
	if err != nil {
		return nil, fmt.Errorf("invariants: parse rule set: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("invariants: analyze rule set: %w", err)
	}

	store := factstore.NewSimpleInMemoryStore()
	addFacts(store, facts)

	if _, err := engine.EvalProgramWithStats(programInfo, store); err != nil {
		return nil, fmt.Errorf("invariants: evaluate rule set: %w", err)
	}

	var violations []Violation

	distinct := queryDistinctOutputsForSuite(store, facts.SuiteID)
	if facts.TargetCount >= 2 && len(facts.Outputs) >= 2 && len(distinct) <= 1 {
		detail := fmt.Sprintf("only %d distinct output(s) across %d candidates", len(distinct), len(facts.Outputs))
		log.Warn("suite %s: diversity floor violated: %s", facts.SuiteID, detail)
		violations = append(violations, Violation{Kind: "DiversityFloorViolation", Detail: detail})
	}

	for _, name := range queryNamesForSuite(store, "reservedCollision", facts.SuiteID) {
		log.Warn("suite %s: reserved identifier collision: %s", facts.SuiteID, name)
		violations = append(violations, Violation{Kind: "ReservedIdentifierCollision", Detail: name})
	}
	for _, name := range queryNamesForSuite(store, "undeclaredFlag", facts.SuiteID) {
		log.Warn("suite %s: command references undeclared flag: %s", facts.SuiteID, name)
		violations = append(violations, Violation{Kind: "UndeclaredCommandFlag", Detail: name})
	}

	return violations, nil
}

func addFacts(store factstore.FactStore, facts Facts) {
	for i, output := range facts.Outputs {
		store.Add(ast.NewAtom("testcase", ast.String(facts.SuiteID), ast.Number(int64(i)), ast.String(strings.TrimRight(output, " \t\r\n"))))
	}
	for _, name := range facts.ReservedIdentifiers {
		store.Add(ast.NewAtom("reservedIdentifier", ast.String(name)))
	}
	for _, name := range facts.DeclaredVariables {
		store.Add(ast.NewAtom("declaredVariable", ast.String(facts.SuiteID), ast.String(name)))
	}
	for _, name := range facts.DeclaredOptions {
		store.Add(ast.NewAtom("declaredOption", ast.String(facts.SuiteID), ast.String(name)))
	}
	for _, name := range facts.CommandFlags {
		store.Add(ast.NewAtom("commandFlag", ast.String(facts.SuiteID), ast.String(name)))
	}
}

// queryAll returns every fact currently stored for predicate/arity, each
// row as its raw constant-string column values, mirroring the teacher's
// mangle-programming skill boilerplate's Query helper.
func queryAll(store factstore.FactStore, predicate string, arity int) [][]string {
	pred := ast.PredicateSym{Symbol: predicate, Arity: arity}
	query := ast.NewQuery(pred)

	var rows [][]string
	_ = store.GetFacts(query, func(atom ast.Atom) error {
		row := make([]string, len(atom.Args))
		for i, arg := range atom.Args {
			row[i] = termToString(arg)
		}
		rows = append(rows, row)
		return nil
	})
	return rows
}

func termToString(term ast.BaseTerm) string {
	if c, ok := term.(ast.Constant); ok {
		return c.Symbol
	}
	return fmt.Sprintf("%v", term)
}

// queryDistinctOutputsForSuite filters the distinctOutput(Suite, Output)
// facts down to suiteID, client-side — the fact store's own set
// semantics already collapsed duplicate (Suite, Output) pairs, so the
// row count here directly is the distinct-output count.
func queryDistinctOutputsForSuite(store factstore.FactStore, suiteID string) []string {
	var outputs []string
	for _, row := range queryAll(store, "distinctOutput", 2) {
		if row[0] == suiteID {
			outputs = append(outputs, row[1])
		}
	}
	return outputs
}

func queryNamesForSuite(store factstore.FactStore, predicate, suiteID string) []string {
	var names []string
	for _, row := range queryAll(store, predicate, 2) {
		if row[0] == suiteID {
			names = append(names, row[1])
		}
	}
	return names
}
