package model

// ReservedIdentifiers are the testlib-convention stream names a generated
// generator must not shadow with a user variable.
var ReservedIdentifiers = []string{"inf", "ouf", "ans", "rnd", "cin", "cout"}

// GeneratorProgram is the native source text plus the command list that
// drives it, produced by the Generator Agent (C9).
type GeneratorProgram struct {
	Source   string
	Commands []string
}

// ValidatorProgram is the native source text produced by the Validator
// Agent (C10).
type ValidatorProgram struct {
	Source string
}

// CheckerProgram is the native source text produced by the Checker Agent
// (C12), or empty when the default whole-word comparison checker suffices.
type CheckerProgram struct {
	NeedsCustom bool
	Source      string
	Reason      string
}

// Role distinguishes which of the three agent-produced programs a piece of
// source belongs to, for C2/C5's role-specific checks.
type Role string

const (
	RoleGenerator Role = "generator"
	RoleValidator Role = "validator"
	RoleChecker   Role = "checker"
)
