// Package formatinfer builds a structured FormatSchema from a problem's
// statement, examples, and constraints via the LLM Gateway and Prompt
// Builder. Grounded on the original Python service's four-strategy JSON
// decode and fallback-on-any-failure policy.
package formatinfer

import (
	"context"

	"tcsynth/internal/llmgateway"
	"tcsynth/internal/model"
	"tcsynth/internal/promptbuilder"
	"tcsynth/internal/telemetry"
)

const inferenceTemperature = 0.1

// Infer builds the structured schema for bundle, enriched with neighbors
// (the Corpus Retriever's (C15) nearest prior-problem precedents — pass
// nil when retrieval is disabled or empty) and oracleHint (the Oracle
// Analyzer's (C13) reading of the oracle's own input parsing — pass the
// zero value when no oracle source was available). It never returns an
// error: on any failure along the way (gateway failure, undecodable
// response, invariant violation) it logs the degradation and returns
// model.FallbackSchema().
func Infer(ctx context.Context, gateway *llmgateway.Gateway, bundle model.ProblemBundle, neighbors []model.CorpusNeighbor, oracleHint model.OracleAnalysis) model.FormatSchema {
	log := telemetry.Get(telemetry.CategoryFormatInfer)

	prompt := promptbuilder.BuildFormatInferencePrompt(bundle.Statement, bundle.Examples, bundle.Constraints, neighbors, oracleHint)

	response, err := gateway.Generate(ctx, prompt, inferenceTemperature, 4096)
	if err != nil {
		log.Warn("format inference: gateway call failed, falling back: %v", err)
		return model.FallbackSchema()
	}

	dto, strategy, err := decodeJSONObject(response)
	if err != nil {
		log.Warn("format inference: no JSON decode strategy matched, falling back: %v", err)
		return model.FallbackSchema()
	}

	schema := dto.toSchema()
	if err := schema.Validate(); err != nil {
		log.Warn("format inference: decoded schema (via %s) failed validation, falling back: %v", strategy, err)
		return model.FallbackSchema()
	}

	log.Info("format inference succeeded via %s strategy, algorithm_type=%s", strategy, schema.AlgorithmType)
	return schema
}
