package formatinfer

import "tcsynth/internal/model"

// schemaDTO mirrors the JSON shape the format-inference prompt asks the
// model to emit; decoding into this plain struct first keeps the messy
// json.Unmarshal surface away from model.FormatSchema's typed accessors.
type schemaDTO struct {
	HasTestCount      bool   `json:"has_test_count"`
	TestCountVariable string `json:"test_count_variable"`
	InputStructure    struct {
		Lines []struct {
			LineNumber    int            `json:"line_number"`
			Type          string         `json:"type"`
			Count         string         `json:"count"`
			VariableNames []string       `json:"variable_names"`
			Constraints   map[string]any `json:"constraints"`
		} `json:"lines"`
		TotalLines       int  `json:"total_lines"`
		IsVariableLength bool `json:"is_variable_length"`
	} `json:"input_structure"`
	SemanticConstraints struct {
		Graph *struct {
			Directed    bool   `json:"directed"`
			Acyclic     bool   `json:"acyclic"`
			Connected   bool   `json:"connected"`
			IsTree      bool   `json:"is_tree"`
			NumNodesVar string `json:"num_nodes_var"`
			NumEdgesVar string `json:"num_edges_var"`
		} `json:"graph"`
		Permutation *struct {
			IsPermutation bool   `json:"is_permutation"`
			RangeStart    int    `json:"range_start"`
			RangeVar      string `json:"range_var"`
		} `json:"permutation"`
	} `json:"semantic_constraints"`
	AlgorithmType string `json:"algorithm_type"`
}

// toSchema converts the decoded DTO into the validated domain type.
func (d schemaDTO) toSchema() model.FormatSchema {
	lines := make([]model.InputLine, 0, len(d.InputStructure.Lines))
	for _, l := range d.InputStructure.Lines {
		lines = append(lines, model.InputLine{
			LineNumber:    l.LineNumber,
			Type:          model.InputLineKind(l.Type),
			Count:         l.Count,
			VariableNames: l.VariableNames,
			Constraints:   l.Constraints,
		})
	}

	semantic := map[string]any{}
	if d.SemanticConstraints.Graph != nil {
		g := d.SemanticConstraints.Graph
		semantic["graph"] = model.GraphConstraints{
			Directed: g.Directed, Acyclic: g.Acyclic, Connected: g.Connected,
			IsTree: g.IsTree, NumNodesVar: g.NumNodesVar, NumEdgesVar: g.NumEdgesVar,
		}
	}
	if d.SemanticConstraints.Permutation != nil {
		p := d.SemanticConstraints.Permutation
		semantic["permutation"] = model.PermutationConstraints{
			IsPermutation: p.IsPermutation, RangeStart: p.RangeStart, RangeVar: p.RangeVar,
		}
	}

	algo := d.AlgorithmType
	if algo == "" {
		algo = "default"
	}

	return model.FormatSchema{
		HasTestCount:      d.HasTestCount,
		TestCountVariable: d.TestCountVariable,
		InputStructure: model.InputStructure{
			Lines:            lines,
			TotalLines:       d.InputStructure.TotalLines,
			IsVariableLength: d.InputStructure.IsVariableLength,
		},
		SemanticConstraints: semantic,
		AlgorithmType:       algo,
	}
}
