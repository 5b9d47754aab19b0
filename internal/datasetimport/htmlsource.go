package datasetimport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"tcsynth/internal/model"
)

// HTMLDirSource is a concrete Source backed by a directory of cached,
// previously-scraped problem statement pages: one <id>.html file per
// problem. It is the "scraped dataset" case the package doc names,
// stripped down to the one step that's actually in scope here — turning
// markup already on disk into a ProblemBundle's plain-text Statement.
// Fetching those pages over the network is the out-of-scope part.
type HTMLDirSource struct {
	Dir string
}

func (s HTMLDirSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("datasetimport: read %s: %w", s.Dir, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".html") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".html"))
	}
	return ids, nil
}

func (s HTMLDirSource) Fetch(ctx context.Context, id string) (model.ProblemBundle, error) {
	path := filepath.Join(s.Dir, id+".html")
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.ProblemBundle{}, fmt.Errorf("datasetimport: read %s: %w", path, err)
	}

	doc, err := html.Parse(strings.NewReader(string(raw)))
	if err != nil {
		return model.ProblemBundle{}, fmt.Errorf("datasetimport: parse %s: %w", path, err)
	}

	return model.ProblemBundle{Statement: extractStatementText(doc)}, nil
}

// extractStatementText walks the parsed tree collecting text nodes,
// skipping the elements that never carry statement prose.
func extractStatementText(n *html.Node) string {
	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(node *html.Node) {
		if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
			return
		}
		if node.Type == html.TextNode {
			text := strings.TrimSpace(node.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteString("\n")
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(n)
	return strings.TrimSpace(sb.String())
}
