// Package citation renumbers the "[1]", "[2]", ... source citations an LLM
// emits in a generated answer so only the sources actually referenced
// survive, in the order they first appear — the Go rendering of
// engine/components/rag/formatter.py's Formatter._renumber_sources.
package citation

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/draftnrun/agentgraph/nodedata"
)

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// Renumber rewrites response's bracketed citation indices to a dense,
// first-appearance-ordered sequence and returns the corresponding subset of
// sources (ordered by first citation; any source never cited is
// dropped). An index beyond len(sources) is left unrewritten: the original
// treats a hallucinated citation as untouched text instead of erroring.
func Renumber(resp nodedata.SourcedResponse) nodedata.SourcedResponse {
	if len(resp.Sources) == 0 {
		return resp
	}

	oldToNew := map[int]int{}
	var keptSources []nodedata.SourceChunk
	nextNew := 1

	rewritten := citationPattern.ReplaceAllStringFunc(resp.Response, func(match string) string {
		sub := citationPattern.FindStringSubmatch(match)
		old, err := strconv.Atoi(sub[1])
		if err != nil || old < 1 || old > len(resp.Sources) {
			return match
		}
		newIdx, ok := oldToNew[old]
		if !ok {
			newIdx = nextNew
			oldToNew[old] = newIdx
			keptSources = append(keptSources, resp.Sources[old-1])
			nextNew++
		}
		return fmt.Sprintf("[%d]", newIdx)
	})

	return nodedata.SourcedResponse{Response: rewritten, Sources: keptSources}
}
