// Package cli provides CLI output helpers for Bunrui.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// previewLen bounds how much of a vector is printed in text output.
const previewLen = 72

// ParseFormat accepts "text" or "json" (case-insensitive).
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// WriteFeatures writes a feature set to w in the given format.
func WriteFeatures(w io.Writer, set *models.FeatureSet, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, set)
	}
	fmt.Fprintf(w, "\nBatch %s: %d vectors (%d dims, %s pooling, %s normalization) in %dms\n\n",
		set.BatchID, len(set.Vectors), set.Dimensions, set.Pooling, set.Normalization, set.ElapsedMillis)
	for i, v := range set.Vectors {
		if set.Divisors != nil {
			fmt.Fprintf(w, "[%d] /%s %s\n", i, FormatFloat(set.Divisors[i]), PreviewVector(v))
			continue
		}
		fmt.Fprintf(w, "[%d] %s\n", i, PreviewVector(v))
	}
	return nil
}

// WriteSelection writes an optimal-k selection to w in the given format.
func WriteSelection(w io.Writer, sel *models.Selection, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, sel)
	}
	fmt.Fprintf(w, "Optimal k: %d (candidate %d, gap %s)\n", sel.K, sel.Index, FormatFloat(sel.Gap))
	for i, g := range sel.Gaps {
		marker := " "
		if i == sel.Index {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %3d  %s\n", marker, i, FormatFloat(g))
	}
	return nil
}

// WriteVariances writes per-cluster variances to w in the given format.
func WriteVariances(w io.Writer, resp *models.VarianceResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	if resp.Variance != nil && resp.Cluster != nil {
		fmt.Fprintf(w, "cluster %d: %s\n", *resp.Cluster, FormatFloat(*resp.Variance))
		return nil
	}
	for k, v := range resp.Variances {
		fmt.Fprintf(w, "cluster %d: %s\n", k, FormatFloat(v))
	}
	return nil
}

// PreviewVector renders v as "[a b c ...]", cut to a readable length.
func PreviewVector(v models.Vector) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = FormatFloat(x)
	}
	return "[" + utils.Truncate(strings.Join(parts, " "), previewLen) + "]"
}

// FormatFloat prints x with up to six significant digits.
func FormatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', 6, 64)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
