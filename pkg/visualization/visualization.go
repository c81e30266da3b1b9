// Package visualization suggests a chart kind for a query result.
package visualization

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// PieMaxRows is the largest aggregate result drawn as a pie.
const PieMaxRows = 5

var countCall = regexp.MustCompile(`\bCOUNT\s*\(`)

// SupportedKinds lists every hint Select can return.
func SupportedKinds() []models.VisualizationHint {
	return []models.VisualizationHint{
		models.VisualizationBar,
		models.VisualizationLine,
		models.VisualizationPie,
		models.VisualizationScatter,
		models.VisualizationTable,
	}
}

// Select picks a chart kind from the query text and result rows. Rules apply
// in order: no rows, aggregation, time series, numeric pairs, table.
func Select(query string, rows []map[string]any) models.VisualizationHint {
	if len(rows) == 0 {
		return models.VisualizationTable
	}

	q := strings.ToUpper(query)
	if countCall.MatchString(q) || strings.Contains(q, "GROUP BY") {
		if len(rows) <= PieMaxRows {
			return models.VisualizationPie
		}
		return models.VisualizationBar
	}

	if strings.Contains(q, "DATE") || strings.Contains(q, "MONTH") || strings.Contains(q, "YEAR") {
		return models.VisualizationLine
	}

	if first := rows[0]; len(first) >= 2 && allNumeric(first) {
		return models.VisualizationScatter
	}

	return models.VisualizationTable
}

func allNumeric(row map[string]any) bool {
	for _, v := range row {
		if !isNumeric(v) {
			return false
		}
	}
	return true
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	default:
		return false
	}
}
