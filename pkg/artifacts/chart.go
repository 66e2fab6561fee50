package artifacts

import (
	"fmt"
	"os"
	"sort"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	chartSampleSize = 500
	chartTopK       = 10
)

var barColors = []string{
	"4e79a7", "f28e2b", "e15759", "76b7b2", "59a14f",
	"edc949", "af7aa1", "ff9da7", "9c755f", "bab0ab",
}

// CategoryCount is one bar of the chart.
type CategoryCount struct {
	Label string
	Count int
}

// PickCategoricalColumn chooses the column with the fewest distinct values
// in the first 500 rows, among those with more than one and at most
// max(50, n/2) distinct values. Ties go to the alphabetically first column.
// Without a qualifying column the first column is returned.
func PickCategoricalColumn(rows []models.Row) string {
	if len(rows) == 0 {
		return ""
	}

	sample := rows[:min(len(rows), chartSampleSize)]
	columns := columnNames(sample)

	if len(columns) == 0 {
		return ""
	}

	unique := make(map[string]int, len(columns))

	for _, column := range columns {
		values := map[string]struct{}{}
		for _, row := range sample {
			values[cellText(row[column])] = struct{}{}
		}

		unique[column] = len(values)
	}

	ordered := append([]string(nil), columns...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return unique[ordered[i]] < unique[ordered[j]]
	})

	ceiling := max(50, len(sample)/2)

	for _, column := range ordered {
		if u := unique[column]; u > 1 && u <= ceiling {
			return column
		}
	}

	return columns[0]
}

// TopCategories counts the values of column over all rows and returns the
// topK most frequent, ties broken by label.
func TopCategories(rows []models.Row, column string, topK int) []CategoryCount {
	counts := map[string]int{}
	for _, row := range rows {
		counts[cellText(row[column])]++
	}

	out := make([]CategoryCount, 0, len(counts))
	for label, count := range counts {
		out = append(out, CategoryCount{Label: label, Count: count})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Label < out[j].Label
	})

	if len(out) > topK {
		out = out[:topK]
	}

	return out
}

// RenderChart draws a bar chart of the top categories to chart-<ts>.png.
// It returns an empty path when there is nothing to plot.
func (w *Writer) RenderChart(rows []models.Row, title string) (string, error) {
	column := PickCategoricalColumn(rows)
	if column == "" {
		return "", nil
	}

	categories := TopCategories(rows, column, chartTopK)
	if len(categories) == 0 {
		return "", nil
	}

	if title == "" {
		title = fmt.Sprintf("Top %d by %s", chartTopK, column)
	}

	bars := make([]chart.Value, 0, len(categories))
	highest := 0

	for i, category := range categories {
		highest = max(highest, category.Count)
		label := category.Label

		if label == "" {
			label = "(empty)"
		}

		bars = append(bars, chart.Value{
			Value: float64(category.Count),
			Label: label,
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex(barColors[i%len(barColors)]),
				StrokeColor: drawing.ColorFromHex(barColors[i%len(barColors)]),
			},
		})
	}

	graph := chart.BarChart{
		Title:      title,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		Width:      1200,
		Height:     675,
		BarWidth:   60,
		BarSpacing: 30,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(highest) * 1.1},
		},
		Bars: bars,
	}

	path, err := w.nextPath("chart", ".png")
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create chart file: %w", err)
	}

	if err := graph.Render(chart.PNG, f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)

		return "", fmt.Errorf("failed to render chart: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close chart file: %w", err)
	}

	return path, nil
}
