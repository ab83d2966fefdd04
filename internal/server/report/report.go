package report

import (
	"fmt"
	"os"
	"time"

	"deepspear/internal/server/database"

	"github.com/wcharczuk/go-chart/v2"
)

// Point is one day of the upload series.
type Point struct {
	Date  time.Time
	Count int64
}

// Summary holds the aggregate statistics annotated on the chart.
type Summary struct {
	Total           int64
	AveragePerDay   float64
	MaxPerDay       int64
	DaysWithUploads int
}

// BuildSeries expands sparse daily counts into a gap-free series covering the
// last days calendar days ending at end. Dates without uploads get zero.
func BuildSeries(counts []database.DailyCount, days int, end time.Time) []Point {
	byDate := make(map[string]int64, len(counts))
	for _, dc := range counts {
		byDate[dc.Date.Format("2006-01-02")] = dc.Count
	}

	endDate := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())
	startDate := endDate.AddDate(0, 0, -(days - 1))

	series := make([]Point, 0, days)
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		series = append(series, Point{
			Date:  d,
			Count: byDate[d.Format("2006-01-02")],
		})
	}
	return series
}

// Summarize computes the aggregate statistics over a series.
func Summarize(series []Point) Summary {
	var s Summary
	for _, p := range series {
		s.Total += p.Count
		if p.Count > s.MaxPerDay {
			s.MaxPerDay = p.Count
		}
		if p.Count > 0 {
			s.DaysWithUploads++
		}
	}
	if len(series) > 0 {
		s.AveragePerDay = float64(s.Total) / float64(len(series))
	}
	return s
}

// RenderChart writes a PNG line chart of the series to outputPath.
func RenderChart(series []Point, title string, summary Summary, outputPath string) error {
	xs := make([]time.Time, len(series))
	ys := make([]float64, len(series))
	for i, p := range series {
		xs[i] = p.Date
		ys[i] = float64(p.Count)
	}

	statsLabel := fmt.Sprintf("Total: %d | Avg/day: %.1f | Max/day: %d",
		summary.Total, summary.AveragePerDay, summary.MaxPerDay)

	graph := chart.Chart{
		Title:  title,
		Width:  1200,
		Height: 600,
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Images uploaded",
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    statsLabel,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: 2,
					DotWidth:    3,
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{
		chart.Legend(&graph),
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create chart file %s: %w", outputPath, err)
	}
	defer f.Close()

	if err := graph.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
