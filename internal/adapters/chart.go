package adapters

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"time"

	"github.com/b0d/solar-estimate/internal/domain"
	"github.com/fogleman/gg"
)

// ChartRenderer draws the estimated power series as a PNG line chart.
type ChartRenderer struct {
	logger domain.Logger
}

// NewChartRenderer creates a new chart renderer
func NewChartRenderer(logger domain.Logger) *ChartRenderer {
	return &ChartRenderer{logger: logger}
}

// RenderPowerChart creates a PNG image of the instant-power series for one
// calendar day.
func (c *ChartRenderer) RenderPowerChart(bundle *domain.EstimateBundle, day time.Time) ([]byte, error) {
	points := dayPoints(bundle, day)
	if len(points) < 2 {
		return nil, fmt.Errorf("not enough production points on %s to draw a chart", day.Format("2006-01-02"))
	}

	c.logger.Debug("Rendering power chart",
		"day", day.Format("2006-01-02"),
		"points", len(points),
		"first", points[0].Time.Format("15:04"),
		"last", points[len(points)-1].Time.Format("15:04"))

	width := 800
	height := 400
	padding := 60

	dc := gg.NewContext(width, height)

	// Background
	dc.SetColor(color.RGBA{255, 255, 255, 255})
	dc.Clear()

	// Power axis scale, rounded up to the next half kilowatt
	maxWatts := 0
	for _, p := range points {
		if p.Watts > maxWatts {
			maxWatts = p.Watts
		}
	}
	maxScale := float64((maxWatts/500 + 1) * 500)

	chartWidth := width - 2*padding
	chartHeight := height - 2*padding

	// Grid lines and left axis labels
	dc.SetLineWidth(1)
	for i := 0; i <= 4; i++ {
		y := float64(padding) + (float64(i)/4.0)*float64(chartHeight)
		dc.SetColor(color.RGBA{224, 230, 237, 255})
		dc.DrawLine(float64(padding), y, float64(padding+chartWidth), y)
		dc.Stroke()

		value := maxScale - (float64(i)/4.0)*maxScale
		dc.SetColor(color.RGBA{127, 140, 141, 255})
		dc.DrawStringAnchored(fmt.Sprintf("%.0f W", value), float64(padding-10), y, 1, 0.5)
	}

	pointSpacing := float64(chartWidth) / float64(len(points)-1)

	// Power line (orange)
	dc.SetColor(color.RGBA{247, 147, 30, 255})
	dc.SetLineWidth(3)
	for i, p := range points {
		x := float64(padding) + float64(i)*pointSpacing
		y := float64(padding+chartHeight) - (float64(p.Watts)/maxScale)*float64(chartHeight)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	// Time labels every two hours along the bottom
	dc.SetColor(color.RGBA{44, 62, 80, 255})
	for i, p := range points {
		if p.Time.Minute() != 0 || p.Time.Hour()%2 != 0 {
			continue
		}
		x := float64(padding) + float64(i)*pointSpacing
		dc.DrawStringAnchored(p.Time.Format("15:04"), x, float64(padding+chartHeight+20), 0.5, 0)
	}

	// Title
	dc.SetColor(color.RGBA{44, 62, 80, 255})
	title := fmt.Sprintf("Estimated PV Power %s", day.Format("2006-01-02"))
	dc.DrawStringAnchored(title, float64(width/2), 25, 0.5, 0.5)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// dayPoints filters the bundle's instant series to one calendar day in the
// bundle's timezone. The series is already ordered.
func dayPoints(bundle *domain.EstimateBundle, day time.Time) []domain.PowerPoint {
	target := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, bundle.Location)
	end := target.AddDate(0, 0, 1)

	var points []domain.PowerPoint
	for _, p := range bundle.Watts {
		if p.Time.Before(target) {
			continue
		}
		if !p.Time.Before(end) {
			break
		}
		points = append(points, p)
	}
	return points
}
