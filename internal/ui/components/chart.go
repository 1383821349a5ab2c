// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/jeranaias/augchat/internal/augment"
	"github.com/jeranaias/augchat/internal/ui/styles"
	"github.com/jeranaias/augchat/internal/util"
)

// ChartRenderer draws a chart augmentation into width columns.
type ChartRenderer interface {
	Render(t augment.ChartType, data augment.ChartData, options json.RawMessage, width int) (string, error)
}

// ErrUnsupportedChart is returned for a chart type the renderer cannot draw.
var ErrUnsupportedChart = errors.New("unsupported chart type")

// =============================================================================
// TEXT CHART RENDERER
// =============================================================================

// TextChartRenderer draws charts with ASCII glyphs:
//   - Bar, PolarArea and Radar as horizontal bars per label
//   - Line as one sparkline per dataset
//   - Pie and Doughnut as a share table
//   - Scatter and Bubble as a point plot
type TextChartRenderer struct {
	// PlotHeight is the row count of scatter and bubble plots
	PlotHeight int
}

// NewTextChartRenderer creates a TextChartRenderer.
func NewTextChartRenderer() *TextChartRenderer {
	return &TextChartRenderer{PlotHeight: 8}
}

// Render implements ChartRenderer.
func (r *TextChartRenderer) Render(t augment.ChartType, data augment.ChartData, options json.RawMessage, width int) (string, error) {
	if width < 20 {
		width = 20
	}

	title := chartTitle(options)
	if title == "" {
		title = string(t) + " chart"
	}

	var body string
	switch t {
	case augment.ChartBar, augment.ChartPolarArea, augment.ChartRadar:
		body = r.bars(data, width)
	case augment.ChartLine:
		body = r.lines(data, width)
	case augment.ChartPie, augment.ChartDoughnut:
		body = r.shares(data, width)
	case augment.ChartScatter, augment.ChartBubble:
		body = r.plot(data, width, t == augment.ChartBubble)
	default:
		return "", errors.Wrapf(ErrUnsupportedChart, "%q", t)
	}
	if body == "" {
		body = "(no data)"
	}
	return title + "\n" + body, nil
}

// chartTitle reads options.plugins.title.text, or options.title as a string
// or {text}.
func chartTitle(options json.RawMessage) string {
	if len(options) == 0 {
		return ""
	}
	var opts struct {
		Title   json.RawMessage `json:"title"`
		Plugins struct {
			Title json.RawMessage `json:"title"`
		} `json:"plugins"`
	}
	if err := json.Unmarshal(options, &opts); err != nil {
		return ""
	}
	for _, raw := range []json.RawMessage{opts.Plugins.Title, opts.Title} {
		if len(raw) == 0 {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			Text string `json:"text"`
		}
		if json.Unmarshal(raw, &obj) == nil && obj.Text != "" {
			return obj.Text
		}
	}
	return ""
}

// =============================================================================
// BARS
// =============================================================================

func (r *TextChartRenderer) bars(data augment.ChartData, width int) string {
	series := make([][]float64, len(data.Datasets))
	maxVal := 0.0
	rows := len(data.Labels)
	for i, ds := range data.Datasets {
		series[i] = ds.Values()
		for _, v := range series[i] {
			maxVal = math.Max(maxVal, v)
		}
		if len(series[i]) > rows {
			rows = len(series[i])
		}
	}
	if rows == 0 || len(series) == 0 {
		return ""
	}

	labelW := labelWidth(data.Labels, rows, width/3)
	valueW := 0
	for _, vals := range series {
		for _, v := range vals {
			if w := len(formatValue(v)); w > valueW {
				valueW = w
			}
		}
	}
	barW := width - labelW - valueW - 4
	if barW < 4 {
		barW = 4
	}

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		for d, vals := range series {
			if row >= len(vals) {
				continue
			}
			label := ""
			if d == 0 {
				label = labelAt(data.Labels, row)
			}
			frac := 0.0
			if maxVal > 0 {
				frac = vals[row] / maxVal
			}
			bar := seriesStyle(d).Render(styles.RenderBar(barW, frac))
			sb.WriteString(util.PadRight(util.TruncateWidth(label, labelW), labelW))
			sb.WriteString(" |" + bar + " " + formatValue(vals[row]) + "\n")
		}
	}
	sb.WriteString(legend(data.Datasets))
	return strings.TrimRight(sb.String(), "\n")
}

// =============================================================================
// LINES
// =============================================================================

func (r *TextChartRenderer) lines(data augment.ChartData, width int) string {
	if len(data.Datasets) == 0 {
		return ""
	}
	labels := make([]string, len(data.Datasets))
	for i, ds := range data.Datasets {
		labels[i] = ds.Label
	}
	labelW := labelWidth(labels, len(labels), width/4)
	sparkW := width - labelW - 2

	var sb strings.Builder
	for d, ds := range data.Datasets {
		vals := ds.Values()
		if len(vals) == 0 {
			continue
		}
		if len(vals) > sparkW {
			vals = vals[len(vals)-sparkW:]
		}
		lo, hi := minMax(vals)
		sb.WriteString(util.PadRight(util.TruncateWidth(ds.Label, labelW), labelW) + " ")
		sb.WriteString(seriesStyle(d).Render(sparkline(vals, lo, hi)))
		sb.WriteString("  min " + formatValue(lo) + " max " + formatValue(hi) + "\n")
	}
	if n := len(data.Labels); n > 1 {
		sb.WriteString(util.PadRight("", labelW) + " " + data.Labels[0] + " .. " + data.Labels[n-1] + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func sparkline(vals []float64, lo, hi float64) string {
	var sb strings.Builder
	top := len(styles.SparkChars) - 1
	for _, v := range vals {
		level := top / 2
		if hi > lo {
			level = int((v - lo) / (hi - lo) * float64(top))
		}
		sb.WriteString(styles.SparkChars[level])
	}
	return sb.String()
}

// =============================================================================
// SHARES
// =============================================================================

func (r *TextChartRenderer) shares(data augment.ChartData, width int) string {
	var sb strings.Builder
	for d, ds := range data.Datasets {
		vals := ds.Values()
		total := 0.0
		for _, v := range vals {
			if v > 0 {
				total += v
			}
		}
		if total == 0 {
			continue
		}
		if len(data.Datasets) > 1 && ds.Label != "" {
			sb.WriteString(ds.Label + "\n")
		}

		labelW := labelWidth(data.Labels, len(vals), width/3)
		barW := width - labelW - 10
		if barW < 4 {
			barW = 4
		}
		for i, v := range vals {
			share := math.Max(v, 0) / total
			sb.WriteString(util.PadRight(util.TruncateWidth(labelAt(data.Labels, i), labelW), labelW) + " ")
			sb.WriteString(seriesStyle(i + d).Render(styles.RenderBar(barW, share)))
			sb.WriteString(" " + strconv.FormatFloat(share*100, 'f', 1, 64) + "%\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// =============================================================================
// PLOT
// =============================================================================

type plotCell struct {
	glyph   byte
	dataset int
}

func (r *TextChartRenderer) plot(data augment.ChartData, width int, bubble bool) string {
	var all []augment.Point
	points := make([][]augment.Point, len(data.Datasets))
	for i, ds := range data.Datasets {
		points[i] = ds.Points()
		all = append(all, points[i]...)
	}
	if len(all) == 0 {
		return ""
	}

	minX, maxX := all[0].X, all[0].X
	minY, maxY := all[0].Y, all[0].Y
	maxR := 0.0
	for _, p := range all {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		maxR = math.Max(maxR, p.R)
	}

	axisW := max(len(formatValue(maxY)), len(formatValue(minY)))
	w := max(width-axisW-2, 8)
	h := r.PlotHeight
	if h < 3 {
		h = 3
	}

	grid := make([][]plotCell, h)
	for i := range grid {
		grid[i] = make([]plotCell, w)
	}
	scatterGlyphs := "*+ox#@%&"
	for d, pts := range points {
		for _, p := range pts {
			col := scale(p.X, minX, maxX, w-1)
			row := h - 1 - scale(p.Y, minY, maxY, h-1)
			g := scatterGlyphs[d%len(scatterGlyphs)]
			if bubble {
				g = bubbleGlyph(p.R, maxR)
			}
			grid[row][col] = plotCell{glyph: g, dataset: d}
		}
	}

	var sb strings.Builder
	for row, cells := range grid {
		axis := ""
		switch row {
		case 0:
			axis = formatValue(maxY)
		case h - 1:
			axis = formatValue(minY)
		}
		sb.WriteString(strings.Repeat(" ", axisW-len(axis)) + axis + " |")
		for _, c := range cells {
			if c.glyph == 0 {
				sb.WriteByte(' ')
				continue
			}
			sb.WriteString(seriesStyle(c.dataset).Render(string(c.glyph)))
		}
		sb.WriteString("\n")
	}
	lo, hi := formatValue(minX), formatValue(maxX)
	gap := w - len(lo) - len(hi)
	if gap < 1 {
		gap = 1
	}
	sb.WriteString(strings.Repeat(" ", axisW+2) + lo + strings.Repeat(" ", gap) + hi + "\n")
	sb.WriteString(legend(data.Datasets))
	return strings.TrimRight(sb.String(), "\n")
}

func scale(v, lo, hi float64, steps int) int {
	if hi <= lo || steps <= 0 {
		return steps / 2
	}
	i := int(math.Round((v - lo) / (hi - lo) * float64(steps)))
	return min(max(i, 0), steps)
}

func bubbleGlyph(r, maxR float64) byte {
	if maxR <= 0 {
		return 'o'
	}
	switch f := r / maxR; {
	case f > 0.75:
		return '@'
	case f > 0.5:
		return 'O'
	case f > 0.25:
		return 'o'
	default:
		return '.'
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func seriesStyle(i int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(styles.SeriesColor(i))
}

func legend(datasets []augment.Dataset) string {
	if len(datasets) < 2 {
		return ""
	}
	parts := make([]string, 0, len(datasets))
	for i, ds := range datasets {
		parts = append(parts, seriesStyle(i).Render("#")+" "+ds.Label)
	}
	return strings.Join(parts, "  ") + "\n"
}

func labelAt(labels []string, i int) string {
	if i < len(labels) {
		return labels[i]
	}
	return strconv.Itoa(i + 1)
}

func labelWidth(labels []string, rows, limit int) int {
	w := 1
	for i := 0; i < rows; i++ {
		w = max(w, util.StringWidth(labelAt(labels, i)))
	}
	if limit > 0 && w > limit {
		w = limit
	}
	return w
}

func minMax(vals []float64) (lo, hi float64) {
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return lo, hi
}

// formatValue prints integers without a fraction and everything else with
// at most two decimals.
func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
