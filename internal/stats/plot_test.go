package stats

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPlotWidthFor(t *testing.T) {
	axisWidth := utf8.RuneCountInString(axisLabelTop) + utf8.RuneCountInString(axisSeparator)
	total := 80
	expected := total - axisWidth
	if expected < minPlotWidth {
		expected = minPlotWidth
	}
	if got := PlotWidthFor(total); got != expected {
		t.Fatalf("expected width %d, got %d", expected, got)
	}
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
}

func TestPlotSeriesRendersLegend(t *testing.T) {
	var buf bytes.Buffer
	series := []Series{
		{Name: "japanese", Values: []float64{10, 20, 30, 25}},
		{Name: "spanish", Values: []float64{5, 5, 15, 40}},
	}
	if err := PlotSeries(&buf, "Daily Minutes", series, 40, 6); err != nil {
		t.Fatalf("plot series: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Daily Minutes") {
		t.Fatalf("expected title in output:\n%s", out)
	}
	if !strings.Contains(out, "japanese") || !strings.Contains(out, "spanish") {
		t.Fatalf("expected legend entries in output:\n%s", out)
	}
}

func TestPlotSeriesEmptyInput(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotSeries(&buf, "Daily Minutes", nil, 40, 6); err != nil {
		t.Fatalf("plot series: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output for empty series, got %q", buf.String())
	}
}
