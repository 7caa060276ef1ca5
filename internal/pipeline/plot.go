package pipeline

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"vcmarket/internal/model"
)

// ErrNoChartData is returned when a chart would have no bars.
var ErrNoChartData = errors.New("chart has no data")

// DefaultChartIndustries caps the industries drawn when none are selected
const DefaultChartIndustries = 10

var industryMetrics = []string{"Mean Total Funding", "Median Total Funding", "Mean Last Funding Amount", "Median Last Funding Amount"}

// ResolveIndustries maps requested labels to labels of stats by exact or
// case-insensitive match. With no request it returns the DefaultChartIndustries
// largest groups by company count.
func ResolveIndustries(stats model.CategoryStatistics, requested []string) ([]string, error) {
	if len(requested) == 0 {
		labels := SortedLabels(stats)
		sort.SliceStable(labels, func(i, j int) bool {
			return stats[labels[i]].CompanyCount > stats[labels[j]].CompanyCount
		})
		if len(labels) > DefaultChartIndustries {
			labels = labels[:DefaultChartIndustries]
		}
		return labels, nil
	}

	lower := make(map[string]string, len(stats))
	for label := range stats {
		lower[strings.ToLower(label)] = label
	}
	out := make([]string, 0, len(requested))
	var unknown []string
	for _, r := range requested {
		r = strings.TrimSpace(r)
		if _, ok := stats[r]; ok {
			out = append(out, r)
		} else if label, ok := lower[strings.ToLower(r)]; ok {
			out = append(out, label)
		} else {
			unknown = append(unknown, r)
		}
	}
	if len(unknown) > 0 {
		return nil, &ParameterError{Field: "industries", Reason: "unknown industry group: " + strings.Join(unknown, ", ")}
	}
	return out, nil
}

// WriteIndustryChart draws grouped bars of the four funding statistics of
// each industry, in millions of USD.
func WriteIndustryChart(stats model.CategoryStatistics, industries []string, path string) error {
	if len(industries) == 0 {
		return ErrNoChartData
	}

	p := plot.New()
	p.Title.Text = "Industry Group Funding Statistics"
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = "Industry"
	p.Y.Label.Text = "Values (in millions)"
	p.Legend.Top = true

	width := vg.Points(12)
	for m, name := range industryMetrics {
		values := make(plotter.Values, len(industries))
		for i, label := range industries {
			st := stats[label]
			v := []int64{st.TotalFundingMean, st.TotalFundingMedian, st.LastFundingMean, st.LastFundingMedian}[m]
			values[i] = float64(v) / 1e6
		}
		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return fmt.Errorf("industry chart: %w", err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(m)
		bars.Offset = vg.Length(float64(m)-1.5) * width
		p.Add(bars)
		p.Legend.Add(name, bars)
	}

	p.Add(plotter.NewGrid())
	p.NominalX(industries...)
	p.X.Tick.Label.Rotation = math.Pi / 6
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	w := vg.Length(2+len(industries)) * vg.Inch
	if w < 10*vg.Inch {
		w = 10 * vg.Inch
	}
	if err := p.Save(w, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save industry chart: %w", err)
	}
	return nil
}

// WriteInvestorChart draws the top investors of one region as horizontal
// bars, highest score on top.
func WriteInvestorChart(top []model.InvestorScore, region model.Region, path string) error {
	if len(top) == 0 {
		return ErrNoChartData
	}

	n := len(top)
	values := make(plotter.Values, n)
	names := make([]string, n)
	labels := plotter.XYLabels{XYs: make(plotter.XYs, n), Labels: make([]string, n)}
	for i, inv := range top {
		j := n - 1 - i
		values[j] = float64(inv.Score)
		names[j] = inv.Name
		labels.XYs[j] = plotter.XY{X: float64(inv.Score), Y: float64(j)}
		labels.Labels[j] = fmt.Sprintf(" %d", inv.Score)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Top %d %s Investors by Score", n, region)
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = "Score"
	p.Y.Label.Text = "Investor"

	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return fmt.Errorf("investor chart: %w", err)
	}
	bars.Horizontal = true
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = regionColor(region)
	p.Add(bars)
	p.Legend.Add(string(region), bars)

	scoreLabels, err := plotter.NewLabels(labels)
	if err != nil {
		return fmt.Errorf("investor chart labels: %w", err)
	}
	p.Add(scoreLabels)
	p.NominalY(names...)

	if err := p.Save(12*vg.Inch, vg.Length(2+n/3)*vg.Inch+4*vg.Inch, path); err != nil {
		return fmt.Errorf("save investor chart: %w", err)
	}
	return nil
}

func regionColor(r model.Region) color.Color {
	if r == model.RegionUS {
		return color.RGBA{R: 31, G: 119, B: 180, A: 255}
	}
	return color.RGBA{R: 44, G: 160, B: 44, A: 255}
}
