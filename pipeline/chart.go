package pipeline

import (
	"bytes"
	"errors"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	ridestats "github.com/lucasjlepore/ridestats"
)

var errNoRollingPower = errors.New("no rolling power samples")

// renderPowerChart draws the 30-sample rolling power over elapsed time as a
// PNG, with the threshold power as a reference line.
func renderPowerChart(a *ridestats.Analysis) ([]byte, error) {
	if len(a.Power.Rolling) == 0 {
		return nil, errNoRollingPower
	}

	times := a.Stream.Column(ridestats.FieldTime)
	pts := make(plotter.XYs, 0, len(a.Power.Rolling))
	for k, idx := range a.Power.RollingIndex {
		t, ok := times.At(idx)
		if !ok {
			continue
		}
		pts = append(pts, plotter.XY{X: t / 60.0, Y: a.Power.Rolling[k]})
	}
	if len(pts) == 0 {
		return nil, errNoRollingPower
	}

	p := plot.New()
	p.Title.Text = "Rolling 30s power"
	p.X.Label.Text = "Elapsed (min)"
	p.Y.Label.Text = "Power (W)"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Width = vg.Points(1)
	line.Color = color.RGBA{R: 200, G: 40, B: 40, A: 255}
	p.Add(line)

	if ftp := a.Power.ThresholdW; ftp > 0 {
		ref := plotter.NewFunction(func(float64) float64 { return ftp })
		ref.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		ref.Color = color.Gray{Y: 90}
		p.Add(ref)
		p.Legend.Add("FTP", ref)
	}
	p.Legend.Add("30s power", line)
	p.Legend.Top = true

	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
