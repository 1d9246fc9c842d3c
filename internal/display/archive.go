package display

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"latemate_console/internal/models"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// PlotArchiver renders scatter histories to PNG files under dir.
type PlotArchiver struct {
	dir string
	now func() time.Time
}

func NewPlotArchiver(dir string) *PlotArchiver {
	return &PlotArchiver{dir: dir, now: time.Now}
}

// ArchiveScatter writes points as scatter-<timestamp>.png and returns the path.
func (a *PlotArchiver) ArchiveScatter(ctx context.Context, points []models.ScatterPoint, durationMS int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir %q: %w", a.dir, err)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Change points (n=%d)", len(points))
	p.X.Label.Text = "Delay (ms)"
	p.X.Min = 0
	p.X.Max = float64(durationMS)
	p.Y.Min = 0
	p.Y.Max = 1
	p.Y.Tick.Marker = plot.ConstantTicks(nil)
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, 0, len(points))
	for _, pt := range points {
		xys = append(xys, plotter.XY{X: pt.DelayMS, Y: pt.Jitter})
	}
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return "", fmt.Errorf("build scatter: %w", err)
	}
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	sc.GlyphStyle.Radius = vg.Points(3)
	sc.GlyphStyle.Color = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	p.Add(sc)

	path := filepath.Join(a.dir, fmt.Sprintf("scatter-%s.png", a.now().UTC().Format("20060102-150405.000")))
	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}
