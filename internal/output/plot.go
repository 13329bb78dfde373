package output

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"loadshape-platform/internal/models"
	"loadshape-platform/internal/services"
)

// writePlot renders the load shapes as a tiled panel grid, one panel per
// cluster: member profiles faint, the canonical median bold.
func (w *Writer) writePlot(path string, res *services.PipelineResult) error {
	width, height, err := parseFigsize(w.cfg.PNGFigsize)
	if err != nil {
		return err
	}
	fontSize := vg.Points(float64(w.cfg.PNGFontsize))

	k := res.Shapes.K
	cols := 2
	if k < 2 {
		cols = 1
	}
	rows := (k + cols - 1) / cols

	memberOf := make(map[int][]string, k)
	for meter, group := range res.Assignments {
		memberOf[group] = append(memberOf[group], meter)
	}

	plots := make([][]*plot.Plot, rows)
	for r := range plots {
		plots[r] = make([]*plot.Plot, cols)
	}

	faint := color.NRGBA{B: 255, A: 24}
	for group := 0; group < k; group++ {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("Loadshape %d (N=%d)", group, len(memberOf[group]))
		p.Title.TextStyle.Font.Size = fontSize
		p.X.Label.Text = "Hour type"
		p.Y.Label.Text = "Power [kW]"
		p.X.Min, p.X.Max = 0, float64(len(res.Shapes.Profiles[group])-1)
		p.Add(plotter.NewGrid())

		for _, meter := range memberOf[group] {
			line, err := plotter.NewLine(profileXYs(res.Matrix.Profiles[meter]))
			if err != nil {
				return models.Failedf(err, "cannot plot meter profile")
			}
			line.Color = faint
			p.Add(line)
		}

		median, err := plotter.NewLine(profileXYs(res.Shapes.Profiles[group]))
		if err != nil {
			return models.Failedf(err, "cannot plot canonical shape")
		}
		median.Color = color.Black
		median.Width = vg.Points(1.5)
		p.Add(median)

		plots[group/cols][group%cols] = p
	}

	img := vgimg.New(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch)
	canvases := plot.Align(plots, draw.Tiles{Rows: rows, Cols: cols}, draw.New(img))
	for r := range plots {
		for c := range plots[r] {
			if plots[r][c] != nil {
				plots[r][c].Draw(canvases[r][c])
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return models.Failedf(err, "cannot create plot output")
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return models.Failedf(err, "cannot render plot")
	}
	return nil
}

func profileXYs(profile []float64) plotter.XYs {
	xys := make(plotter.XYs, len(profile))
	for i, v := range profile {
		xys[i].X = float64(i)
		xys[i].Y = v
	}
	return xys
}

// parseFigsize interprets a WxH figure size in inches, e.g. "10x7".
func parseFigsize(spec string) (float64, float64, error) {
	parts := strings.SplitN(spec, "x", 2)
	if len(parts) != 2 {
		return 0, 0, models.Invalidf("PNG_FIGSIZE %q is not of the form WxH", spec)
	}
	width, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || width <= 0 {
		return 0, 0, models.Invalidf("PNG_FIGSIZE %q has an invalid width", spec)
	}
	height, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || height <= 0 {
		return 0, 0, models.Invalidf("PNG_FIGSIZE %q has an invalid height", spec)
	}
	return width, height, nil
}
