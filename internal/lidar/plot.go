package lidar

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotScan renders the valid points of scan in the robot frame as a PNG.
func PlotScan(w io.Writer, scan Scan) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Range scan (%d points)", len(scan.Points))
	p.X.Label.Text = "x forward (m)"
	p.Y.Label.Text = "y left (m)"
	p.Add(plotter.NewGrid())

	valid := scan.Valid()
	pts := make(plotter.XYs, 0, len(valid))
	for _, sp := range valid {
		v := sp.RobotFrame()
		pts = append(pts, plotter.XY{X: v.X, Y: v.Y})
	}
	if len(pts) > 0 {
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		s.GlyphStyle.Radius = vg.Points(1.5)
		s.GlyphStyle.Color = color.RGBA{R: 200, A: 255}
		p.Add(s)
	}

	robot, err := plotter.NewScatter(plotter.XYs{{X: 0, Y: 0}})
	if err != nil {
		return err
	}
	robot.GlyphStyle.Radius = vg.Points(4)
	robot.GlyphStyle.Color = color.RGBA{B: 200, A: 255}
	p.Add(robot)
	p.Legend.Add("robot", robot)

	wt, err := p.WriterTo(6*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
