package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/abelzeko/stream-report/internal/entities"
)

// OverviewImage is the file name of the overview grid image
const OverviewImage = "overview.png"

const (
	gridMargin  = 20
	titleHeight = 56
	labelWidth  = 140
	monthWidth  = 80
	cellHeight  = 36
)

var (
	goodFill   = color.RGBA{R: 0, G: 128, B: 0, A: 255}
	badFill    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	emptyFill  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	headerFill = color.RGBA{R: 221, G: 221, B: 221, A: 255}
	lineColor  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// StatusColor is the fill used for a cell status
func StatusColor(s entities.Status) color.RGBA {
	switch s {
	case entities.Good:
		return goodFill
	case entities.Bad:
		return badFill
	default:
		return emptyFill
	}
}

// OverviewTitle is the heading of the overview artifacts
func (r *Renderer) OverviewTitle() string {
	if r.labels.ReportYear == 0 {
		return "Water Quality Overview Report"
	}
	return fmt.Sprintf("Water Quality Overview Report %d", r.labels.ReportYear)
}

// RenderOverview draws the month by parameter grid as a PNG
func (r *Renderer) RenderOverview(grid entities.MonthlyGrid) (string, error) {
	img := drawOverview(grid, r.OverviewTitle(), r.labels.Location())

	path, err := r.writeArtifact(OverviewImage, func(w io.Writer) error {
		return png.Encode(w, img)
	})
	if err != nil {
		return "", err
	}
	log.Printf("Rendered overview %s", path)
	return path, nil
}

func overviewSize(rows int) (int, int) {
	width := 2*gridMargin + labelWidth + 12*monthWidth
	height := 2*gridMargin + titleHeight + (rows+1)*cellHeight
	return width, height
}

// cellRect returns the bounds of a grid cell. Row 0 is the month header, column 0 the parameter names.
func cellRect(row, col int) image.Rectangle {
	top := gridMargin + titleHeight + row*cellHeight
	left := gridMargin
	width := labelWidth
	if col > 0 {
		left = gridMargin + labelWidth + (col-1)*monthWidth
		width = monthWidth
	}
	return image.Rect(left, top, left+width, top+cellHeight)
}

func drawOverview(grid entities.MonthlyGrid, title, location string) *image.RGBA {
	w, h := overviewSize(len(grid.Rows))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: emptyFill}, image.Point{}, draw.Src)

	drawText(img, title, w/2, gridMargin+14, true)
	drawText(img, location, w/2, gridMargin+36, true)

	fillCell(img, cellRect(0, 0), headerFill, "Parameter")
	for m := 1; m <= 12; m++ {
		fillCell(img, cellRect(0, m), headerFill, time.Month(m).String()[:3])
	}

	for i, row := range grid.Rows {
		fillCell(img, cellRect(i+1, 0), emptyFill, string(row.Parameter))
		for _, cell := range row.Cells {
			text := ""
			if cell.HasValue {
				text = formatValue(cell.Value)
			}
			fillCell(img, cellRect(i+1, int(cell.Month)), StatusColor(cell.Status), text)
		}
	}
	return img
}

func fillCell(img *image.RGBA, rect image.Rectangle, fill color.RGBA, text string) {
	draw.Draw(img, rect, &image.Uniform{C: fill}, image.Point{}, draw.Src)
	for x := rect.Min.X; x < rect.Max.X; x++ {
		img.SetRGBA(x, rect.Min.Y, lineColor)
		img.SetRGBA(x, rect.Max.Y-1, lineColor)
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		img.SetRGBA(rect.Min.X, y, lineColor)
		img.SetRGBA(rect.Max.X-1, y, lineColor)
	}
	if text != "" {
		center := rect.Min.Add(rect.Size().Div(2))
		drawText(img, text, center.X, center.Y+4, true)
	}
}

// drawText writes s with its baseline at y, centered on x when centered is set
func drawText(img *image.RGBA, s string, x, y int, centered bool) {
	face := basicfont.Face7x13
	if centered {
		x -= font.MeasureString(face, s).Ceil() / 2
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(lineColor),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
