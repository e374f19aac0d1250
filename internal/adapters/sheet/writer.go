// Package sheet writes a practice plan and its diagrams into an XLSX workbook.
//
// Every diagram layer is embedded as its own picture anchored to the step's
// diagram cell, so players and arrows stay individually movable in the
// spreadsheet.
package sheet

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/okian/drillsheet/internal/domain/diagram"
	"github.com/okian/drillsheet/internal/domain/layout"
	"github.com/okian/drillsheet/internal/domain/plan"
	"github.com/okian/drillsheet/pkg/logger"
	"github.com/okian/drillsheet/pkg/metrics"
)

// Sheet layout constants.
const (
	SheetName    = "練習メニュー"
	DefaultTitle = "練習メニュー"

	// diagrams are anchored in column B of the step row
	diagramColIndex = 2

	titleRowHeight   = 30
	descRowHeight    = 40
	headerRowHeight  = 25
	stepRowHeight    = 160
	sectionRowHeight = 25

	KeyPointsHeader = "📌 重要ポイント"
	LegendHeader    = "🔰 図の見方"
	LegendMove      = "→ 青色の矢印（実線）: プレイヤーの動き"
	LegendBall      = "⇢ オレンジ色の矢印（破線）: ボールの動き"
)

var (
	columnWidths = []struct {
		col   string
		width float64
	}{{"A", 5}, {"B", 50}, {"C", 40}, {"D", 15}}
	headers = []string{"#", "図解", "説明", "時間"}
)

// Writer builds workbooks. It is safe for concurrent use.
type Writer struct {
	budget        layout.Budget
	scratchParent string
	logger        logger.Logger
}

// New creates a Writer with the default 350x200 budget.
func New(opts ...Option) *Writer {
	w := &Writer{
		budget: layout.DefaultBudget(),
		logger: logger.GetOrDiscard(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// File is a finished workbook held in memory.
type File struct {
	data []byte
}

// Bytes returns the XLSX content.
func (f *File) Bytes() []byte {
	return f.data
}

// Len is the XLSX size in bytes.
func (f *File) Len() int {
	return len(f.data)
}

// WriteTo implements io.WriterTo.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.data)
	return int64(n), err
}

// SaveAs writes the workbook to path, creating parent directories.
func (f *File) SaveAs(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, f.data, 0o644)
}

// Close releases the workbook content.
func (f *File) Close() error {
	f.data = nil
	return nil
}

// Build lays out p with one diagram per step. bundles[i] belongs to
// p.Steps[i]; a missing or nil bundle leaves the diagram cell empty.
// Overlay images are staged in a scratch directory that is removed before
// Build returns.
func (w *Writer) Build(ctx context.Context, p *plan.PracticePlan, bundles []*diagram.Bundle) (*File, error) {
	if p == nil {
		return nil, ErrNilPlan
	}
	start := time.Now()

	scratch, err := os.MkdirTemp(w.scratchParent, "drillsheet-")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScratch, err)
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			w.logger.Warn(ctx, "failed to remove scratch directory",
				logger.String("dir", scratch), logger.Error(rmErr))
		}
	}()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	b := &builder{w: w, f: f, scratch: scratch}
	if err := b.build(ctx, p, bundles); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("sheet: encode workbook: %w", err)
	}
	metrics.RecordWorkbookBuild(float64(time.Since(start).Milliseconds()), buf.Len())
	return &File{data: buf.Bytes()}, nil
}

type builder struct {
	w       *Writer
	f       *excelize.File
	st      *styles
	scratch string
	row     int
}

func (b *builder) build(ctx context.Context, p *plan.PracticePlan, bundles []*diagram.Bundle) error {
	if err := b.f.SetSheetName(b.f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	st, err := newStyles(b.f)
	if err != nil {
		return err
	}
	b.st = st
	for _, c := range columnWidths {
		if err := b.f.SetColWidth(SheetName, c.col, c.col, c.width); err != nil {
			return err
		}
	}

	title := p.Title
	if title == "" {
		title = DefaultTitle
	}
	b.row = 1
	if err := b.merged(title, st.title, titleRowHeight); err != nil {
		return err
	}
	if err := b.merged(p.Description, st.description, descRowHeight); err != nil {
		return err
	}
	b.row++

	if err := b.header(); err != nil {
		return err
	}
	for i := range p.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		var bundle *diagram.Bundle
		if i < len(bundles) {
			bundle = bundles[i]
		}
		if err := b.step(&p.Steps[i], bundle); err != nil {
			return fmt.Errorf("sheet: step %d: %w", p.Steps[i].Number, err)
		}
	}

	b.row++
	if err := b.merged(KeyPointsHeader, st.keyHeader, sectionRowHeight); err != nil {
		return err
	}
	for _, kp := range p.KeyPoints {
		if err := b.merged("• "+kp, st.keyPoint, 0); err != nil {
			return err
		}
	}

	b.row++
	if err := b.merged(LegendHeader, st.legendHeader, sectionRowHeight); err != nil {
		return err
	}
	if err := b.merged(LegendMove, st.legendMove, 0); err != nil {
		return err
	}
	return b.merged(LegendBall, st.legendBall, 0)
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// merged writes value across A:D of the current row and advances.
func (b *builder) merged(value string, style int, height float64) error {
	first, last := cell("A", b.row), cell("D", b.row)
	if err := b.f.MergeCell(SheetName, first, last); err != nil {
		return err
	}
	if err := b.f.SetCellValue(SheetName, first, value); err != nil {
		return err
	}
	if err := b.f.SetCellStyle(SheetName, first, last, style); err != nil {
		return err
	}
	if height > 0 {
		if err := b.f.SetRowHeight(SheetName, b.row, height); err != nil {
			return err
		}
	}
	b.row++
	return nil
}

func (b *builder) header() error {
	for i, h := range headers {
		c, err := excelize.CoordinatesToCellName(i+1, b.row)
		if err != nil {
			return err
		}
		if err := b.f.SetCellValue(SheetName, c, h); err != nil {
			return err
		}
	}
	if err := b.f.SetCellStyle(SheetName, cell("A", b.row), cell("D", b.row), b.st.header); err != nil {
		return err
	}
	if err := b.f.SetRowHeight(SheetName, b.row, headerRowHeight); err != nil {
		return err
	}
	b.row++
	return nil
}

func (b *builder) step(s *plan.Step, bundle *diagram.Bundle) error {
	r := b.row
	values := []struct {
		col   string
		value any
		style int
	}{
		{"A", s.Number, b.st.number},
		{"B", nil, b.st.frame},
		{"C", fmt.Sprintf("【%s】\n\n%s", s.Name, s.Description), b.st.body},
		{"D", fmt.Sprintf("%d分", s.DurationMinutes), b.st.duration},
	}
	for _, v := range values {
		if v.value != nil {
			if err := b.f.SetCellValue(SheetName, cell(v.col, r), v.value); err != nil {
				return err
			}
		}
		if err := b.f.SetCellStyle(SheetName, cell(v.col, r), cell(v.col, r), v.style); err != nil {
			return err
		}
	}
	if err := b.f.SetRowHeight(SheetName, r, stepRowHeight); err != nil {
		return err
	}
	if bundle != nil {
		if err := b.diagram(diagramColIndex, r, bundle); err != nil {
			return err
		}
	}
	b.row++
	return nil
}

// diagram embeds the ground and then every overlay, each scaled by the same
// factor and offset from the ground's top-left by its scaled centre.
func (b *builder) diagram(col, row int, bundle *diagram.Bundle) error {
	scale := layout.Fit(bundle.Size, b.w.budget)

	ground := scale.Ground(bundle.Size)
	if err := b.picture(col, row, opaque(bundle.Ground), ground, "ground"); err != nil {
		return err
	}
	for _, o := range bundle.Overlays() {
		pl := scale.Apply(o.Center, o.Size())
		if err := b.picture(col, row, o.Image, pl, string(o.Kind)+" "+o.Label); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) picture(col, row int, img image.Image, pl layout.Placement, alt string) error {
	anchor, offX, offY, err := b.anchor(col, row, pl.OffsetX, pl.OffsetY)
	if err != nil {
		return err
	}
	path := filepath.Join(b.scratch, uuid.NewString()+".png")
	if err := writePNG(path, img); err != nil {
		return err
	}
	size := img.Bounds().Size()
	return b.f.AddPicture(SheetName, anchor, path, &excelize.GraphicOptions{
		AltText:     alt,
		OffsetX:     offX,
		OffsetY:     offY,
		ScaleX:      float64(pl.Width) / float64(size.X),
		ScaleY:      float64(pl.Height) / float64(size.Y),
		Positioning: "oneCell",
	})
}

// anchor rebases an offset from the top-left of (col,row) onto the cell that
// actually contains the point, so the stored offset lies inside its cell.
// Negative offsets move to the column left of or the row above; an offset past
// the first column or row stays negative. excelize keeps the offset it was
// given even when it advances the start cell, so this must happen first.
func (b *builder) anchor(col, row, offX, offY int) (string, int, int, error) {
	var err error
	col, offX, err = rebase(col, offX, b.colPixels)
	if err != nil {
		return "", 0, 0, err
	}
	row, offY, err = rebase(row, offY, b.rowPixels)
	if err != nil {
		return "", 0, 0, err
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	return name, offX, offY, err
}

// rebase walks index (1-based) until off falls inside [0, size(index)).
func rebase(index, off int, size func(int) (int, error)) (int, int, error) {
	for off < 0 && index > 1 {
		index--
		px, err := size(index)
		if err != nil {
			return 0, 0, err
		}
		off += px
	}
	for off > 0 {
		px, err := size(index)
		if err != nil {
			return 0, 0, err
		}
		if px <= 0 || off < px {
			break
		}
		off -= px
		index++
	}
	return index, off, nil
}

func (b *builder) colPixels(col int) (int, error) {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return 0, err
	}
	w, err := b.f.GetColWidth(SheetName, name)
	if err != nil {
		return 0, err
	}
	return colWidthPixels(w), nil
}

func (b *builder) rowPixels(row int) (int, error) {
	h, err := b.f.GetRowHeight(SheetName, row)
	if err != nil {
		return 0, err
	}
	return rowHeightPixels(h), nil
}

// colWidthPixels converts a width in characters to pixels the way excelize
// positions drawings: 7px digits plus 5px padding.
func colWidthPixels(width float64) int {
	switch {
	case width <= 0:
		return 0
	case width < 1:
		return int(math.Ceil(width*12 + 0.5))
	default:
		return int(math.Ceil(width*7 + 0.5 + 5))
	}
}

// rowHeightPixels converts a height in points to drawing pixels.
func rowHeightPixels(height float64) int {
	if height <= 0 {
		return 0
	}
	return int(math.Ceil(4.0 / 3.4 * height))
}

func writePNG(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := diagram.EncodePNG(&buf, img); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

// opaque flattens img onto white so the ground is stored without alpha.
func opaque(img image.Image) *image.RGBA {
	r := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Over)
	return dst
}
