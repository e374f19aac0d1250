package sheet

import "github.com/xuri/excelize/v2"

const fontFamily = "Meiryo"

type styles struct {
	title, description, header, number, body, duration int
	keyHeader, keyPoint, legendHeader, legendMove, legendBall, frame int
}

func thinBorder() []excelize.Border {
	out := make([]excelize.Border, 0, 4)
	for _, side := range []string{"left", "right", "top", "bottom"} {
		out = append(out, excelize.Border{Type: side, Color: "000000", Style: 1})
	}
	return out
}

func solidFill(hex string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{hex}}
}

func newStyles(f *excelize.File) (*styles, error) {
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	topLeft := &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true}
	normal := &excelize.Font{Family: fontFamily, Size: 10}
	heading := &excelize.Font{Family: fontFamily, Size: 12, Bold: true}

	s := &styles{}
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&s.title, &excelize.Style{Font: &excelize.Font{Family: fontFamily, Size: 16, Bold: true}, Alignment: center}},
		{&s.description, &excelize.Style{Font: normal, Alignment: topLeft}},
		{&s.header, &excelize.Style{
			Font:      &excelize.Font{Family: fontFamily, Size: 12, Bold: true, Color: "FFFFFF"},
			Alignment: center,
			Border:    thinBorder(),
			Fill:      solidFill("4472C4"),
		}},
		{&s.number, &excelize.Style{Font: heading, Alignment: center, Border: thinBorder()}},
		{&s.frame, &excelize.Style{Border: thinBorder()}},
		{&s.body, &excelize.Style{Font: normal, Alignment: topLeft, Border: thinBorder()}},
		{&s.duration, &excelize.Style{Font: normal, Alignment: center, Border: thinBorder()}},
		{&s.keyHeader, &excelize.Style{Font: heading, Fill: solidFill("FFC000")}},
		{&s.keyPoint, &excelize.Style{Font: normal, Alignment: topLeft}},
		{&s.legendHeader, &excelize.Style{Font: heading, Fill: solidFill("92D050")}},
		{&s.legendMove, &excelize.Style{Font: &excelize.Font{Family: fontFamily, Size: 10, Color: "0000FF"}, Alignment: topLeft}},
		{&s.legendBall, &excelize.Style{Font: &excelize.Font{Family: fontFamily, Size: 10, Color: "FF8C00"}, Alignment: topLeft}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return nil, err
		}
		*d.dst = id
	}
	return s, nil
}
