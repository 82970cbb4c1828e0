package main

import (
	"image/color"

	"golang.org/x/image/font/basicfont"

	"github.com/ebitenui/ebitenui"
	imageui "github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2"
	ebtext "github.com/hajimehoshi/ebiten/v2/text/v2"
)

var statusColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// statusUI is the gamepad presence banner in the bottom-left corner.
type statusUI struct {
	ui   *ebitenui.UI
	text *widget.Text
}

func newStatusUI() *statusUI {
	panelImg := imageui.NewNineSliceColor(color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 160})

	goFace := ebtext.NewGoXFace(basicfont.Face7x13)
	var face ebtext.Face = goFace

	text := widget.NewText(
		widget.TextOpts.Text("", &face, statusColor),
	)

	panel := widget.NewContainer(
		widget.ContainerOpts.BackgroundImage(panelImg),
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionVertical),
			widget.RowLayoutOpts.Padding(&widget.Insets{Top: 8, Bottom: 8, Left: 12, Right: 12}),
		)),
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{HorizontalPosition: widget.AnchorLayoutPositionStart, VerticalPosition: widget.AnchorLayoutPositionEnd}),
		),
	)
	panel.AddChild(text)

	root := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewAnchorLayout()),
	)
	root.AddChild(panel)

	return &statusUI{
		ui:   &ebitenui.UI{Container: root},
		text: text,
	}
}

func (s *statusUI) SetStatus(msg string) {
	s.text.Label = msg
}

func (s *statusUI) Update() {
	s.ui.Update()
}

func (s *statusUI) Draw(screen *ebiten.Image) {
	s.ui.Draw(screen)
}
