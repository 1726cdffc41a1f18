package main

import (
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/andrep/go-brick/brick"
	"github.com/andrep/go-brick/brick/video"
)

// keyHoldDuration is how long a key press counts as held. Terminals only
// deliver press events, so releases are synthesized after a short hold.
const keyHoldDuration = 120 * time.Millisecond

// shadeColors maps the four DMG shades to terminal colors.
var shadeColors = [4]tcell.Color{
	tcell.NewRGBColor(0xE0, 0xF8, 0xD0),
	tcell.NewRGBColor(0x88, 0xC0, 0x70),
	tcell.NewRGBColor(0x34, 0x68, 0x56),
	tcell.NewRGBColor(0x08, 0x18, 0x20),
}

var keyBindings = map[rune]brick.Button{
	'z': brick.ButtonB,
	'x': brick.ButtonA,
}

// terminalView renders frames as half-block cells: one character holds
// two vertically stacked pixels, so the 160x144 display needs 160x72.
type terminalView struct {
	screen tcell.Screen
	held   map[brick.Button]time.Time
}

func newTerminalView() (*terminalView, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.HideCursor()
	screen.Clear()
	return &terminalView{
		screen: screen,
		held:   make(map[brick.Button]time.Time),
	}, nil
}

func (v *terminalView) Close() {
	v.screen.Fini()
}

// PollInput drains pending terminal events and expires synthesized key
// holds. It reports whether the user asked to quit.
func (v *terminalView) PollInput(dmg *brick.DMG) bool {
	for v.screen.HasPendingEvent() {
		switch ev := v.screen.PollEvent().(type) {
		case *tcell.EventKey:
			if quit := v.handleKey(ev, dmg); quit {
				return true
			}
		case *tcell.EventResize:
			v.screen.Sync()
		}
	}

	now := time.Now()
	for button, deadline := range v.held {
		if now.After(deadline) {
			dmg.SetButton(button, false)
			delete(v.held, button)
		}
	}
	return false
}

func (v *terminalView) handleKey(ev *tcell.EventKey, dmg *brick.DMG) bool {
	press := func(b brick.Button) {
		dmg.SetButton(b, true)
		v.held[b] = time.Now().Add(keyHoldDuration)
	}

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyUp:
		press(brick.ButtonUp)
	case tcell.KeyDown:
		press(brick.ButtonDown)
	case tcell.KeyLeft:
		press(brick.ButtonLeft)
	case tcell.KeyRight:
		press(brick.ButtonRight)
	case tcell.KeyEnter:
		press(brick.ButtonStart)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		press(brick.ButtonSelect)
	case tcell.KeyRune:
		r := ev.Rune()
		if r == 'q' {
			return true
		}
		if button, ok := keyBindings[r]; ok {
			press(button)
		}
	}
	return false
}

// Draw paints the current frame.
func (v *terminalView) Draw(shades []uint8) {
	for y := 0; y < video.FramebufferHeight; y += 2 {
		for x := 0; x < video.FramebufferWidth; x++ {
			top := shades[y*video.FramebufferWidth+x]
			bottom := shades[(y+1)*video.FramebufferWidth+x]
			style := tcell.StyleDefault.
				Foreground(shadeColors[top&0x03]).
				Background(shadeColors[bottom&0x03])
			v.screen.SetContent(x, y/2, '▀', nil, style)
		}
	}
	v.screen.Show()
}
