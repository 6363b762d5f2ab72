// Package videoout presents the core's 640x200 ARGB8888 framebuffer in an
// ebiten window and forwards host keyboard/mouse/clipboard input to the
// IKBD, grounded on the teacher's EbitenOutput (frame-buffer mutex,
// edge-triggered key polling, clipboard-paste-as-keystrokes).
package videoout

import (
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.design/x/clipboard"

	"github.com/thebitculture/ase/system"
)

const (
	windowScale = 2
	maxPasteLen = 4096
)

// KeyboardSink is the ikbd.Controller surface videoout drives. KeyEvent
// takes host scancodes translated through ikbd.SetScancodeMapping;
// Enqueue pushes already-resolved ST scancode bytes directly (used for
// clipboard paste, which has no host key event to translate).
type KeyboardSink interface {
	KeyEvent(hostScancode uint8, down bool)
	Enqueue(bytes ...uint8)
}

// MouseSink is the ikbd.Controller surface for relative mouse motion and
// button state.
type MouseSink interface {
	MouseMove(dx, dy int)
	MouseButton(left, down bool)
}

// JoystickSink is the ikbd.Controller surface for the digital joystick:
// bit 0=up, 1=down, 2=left, 3=right, per §4.7.
type JoystickSink interface {
	JoystickDirection(bit int, pressed bool)
	JoystickFire(down bool)
}

// Window is an ebiten.Game presenting frames pulled from a FrameLoop and
// forwarding host input to the IKBD sinks.
type Window struct {
	frames    <-chan *system.Frame
	keyboard  KeyboardSink
	mouse     MouseSink
	joystick  JoystickSink

	mu      sync.RWMutex
	pixels  []uint32
	width   int
	height  int
	image   *ebiten.Image

	lastMouseX, lastMouseY int
	mouseInit              bool

	clipboardOnce sync.Once
	clipboardOK   bool
}

// New builds a Window. keyboard/mouse/joystick may be nil to disable that
// input channel (useful for headless or test harnesses).
func New(frames <-chan *system.Frame, keyboard KeyboardSink, mouse MouseSink, joystick JoystickSink) *Window {
	return &Window{
		frames:   frames,
		keyboard: keyboard,
		mouse:    mouse,
		joystick: joystick,
		width:    640,
		height:   200,
		pixels:   make([]uint32, 640*200),
	}
}

// Run opens the window and blocks until it is closed.
func (w *Window) Run(title string) error {
	ebiten.SetWindowSize(w.width*windowScale, w.height*windowScale)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	return ebiten.RunGame(w)
}

// Update implements ebiten.Game: it drains at most one pending frame and
// polls host input.
func (w *Window) Update() error {
	select {
	case frame := <-w.frames:
		w.applyFrame(frame)
	default:
	}

	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}

	w.pollKeyboard()
	w.pollMouse()
	w.pollJoystick()
	return nil
}

func (w *Window) applyFrame(frame *system.Frame) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if frame.Width != w.width || frame.Height != w.height {
		w.width = frame.Width
		w.height = frame.Height
		w.pixels = make([]uint32, frame.Width*frame.Height)
		w.image = nil
	}
	copy(w.pixels, frame.Pixels)
}

// Draw implements ebiten.Game.
func (w *Window) Draw(screen *ebiten.Image) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.image == nil {
		w.image = ebiten.NewImage(w.width, w.height)
	}
	buf := make([]byte, len(w.pixels)*4)
	for i, argb := range w.pixels {
		buf[i*4+0] = byte(argb >> 16) // R
		buf[i*4+1] = byte(argb >> 8)  // G
		buf[i*4+2] = byte(argb)       // B
		buf[i*4+3] = byte(argb >> 24) // A
	}
	w.image.WritePixels(buf)
	screen.DrawImage(w.image, nil)
}

// Layout implements ebiten.Game.
func (w *Window) Layout(_, _ int) (int, int) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.width, w.height
}

func (w *Window) pollKeyboard() {
	if w.keyboard == nil {
		return
	}

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	if ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		w.pasteClipboard()
	}

	for _, key := range trackedKeys {
		if key > 0xFF {
			continue // outside the uint8 host-scancode range ikbd.KeyEvent accepts
		}
		if inpututil.IsKeyJustPressed(key) {
			w.keyboard.KeyEvent(uint8(key), true)
		}
		if inpututil.IsKeyJustReleased(key) {
			w.keyboard.KeyEvent(uint8(key), false)
		}
	}
}

func (w *Window) pollMouse() {
	if w.mouse == nil {
		return
	}
	x, y := ebiten.CursorPosition()
	if !w.mouseInit {
		w.lastMouseX, w.lastMouseY = x, y
		w.mouseInit = true
		return
	}
	dx, dy := x-w.lastMouseX, y-w.lastMouseY
	w.lastMouseX, w.lastMouseY = x, y
	if dx != 0 || dy != 0 {
		w.mouse.MouseMove(dx, dy)
	}
	w.mouse.MouseButton(true, ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))
	w.mouse.MouseButton(false, ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight))
}

// joystickBits is the bit index each tracked arrow key drives, per the
// up/down/left/right convention JoystickDirection documents.
var joystickBits = map[ebiten.Key]int{
	ebiten.KeyArrowUp:    0,
	ebiten.KeyArrowDown:  1,
	ebiten.KeyArrowLeft:  2,
	ebiten.KeyArrowRight: 3,
}

func (w *Window) pollJoystick() {
	if w.joystick == nil {
		return
	}
	for key, bit := range joystickBits {
		if inpututil.IsKeyJustPressed(key) {
			w.joystick.JoystickDirection(bit, true)
		}
		if inpututil.IsKeyJustReleased(key) {
			w.joystick.JoystickDirection(bit, false)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyRightControl) {
		w.joystick.JoystickFire(true)
	}
	if inpututil.IsKeyJustReleased(ebiten.KeyRightControl) {
		w.joystick.JoystickFire(false)
	}
}

func (w *Window) pasteClipboard() {
	w.clipboardOnce.Do(func() {
		w.clipboardOK = clipboard.Init() == nil
	})
	if !w.clipboardOK || w.keyboard == nil {
		return
	}
	data := clipboard.Read(clipboard.FmtText)
	if len(data) == 0 {
		return
	}
	if len(data) > maxPasteLen {
		data = data[:maxPasteLen]
	}
	for _, b := range data {
		if sc, ok := asciiScancodeTable[b]; ok {
			w.keyboard.Enqueue(sc, sc|0x80)
		}
	}
}
