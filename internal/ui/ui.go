// Package ui hosts the emulator inside an SDL2 window: it blits the PPU's
// four-shade viewport each frame and translates keyboard events into
// joypad button state. It carries no audio device; this core has no APU.
package ui

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"

	"duskboy-core/internal/driver"
	"duskboy-core/internal/joypad"
	"duskboy-core/internal/ppu"
)

// Scale is the integer pixel-scale factor applied to the 160×144 viewport.
const Scale = 4

// shadeRGB maps a 2-bit palette shade (0 = lightest) to an RGB888 value,
// matching the classic four-tone greyscale palette.
var shadeRGB = [4]uint32{
	0xFFFFFF,
	0xAAAAAA,
	0x555555,
	0x000000,
}

// Window owns the SDL2 video subsystem, a window sized to the scaled
// viewport, a renderer, and a streaming texture at the unscaled 160×144
// viewport size that the renderer stretches to fill the window.
type Window struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture

	driver *driver.Driver
	jp     *joypad.Joypad

	running bool
}

// NewWindow initializes SDL2 video and creates a window scaled to Scale×
// the Game Boy viewport, bound to d's PPU output and jp's button state.
func NewWindow(d *driver.Driver, jp *joypad.Joypad) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("initializing SDL video: %w", err)
	}

	width := int32(ppu.ViewportWidth * Scale)
	height := int32(ppu.ViewportHeight * Scale)

	window, err := sdl.CreateWindow(
		"duskboy",
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		width, height,
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("creating window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("creating renderer: %w", err)
	}

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_RGB888, sdl.TEXTUREACCESS_STREAMING,
		int32(ppu.ViewportWidth), int32(ppu.ViewportHeight))
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("creating texture: %w", err)
	}

	return &Window{
		window: window, renderer: renderer, texture: texture,
		driver: d, jp: jp, running: true,
	}, nil
}

// Run drives the SDL event loop: it polls input, blits the latest composed
// frame, and presents, until the window is closed or Ctrl-C is pressed.
// It ends the driver on exit so the CPU/frame goroutines unwind with it.
func (w *Window) Run() error {
	defer w.Cleanup()

	for w.running {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			w.handleEvent(event)
		}
		if !w.running {
			break
		}

		w.updateInput()

		if err := w.render(); err != nil {
			return err
		}
		w.renderer.Present()
		sdl.Delay(1)
	}
	w.driver.SetEnding()
	return nil
}

func (w *Window) handleEvent(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		w.running = false
	case *sdl.KeyboardEvent:
		if e.Keysym.Sym == sdl.K_c && e.Keysym.Mod&sdl.KMOD_CTRL != 0 && e.Type == sdl.KEYDOWN {
			w.running = false
		}
	}
}

// updateInput reflects the current keyboard state into the joypad's button
// map: arrow keys for the d-pad, Return for Start, Right Shift for Select,
// 'a' for B and 's' for A.
func (w *Window) updateInput() {
	keys := sdl.GetKeyboardState()

	w.jp.SetPressed(joypad.Up, keys[sdl.SCANCODE_UP] != 0)
	w.jp.SetPressed(joypad.Down, keys[sdl.SCANCODE_DOWN] != 0)
	w.jp.SetPressed(joypad.Left, keys[sdl.SCANCODE_LEFT] != 0)
	w.jp.SetPressed(joypad.Right, keys[sdl.SCANCODE_RIGHT] != 0)
	w.jp.SetPressed(joypad.Start, keys[sdl.SCANCODE_RETURN] != 0)
	w.jp.SetPressed(joypad.Select, keys[sdl.SCANCODE_RSHIFT] != 0)
	w.jp.SetPressed(joypad.B, keys[sdl.SCANCODE_A] != 0)
	w.jp.SetPressed(joypad.A, keys[sdl.SCANCODE_S] != 0)
}

// render copies the PPU's current viewport into the streaming texture and
// draws it scaled to fill the window.
func (w *Window) render() error {
	pixels, pitch, err := w.texture.Lock(nil)
	if err != nil {
		return fmt.Errorf("locking texture: %w", err)
	}

	vp := w.driver.PPU.Viewport
	for y := 0; y < ppu.ViewportHeight; y++ {
		for x := 0; x < ppu.ViewportWidth; x++ {
			rgb := shadeRGB[vp[y][x]&0x3]
			offset := y*pitch + x*4
			pixels[offset+0] = byte(rgb)
			pixels[offset+1] = byte(rgb >> 8)
			pixels[offset+2] = byte(rgb >> 16)
			pixels[offset+3] = 0
		}
	}
	w.texture.Unlock()

	if err := w.renderer.Clear(); err != nil {
		return fmt.Errorf("clearing renderer: %w", err)
	}
	if err := w.renderer.Copy(w.texture, nil, nil); err != nil {
		return fmt.Errorf("copying texture: %w", err)
	}
	return nil
}

// Cleanup tears down the renderer, window, and SDL video subsystem.
func (w *Window) Cleanup() {
	if w.texture != nil {
		w.texture.Destroy()
	}
	if w.renderer != nil {
		w.renderer.Destroy()
	}
	if w.window != nil {
		w.window.Destroy()
	}
	sdl.Quit()
}
