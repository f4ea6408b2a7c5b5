// Command devkit is a Fyne inspector for a running core: it shows live
// CPU registers and LCDC/joypad flags, a VRAM tile-sheet preview, a
// breakpoint/step/call-stack/watch debugger panel, and a scrollable view
// of the shared debug logger's recent entries. It attaches to a
// driver.Driver the same way the emulator command does, but never touches
// a host window or audio device.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"duskboy-core/internal/cpu"
	"duskboy-core/internal/debug"
	"duskboy-core/internal/driver"
	"duskboy-core/internal/joypad"
	"duskboy-core/internal/memory"
	"duskboy-core/internal/ppu"
	"duskboy-core/internal/rom"
)

const uiTickHz = 10

func main() {
	var romPath string
	flag.StringVar(&romPath, "rom", "", "ROM file to load into the inspected core")
	flag.Parse()

	mem := memory.New()
	if romPath != "" {
		if err := rom.LoadFile(romPath, mem); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	logger := debug.NewLogger(1000)
	logger.SetComponentEnabled(debug.ComponentDriver, true)
	logger.SetComponentEnabled(debug.ComponentCPU, true)
	logger.SetComponentEnabled(debug.ComponentPPU, true)
	logger.SetMinLevel(debug.LogLevelInfo)

	c := cpu.NewCPU(mem, nil)
	p := ppu.New(mem, ppu.NewPPULoggerAdapter(logger))
	jp := joypad.New()
	d := driver.New(mem, c, p, jp, driver.NewDriverLoggerAdapter(logger))
	d.Verbose = true

	dbg := debug.NewDebugger()
	c.Calls = dbg
	d.Debugger = dbg

	go d.Run()

	a := app.New()
	w := a.NewWindow("duskboy devkit")

	regs := widget.NewLabel("")
	tileImage := canvas.NewImageFromImage(tileSheetImage(p))
	tileImage.FillMode = canvas.ImageFillOriginal
	logBox := widget.NewMultiLineEntry()
	logBox.Disable()
	debugBox := widget.NewMultiLineEntry()
	debugBox.Disable()

	bpEntry := widget.NewEntry()
	bpEntry.SetPlaceHolder("0x0150")
	addBpButton := widget.NewButton("Add breakpoint", func() {
		if pc, ok := parseHex16(bpEntry.Text); ok {
			dbg.SetBreakpoint(pc)
			bpEntry.SetText("")
		}
	})

	watchEntry := widget.NewEntry()
	watchEntry.SetPlaceHolder("a, hl, pc, sp, ...")
	addWatchButton := widget.NewButton("Add watch", func() {
		if expr := strings.TrimSpace(watchEntry.Text); expr != "" {
			dbg.AddWatch(expr)
			watchEntry.SetText("")
		}
	})

	pauseButton := widget.NewButton("Pause", func() { dbg.Pause() })
	resumeButton := widget.NewButton("Resume", func() { dbg.Resume() })
	stepButton := widget.NewButton("Step", func() { dbg.Step(1) })

	debuggerPanel := container.NewVBox(
		widget.NewLabel("Debugger"),
		container.NewBorder(nil, nil, nil, addBpButton, bpEntry),
		container.NewHBox(pauseButton, resumeButton, stepButton),
		container.NewBorder(nil, nil, nil, addWatchButton, watchEntry),
		container.NewScroll(debugBox),
	)

	content := container.NewHSplit(
		container.NewVBox(widget.NewLabel("Registers"), regs),
		container.NewHSplit(
			container.NewVBox(widget.NewLabel("VRAM tiles"), container.NewScroll(tileImage)),
			container.NewHSplit(
				debuggerPanel,
				container.NewVBox(widget.NewLabel("Log"), container.NewScroll(logBox)),
			),
		),
	)
	w.SetContent(content)
	w.Resize(fyne.NewSize(1280, 540))

	go func() {
		ticker := time.NewTicker(time.Second / uiTickHz)
		defer ticker.Stop()
		for range ticker.C {
			state := c.State
			text := fmt.Sprintf(
				"PC=%04X SP=%04X\nA=%02X F=%02X\nB=%02X C=%02X\nD=%02X E=%02X\nH=%02X L=%02X\nIME=%v Halted=%v\nLCDC=%02X LY=%02X\nJOYP=%02X",
				state.PC, state.SP, state.A, state.F, state.B, state.C, state.D, state.E, state.H, state.L,
				state.IME, state.Halted, mem.Read8(memory.RegLCDC), mem.Read8(memory.RegLY), mem.Read8(memory.RegJOYP),
			)
			img := tileSheetImage(p)
			entries := logger.GetRecentEntries(200)
			debugText := formatDebugger(dbg, state)

			fyne.Do(func() {
				regs.SetText(text)
				tileImage.Image = img
				tileImage.Refresh()
				logBox.SetText(formatEntries(entries))
				debugBox.SetText(debugText)
			})
		}
	}()

	w.ShowAndRun()
	d.SetEnding()
}

// parseHex16 parses a program-counter literal typed into the breakpoint
// entry, accepting an optional "0x"/"0X" prefix.
func parseHex16(s string) (uint16, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}

// resolveWatch looks up a watch expression's current value against state,
// recognizing 8-bit registers, their pair names, and sp/pc.
func resolveWatch(expr string, state cpu.State) (interface{}, bool) {
	switch strings.ToLower(strings.TrimSpace(expr)) {
	case "a":
		return state.A, true
	case "b":
		return state.B, true
	case "c":
		return state.C, true
	case "d":
		return state.D, true
	case "e":
		return state.E, true
	case "h":
		return state.H, true
	case "l":
		return state.L, true
	case "f":
		return state.F, true
	case "bc":
		return uint16(state.B)<<8 | uint16(state.C), true
	case "de":
		return uint16(state.D)<<8 | uint16(state.E), true
	case "hl":
		return uint16(state.H)<<8 | uint16(state.L), true
	case "af":
		return uint16(state.A)<<8 | uint16(state.F), true
	case "sp":
		return state.SP, true
	case "pc":
		return state.PC, true
	default:
		return nil, false
	}
}

// formatDebugger renders the debugger panel's text: pause state,
// breakpoints (sorted by PC), the call stack deepest-first, and watch
// expressions resolved against the current CPU state.
func formatDebugger(dbg *debug.Debugger, state cpu.State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "paused=%v\n\n", dbg.IsPaused())

	b.WriteString("Breakpoints:\n")
	bps := dbg.GetAllBreakpoints()
	pcs := make([]uint16, 0, len(bps))
	for pc := range bps {
		pcs = append(pcs, pc)
	}
	sort.Slice(pcs, func(i, j int) bool { return pcs[i] < pcs[j] })
	for _, pc := range pcs {
		b.WriteString(debug.FormatBreakpoint(bps[pc]) + "\n")
	}

	b.WriteString("\nCall stack:\n")
	stack := dbg.GetCallStack()
	for i := len(stack) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "return -> 0x%04X\n", stack[i].ReturnPC)
	}

	b.WriteString("\nWatches:\n")
	watches := dbg.GetWatches()
	for i, watch := range watches {
		if v, ok := resolveWatch(watch.Expression, state); ok {
			dbg.SetWatchValue(i, v)
			fmt.Fprintf(&b, "%s = %v (was %v)\n", watch.Expression, v, watch.LastValue)
		} else {
			fmt.Fprintf(&b, "%s = <unresolved>\n", watch.Expression)
		}
	}

	return b.String()
}

// tileSheetImage renders VRAM's 384 tiles as a 16×24 grid of 8×8 pixels,
// one shade of grey per raw 2-bit tile value. No palette is applied; this
// is a raw tile-data inspector, not a composed frame.
func tileSheetImage(p *ppu.PPU) image.Image {
	const cols, rows = 16, 24
	img := image.NewRGBA(image.Rect(0, 0, cols*ppu.TileSize, rows*ppu.TileSize))

	for t := 0; t < cols*rows; t++ {
		addr := memory.VRAMUnsignedBase + uint16(t*16)
		tileCols := t % cols
		tileRows := t / cols
		for y := 0; y < ppu.TileSize; y++ {
			b0 := p.Mem.Read8(addr + uint16(2*y))
			b1 := p.Mem.Read8(addr + uint16(2*y) + 1)
			for x := 0; x < ppu.TileSize; x++ {
				shift := uint(7 - x)
				bit0 := (b0 >> shift) & 1
				bit1 := (b1 >> shift) & 1
				value := 2*bit1 + bit0
				grey := uint8(255 - value*85)
				img.Set(tileCols*ppu.TileSize+x, tileRows*ppu.TileSize+y, color.RGBA{grey, grey, grey, 255})
			}
		}
	}
	return img
}

func formatEntries(entries []debug.LogEntry) string {
	out := ""
	for _, e := range entries {
		out += e.Format() + "\n"
	}
	return out
}
