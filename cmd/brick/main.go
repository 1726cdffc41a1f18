package main

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/andrep/go-brick/brick"
	"github.com/andrep/go-brick/brick/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "brick"
	app.Description = "A Game Boy (DMG) emulator"
	app.Usage = "brick [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file (.gb or .zip)",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run without a display",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode",
			Value: 0,
		},
		cli.BoolFlag{
			Name:  "serial-stdout",
			Usage: "Print captured serial output to stdout on exit",
		},
		cli.Float64Flag{
			Name:  "speed",
			Usage: "Speed multiplier",
			Value: 1.0,
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("emulator exited with error", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Bool("debug") {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() == 0 {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
		romPath = c.Args().Get(0)
	}

	rom, err := readROM(romPath)
	if err != nil {
		return err
	}

	dmg := brick.New()
	info, err := dmg.LoadCartridge(rom)
	if err != nil {
		return fmt.Errorf("loading %s: %w", romPath, err)
	}
	dmg.SetSpeed(c.Float64("speed"))
	slog.Info("cartridge inserted", "title", info.Title,
		"hash", fmt.Sprintf("0x%08X", info.HeaderHash), "battery", info.HasBattery)

	savPath := strings.TrimSuffix(romPath, filepath.Ext(romPath)) + ".sav"
	if info.HasBattery {
		if data, err := os.ReadFile(savPath); err == nil {
			if err := dmg.LoadRAM(data); err != nil {
				slog.Warn("ignoring save file", "path", savPath, "error", err)
			}
		}
	}

	if c.Bool("headless") {
		err = runHeadless(dmg, c.Int("frames"))
	} else {
		err = runTerminal(dmg)
	}

	if info.HasBattery {
		if data, ramErr := dmg.SaveRAM(); ramErr == nil {
			if writeErr := os.WriteFile(savPath, data, 0o644); writeErr != nil {
				slog.Warn("could not persist battery RAM", "error", writeErr)
			}
		}
	}

	if c.Bool("serial-stdout") {
		os.Stdout.Write(dmg.SerialOutput())
	}
	return err
}

// readROM loads a raw ROM image, unwrapping a zip container if needed.
func readROM(path string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		r, err := zip.OpenReader(path)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		for _, f := range r.File {
			if strings.EqualFold(filepath.Ext(f.Name), ".gb") {
				rc, err := f.Open()
				if err != nil {
					return nil, err
				}
				defer rc.Close()
				return io.ReadAll(rc)
			}
		}
		return nil, fmt.Errorf("no .gb file inside %s", path)
	}
	return os.ReadFile(path)
}

// runHeadless drives the emulator for a fixed number of frames as fast
// as the host allows.
func runHeadless(dmg *brick.DMG, frames int) error {
	if frames <= 0 {
		return errors.New("headless mode requires --frames with a positive value")
	}

	sliceMs := timing.FrameDuration().Seconds() * 1000
	for dmg.Frames() < uint64(frames) {
		dmg.StepFor(sliceMs)
		if err := dmg.Err(); err != nil {
			return err
		}
	}
	slog.Info("headless run complete", "frames", dmg.Frames())
	return nil
}

// runTerminal paces the emulator against the wall clock and renders into
// the terminal until the user quits.
func runTerminal(dmg *brick.DMG) error {
	view, err := newTerminalView()
	if err != nil {
		return fmt.Errorf("terminal init: %w", err)
	}
	defer view.Close()

	ticker := time.NewTicker(timing.FrameDuration())
	defer ticker.Stop()

	frameMs := timing.FrameDuration().Seconds() * 1000
	for {
		if quit := view.PollInput(dmg); quit {
			return nil
		}

		dmg.StepFor(frameMs)
		if err := dmg.Err(); err != nil {
			return err
		}

		view.Draw(dmg.FrameShades())
		<-ticker.C
	}
}
