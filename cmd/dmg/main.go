package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/dcanelhas/go-dmg/dmg"
	"github.com/dcanelhas/go-dmg/dmg/wavdump"
	"github.com/dcanelhas/go-dmg/frontend/terminal"
)

func main() {
	app := cli.NewApp()
	app.Name = "dmg"
	app.Description = "A Game Boy emulator for the terminal"
	app.Usage = "dmg [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run without a display, for test ROMs and captures",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "save",
			Usage: "Path to battery RAM, loaded at start and written on exit",
		},
		cli.StringFlag{
			Name:  "wav",
			Usage: "Capture audio output to a WAV file (headless mode)",
		},
		cli.BoolFlag{
			Name:  "print-serial",
			Usage: "Print bytes sent over the serial port to stdout",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
	app.Action = runEmulator

	if err := app.Run(os.Args); err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	romData, err := os.ReadFile(romPath)
	if err != nil {
		return err
	}

	emu, err := dmg.New(romData, dmg.WithLogger(logger))
	if err != nil {
		return err
	}

	savePath := c.String("save")
	if savePath != "" {
		if err := loadSave(emu, savePath); err != nil {
			return err
		}
	}

	if c.Bool("headless") {
		err = runHeadless(c, emu)
	} else {
		err = terminal.New(emu).Run()
	}
	if err != nil {
		return err
	}

	if savePath != "" {
		return writeSave(emu, savePath)
	}
	return nil
}

func runHeadless(c *cli.Context, emu *dmg.Emulator) error {
	frames := c.Int("frames")
	if frames <= 0 {
		return errors.New("headless mode requires --frames with a positive value")
	}

	var wav *wavdump.Writer
	if path := c.String("wav"); path != "" {
		wav = wavdump.New(path)
	}
	printSerial := c.Bool("print-serial")

	slog.Info("Running headless", "frames", frames)

	for i := 0; i < frames; i++ {
		if err := emu.RunUntilFrame(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}

		samples := emu.DrainAudioSamples()
		if wav != nil {
			wav.Append(samples)
		}

		for {
			b, ok := emu.PollSerial()
			if !ok {
				break
			}
			if printSerial {
				fmt.Printf("%c", b)
			}
		}
	}

	if wav != nil {
		slog.Info("Writing audio capture", "path", c.String("wav"), "samples", wav.Len())
		return wav.Close()
	}
	return nil
}

func loadSave(emu *dmg.Emulator, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := emu.LoadSaveRAM(data); err != nil {
		return fmt.Errorf("loading save file: %w", err)
	}
	slog.Info("Loaded save RAM", "path", path, "size", len(data))
	return nil
}

func writeSave(emu *dmg.Emulator, path string) error {
	data := emu.DumpSaveRAM()
	if data == nil {
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing save file: %w", err)
	}
	slog.Info("Wrote save RAM", "path", path, "size", len(data))
	return nil
}
