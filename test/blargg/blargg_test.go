// Package blargg runs Blargg's cpu_instrs test ROMs when they are
// available locally. The ROMs report results over the serial port, so
// each case runs frames until "Passed" or "Failed" shows up in the
// captured output.
package blargg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dcanelhas/go-dmg/dmg"
)

type testCase struct {
	rom       string
	maxFrames int
}

func blarggTests() []testCase {
	cases := []testCase{
		{"01-special.gb", 1000},
		{"02-interrupts.gb", 1000},
		{"03-op sp,hl.gb", 1500},
		{"04-op r,imm.gb", 1500},
		{"05-op rp.gb", 2000},
		{"06-ld r,r.gb", 1000},
		{"07-jr,jp,call,ret,rst.gb", 1000},
		{"08-misc instrs.gb", 1000},
		{"09-op r,r.gb", 3000},
		{"10-bit ops.gb", 4000},
		{"11-op a,(hl).gb", 5000},
	}
	return cases
}

func romDir() string {
	if dir := os.Getenv("DMG_TEST_ROMS"); dir != "" {
		return dir
	}
	return "../../test-roms"
}

func TestBlarggCPUInstrs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test ROMs in short mode")
	}

	for _, tc := range blarggTests() {
		t.Run(tc.rom, func(t *testing.T) {
			path := filepath.Join(romDir(), tc.rom)
			data, err := os.ReadFile(path)
			if err != nil {
				t.Skipf("test ROM not available: %v", err)
			}

			emu, err := dmg.New(data)
			if err != nil {
				t.Fatalf("loading ROM: %v", err)
			}

			var output strings.Builder
			for frame := 0; frame < tc.maxFrames; frame++ {
				if err := emu.RunUntilFrame(); err != nil {
					t.Fatalf("frame %d: %v\noutput so far:\n%s", frame, err, output.String())
				}
				for {
					b, ok := emu.PollSerial()
					if !ok {
						break
					}
					output.WriteByte(b)
				}

				if strings.Contains(output.String(), "Passed") {
					return
				}
				if strings.Contains(output.String(), "Failed") {
					t.Fatalf("test ROM reported failure:\n%s", output.String())
				}
			}

			t.Fatalf("no verdict after %d frames, output:\n%s", tc.maxFrames, output.String())
		})
	}
}
