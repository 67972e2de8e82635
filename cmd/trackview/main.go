// Trajectory viewer - replays walker trajectory CSVs in 3D.
//
// Usage: go run ./cmd/trackview out/cellwalk_Enzyme.csv out/cellwalk_Substrate.csv
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"path/filepath"
	"strings"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/cellwalk/telemetry"
)

const (
	windowWidth  = 1200
	windowHeight = 760
	panelWidth   = 300
)

var palette = []color.RGBA{
	{R: 40, G: 110, B: 200, A: 255},
	{R: 60, G: 170, B: 90, A: 255},
	{R: 200, G: 140, B: 30, A: 255},
	{R: 140, G: 80, B: 180, A: 255},
}

// boundColor marks walkers with time left on a capture.
var boundColor = color.RGBA{R: 220, G: 40, B: 40, A: 255}

// track is one species' replay.
type track struct {
	name   string
	color  color.RGBA
	frames []telemetry.Frame
}

func main() {
	minRadius := flag.Float64("min-radius", 0.01, "Smallest drawn walker radius in um")
	flag.Parse()
	if flag.NArg() == 0 {
		log.Fatal("usage: trackview [-min-radius r] trajectory.csv...")
	}

	var tracks []track
	frameCount := 0
	for i, path := range flag.Args() {
		rows, err := telemetry.ReadTrajectory(path)
		if err != nil {
			log.Fatalf("loading %s: %v", path, err)
		}
		tr := track{
			name:   speciesName(path),
			color:  palette[i%len(palette)],
			frames: telemetry.GroupFrames(rows),
		}
		frameCount = max(frameCount, len(tr.frames))
		tracks = append(tracks, tr)
	}
	if frameCount == 0 {
		log.Fatal("no trajectory rows to show")
	}

	rl.InitWindow(windowWidth, windowHeight, "cellwalk trajectories")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	camera := rl.Camera3D{
		Position:   rl.NewVector3(4, 3, 4),
		Target:     rl.NewVector3(0, 0, 0),
		Up:         rl.NewVector3(0, 1, 0),
		Fovy:       45,
		Projection: rl.CameraPerspective,
	}

	var frame float32
	var speed float32 = 1
	playing := false
	scale := float32(1)

	for !rl.WindowShouldClose() {
		if playing {
			frame += speed
			if int(frame) >= frameCount {
				frame = 0
			}
		}
		if rl.IsMouseButtonDown(rl.MouseButtonRight) {
			rl.UpdateCamera(&camera, rl.CameraOrbital)
		}
		current := int(frame)

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		rl.BeginMode3D(camera)
		rl.DrawGrid(10, 0.5)
		var bound, shown int
		for _, tr := range tracks {
			if current >= len(tr.frames) {
				continue
			}
			for _, r := range tr.frames[current].Rows {
				c := tr.color
				if r.Duration > 0 {
					c = boundColor
					bound++
				}
				radius := float32(max(r.R, *minRadius)) * scale
				rl.DrawSphere(rl.NewVector3(float32(r.X), float32(r.Z), float32(r.Y)), radius, c)
				shown++
			}
		}
		rl.EndMode3D()

		// Control panel
		panelX := float32(windowWidth - panelWidth)
		panelY := float32(10)
		rl.DrawRectangle(int32(panelX)-10, 0, panelWidth+10, windowHeight, rl.Fade(rl.LightGray, 0.6))

		rl.DrawText("Trajectories", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 30
		for _, tr := range tracks {
			rl.DrawRectangle(int32(panelX), int32(panelY)+2, 12, 12, tr.color)
			rl.DrawText(tr.name, int32(panelX)+18, int32(panelY), 16, rl.DarkGray)
			panelY += 20
		}
		rl.DrawRectangle(int32(panelX), int32(panelY)+2, 12, 12, boundColor)
		rl.DrawText("bound", int32(panelX)+18, int32(panelY), 16, rl.DarkGray)
		panelY += 30

		rl.DrawText("Frame", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newFrame := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: panelWidth - 80, Height: 20},
			"", "",
			frame, 0, float32(frameCount-1),
		)
		if newFrame != frame {
			frame = newFrame
			playing = false
		}
		rl.DrawText(fmt.Sprintf("%d/%d", current+1, frameCount), int32(panelX+panelWidth-75), int32(panelY+2), 14, rl.DarkGray)
		panelY += 35

		rl.DrawText("Speed (frames per draw)", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		speed = gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: panelWidth - 80, Height: 20},
			"", "",
			speed, 0.1, 10,
		)
		rl.DrawText(fmt.Sprintf("%.1f", speed), int32(panelX+panelWidth-75), int32(panelY+2), 14, rl.DarkGray)
		panelY += 35

		rl.DrawText("Walker scale", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		scale = gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: panelWidth - 80, Height: 20},
			"", "",
			scale, 0.1, 20,
		)
		rl.DrawText(fmt.Sprintf("%.1fx", scale), int32(panelX+panelWidth-75), int32(panelY+2), 14, rl.DarkGray)
		panelY += 40

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(playing, "Pause", "Play")) {
			playing = !playing
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Rewind") {
			frame = 0
		}
		panelY += 50

		t := 0.0
		for _, tr := range tracks {
			if current < len(tr.frames) {
				t = tr.frames[current].T
				break
			}
		}
		rl.DrawText(fmt.Sprintf("t = %.5f s", t), int32(panelX), int32(panelY), 16, rl.DarkGray)
		rl.DrawText(fmt.Sprintf("walkers %d  bound %d", shown, bound), int32(panelX), int32(panelY+20), 16, rl.DarkGray)

		rl.DrawText("Hold right mouse to orbit", 10, windowHeight-24, 14, rl.Gray)
		rl.EndDrawing()
	}
}

// speciesName takes the species from a <base>_<species>.csv file name.
func speciesName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.LastIndex(name, "_"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}
