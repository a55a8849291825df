package level

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"darkest-dnd-server/config"
)

// Map is a decoded map image: its size and row-major RGBA hex pixel table.
type Map struct {
	Width  int
	Height int
	Pixels []string
}

// Grid builds the tile grid for this map.
func (m Map) Grid(windowHex string) (*Grid, error) {
	return NewGrid(m.Width, m.Height, m.Pixels, windowHex)
}

// DecodePNG reads a PNG map, one pixel per tile.
func DecodePNG(r io.Reader) (Map, error) {
	img, err := png.Decode(r)
	if err != nil {
		return Map{}, fmt.Errorf("decode png map: %w", err)
	}
	return FromImage(img), nil
}

// FromImage converts any image to a pixel table using non-premultiplied RGBA.
func FromImage(img image.Image) Map {
	b := img.Bounds()
	m := Map{Width: b.Dx(), Height: b.Dy(), Pixels: make([]string, 0, b.Dx()*b.Dy())}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			m.Pixels = append(m.Pixels, fmt.Sprintf("%02x%02x%02x%02x", c.R, c.G, c.B, c.A))
		}
	}
	return m
}

// ParseASCII reads a text map: '#' is a wall, 'W' a window, anything else
// floor. Every line must have the same length; blank lines are skipped.
func ParseASCII(text string, windowHex string) (Map, error) {
	var m Map
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		width := utf8.RuneCountInString(line)
		if m.Width == 0 {
			m.Width = width
		} else if width != m.Width {
			return Map{}, fmt.Errorf("ascii map line %d: width %d, want %d", m.Height+1, width, m.Width)
		}
		for _, ch := range line {
			switch ch {
			case '#':
				m.Pixels = append(m.Pixels, config.SOLID_HEX)
			case 'W':
				m.Pixels = append(m.Pixels, windowHex)
			default:
				m.Pixels = append(m.Pixels, config.FLOOR_HEX)
			}
		}
		m.Height++
	}
	if err := sc.Err(); err != nil {
		return Map{}, fmt.Errorf("read ascii map: %w", err)
	}
	if m.Width == 0 || m.Height == 0 {
		return Map{}, fmt.Errorf("ascii map is empty")
	}
	return m, nil
}

// LoadFile reads a .png or .txt map from disk.
func LoadFile(path string, windowHex string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return Map{}, fmt.Errorf("open map: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return DecodePNG(f)
	case ".txt":
		data, err := io.ReadAll(f)
		if err != nil {
			return Map{}, fmt.Errorf("read map: %w", err)
		}
		return ParseASCII(string(data), windowHex)
	}
	return Map{}, fmt.Errorf("map %s: unsupported extension", path)
}

// ErrMapAssetMissing is returned when a preset without a built-in map has
// no image on disk and no file was given.
var ErrMapAssetMissing = errors.New("map image not found")

// LoadPreset resolves the map for a preset: an explicit file wins, then the
// preset's built-in text, then assets/maps/<preset file>.
func LoadPreset(p config.MapPreset, file string, windowHex string) (Map, error) {
	switch {
	case file != "":
		return LoadFile(file, windowHex)
	case p.ASCII != "":
		return ParseASCII(p.ASCII, windowHex)
	}
	path := filepath.Join("assets", "maps", p.File)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Map{}, fmt.Errorf("preset %s: %s missing, set MAP_FILE: %w", p.Name, path, ErrMapAssetMissing)
	}
	return LoadFile(path, windowHex)
}
