package config

import (
	_ "embed"
	"fmt"
	"sort"
)

//go:embed maps/small.txt
var smallMapASCII string

// DefaultPresetName is the preset used when MAP_PRESET is unset.
const DefaultPresetName = "small"

// Spawn is a preconfigured character placement for a map.
type Spawn struct {
	ImageName string `json:"imageName"`
	TileRow   int    `json:"tileRow"`
	TileCol   int    `json:"tileCol"`
}

// MapPreset describes one playable map: its source image and the characters
// handed out to sessions when they first connect. Only small carries a
// built-in map; the others need assets/maps/<File> on disk or MAP_FILE.
type MapPreset struct {
	Name         string
	File         string // PNG file name under assets/maps
	ASCII        string // Built-in map text, used when no file is configured
	Enemies      []Spawn
	PlayerSpawns []Spawn
}

var defaultHeroes = []Spawn{
	{ImageName: "highwayman", TileRow: 4, TileCol: 2},
	{ImageName: "hellion", TileRow: 2, TileCol: 2},
	{ImageName: "jester", TileRow: 2, TileCol: 4},
	{ImageName: "occultist", TileRow: 4, TileCol: 4},
}

// Presets lists every known map keyed by name.
var Presets = map[string]MapPreset{
	"small": {
		Name:  "small",
		File:  "small.png",
		ASCII: smallMapASCII,
		Enemies: []Spawn{
			{ImageName: "bandit_fuselier", TileRow: 3, TileCol: 3},
			{ImageName: "bandit_cutthroat", TileRow: 10, TileCol: 10},
		},
		PlayerSpawns: defaultHeroes,
	},
	// Needs MAP_FILE or assets/maps/old_road.png.
	"old_road": {
		Name: "old_road",
		File: "old_road.png",
		Enemies: []Spawn{
			{ImageName: "bandit_fuselier", TileRow: 6, TileCol: 35},
			{ImageName: "bandit_cutthroat", TileRow: 13, TileCol: 33},
			{ImageName: "bandit_bloodletter", TileRow: 16, TileCol: 61},
		},
		PlayerSpawns: defaultHeroes,
	},
	// Needs MAP_FILE or assets/maps/weald.png.
	"weald": {
		Name: "weald",
		File: "weald.png",
		Enemies: []Spawn{
			{ImageName: "spitter", TileRow: 38, TileCol: 54},
			{ImageName: "spitter", TileRow: 38, TileCol: 54},
			{ImageName: "webber", TileRow: 38, TileCol: 54},
			{ImageName: "webber", TileRow: 38, TileCol: 54},
			{ImageName: "fungal_scratcher", TileRow: 73, TileCol: 42},
			{ImageName: "fungal_scratcher", TileRow: 73, TileCol: 42},
			{ImageName: "fungal_artillery", TileRow: 73, TileCol: 42},
			{ImageName: "fungal_artillery", TileRow: 73, TileCol: 42},
			{ImageName: "large_slime", TileRow: 42, TileCol: 144},
			{ImageName: "crone", TileRow: 39, TileCol: 138},
			{ImageName: "abomination", TileRow: 47, TileCol: 74},
		},
		PlayerSpawns: []Spawn{
			{ImageName: "highwayman", TileRow: 48, TileCol: 2},
			{ImageName: "hellion", TileRow: 50, TileCol: 2},
			{ImageName: "jester", TileRow: 50, TileCol: 4},
			{ImageName: "occultist", TileRow: 48, TileCol: 4},
		},
	},
	// Needs MAP_FILE or assets/maps/ruins.png.
	"ruins": {
		Name: "ruins",
		File: "ruins.png",
		Enemies: []Spawn{
			{ImageName: "cultist_brawler", TileRow: 18, TileCol: 19},
			{ImageName: "cultist_brawler", TileRow: 18, TileCol: 23},
			{ImageName: "cultist_acolyte", TileRow: 12, TileCol: 19},
			{ImageName: "cultist_acolyte", TileRow: 12, TileCol: 23},
			{ImageName: "bone_soldier", TileRow: 23, TileCol: 42},
			{ImageName: "bone_defender", TileRow: 24, TileCol: 42},
			{ImageName: "bone_arbalist", TileRow: 22, TileCol: 46},
			{ImageName: "bone_arbalist", TileRow: 26, TileCol: 46},
			{ImageName: "bone_courtier", TileRow: 29, TileCol: 43},
			{ImageName: "madman", TileRow: 51, TileCol: 7},
			{ImageName: "madman", TileRow: 55, TileCol: 7},
			{ImageName: "goul", TileRow: 55, TileCol: 30},
			{ImageName: "bone_rabble", TileRow: 54, TileCol: 29},
			{ImageName: "bone_rabble", TileRow: 52, TileCol: 28},
			{ImageName: "bone_rabble", TileRow: 58, TileCol: 27},
		},
		PlayerSpawns: []Spawn{
			{ImageName: "highwayman", TileRow: 1, TileCol: 9},
			{ImageName: "hellion", TileRow: 1, TileCol: 10},
			{ImageName: "jester", TileRow: 2, TileCol: 10},
			{ImageName: "occultist", TileRow: 2, TileCol: 10},
		},
	},
	// Needs MAP_FILE or assets/maps/ruins2.png.
	"ruins2": {
		Name: "ruins2",
		File: "ruins2.png",
		Enemies: []Spawn{
			{ImageName: "gargoyle", TileRow: 14, TileCol: 64},
			{ImageName: "gargoyle", TileRow: 14, TileCol: 61},
			{ImageName: "gargoyle", TileRow: 17, TileCol: 64},
			{ImageName: "gargoyle", TileRow: 17, TileCol: 61},
			{ImageName: "gargoyle", TileRow: 19, TileCol: 51},
			{ImageName: "gargoyle", TileRow: 24, TileCol: 51},
			{ImageName: "gargoyle", TileRow: 24, TileCol: 54},
			{ImageName: "gargoyle", TileRow: 24, TileCol: 57},
			{ImageName: "gargoyle", TileRow: 19, TileCol: 54},
			{ImageName: "collector", TileRow: 11, TileCol: 14},
			{ImageName: "prophet", TileRow: 41, TileCol: 28},
			{ImageName: "madman", TileRow: 37, TileCol: 33},
			{ImageName: "madman", TileRow: 40, TileCol: 30},
			{ImageName: "cultist_acolyte", TileRow: 44, TileCol: 24},
			{ImageName: "cultist_acolyte", TileRow: 39, TileCol: 22},
		},
		PlayerSpawns: []Spawn{
			{ImageName: "highwayman", TileRow: 1, TileCol: 61},
			{ImageName: "hellion", TileRow: 2, TileCol: 61},
			{ImageName: "jester", TileRow: 3, TileCol: 61},
			{ImageName: "occultist", TileRow: 4, TileCol: 61},
		},
	},
}

// LookupPreset returns the named preset or an error listing the known names.
func LookupPreset(name string) (MapPreset, error) {
	p, ok := Presets[name]
	if !ok {
		return MapPreset{}, fmt.Errorf("unknown map preset %q (known: %v)", name, PresetNames())
	}
	return p, nil
}

// PresetNames returns the sorted preset names.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
