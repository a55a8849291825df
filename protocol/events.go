// Package protocol defines the events exchanged between the server and its
// peers, the codecs that frame them, and the deliveries the world emits.
package protocol

// Commands sent by peers.
const (
	MoveCharacterCmd    = "move-character"
	StopCharacterCmd    = "stop-character"
	AdminPaintCmd       = "admin-paint"
	SpawnMinionCmd      = "spawn-minion"
	DespawnCharacterCmd = "despawn-character"
	ExploredAreaCmd     = "explored-area"
	ChangeImageCmd      = "change-image"
	AdminFreezeAllCmd   = "admin-freeze-all"
)

// Events sent by the server.
const (
	InitializeCharacters = "initialize-characters"
	InitializeGameState  = "initialize-game-state"
	DisconnectUser       = "disconnect-user"
	MoveCharacterEvt     = "move-character"
	StopCharacterEvt     = "stop-character"
	AdminPaintEvt        = "admin-paint"
	DespawnCharacterEvt  = "despawn-character"
	ChangeImageEvt       = "change-image"
	Freeze               = "freeze"
)

// Waypoint is one tile of a travel path.
type Waypoint struct {
	TileRow int `json:"tileRow"`
	TileCol int `json:"tileCol"`
}

// CharacterState is the wire view of one character.
type CharacterState struct {
	ID           string `json:"id"`
	PlayerID     string `json:"playerId"`
	Kind         string `json:"kind"`
	TileRow      int    `json:"tileRow"`
	TileCol      int    `json:"tileCol"`
	ShareVision  bool   `json:"shareVision"`
	AdminSpawned bool   `json:"adminSpawned"`
	ImageName    string `json:"imageName"`
	ImageFile    []byte `json:"imageFile,omitempty"`
}

// MoveCharacter carries a path ordered goal first, start last.
type MoveCharacter struct {
	ID   string     `json:"id"`
	Path []Waypoint `json:"path"`
}

// StopCharacter halts a character. The tile is optional.
type StopCharacter struct {
	ID      string `json:"id"`
	TileRow *int   `json:"tileRow,omitempty"`
	TileCol *int   `json:"tileCol,omitempty"`
}

type AdminPaint struct {
	Row      int    `json:"row"`
	Col      int    `json:"col"`
	ColorHex string `json:"colorHex"`
}

type SpawnMinion struct {
	ImageName string `json:"imageName"`
	TileRow   int    `json:"tileRow"`
	TileCol   int    `json:"tileCol"`
}

type DespawnCharacter struct {
	CharacterID string `json:"characterId"`
}

type TilePosition struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// ExploredArea reports explored flags anchored at TopLeft.
type ExploredArea struct {
	TopLeft TilePosition `json:"topLeft"`
	Area    [][]bool     `json:"area"`
}

type ChangeImage struct {
	CharacterID string `json:"characterId"`
	Name        string `json:"name"`
	FileType    string `json:"fileType"`
	File        []byte `json:"file,omitempty"`
}

type DisconnectUserData struct {
	PlayerID string `json:"playerId"`
}

type FreezeData struct {
	Frozen bool `json:"frozen"`
}

type PlayerData struct {
	ID    string `json:"id"`
	Admin bool   `json:"admin"`
}

type MapData struct {
	HexPixels []string `json:"hexPixels"`
	Rows      int      `json:"rows"`
	Cols      int      `json:"cols"`
}

type GameTile struct {
	Explored          bool   `json:"explored"`
	PaintOverColorHex string `json:"paintOverColorHex"`
}

type GameStateData struct {
	Tiles                   [][]GameTile `json:"tiles"`
	FreezeCharacterMovement bool         `json:"freezeCharacterMovement"`
}

// GameStateSnapshot is the full handoff a joining transport receives.
type GameStateSnapshot struct {
	PlayerData PlayerData    `json:"playerData"`
	MapData    MapData       `json:"mapData"`
	GameState  GameStateData `json:"gameState"`
}

// Inbound maps each peer command to its payload type.
func Inbound() map[string]any {
	return map[string]any{
		MoveCharacterCmd:    MoveCharacter{},
		StopCharacterCmd:    StopCharacter{},
		AdminPaintCmd:       AdminPaint{},
		SpawnMinionCmd:      SpawnMinion{},
		DespawnCharacterCmd: DespawnCharacter{},
		ExploredAreaCmd:     ExploredArea{},
		ChangeImageCmd:      ChangeImage{},
		AdminFreezeAllCmd:   struct{}{},
	}
}

// Outbound maps each server event to its payload type.
func Outbound() map[string]any {
	return map[string]any{
		InitializeCharacters: []CharacterState{},
		InitializeGameState:  GameStateSnapshot{},
		DisconnectUser:       DisconnectUserData{},
		MoveCharacterEvt:     MoveCharacter{},
		StopCharacterEvt:     StopCharacter{},
		AdminPaintEvt:        AdminPaint{},
		DespawnCharacterEvt:  DespawnCharacter{},
		ChangeImageEvt:       ChangeImage{},
		Freeze:               FreezeData{},
	}
}
