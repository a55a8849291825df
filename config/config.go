package config

import "time"

// Tile and Map Geometry
const (
	TILE_SIZE_SHIFT = 6                    // Pixel size of one tile is 1 << TILE_SIZE_SHIFT
	TILE_SIZE       = 1 << TILE_SIZE_SHIFT // Pixel size of one tile (64)
	SOLID_HEX       = "000000ff"           // Map pixel color that marks a solid tile
	FLOOR_HEX       = "ffffffff"           // Map pixel color used for open floor by the ASCII loader
	WINDOW_HEX      = "0000ffff"           // Default map pixel color that marks a solid window tile
)

// Character Light
const (
	RadiantLightDistance = 5 // Flood steps lit Radiant around a vision-sharing character
	DimLightDistance     = 4 // Additional flood steps lit Dim beyond the radiant ring
)

// Character Movement (peer side)
const (
	CharacterMoveSpeed = 0.1 // Pixels per millisecond
)

// Ownership
const (
	MaxPlayerCharacters = 2 // Non-admin sessions may own at most this many characters
)

// WebSocket heartbeat settings
const (
	PING_INTERVAL   = 10 * time.Second
	PONG_WAIT       = 60 * time.Second
	WRITE_WAIT      = 10 * time.Second
	SEND_BUFFER     = 256
	MAX_MESSAGE_LEN = 1 << 20 // change-image payloads carry image bytes
)
