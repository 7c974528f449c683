package world

import "strings"

// BlockStatus is the material identifier the remote side reports for a cell,
// e.g. "minecraft:stone". Only air and water carry meaning here.
type BlockStatus string

const (
	Air  BlockStatus = "minecraft:air"
	Dirt BlockStatus = "minecraft:dirt"
)

const defaultNamespace = "minecraft:"

func (s BlockStatus) name() string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(string(s))), defaultNamespace)
}

func (s BlockStatus) IsAir() bool {
	switch s.name() {
	case "air", "cave_air", "void_air":
		return true
	}
	return false
}

// IsWater is true for anything water-like; those cells are never broken.
func (s BlockStatus) IsWater() bool {
	return strings.Contains(strings.ToLower(string(s)), "water")
}

// Same compares two materials ignoring the default namespace.
func (s BlockStatus) Same(o BlockStatus) bool {
	return s.name() == o.name()
}

// Qualified returns the material with the default namespace added when it
// has none.
func (s BlockStatus) Qualified() BlockStatus {
	v := strings.TrimSpace(string(s))
	if v == "" || strings.Contains(v, ":") {
		return BlockStatus(v)
	}
	return BlockStatus(defaultNamespace + v)
}
