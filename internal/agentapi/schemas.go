package agentapi

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const positionSchema = `{
  "type": "object",
  "required": ["x", "y", "z", "look_x", "look_y"],
  "properties": {
    "x": {"type": "number"},
    "y": {"type": "number"},
    "z": {"type": "number"},
    "look_x": {"type": "number"},
    "look_y": {"type": "number"}
  }
}`

const blockStatusSchema = `{
  "type": "object",
  "required": ["block"],
  "properties": {"block": {"type": "string"}}
}`

const findPathSchema = `{
  "type": "object",
  "required": ["positions"],
  "properties": {
    "positions": {
      "type": "array",
      "items": {
        "type": "array",
        "minItems": 3,
        "maxItems": 3,
        "items": {"type": "integer"}
      }
    }
  }
}`

const nextBlockSchema = `{
  "type": "object",
  "required": ["x", "y", "z"],
  "properties": {
    "x": {"type": "integer"},
    "y": {"type": "integer"},
    "z": {"type": "integer"}
  }
}`

// Entries without full coordinates are tolerated here and skipped later.
const nextBlocksSchema = `{
  "type": "object",
  "required": ["positions"],
  "properties": {
    "positions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "x": {"type": "integer"},
          "y": {"type": "integer"},
          "z": {"type": "integer"}
        }
      }
    }
  }
}`

var (
	schemaPosition    = mustCompile("position.schema.json", positionSchema)
	schemaBlockStatus = mustCompile("block_status.schema.json", blockStatusSchema)
	schemaFindPath    = mustCompile("find_path.schema.json", findPathSchema)
	schemaNextBlock   = mustCompile("next_block.schema.json", nextBlockSchema)
	schemaNextBlocks  = mustCompile("next_blocks.schema.json", nextBlocksSchema)
)

func mustCompile(name, src string) *jsonschema.Schema {
	s, err := jsonschema.CompileString(name, src)
	if err != nil {
		panic(fmt.Sprintf("agentapi: compile %s: %v", name, err))
	}
	return s
}
