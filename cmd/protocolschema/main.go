// Command protocolschema emits a JSON schema for every wire message so
// client implementations and protocol tests validate against the same
// machine-readable contract the server compiles from.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"hardmode/server/internal/protocol"
)

// wireContract collects every message shape under one schema document.
type wireContract struct {
	Input         protocol.InputMessage         `json:"input"`
	Attack        protocol.AttackMessage        `json:"attack"`
	AttackMonster protocol.AttackMonsterMessage `json:"attackMonster"`
	Ability       protocol.AbilityMessage       `json:"executeAbility"`
	Ping          protocol.PingMessage          `json:"ping"`

	Joined          protocol.JoinedMessage       `json:"joined"`
	State           protocol.StateMessage        `json:"state"`
	PlayerDamaged   protocol.DamagedMessage      `json:"playerDamaged"`
	PlayerKilled    protocol.PlayerKilledMessage `json:"playerKilled"`
	MonsterKilled   protocol.MonsterKilledMessage `json:"monsterKilled"`
	PlayerLevelUp   protocol.LevelUpMessage      `json:"playerLevelUp"`
	PlayerRespawned protocol.RespawnedMessage    `json:"playerRespawned"`
	Pong            protocol.PongMessage         `json:"pong"`
	Kicked          protocol.KickedMessage       `json:"kicked"`
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	if err := writeSchema(outPath, buildSchema()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(wireContract))
	schema.Title = "Hardmode Wire Protocol"
	schema.Description = fmt.Sprintf("Message shapes for protocol version %d", protocol.ProtocolVersion)
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
