package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"narcosim.ai/internal/protocol"
	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/engine"
	"narcosim.ai/internal/sim/tuning"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// roundTrip turns a Go message into the generic form the validator expects.
func roundTrip(t *testing.T, msg any) any {
	t.Helper()
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return v
}

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile(t, "hello.schema.json")
	welcomeSchema := compile(t, "welcome.schema.json")
	cmdSchema := compile(t, "cmd.schema.json")
	resultSchema := compile(t, "result.schema.json")
	errorSchema := compile(t, "error.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "player_name":"bot1"
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "session_id":"S1",
	  "game_id":"game_1",
	  "game":{"seed":1337,"day":1,"target_net_worth":1000000,"heat_max":100},
	  "catalogs":{
	    "commodities":"deadbeef",
	    "regions":"deadbeef",
	    "currencies":"deadbeef",
	    "rivals":"deadbeef",
	    "skills":"deadbeef",
	    "events":"deadbeef"
	  },
	  "commands":["TRAVEL","BUY","END_TURN"]
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var cmd any
	_ = json.Unmarshal([]byte(`{
	  "type":"CMD",
	  "protocol_version":"1.0",
	  "id":"C1",
	  "command":{"type":"buy","commodity":"weed","quality":"STANDARD","qty":10}
	}`), &cmd)
	validate(cmdSchema, cmd)

	var result any
	_ = json.Unmarshal([]byte(`{
	  "type":"RESULT",
	  "protocol_version":"1.0",
	  "id":"C1",
	  "error_code":"E_NO_RESOURCE",
	  "result":{"ok":false,"code":"INSUFFICIENT_FUNDS","kind":"InsufficientResource","reason":"need 5000","day":3}
	}`), &result)
	validate(resultSchema, result)

	validate(errorSchema, roundTrip(t, protocol.NewError("C9", protocol.ErrProtoBadRequest, "bad json")))
}

func TestSchemas_RejectBadCommands(t *testing.T) {
	cmdSchema := compile(t, "cmd.schema.json")
	bad := []string{
		`{"type":"CMD","protocol_version":"1.0","id":"C1","command":{"type":"DANCE"}}`,
		`{"type":"CMD","protocol_version":"1.0","id":"C1","command":{"type":"BUY","qty":0}}`,
		`{"type":"CMD","protocol_version":"1.0","command":{"type":"END_TURN"}}`,
		`{"type":"CMD","protocol_version":"1.0","id":"C1","command":{"type":"BUY","colour":"red"}}`,
	}
	for _, raw := range bad {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if err := cmdSchema.Validate(v); err == nil {
			t.Fatalf("expected rejection: %s", raw)
		}
	}
}

func TestSchemas_EngineMessages(t *testing.T) {
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	e, err := engine.New(engine.Config{GameID: "schema", Seed: 7, Tuning: tuning.Defaults(), Catalogs: cats})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	cmdSchema := compile(t, "cmd.schema.json")
	resultSchema := compile(t, "result.schema.json")
	stateSchema := compile(t, "state.schema.json")

	cmds := []engine.Command{
		{Type: engine.CmdBuy, Commodity: "weed", Quality: "STANDARD", Qty: 5},
		{Type: engine.CmdSell, Commodity: "heroin", Quality: "PURE", Qty: 1},
		{Type: engine.CmdEndTurn},
	}
	for i, c := range cmds {
		msg := protocol.CmdMsg{Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, ID: "C" + string(rune('1'+i)), Command: c}
		if err := cmdSchema.Validate(roundTrip(t, msg)); err != nil {
			t.Fatalf("cmd %s: %v", c.Type, err)
		}
		res := e.Do(c)
		if err := resultSchema.Validate(roundTrip(t, protocol.NewResult(msg.ID, res))); err != nil {
			t.Fatalf("result %s: %v", c.Type, err)
		}
		if err := stateSchema.Validate(roundTrip(t, protocol.NewState(e.View()))); err != nil {
			t.Fatalf("state after %s: %v", c.Type, err)
		}
	}
}
