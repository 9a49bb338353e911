package protocol

import "narcosim.ai/internal/sim/engine"

// HELLO (client -> server)
type HelloMsg struct {
	Type              string   `json:"type"`
	ProtocolVersion   string   `json:"protocol_version"`
	SupportedVersions []string `json:"supported_versions,omitempty"`
	PlayerName        string   `json:"player_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	GameID          string         `json:"game_id"`
	Game            GameParams     `json:"game"`
	Catalogs        CatalogDigests `json:"catalogs"`
	Commands        []string       `json:"commands"`
}

type GameParams struct {
	Seed        int64   `json:"seed"`
	Day         int     `json:"day"`
	LegacyGoal  string  `json:"legacy_goal,omitempty"`
	TargetWorth float64 `json:"target_net_worth"`
	HeatMax     float64 `json:"heat_max"`
}

type CatalogDigests struct {
	Commodities string `json:"commodities"`
	Regions     string `json:"regions"`
	Currencies  string `json:"currencies"`
	Rivals      string `json:"rivals"`
	Skills      string `json:"skills"`
	Events      string `json:"events"`
}

// CMD (client -> server)
type CmdMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	ID              string         `json:"id"`
	Command         engine.Command `json:"command"`
}

// RESULT (server -> client), one per CMD.
type ResultMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	ID              string        `json:"id"`
	ErrorCode       string        `json:"error_code,omitempty"`
	Result          engine.Result `json:"result"`
}

// STATE (server -> client) follows WELCOME and every RESULT.
type StateMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Day             int         `json:"day"`
	View            engine.View `json:"view"`
}

// ERROR (server -> client) reports a message the server could not route.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewResult(id string, res engine.Result) ResultMsg {
	return ResultMsg{
		Type:            TypeResult,
		ProtocolVersion: Version,
		ID:              id,
		ErrorCode:       CodeForKind(res.Kind),
		Result:          res,
	}
}

func NewState(v engine.View) StateMsg {
	day := 0
	if v.State != nil {
		day = v.State.Day
	}
	return StateMsg{Type: TypeState, ProtocolVersion: Version, Day: day, View: v}
}

func NewError(id, code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, ID: id, Code: code, Message: msg}
}
