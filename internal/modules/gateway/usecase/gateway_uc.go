// Package usecase implements the business logic for the gateway module.
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	partyDomain "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
)

const gameCode = "party_game"

// Websocket commands. Each REQ is answered with the matching RSP.
const (
	CmdGetState      = "PartyGameGetStateREQ"
	CmdTakeWager     = "PartyGameTakeWagerREQ"
	CmdPerformAction = "PartyGamePerformActionREQ"
	CmdFlagRound     = "PartyGameFlagRoundREQ"
)

// GatewayUseCase turns websocket commands into party game calls.
type GatewayUseCase struct {
	game partyDomain.PartyGameUseCase
}

func NewGatewayUseCase(game partyDomain.PartyGameUseCase) *GatewayUseCase {
	return &GatewayUseCase{game: game}
}

// RequestEnvelope defines the standard request structure
type RequestEnvelope struct {
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data"`
}

// ResponseEnvelope is what every reply looks like on the wire.
type ResponseEnvelope struct {
	GameCode string      `json:"game_code"`
	Command  string      `json:"command"`
	Data     interface{} `json:"data"`
}

// ErrorData is the body of a failed command.
type ErrorData struct {
	ErrorCode string            `json:"error_code"`
	Error     string            `json:"error"`
	Details   map[string]string `json:"details,omitempty"`
}

// HandleMessage runs one command. Domain failures are encoded into the reply;
// only malformed envelopes return an error.
func (uc *GatewayUseCase) HandleMessage(ctx context.Context, gameID string, userID int64, message []byte) ([]byte, error) {
	var req RequestEnvelope
	if err := json.Unmarshal(message, &req); err != nil {
		return nil, fmt.Errorf("invalid message format: %w", err)
	}
	if req.Command == "" {
		return nil, errors.New("missing command")
	}

	ctx = logger.WithFields(ctx, map[string]interface{}{
		"game_id": gameID,
		"user_id": userID,
		"command": req.Command,
	})

	var (
		data interface{}
		err  error
	)
	switch req.Command {
	case CmdGetState:
		data, err = uc.game.GetGameState(ctx, gameID)

	case CmdTakeWager:
		var payload struct {
			RoundID string `json:"roundId"`
			Answer  string `json:"answer"`
			Bet     *int64 `json:"bet"`
		}
		if err := json.Unmarshal(req.Data, &payload); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", req.Command, err)
		}
		data, err = uc.game.TakeWager(ctx, gameID, payload.RoundID, userID, payload.Answer, payload.Bet)

	case CmdPerformAction:
		var payload struct {
			RoundID        string `json:"roundId"`
			Action         string `json:"action"`
			TargetPlayerID *int64 `json:"targetPlayerId"`
		}
		if err := json.Unmarshal(req.Data, &payload); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", req.Command, err)
		}
		data, err = uc.game.PerformAction(ctx, gameID, payload.RoundID, userID, partyDomain.ActionType(payload.Action), payload.TargetPlayerID)

	case CmdFlagRound:
		var payload struct {
			RoundID string `json:"roundId"`
		}
		if err := json.Unmarshal(req.Data, &payload); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", req.Command, err)
		}
		err = uc.game.FlagRound(ctx, gameID, payload.RoundID, userID)
		data = map[string]interface{}{"roundId": payload.RoundID}

	default:
		logger.Warn(ctx).Msg("unknown party game command")
		return nil, fmt.Errorf("unknown command: %s", req.Command)
	}

	rsp := rspCommand(req.Command)
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("command failed")
		return json.Marshal(ResponseEnvelope{GameCode: gameCode, Command: rsp, Data: errorData(err)})
	}
	return json.Marshal(ResponseEnvelope{GameCode: gameCode, Command: rsp, Data: data})
}

func rspCommand(req string) string {
	if n := len(req); n > 3 && req[n-3:] == "REQ" {
		return req[:n-3] + "RSP"
	}
	return req
}

func errorData(err error) ErrorData {
	var de *partyDomain.Error
	if errors.As(err, &de) {
		return ErrorData{ErrorCode: de.Code, Error: de.Error(), Details: de.Metadata}
	}
	return ErrorData{ErrorCode: "INTERNAL_ERROR", Error: "internal error"}
}
