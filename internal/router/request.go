package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ruminaider/profilepop/internal/profiles"
)

var (
	// ErrUnknownAction is returned by Decode for an action no handler serves.
	ErrUnknownAction = errors.New("unknown action")
	// ErrMalformed is returned by Decode for bodies that are not a request
	// object.
	ErrMalformed = errors.New("malformed request")
)

// Action names a request on the wire.
type Action string

const (
	ActionSwitchProfile   Action = "switchProfile"
	ActionGetProfiles     Action = "getProfiles"
	ActionSaveProfile     Action = "saveProfile"
	ActionDeleteProfile   Action = "deleteProfile"
	ActionCheckLicense    Action = "checkLicense"
	ActionPurchasePro     Action = "purchasePro"
	ActionQuickSwitch     Action = "quickSwitch"
	ActionExportProfiles  Action = "exportProfiles"
	ActionImportProfiles  Action = "importProfiles"
	ActionActivateLicense Action = "activateLicense"
	ActionResetProfiles   Action = "resetProfiles"
)

// Request is one of the request types declared in this file.
type Request interface {
	action() Action
}

// ActionOf returns the wire name of req.
func ActionOf(req Request) Action {
	return req.action()
}

// SwitchProfile switches by id. Older clients send the whole profile instead.
type SwitchProfile struct {
	ProfileID profiles.ID       `json:"profileId,omitempty"`
	Profile   *profiles.Profile `json:"profile,omitempty"`
}

type GetProfiles struct{}

type SaveProfile struct {
	Profile profiles.Profile `json:"profile"`
}

type DeleteProfile struct {
	ProfileID profiles.ID `json:"profileId"`
}

type CheckLicense struct{}

type PurchasePro struct{}

// QuickSwitch switches to the profile in the given 1-based position.
type QuickSwitch struct {
	Slot int `json:"slot"`
}

type ExportProfiles struct{}

// ImportProfiles carries an export document verbatim.
type ImportProfiles struct {
	Document json.RawMessage `json:"document"`
}

type ActivateLicense struct {
	Key string `json:"key"`
}

type ResetProfiles struct{}

func (SwitchProfile) action() Action   { return ActionSwitchProfile }
func (GetProfiles) action() Action     { return ActionGetProfiles }
func (SaveProfile) action() Action     { return ActionSaveProfile }
func (DeleteProfile) action() Action   { return ActionDeleteProfile }
func (CheckLicense) action() Action    { return ActionCheckLicense }
func (PurchasePro) action() Action     { return ActionPurchasePro }
func (QuickSwitch) action() Action     { return ActionQuickSwitch }
func (ExportProfiles) action() Action  { return ActionExportProfiles }
func (ImportProfiles) action() Action  { return ActionImportProfiles }
func (ActivateLicense) action() Action { return ActionActivateLicense }
func (ResetProfiles) action() Action   { return ActionResetProfiles }

var decoders = map[Action]func([]byte) (Request, error){
	ActionSwitchProfile:   decodeAs[SwitchProfile],
	ActionGetProfiles:     decodeAs[GetProfiles],
	ActionSaveProfile:     decodeAs[SaveProfile],
	ActionDeleteProfile:   decodeAs[DeleteProfile],
	ActionCheckLicense:    decodeAs[CheckLicense],
	ActionPurchasePro:     decodeAs[PurchasePro],
	ActionQuickSwitch:     decodeAs[QuickSwitch],
	ActionExportProfiles:  decodeAs[ExportProfiles],
	ActionImportProfiles:  decodeAs[ImportProfiles],
	ActionActivateLicense: decodeAs[ActivateLicense],
	ActionResetProfiles:   decodeAs[ResetProfiles],
}

func decodeAs[T Request](data []byte) (Request, error) {
	var req T
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return req, nil
}

// Decode parses a wire request of the form {"action": "...", ...}.
func Decode(data []byte) (Request, error) {
	var env struct {
		Action Action `json:"action"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Action == "" {
		return nil, fmt.Errorf("%w: missing action", ErrMalformed)
	}
	decode, ok := decoders[env.Action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
	}
	return decode(data)
}

// Encode renders req in wire form.
func Encode(req Request) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", req.action(), err)
	}
	head, err := json.Marshal(map[string]Action{"action": req.action()})
	if err != nil {
		return nil, err
	}
	if bytes.Equal(body, []byte("{}")) {
		return head, nil
	}
	// Splice the request fields after the action field.
	out := append(head[:len(head)-1], ',')
	return append(out, body[1:]...), nil
}
