package schema

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Instance context keys exposed to expressions. The set is closed: any other
// key is rejected with a LOOKUP_NOT_FOUND error at evaluation time.
const (
	InstanceKeyID           = "instanceId"
	InstanceKeyAppID        = "appId"
	InstanceKeyOwnerPartyID = "instanceOwnerPartyId"
)

// Instance holds the metadata of a single form instance. The ID has the
// canonical form "{ownerPartyID}/{instanceGUID}".
type Instance struct {
	ID           string `json:"id"`
	AppID        string `json:"appId"`
	OwnerPartyID string `json:"instanceOwnerPartyId"`
}

// ParseInstanceID splits and validates a canonical instance ID.
// The party ID must be a positive integer and the GUID a valid UUID.
func ParseInstanceID(id string) (partyID int, guid uuid.UUID, err error) {
	owner, rawGUID, ok := strings.Cut(id, "/")
	if !ok {
		return 0, uuid.Nil, NewErrorf(ErrCodeValidation,
			"invalid instance id %q: expected {partyId}/{instanceGuid}", id)
	}
	partyID, convErr := strconv.Atoi(owner)
	if convErr != nil || partyID <= 0 {
		return 0, uuid.Nil, NewErrorf(ErrCodeValidation,
			"invalid instance owner party id %q in instance id %q", owner, id)
	}
	guid, parseErr := uuid.Parse(rawGUID)
	if parseErr != nil {
		return 0, uuid.Nil, NewErrorf(ErrCodeValidation,
			"invalid instance guid %q in instance id %q", rawGUID, id).WithCause(parseErr)
	}
	return partyID, guid, nil
}

// Validate checks that the instance fields are well formed.
func (in *Instance) Validate() error {
	if in.ID == "" {
		return NewError(ErrCodeValidation, "instance id is empty")
	}
	if _, _, err := ParseInstanceID(in.ID); err != nil {
		return err
	}
	if in.AppID == "" {
		return NewError(ErrCodeValidation, "instance app id is empty")
	}
	if in.OwnerPartyID == "" {
		return NewError(ErrCodeValidation, "instance owner party id is empty")
	}
	return nil
}

// ContextValue returns the value for one of the closed instance context keys.
// The bool result reports whether the key is part of the closed set.
func (in *Instance) ContextValue(key string) (string, bool) {
	switch key {
	case InstanceKeyID:
		return in.ID, true
	case InstanceKeyAppID:
		return in.AppID, true
	case InstanceKeyOwnerPartyID:
		return in.OwnerPartyID, true
	default:
		return "", false
	}
}

// InstanceContextKeys lists the closed set of keys, in declaration order.
// Used for error messages when an unknown key is requested.
func InstanceContextKeys() []string {
	return []string{InstanceKeyID, InstanceKeyAppID, InstanceKeyOwnerPartyID}
}
