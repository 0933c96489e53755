package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrUnauthorized    = "E_UNAUTHORIZED"

	// Command layer.
	ErrUnknownCommand = "E_UNKNOWN_COMMAND"
	ErrNoPermission   = "E_NO_PERMISSION"
	ErrBadInvocation  = "E_BAD_INVOCATION"
	ErrAlreadyActive  = "E_ALREADY_ACTIVE"
	ErrChargeFailed   = "E_CHARGE_FAILED"
	ErrDependency     = "E_DEPENDENCY_MISSING"
	ErrRespawnFailed  = "E_RESPAWN_FAILED"
	ErrInternal       = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrUnauthorized:    {},
	ErrUnknownCommand:  {},
	ErrNoPermission:    {},
	ErrBadInvocation:   {},
	ErrAlreadyActive:   {},
	ErrChargeFailed:    {},
	ErrDependency:      {},
	ErrRespawnFailed:   {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
