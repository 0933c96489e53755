package commands

import (
	"errors"

	"respawnbradley.gg/internal/config"
	"respawnbradley.gg/internal/lang"
	"respawnbradley.gg/internal/protocol"
	"respawnbradley.gg/internal/respawn"
)

const (
	RespawnBradley = "respawnbradley"
	PluginName     = "RespawnBradley"
)

type ConfigSource interface {
	Current() config.Config
}

// NewRespawnBradley builds the command handler. Each invocation takes a fresh
// config snapshot so reloads apply to the next call only.
func NewRespawnBradley(src ConfigSource, catalog *lang.Catalog, langOf func(string) string, deps respawn.Deps) Handler {
	return func(caller respawn.Player, args []string) Result {
		cfg := src.Current()
		d := deps
		d.Messages = lang.Renderer{
			Catalog: catalog,
			Colors: lang.Colors{
				Msg: cfg.Messaging.MsgColor,
				Hil: cfg.Messaging.HilColor,
				Err: cfg.Messaging.ErrColor,
			},
			LangOf: langOf,
		}
		res := respawn.New(WorkflowConfig(cfg.Options), d).Execute(caller, args)
		return fromWorkflow(res)
	}
}

func WorkflowConfig(o config.Options) respawn.Config {
	return respawn.Config{
		UseLedger:        o.UseServerRewards,
		ChargeOnDirect:   o.ChargeOnPlayerCommand,
		ChargeOnIndirect: o.ChargeOnServerCommand,
		RefundOnDirect:   o.RefundOnPlayerCommand,
		RefundOnIndirect: o.RefundOnServerCommand,
		LockOnRespawn:    o.LockBradleyOnRespawn,
		Fee:              o.RespawnCosts,
		Currency:         o.CurrencySymbol,
	}
}

func fromWorkflow(res respawn.Result) Result {
	out := Result{
		Result:   string(res.Outcome),
		Reason:   res.Reason,
		Charged:  res.Charged,
		Refunded: res.Refunded,
		Err:      res.Err,
		Code:     codeFor(res),
	}
	return out
}

func codeFor(res respawn.Result) string {
	switch res.Outcome {
	case respawn.OutcomeDenied:
		if res.Reason == respawn.ReasonBadInvocation {
			return protocol.ErrBadInvocation
		}
		return protocol.ErrNoPermission
	case respawn.OutcomeAlreadyActive:
		return protocol.ErrAlreadyActive
	case respawn.OutcomeChargeFailed:
		if errors.Is(res.Err, respawn.ErrDependencyMissing) {
			return protocol.ErrDependency
		}
		return protocol.ErrChargeFailed
	case respawn.OutcomeRespawnFailed:
		return protocol.ErrRespawnFailed
	default:
		return ""
	}
}

type PermissionRegistry interface {
	Register(name, owner string) error
}

func RegisterPermissions(reg PermissionRegistry) error {
	for _, p := range []string{respawn.PermUse, respawn.PermNoLock} {
		if err := reg.Register(p, PluginName); err != nil {
			return err
		}
	}
	return nil
}
