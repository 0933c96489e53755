package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"respawnbradley.gg/internal/config"
	persistlog "respawnbradley.gg/internal/persistence/log"
	"respawnbradley.gg/internal/respawn"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	args := os.Args[2:]
	switch os.Args[1] {
	case "balance":
		balanceCmd(args)
	case "setbalance":
		setBalanceCmd(args)
	case "history":
		historyCmd(args)
	case "grant":
		grantCmd(args, true)
	case "revoke":
		grantCmd(args, false)
	case "perms":
		permsCmd(args)
	case "audit":
		auditCmd(args)
	case "migrate":
		migrateCmd(args)
	case "encounter":
		encounterCmd(args)
	case "respawn":
		respawnCmd(args)
	case "destroy":
		postCmd("destroy", "/admin/v1/encounter/destroy", args)
	case "cleanup":
		postCmd("cleanup", "/admin/v1/encounter/cleanup", args)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: admin <balance|setbalance|history|grant|revoke|perms|audit|migrate|encounter|respawn|destroy|cleanup> [flags]")
}

func fatal(code int, args ...any) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(code)
}

func balanceCmd(args []string) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	player := fs.String("player", "", "player id")
	_ = fs.Parse(args)
	if strings.TrimSpace(*player) == "" {
		fatal(2, "missing -player")
	}

	st, err := openStores(*dataDir)
	if err != nil {
		fatal(1, "open:", err)
	}
	defer st.Close()
	bal, err := st.rewards.Balance(context.Background(), *player)
	if err != nil {
		fatal(1, "balance:", err)
	}
	fmt.Printf("%s\t%s\n", *player, humanize.Comma(bal))
}

func setBalanceCmd(args []string) {
	fs := flag.NewFlagSet("setbalance", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	player := fs.String("player", "", "player id")
	points := fs.Int64("points", -1, "new balance")
	_ = fs.Parse(args)
	if strings.TrimSpace(*player) == "" || *points < 0 {
		fatal(2, "missing -player or -points")
	}

	st, err := openStores(*dataDir)
	if err != nil {
		fatal(1, "open:", err)
	}
	defer st.Close()
	if err := st.rewards.Set(context.Background(), *player, *points); err != nil {
		fatal(1, "set:", err)
	}
	fmt.Printf("%s\t%s\n", *player, humanize.Comma(*points))
}

func historyCmd(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	player := fs.String("player", "", "player id")
	limit := fs.Int("limit", 20, "max rows")
	_ = fs.Parse(args)
	if strings.TrimSpace(*player) == "" {
		fatal(2, "missing -player")
	}

	st, err := openStores(*dataDir)
	if err != nil {
		fatal(1, "open:", err)
	}
	defer st.Close()
	txs, err := st.rewards.History(context.Background(), *player, *limit)
	if err != nil {
		fatal(1, "history:", err)
	}
	for _, tx := range txs {
		fmt.Println(formatTx(tx.Seq, tx.Delta, tx.Balance, tx.Reason, tx.At))
	}
}

func formatTx(seq, delta, balance int64, reason, at string) string {
	when := at
	if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
		when = humanize.Time(t)
	}
	sign := "+"
	if delta < 0 {
		sign = "-"
		delta = -delta
	}
	return fmt.Sprintf("#%d\t%s%s\t= %s\t%s\t%s", seq, sign, humanize.Comma(delta), humanize.Comma(balance), reason, when)
}

func grantCmd(args []string, grant bool) {
	name := "revoke"
	if grant {
		name = "grant"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	player := fs.String("player", "", "player id")
	group := fs.String("group", "", "group name (instead of -player)")
	perm := fs.String("perm", respawn.PermUse, "permission")
	_ = fs.Parse(args)
	if (*player == "") == (*group == "") {
		fatal(2, "need exactly one of -player or -group")
	}

	st, err := openStores(*dataDir)
	if err != nil {
		fatal(1, "open:", err)
	}
	defer st.Close()

	switch {
	case grant && *player != "":
		err = st.perms.Grant(*player, *perm)
	case grant:
		err = st.perms.GrantGroup(*group, *perm)
	case *player != "":
		err = st.perms.Revoke(*player, *perm)
	default:
		err = st.perms.RevokeGroup(*group, *perm)
	}
	if err != nil {
		fatal(1, name+":", err)
	}
	fmt.Println("ok")
}

func permsCmd(args []string) {
	fs := flag.NewFlagSet("perms", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	player := fs.String("player", "", "player id")
	_ = fs.Parse(args)
	if strings.TrimSpace(*player) == "" {
		fatal(2, "missing -player")
	}

	st, err := openStores(*dataDir)
	if err != nil {
		fatal(1, "open:", err)
	}
	defer st.Close()
	for _, p := range st.perms.Registered() {
		fmt.Printf("%s\t%v\n", p, st.perms.HasPermission(*player, p))
	}
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	caller := fs.String("caller", "", "only records from this caller id")
	outcome := fs.String("outcome", "", "only records with this outcome")
	asJSON := fs.Bool("json", false, "print raw JSON lines")
	_ = fs.Parse(args)

	enc := json.NewEncoder(os.Stdout)
	n := 0
	err := persistlog.ReadAudit(persistlog.AuditDir(*dataDir), func(rec respawn.Record) error {
		if !matchRecord(rec, *caller, *outcome) {
			return nil
		}
		n++
		if *asJSON {
			return enc.Encode(rec)
		}
		fmt.Println(formatRecord(rec))
		return nil
	})
	if err != nil {
		fatal(1, "read audit:", err)
	}
	if !*asJSON {
		fmt.Fprintf(os.Stderr, "%s records\n", humanize.Comma(int64(n)))
	}
}

func matchRecord(rec respawn.Record, caller, outcome string) bool {
	if caller != "" && rec.CallerID != caller {
		return false
	}
	if outcome != "" && !strings.EqualFold(rec.Outcome, outcome) {
		return false
	}
	return true
}

func formatRecord(rec respawn.Record) string {
	var flags []string
	if rec.Charged {
		flags = append(flags, "charged")
	}
	if rec.Refunded {
		flags = append(flags, "refunded")
	}
	if rec.Locked {
		flags = append(flags, "locked")
	}
	line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s", rec.At, rec.CallerID, rec.Kind, rec.TargetID, rec.Outcome)
	if len(flags) > 0 {
		line += "\t" + strings.Join(flags, ",")
	}
	if rec.Error != "" {
		line += "\t" + rec.Error
	}
	return line
}

func migrateCmd(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	path := fs.String("config", "./configs/respawnbradley.yaml", "plugin config path")
	_ = fs.Parse(args)

	logger := log.New(os.Stdout, "[admin] ", log.LstdFlags)
	cfg, err := config.LoadOrCreate(*path, logger)
	if err != nil {
		fatal(1, "migrate:", err)
	}
	fmt.Printf("%s at version %s\n", *path, cfg.Version)
}
