// Command ledger_audit replays every player's token log against the stored
// balance and prints the result. It exits non-zero when any player drifts.
package main

import (
	"context"
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/config"
	partyRepo "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/repository/db"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/usecase"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
)

func main() {
	onlyBroken := flag.Bool("broken", false, "Only list players whose log does not reproduce the balance")
	timeout := flag.Duration("timeout", time.Minute, "Give up after this long")
	flag.Parse()

	cfg, err := config.LoadPartyGameConfig()
	if err != nil {
		pterm.Error.Printfln("failed to load config: %v", err)
		os.Exit(1)
	}
	logger.Init(logger.Config{Level: "error", Format: "console"})
	defer logger.Close()

	dialector, err := cfg.Database.Dialector()
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.NewGormLogger().LogMode(gormlogger.Silent)})
	if err != nil {
		pterm.Error.Printfln("failed to connect to database: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	audits, err := usecase.Audit(ctx, partyRepo.NewStore(db).Ledger())
	if err != nil {
		pterm.Error.Printfln("audit failed: %v", err)
		os.Exit(1)
	}

	pterm.DefaultHeader.WithFullWidth().Println("Token ledger audit")

	broken := 0
	data := pterm.TableData{{"Player", "Stored", "Replayed", "Transactions", "Broken links", "Status"}}
	for _, a := range audits {
		status := pterm.LightGreen("ok")
		if !a.Consistent() {
			broken++
			status = pterm.LightRed("MISMATCH")
		} else if *onlyBroken {
			continue
		}
		data = append(data, []string{
			strconv.FormatInt(a.PlayerID, 10),
			strconv.FormatInt(a.Stored, 10),
			strconv.FormatInt(a.Replayed, 10),
			strconv.Itoa(a.Transactions),
			strconv.Itoa(a.BrokenChain),
			status,
		})
	}
	if len(data) > 1 {
		if err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render(); err != nil {
			pterm.Error.Println(err)
			os.Exit(1)
		}
	}

	if broken > 0 {
		pterm.Error.Printfln("%d of %d players do not reconcile", broken, len(audits))
		os.Exit(2)
	}
	pterm.Success.Printfln("%d players reconcile", len(audits))
}
