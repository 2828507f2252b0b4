package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"super_clicker/internal/config"
	"super_clicker/internal/domain"
	"super_clicker/internal/logger"
	"super_clicker/internal/moderation"
	"super_clicker/internal/session"
	"super_clicker/internal/store"
	"super_clicker/internal/ws"
)

type consoleUI struct{}

func (consoleUI) Notify(message string) {
	fmt.Println("!", message)
}

func (consoleUI) RefreshAccountStatusView(st domain.AccountStatus) {
	if s := moderation.Summary(st, time.Now()); s != "" {
		fmt.Println("[status]", s)
	}
}

func main() {
	cfg, err := config.LoadPlayer()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	local, err := store.OpenLocal(cfg.LocalDBPath)
	if err != nil {
		logger.Fatal("open local store", "path", cfg.LocalDBPath, "error", err)
	}
	defer local.Close()

	st := store.NewFallback(store.NewRemote(cfg.APIURL, cfg.APIToken), local)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess, err := session.Load(ctx, st, cfg.PlayerID, cfg.PlayerName, session.Options{
		Engine:      moderation.NewEngine(cfg.Tunables.Moderation()),
		Detector:    moderation.NewDetector(cfg.Tunables.Thresholds()),
		UI:          consoleUI{},
		OfflineCap:  cfg.Tunables.OfflineEarningCap,
		OfflineRate: cfg.Tunables.OfflineEarningRate,
	})
	if err != nil {
		logger.Fatal("load session", "error", err)
	}
	defer sess.Close(context.Background())
	sess.StartReconciler(cfg.Tunables.ReconcileInterval)

	if cfg.APIToken != "" {
		go listenStatus(ctx, cfg.APIURL, cfg.APIToken, sess)
	}

	printRecord(sess)
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := run(ctx, sess, strings.Fields(line)); quit {
				return
			}
		}
	}
}

// listenStatus applies pushed status changes, redialing after failures.
func listenStatus(ctx context.Context, apiURL, token string, sess *session.Session) {
	log := logger.Component("status_stream")
	for ctx.Err() == nil {
		sub, err := ws.Subscribe(ctx, apiURL, token)
		if err != nil {
			log.Debug("subscribe failed", "error", err)
		} else {
			err = sub.Listen(ctx, func(msg ws.StatusMessage) {
				sess.ApplyRemoteStatus(ctx, msg.Status, msg.Events)
			})
			log.Debug("status stream closed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func run(ctx context.Context, sess *session.Session, args []string) (quit bool) {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "click", "c":
		n := 1
		if len(args) > 1 {
			if v, err := strconv.Atoi(args[1]); err == nil && v > 0 {
				n = v
			}
		}
		for i := 0; i < n; i++ {
			res, err := sess.Click(ctx)
			if err != nil {
				report(err)
				break
			}
			if res.LeveledUp {
				fmt.Printf("level up! now %d\n", res.Level)
			}
		}
		printRecord(sess)
	case "buy":
		if len(args) < 2 {
			fmt.Println("usage: buy clickPower|autoClicker|clickMultiplier|offlineEarnings")
			return false
		}
		report(buy(ctx, sess, args[1]))
		printRecord(sess)
	case "boost":
		report(sess.ActivateBooster(ctx, "doubleCoins", 2, 200, time.Minute))
	case "status":
		if s := sess.Summary(); s != "" {
			fmt.Println(s)
		} else {
			fmt.Println("Account in good standing")
		}
	case "support":
		fmt.Println(sess.SupportMessage())
	case "quit", "exit", "q":
		return true
	default:
		fmt.Println("commands: click [n], buy <upgrade>, boost, status, support, quit")
	}
	return false
}

func buy(ctx context.Context, sess *session.Session, name string) error {
	up, ok := sess.Record().Upgrades[name]
	if !ok {
		return fmt.Errorf("unknown upgrade %q", name)
	}
	return sess.Purchase(ctx, up.Cost, func(rec *domain.PlayerRecord) {
		u := rec.Upgrades[name]
		u.Level++
		u.Cost = u.Cost * 3 / 2
		rec.Upgrades[name] = u
		switch name {
		case domain.UpgradeClickPower:
			rec.ClickPower++
		case domain.UpgradeAutoClicker:
			rec.AutoClickers++
		case domain.UpgradeClickMultiplier:
			rec.ClickMultiplier++
		}
	})
}

func report(err error) {
	var denied *moderation.DeniedError
	switch {
	case err == nil:
	case errors.As(err, &denied):
		fmt.Println("action blocked:", denied.Error())
	case errors.Is(err, session.ErrInsufficientFunds):
		fmt.Println("not enough coins")
	default:
		fmt.Println("error:", err)
	}
}

func printRecord(sess *session.Session) {
	rec := sess.Record()
	fmt.Printf("%s: %d coins, level %d (%d/%d xp), power %d x%d\n",
		rec.Username, rec.Coins, rec.Level, rec.XP, rec.XPNeeded, rec.ClickPower, rec.ClickMultiplier)
}
