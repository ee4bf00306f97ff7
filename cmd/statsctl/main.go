package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/SlpAus/spam-clicker-backend/internal/platform/config"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/database"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/logging"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/startup"
	"github.com/SlpAus/spam-clicker-backend/internal/stats"
)

func main() {
	app := &cli.Command{
		Name:  "statsctl",
		Usage: "Maintenance commands for the SPAM clicker stats database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Directory containing config.yaml",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "reconcile",
				Usage: "Compare counters against the click log",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "fix",
						Usage: "Rewrite drifted counters from the click log",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runReconcile(ctx, c.String("config"), c.Bool("fix"))
				},
			},
			{
				Name:  "leaderboard",
				Usage: "Print the top users",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Value:   10,
						Usage:   "Number of rows to print",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runLeaderboard(ctx, c.String("config"), int(c.Int("limit")))
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func openEngine(configDir string) (*stats.Engine, *zap.Logger, error) {
	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	cfg, err := config.LoadConfig(paths...)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.InitDB(cfg.Database, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("数据库初始化失败: %w", err)
	}
	if db == nil {
		return nil, nil, errors.New("内存存储没有可维护的数据，请配置 sqlite 或 postgres")
	}
	engine, err := startup.InitializeApplication(cfg, db, logger)
	if err != nil {
		return nil, nil, err
	}
	return engine, logger, nil
}

func runReconcile(ctx context.Context, configDir string, fix bool) error {
	_, logger, err := openEngine(configDir)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	report, err := stats.Reconcile(ctx, database.DB, fix)
	if err != nil {
		return err
	}

	for _, m := range report.Mismatches {
		logger.Warn("用户点击数与日志不一致",
			zap.String("user_id", m.UserID),
			zap.Int64("recorded", m.Recorded),
			zap.Int64("events", m.Events))
	}
	for _, userID := range report.OrphanUsers {
		logger.Warn("点击日志没有对应的用户统计", zap.String("user_id", userID))
	}
	logger.Info("对账完成",
		zap.Int("users", report.Users),
		zap.Bool("consistent", report.Consistent()),
		zap.Bool("fixed", report.Fixed),
		zap.Int64("recorded_spam_count", report.RecordedGlobal.TotalSpamCount),
		zap.Int64("expected_spam_count", report.ExpectedGlobal.TotalSpamCount),
		zap.Int64("recorded_users", report.RecordedGlobal.TotalUsers),
		zap.Int64("expected_users", report.ExpectedGlobal.TotalUsers))

	if !report.Consistent() && !report.Fixed {
		return errors.New("计数不一致，使用 --fix 修正")
	}
	return nil
}

func runLeaderboard(ctx context.Context, configDir string, limit int) error {
	engine, _, err := openEngine(configDir)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	entries, err := engine.Leaderboard(ctx, limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%4d  %-40s %10d  %3d\n", e.Rank, e.UserID, e.TotalClicks, e.StreakDays)
	}
	return nil
}
