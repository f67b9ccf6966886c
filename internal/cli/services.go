package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"HKQuant/internal/agent"
	"HKQuant/internal/bot"
	"HKQuant/internal/collector"
	"HKQuant/internal/mcpserver"
	"HKQuant/internal/notifier"
	"HKQuant/internal/recorder"
	"HKQuant/internal/scheduler"
	"HKQuant/internal/scoreboard"
	"HKQuant/internal/server"
	"HKQuant/internal/taskboard"
	"HKQuant/internal/terminal"
)

// services are the long-lived components shared by serve and bot. The
// chat bot and the dashboard read and write the same boards.
type services struct {
	col      *collector.Collector
	analyst  *agent.Analyst
	tasks    *taskboard.Board
	scores   *scoreboard.Board
	recorder recorder.Recorder
	notifier *notifier.TelegramNotifier
	sched    *scheduler.Scheduler
}

func (a *app) startServices(ctx context.Context) (*services, error) {
	col, err := a.collector()
	if err != nil {
		return nil, err
	}
	tasks, err := a.taskboard()
	if err != nil {
		return nil, fmt.Errorf("open task board: %w", err)
	}
	svc := &services{
		col:      col,
		analyst:  a.analyst(col),
		tasks:    tasks,
		scores:   scoreboard.New(),
		recorder: a.recorder(),
	}
	if a.cfg.RequireTelegram() == nil {
		svc.notifier = notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, a.log)
	}

	sc := a.scraper()
	sched := scheduler.NewScheduler(ctx, a.log)
	sched.Analyst = svc.analyst
	sched.Hibor = sc.HKMA
	sched.Recorder = svc.recorder
	sched.Symbols = a.cfg.DataSource.Symbols
	if !a.offline() {
		sched.Forum = sc.LIHKG
		sched.ForumCategory = a.cfg.Scraper.LIHKGCategory
	}
	if svc.notifier != nil {
		sched.Notifier = svc.notifier
	}
	s := a.cfg.Schedule
	if err := sched.RegisterAll(s.DailyCron, s.HiborCron, s.SentimentCron); err != nil {
		svc.close()
		return nil, err
	}
	svc.sched = sched
	return svc, nil
}

func (s *services) close() {
	if s.sched != nil {
		s.sched.Stop()
	}
	s.tasks.Close()
	s.recorder.Close()
}

func (a *app) newBot(svc *services) *bot.Bot {
	b := bot.New(a.log)
	b.Analyst = svc.analyst
	b.Market = svc.col
	b.Hibor = a.scraper().HKMA
	b.Tasks = svc.tasks
	b.Scores = svc.scores
	b.Recorder = svc.recorder
	b.Symbols = a.cfg.DataSource.Symbols
	b.MARange = a.maRange()
	b.RiskFree = a.cfg.Optimizer.RiskFreeRate
	b.HistoryDays = a.cfg.Optimizer.Days
	return b
}

func (a *app) dashboard(svc *services) *server.Server {
	return server.New(server.Deps{
		Analyst:     svc.analyst,
		Market:      svc.col,
		Hibor:       a.scraper().HKMA,
		Tasks:       svc.tasks,
		Scores:      svc.scores,
		Recorder:    svc.recorder,
		MARange:     a.maRange(),
		RiskFree:    a.cfg.Optimizer.RiskFreeRate,
		HistoryDays: a.cfg.Optimizer.Days,
	}, a.log)
}

// startPolling answers chat commands when Telegram is configured.
func (a *app) startPolling(ctx context.Context, svc *services) {
	if svc.notifier == nil {
		return
	}
	go svc.notifier.StartPolling(ctx, a.newBot(svc).Handle)
	a.log.Info("telegram polling started")
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API with live websocket updates",
		Long: `Serve the REST API and websocket feed of the agent dashboard. The
scheduled jobs run in the background and every daily report is pushed to
connected dashboards. When Telegram is configured the chat bot runs in the
same process and shares the task board and scoreboard.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			svc, err := a.startServices(ctx)
			if err != nil {
				return err
			}
			defer svc.close()

			srv := a.dashboard(svc)
			svc.sched.OnReport = func(rep *agent.Report) {
				if err := srv.Hub.Broadcast("analysis", rep); err != nil {
					a.log.Warn("broadcast report", zap.Error(err))
				}
			}
			svc.sched.Start()
			a.startPolling(ctx, svc)

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			fmt.Fprintf(a.out, "%s listening on %s\n", titleStyle.Render("hkquant dashboard"), addr)
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve terminal and market tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.collector()
			if err != nil {
				return err
			}
			tools := mcpserver.NewTools(a.log)
			tools.Runner = a.runner()
			tools.Market = col
			tools.Hibor = a.scraper().HKMA
			tools.MARange = a.maRange()
			tools.RiskFree = a.cfg.Optimizer.RiskFreeRate
			tools.HistoryDays = a.cfg.Optimizer.Days
			return mcpserver.Serve(mcpserver.NewServer(tools, Version))
		},
	}
}

func newRunCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "run -- COMMAND [ARGS...]",
		Short: "Run an allow-listed command with timeout and retries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := terminal.Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}
			c.Dir = dir
			res, runErr := a.runner().Run(cmd.Context(), c)
			if res == nil {
				return runErr
			}
			if err := a.emit(res, nil, func() string { return renderRun(res) }); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("%w (after %d attempt(s))", runErr, res.Attempts)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "working directory")
	return cmd
}

func newBotCmd(a *app) *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot with the scheduled reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireTelegram(); err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			svc, err := a.startServices(ctx)
			if err != nil {
				return err
			}
			defer svc.close()

			svc.sched.Start()
			a.startPolling(ctx, svc)

			if runOnStart || os.Getenv("RUN_ON_START") == "true" {
				a.log.Info("run on start enabled, executing daily report now")
				go func() {
					if err := svc.sched.RunNow(scheduler.JobDailyReport); err != nil {
						a.log.Error("daily report failed", zap.Error(err))
					}
				}()
			}

			fmt.Fprintln(a.out, titleStyle.Render("hkquant bot is running. Press Ctrl+C to stop."))
			<-ctx.Done()
			a.log.Info("shutdown signal received, stopping")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run the daily report immediately")
	return cmd
}
