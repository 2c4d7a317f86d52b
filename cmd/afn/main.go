// Package main provides the afn command-line client for browsing news and
// recording local votes and comments.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"antifakenews/internal/config"
	"antifakenews/internal/formatter"
	"antifakenews/internal/logger"
	"antifakenews/internal/models"
	"antifakenews/internal/source"
	"antifakenews/internal/store"
)

const defaultConfigPath = "configs/afn.yaml"

var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
		}

		log.Fatalf("❌ %v\n", err)
	}
}

// app bundles what every sub-command needs.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	adapter   *source.Adapter
	persister store.Persister
	store     *store.Store
	out       io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("afn", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configFile := fs.String("config", "", "Path to YAML configuration file (default "+defaultConfigPath+" when present)")
	logLevel := fs.String("log-level", "", "Log level override (debug, info, warn, error)")
	showStats := fs.Bool("stats", false, "Print source attempt statistics after the command")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	a, err := newApp(ctx, cfg, stdout, stderr)
	if err != nil {
		return err
	}

	defer a.Close()

	if err := a.dispatch(ctx, rest[0], rest[1:]); err != nil {
		return err
	}

	if *showStats {
		fmt.Fprintln(stdout)
		fmt.Fprintf(stdout, "📊 %s\n", a.adapter.Stats())

		if err := formatter.StatsTable(a.adapter.Stats()).Render(stdout); err != nil {
			return err
		}
	}

	a.adapter.LogSummary(a.log)

	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err != nil {
			return config.Default(), nil
		}

		path = defaultConfigPath
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) (*app, error) {
	l := logger.NewLoggerWithWriter(cfg.Logging.Level, stderr)
	l.Debug("configuration loaded", "config", cfg.String())

	var sources []source.Source

	for _, name := range cfg.SourceOrder() {
		switch name {
		case config.PreferRemote:
			sources = append(sources, source.NewRemoteSource(cfg.Source.BaseURL, cfg.Source.GetTimeout()))
		case config.PreferLocal:
			sources = append(sources, source.NewFixtureSource(cfg.Source.FixturePath))
		}
	}

	persister, err := store.NewPersister(cfg.Storage)
	if err != nil {
		return nil, err
	}

	adapter := source.NewAdapter(l, sources...)

	return &app{
		cfg:       cfg,
		log:       l,
		adapter:   adapter,
		persister: persister,
		store:     store.NewStore(ctx, l, adapter, persister),
		out:       stdout,
	}, nil
}

// Close releases the persister's connections when it holds any.
func (a *app) Close() {
	c, ok := a.persister.(io.Closer)
	if !ok {
		return
	}

	if err := c.Close(); err != nil {
		a.log.Warn("failed to close persister", "error", err)
	}
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "list":
		return a.list(ctx, args)
	case "show":
		return a.show(ctx, args)
	case "comments":
		return a.comments(ctx, args)
	case "votes":
		return a.votes(ctx, args)
	case "vote":
		return a.vote(ctx, args)
	case "comment":
		return a.comment(ctx, args)
	case "persist":
		return a.persist(ctx, args)
	case "help":
		printUsage(a.out)

		return nil
	}

	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	page := fs.Int("page", 1, "Page number")
	size := fs.Int("size", a.cfg.List.DefaultPageSize, "Items per page")
	filter := fs.String("filter", "all", "Status filter (all, fake, not-fake)")
	query := fs.String("q", "", "Search topic, summary and content")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	f, err := models.ParseFilter(*filter)
	if err != nil {
		return err
	}

	items, err := a.store.FetchList(ctx, *size, *page, f, *query)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		fmt.Fprintf(a.out, "📭 No news on page %d (%d matching)\n", *page, a.store.Total())

		return nil
	}

	fmt.Fprintf(a.out, "📰 Page %d, %d of %d matching items\n\n", *page, len(items), a.store.Total())

	return formatter.NewsTable(items).Render(a.out)
}

func (a *app) show(ctx context.Context, args []string) error {
	id, _, err := parseID(args)
	if err != nil {
		return err
	}

	item, err := a.store.FetchOne(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprint(a.out, formatter.NewsDetail(item))

	return nil
}

func (a *app) comments(ctx context.Context, args []string) error {
	id, rest, err := parseID(args)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("comments", flag.ContinueOnError)
	page := fs.Int("page", 1, "Page number")
	size := fs.Int("size", a.cfg.List.DefaultPageSize, "Comments per page")
	server := fs.Bool("server", false, "Page through the comments endpoint instead of the merged view")

	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	if *server {
		res, err := a.adapter.Comments(ctx, id, *size, *page)
		if err != nil {
			return err
		}

		fmt.Fprintf(a.out, "💬 %d of %d server comments for #%d\n\n", len(res.Comments), res.Total, id)

		return formatter.CommentsTable(res.Comments).Render(a.out)
	}

	if _, err := a.store.FetchOne(ctx, id); err != nil {
		return err
	}

	all := a.store.CombinedComments(id)
	start, end := source.Query{PageSize: *size, Page: *page}.Bounds(len(all))

	fmt.Fprintf(a.out, "💬 %d of %d comments for #%d (%d added locally)\n\n",
		end-start, len(all), id, len(a.store.AddedComments(id)))

	return formatter.CommentsTable(all[start:end]).Render(a.out)
}

func (a *app) votes(ctx context.Context, args []string) error {
	id, _, err := parseID(args)
	if err != nil {
		return err
	}

	if _, err := a.store.FetchOne(ctx, id); err != nil {
		return err
	}

	fromComments := a.store.VotesFromComments(id)
	aggregated := a.store.AggregatedVotes(id)
	added := a.store.AddedVotes(id)

	fmt.Fprintf(a.out, "🗳️  #%d\n", id)
	fmt.Fprintf(a.out, "   From comments: %s -> %s\n", formatter.FormatVotes(fromComments), a.store.StatusFromComments(id))
	fmt.Fprintf(a.out, "   Vote tally:    %s -> %s\n", formatter.FormatVotes(aggregated), a.store.AggregatedStatus(id))
	fmt.Fprintf(a.out, "   Added locally: %s\n", formatter.FormatVotes(added))

	records, err := a.adapter.Votes(ctx, id)
	if err != nil {
		a.log.Warn("vote records unavailable", "id", id, "error", err)

		return nil
	}

	fmt.Fprintln(a.out)

	return formatter.VotesTable(records).Render(a.out)
}

func (a *app) vote(ctx context.Context, args []string) error {
	id, rest, err := parseID(args)
	if err != nil {
		return err
	}

	if len(rest) != 1 {
		return fmt.Errorf("%w: vote <id> <fake|not-fake>", errUsage)
	}

	choice, err := models.ParseVoteKey(rest[0])
	if err != nil {
		return err
	}

	if _, err := a.store.FetchOne(ctx, id); err != nil {
		return err
	}

	if err := a.store.AddVote(ctx, id, choice); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✅ Voted %s on #%d (tally now %s)\n", choice, id, formatter.FormatVotes(a.store.AggregatedVotes(id)))
	a.warnIfNotPersisted()

	return nil
}

func (a *app) comment(ctx context.Context, args []string) error {
	id, rest, err := parseID(args)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("comment", flag.ContinueOnError)
	user := fs.String("user", "", "Comment author")
	text := fs.String("text", "", "Comment text")
	vote := fs.String("vote", "", "Verdict (fake or not-fake)")
	image := fs.String("image", "", "Optional image URL")

	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	if strings.TrimSpace(*user) == "" || strings.TrimSpace(*text) == "" {
		return fmt.Errorf("%w: comment requires -user and -text", errUsage)
	}

	choice, err := models.ParseVoteKey(*vote)
	if err != nil {
		return err
	}

	in := models.NewComment{
		User:    strings.TrimSpace(*user),
		Comment: strings.TrimSpace(*text),
		Vote:    choice,
	}

	if img := strings.TrimSpace(*image); img != "" {
		in.ImageURL = &img
	}

	if _, err := a.store.FetchOne(ctx, id); err != nil {
		return err
	}

	commentID, err := a.store.AddComment(ctx, id, in)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✅ Added comment %d to #%d (status now %s)\n", commentID, id, a.store.DisplayStatus(id))
	a.warnIfNotPersisted()

	return nil
}

func (a *app) persist(ctx context.Context, args []string) error {
	action := "status"
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "on":
		a.store.TogglePersist(ctx, true)
		fmt.Fprintln(a.out, "💾 Persistence enabled")
	case "off":
		a.store.TogglePersist(ctx, false)
		fmt.Fprintln(a.out, "⏸️  Persistence disabled")
	case "clear":
		a.store.ClearPersist(ctx)
		fmt.Fprintln(a.out, "🧹 Local votes and comments cleared")
	case "status":
		d := a.store.Delta()
		comments := 0

		for _, c := range d.Comments {
			comments += len(c)
		}

		fmt.Fprintf(a.out, "💾 Persistence: %s (%s backend)\n", onOff(d.Enabled), a.cfg.Storage.Backend)
		fmt.Fprintf(a.out, "   Items with local votes: %d\n", len(d.Votes))
		fmt.Fprintf(a.out, "   Local comments:         %d\n", comments)
	default:
		return fmt.Errorf("%w: persist on|off|clear|status", errUsage)
	}

	return nil
}

func (a *app) warnIfNotPersisted() {
	if !a.store.PersistEnabled() {
		fmt.Fprintln(a.out, "⚠️  Persistence is off; this change lasts only for this run")
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}

	return "off"
}

// parseID reads the leading news id and returns the remaining arguments.
func parseID(args []string) (int, []string, error) {
	if len(args) == 0 {
		return 0, nil, fmt.Errorf("%w: missing news id", errUsage)
	}

	id, err := strconv.Atoi(args[0])
	if err != nil || id < 1 {
		return 0, nil, fmt.Errorf("%w: invalid news id %q", errUsage, args[0])
	}

	return id, args[1:], nil
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `afn - anti-fake-news client

Usage:
  afn [-config path] [-log-level level] [-stats] <command> [args]

Commands:
  list [-page N] [-size N] [-filter all|fake|not-fake] [-q text]
  show <id>
  comments <id> [-page N] [-size N] [-server]
  votes <id>
  vote <id> <fake|not-fake>
  comment <id> -user name -text text -vote fake|not-fake [-image url]
  persist [on|off|clear|status]
  help

Examples:
  afn list -filter fake -q durian
  afn vote 3 not-fake
  afn comment 3 -user Nok -text "Checked the source" -vote fake
`)
}
