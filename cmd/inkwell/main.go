// Command inkwell is a journaling CLI client. It is presentation only:
// every subcommand maps a user intent onto the session controller, the
// editor state machine or the collection view model.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell-app/inkwell/internal/ai"
	"github.com/inkwell-app/inkwell/internal/config"
	"github.com/inkwell-app/inkwell/internal/journal"
	"github.com/inkwell-app/inkwell/internal/model"
	"github.com/inkwell-app/inkwell/internal/session"
	"github.com/inkwell-app/inkwell/internal/store"
)

// ---- token store ----

type tokenFile struct {
	RefreshToken string    `json:"refresh_token"`
	SavedAt      time.Time `json:"saved_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "inkwell")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "inkwell")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(refresh string) error {
	_ = os.MkdirAll(cfgDir(), 0o700)
	f, err := os.Create(tokenPath())
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{RefreshToken: refresh, SavedAt: time.Now()})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.RefreshToken == "" {
		return "", errors.New("no saved session (login required)")
	}
	return tf.RefreshToken, nil
}

func clearToken() { _ = os.Remove(tokenPath()) }

// ---- app wiring ----

type app struct {
	cfg      *config.Config
	log      *zap.Logger
	provider *session.GoTrue
	ctrl     *session.Controller
	coll     *journal.Collection
	editor   *journal.Editor
	changes  chan *model.User
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.New()
	if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
		return nil, errors.New("SUPABASE_URL and SUPABASE_ANON_KEY must be set")
	}

	log, _ := zap.NewProduction()

	provider := session.NewGoTrue(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.HTTPTimeout, log)
	ctrl := session.NewController(provider, log)

	changes := make(chan *model.User, 8)
	ctrl.SetOnChange(func(u *model.User) {
		select {
		case changes <- u:
		default:
		}
	})
	if err := ctrl.Start(ctx); err != nil {
		return nil, err
	}
	// drop the cold-start state notification; commands await real changes
	for drained := false; !drained; {
		select {
		case <-changes:
		default:
			drained = true
		}
	}

	sc := store.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, ctrl.AccessToken, cfg.HTTPTimeout, log)
	coll := journal.NewCollection(sc, log)
	gen := ai.NewGenerator(cfg.GeminiAPIKey, log)
	ed := journal.NewEditor(sc, gen, coll, func() string {
		if u := ctrl.CurrentUser(); u != nil {
			return u.ID
		}
		return ""
	}, log)

	return &app{cfg: cfg, log: log, provider: provider, ctrl: ctrl,
		coll: coll, editor: ed, changes: changes}, nil
}

func (a *app) close() {
	a.ctrl.Close()
	_ = a.log.Sync()
}

// awaitUser waits for the subscription to deliver the auth state change.
func (a *app) awaitUser() (*model.User, error) {
	select {
	case u := <-a.changes:
		return u, nil
	case <-time.After(10 * time.Second):
		return nil, errors.New("timed out waiting for session change")
	}
}

// resume restores a saved session from the refresh token, if any.
func (a *app) resume(ctx context.Context) {
	tok, err := loadToken()
	if err != nil {
		return
	}
	if err := a.provider.Restore(ctx, tok); err != nil {
		a.log.Warn("session restore failed", zap.Error(err))
		clearToken()
		return
	}
	if _, err := a.awaitUser(); err == nil {
		a.persistRefreshToken(ctx)
	}
}

func (a *app) persistRefreshToken(ctx context.Context) {
	if s, err := a.provider.Session(ctx); err == nil && s != nil && s.RefreshToken != "" {
		_ = saveToken(s.RefreshToken)
	}
}

func (a *app) requireUser(ctx context.Context) *model.User {
	a.resume(ctx)
	u := a.ctrl.CurrentUser()
	if u == nil {
		fail(errors.New("not signed in (run: inkwell login)"))
	}
	return u
}

func (a *app) findEntry(ctx context.Context, id string) model.JournalEntry {
	if err := a.coll.Reload(ctx); err != nil {
		fail(err)
	}
	for _, e := range a.coll.Entries() {
		if e.ID == id {
			return e
		}
	}
	fail(fmt.Errorf("no entry with id %s", id))
	return model.JournalEntry{}
}

// ---- utils ----

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func confirmPrompt(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return false
	}
	ans := strings.ToLower(strings.TrimSpace(sc.Text()))
	return ans == "y" || ans == "yes"
}

func usage() {
	fmt.Fprintf(os.Stderr, `inkwell CLI
Usage:
  inkwell <cmd> [args]

Commands:
  version
  signup  -email <e> -password <p> -name <n>
  login   -email <e> -password <p>
  logout
  whoami
  list    [-q <query>]
  view    -id <uuid>
  new     -title <t> -content <c> [-mood <m>] [-tags a,b] [-reflect]
  edit    -id <uuid> [-title <t>] [-content <c>] [-mood <m>] [-tags a,b] [-reflect]
  rm      -id <uuid> [-yes]
`)
	os.Exit(2)
}

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands onto the core contracts.
func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if cmd == "version" {
		fmt.Printf("inkwell %s (%s)\n", version, buildDate)
		return
	}

	a, err := newApp(ctx)
	if err != nil {
		fail(err)
	}
	defer a.close()

	switch cmd {

	case "signup":
		fs := flag.NewFlagSet("signup", flag.ExitOnError)
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password")
		name := fs.String("name", "", "display name")
		_ = fs.Parse(flag.Args()[1:])
		if *email == "" || *password == "" {
			fail(errors.New("need -email and -password"))
		}

		msg, err := a.ctrl.Signup(ctx, *email, *password, *name)
		if err != nil {
			fail(err)
		}
		if msg != "" {
			fmt.Println(msg)
			return
		}
		if _, err := a.awaitUser(); err != nil {
			fail(err)
		}
		a.persistRefreshToken(ctx)
		fmt.Println("ok")

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password")
		_ = fs.Parse(flag.Args()[1:])
		if *email == "" || *password == "" {
			fail(errors.New("need -email and -password"))
		}

		if err := a.ctrl.Login(ctx, *email, *password); err != nil {
			fail(err)
		}
		if _, err := a.awaitUser(); err != nil {
			fail(err)
		}
		a.persistRefreshToken(ctx)
		fmt.Println("ok")

	case "logout":
		a.resume(ctx)
		if err := a.ctrl.Logout(ctx); err != nil {
			a.log.Warn("logout", zap.Error(err))
		}
		clearToken()
		a.coll.Clear()
		fmt.Println("ok")

	case "whoami":
		u := a.requireUser(ctx)
		printJSON(u)

	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		q := fs.String("q", "", "search query")
		_ = fs.Parse(flag.Args()[1:])

		a.requireUser(ctx)
		if err := a.coll.Reload(ctx); err != nil {
			fail(err)
		}
		for _, e := range a.coll.Search(*q) {
			fmt.Printf("%s  %-10s  %s  %s\n",
				e.ID, e.Mood, time.UnixMilli(e.CreatedAt).Format("2006-01-02"), e.Title)
		}

	case "view":
		fs := flag.NewFlagSet("view", flag.ExitOnError)
		id := fs.String("id", "", "entry id")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" {
			fail(errors.New("need -id"))
		}

		a.requireUser(ctx)
		entry := a.findEntry(ctx, *id)
		a.editor.OpenExisting(entry, true)
		printJSON(a.editor.Draft())
		a.editor.Close()

	case "new":
		fs := flag.NewFlagSet("new", flag.ExitOnError)
		title := fs.String("title", "", "title")
		body := fs.String("content", "", "content")
		mood := fs.String("mood", "", "mood (happy|calm|neutral|sad|stressed|inspired)")
		tags := fs.String("tags", "", "comma-separated tags")
		reflect := fs.Bool("reflect", false, "request an AI reflection before saving")
		_ = fs.Parse(flag.Args()[1:])

		a.requireUser(ctx)
		m, err := model.ParseMood(*mood)
		if err != nil {
			fail(err)
		}

		if !a.editor.OpenNew() {
			fail(errors.New("editor busy"))
		}
		a.editor.SetTitle(*title)
		a.editor.SetContent(*body)
		a.editor.SetMood(m)
		a.editor.SetTags(splitTags(*tags))
		if *reflect {
			a.editor.GenerateReflection(ctx)
			fmt.Println("reflection:", a.editor.Draft().AIReflection)
		}
		if err := a.editor.Save(ctx); err != nil {
			fail(err)
		}
		fmt.Println("saved")

	case "edit":
		fs := flag.NewFlagSet("edit", flag.ExitOnError)
		id := fs.String("id", "", "entry id")
		title := fs.String("title", "", "title")
		body := fs.String("content", "", "content")
		mood := fs.String("mood", "", "mood")
		tags := fs.String("tags", "", "comma-separated tags")
		reflect := fs.Bool("reflect", false, "request an AI reflection before saving")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" {
			fail(errors.New("need -id"))
		}

		a.requireUser(ctx)
		entry := a.findEntry(ctx, *id)
		a.editor.OpenExisting(entry, false)
		if *title != "" {
			a.editor.SetTitle(*title)
		}
		if *body != "" {
			a.editor.SetContent(*body)
		}
		if *mood != "" {
			m, err := model.ParseMood(*mood)
			if err != nil {
				fail(err)
			}
			a.editor.SetMood(m)
		}
		if *tags != "" {
			a.editor.SetTags(splitTags(*tags))
		}
		if *reflect {
			a.editor.GenerateReflection(ctx)
			fmt.Println("reflection:", a.editor.Draft().AIReflection)
		}
		if err := a.editor.Save(ctx); err != nil {
			fail(err)
		}
		fmt.Println("saved")

	case "rm":
		fs := flag.NewFlagSet("rm", flag.ExitOnError)
		id := fs.String("id", "", "entry id")
		yes := fs.Bool("yes", false, "skip confirmation")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" {
			fail(errors.New("need -id"))
		}

		a.requireUser(ctx)
		confirm := func() bool {
			if *yes {
				return true
			}
			return confirmPrompt("Are you sure you want to delete this entry?")
		}
		if err := a.editor.Delete(ctx, *id, confirm); err != nil {
			fail(err)
		}
		fmt.Println("deleted")

	default:
		usage()
	}
}
