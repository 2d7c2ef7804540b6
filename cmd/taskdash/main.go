package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/taskmastery/taskdash/internal/api"
	"github.com/taskmastery/taskdash/internal/dashboard"
	"github.com/taskmastery/taskdash/internal/mcp"
	"github.com/taskmastery/taskdash/internal/server"
	"github.com/taskmastery/taskdash/internal/session"
	"github.com/taskmastery/taskdash/internal/todolist"
	"github.com/taskmastery/taskdash/internal/ui"
	"github.com/taskmastery/taskdash/pkg/models"
)

var (
	serverURL string
	dbPath    string
)

func main() {
	flag.StringVar(&serverURL, "server", "", "Base URL of the TaskMastery API (default "+api.DefaultBaseURL+")")
	flag.StringVar(&dbPath, "db-path", ".taskdash/taskdash.db", "Path to the local server database")
	flag.Parse()

	if serverURL == "" {
		serverURL = os.Getenv("TASKDASH_SERVER")
	}
	serverURL = strings.TrimRight(serverURL, "/")

	var command string
	var args []string

	if flag.NArg() == 0 {
		selected, err := ui.RunMenu()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running menu: %v\n", err)
			os.Exit(1)
		}
		if selected == "" {
			os.Exit(0)
		}
		command = selected
		args = []string{}
	} else {
		command = flag.Arg(0)
		args = flag.Args()[1:]
	}

	var err error
	switch command {
	case "dashboard":
		err = runDashboard(args)
	case "serve":
		err = runServe(args)
	case "mcp":
		err = runMCP(args)
	case "list":
		err = runList(args)
	case "add":
		err = runAdd(args)
	case "done":
		err = runDone(args)
	case "rm":
		err = runRm(args)
	case "whoami":
		err = runWhoami(args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// signedIn builds a client plus session manager and resolves the session.
// One-shot commands have no cookie to recover, so they fall back to signing
// in with TASKDASH_EMAIL / TASKDASH_PASSWORD.
func signedIn(ctx context.Context) (*api.Client, *session.Manager, error) {
	client, err := api.NewClient(serverURL)
	if err != nil {
		return nil, nil, err
	}

	sessions := session.NewManager(client)
	if sessions.Recover(ctx) == session.StateAuthenticated {
		return client, sessions, nil
	}

	email := os.Getenv("TASKDASH_EMAIL")
	password := os.Getenv("TASKDASH_PASSWORD")
	if email == "" || password == "" {
		return nil, nil, errors.New("not signed in: set TASKDASH_EMAIL and TASKDASH_PASSWORD")
	}
	if err := sessions.SignIn(ctx, email, password); err != nil {
		return nil, nil, err
	}
	return client, sessions, nil
}

func runDashboard(args []string) error {
	client, err := api.NewClient(serverURL)
	if err != nil {
		return err
	}

	sessions := session.NewManager(client)
	list := todolist.NewController(client)
	return dashboard.Run(sessions, list)
}

func runServe(args []string) error {
	serveFlags := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := serveFlags.String("port", "8000", "Port to listen on")
	if err := serveFlags.Parse(args); err != nil {
		return err
	}

	secret := os.Getenv("TASKDASH_SECRET")
	if secret == "" {
		secret = "taskdash-dev-secret"
		fmt.Fprintln(os.Stderr, "Warning: TASKDASH_SECRET not set, using the development secret")
	}

	store, err := server.OpenStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Init(ctx); err != nil {
		return err
	}

	srv := server.NewServer(store, []byte(secret))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("taskdash API listening on http://localhost:%s\n", *port)
	if err := srv.Start(fmt.Sprintf(":%s", *port)); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func runMCP(args []string) error {
	ctx := context.Background()
	client, _, err := signedIn(ctx)
	if err != nil {
		return err
	}

	s := mcp.NewServer(client)
	return mcp.Serve(s)
}

func runList(args []string) error {
	listFlags := flag.NewFlagSet("list", flag.ContinueOnError)
	filter := listFlags.String("filter", "all", "Filter: all, pending or completed")
	if err := listFlags.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	client, _, err := signedIn(ctx)
	if err != nil {
		return err
	}

	list := todolist.NewController(client)
	if err := list.Load(ctx); err != nil {
		return err
	}
	list.SetFilter(models.FilterMode(*filter))

	fmt.Printf("%-36s %-40s %-10s\n", "ID", "TITLE", "STATUS")
	fmt.Println(strings.Repeat("-", 88))
	for _, t := range list.Filtered() {
		status := "pending"
		if t.Completed {
			status = "completed"
		}
		fmt.Printf("%-36s %-40s %-10s\n", t.ID, t.Title, status)
	}
	return nil
}

func runAdd(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: taskdash add <title> [description]")
	}
	title := args[0]
	description := ""
	if len(args) > 1 {
		description = strings.Join(args[1:], " ")
	}

	ctx := context.Background()
	client, _, err := signedIn(ctx)
	if err != nil {
		return err
	}

	list := todolist.NewController(client)
	if err := list.Load(ctx); err != nil {
		return err
	}
	if err := list.Add(ctx, title, description); err != nil {
		return err
	}

	todos := list.Todos()
	created := todos[len(todos)-1]
	fmt.Printf("✓ Added task %s (%s)\n", created.Title, created.ID)
	return nil
}

func runDone(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: taskdash done <id>")
	}

	ctx := context.Background()
	client, _, err := signedIn(ctx)
	if err != nil {
		return err
	}

	list := todolist.NewController(client)
	if err := list.Load(ctx); err != nil {
		return err
	}
	if err := list.Toggle(ctx, args[0]); err != nil {
		return err
	}

	fmt.Println("✓ Task updated")
	return nil
}

func runRm(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: taskdash rm <id>")
	}

	ctx := context.Background()
	client, _, err := signedIn(ctx)
	if err != nil {
		return err
	}

	list := todolist.NewController(client)
	if err := list.Load(ctx); err != nil {
		return err
	}
	if err := list.Remove(ctx, args[0]); err != nil {
		return err
	}

	fmt.Println("✓ Task deleted")
	return nil
}

func runWhoami(args []string) error {
	ctx := context.Background()
	_, sessions, err := signedIn(ctx)
	if err != nil {
		return err
	}

	user := sessions.Current()
	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	fmt.Printf("id: %s\n", user.ID)
	return nil
}
