// Command streamline is the terminal chat client. It keeps conversation
// history in a local store and streams answers from a streamlined server.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/streamlinechat/streamline/internal/bootstrap"
	"github.com/streamlinechat/streamline/internal/chat"
	"github.com/streamlinechat/streamline/internal/config"
	"github.com/streamlinechat/streamline/internal/logging"
	"github.com/streamlinechat/streamline/internal/session"
	"github.com/streamlinechat/streamline/internal/transport"
	"github.com/streamlinechat/streamline/internal/version"
)

const helpText = `commands:
  /new          start a new conversation
  /list         list conversations
  /open <n>     switch to conversation n from /list
  /delete <n>   delete conversation n from /list
  /quit         exit
anything else is sent as a message; Ctrl-C stops an in-flight answer.`

func main() {
	_ = godotenv.Load()

	if len(os.Args) > 1 && os.Args[1] == "init" {
		force := len(os.Args) > 2 && os.Args[2] == "--force"
		if err := bootstrap.Init(bootstrap.InitOptions{Force: force}); err != nil {
			log.Fatalf("init config: %v", err)
		}
		fmt.Println("wrote config/setting.ini and config/dev/streamline.ini")
		return
	}

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	logger := log.New(io.Discard, "[streamline] ", log.LstdFlags|log.Lmicroseconds)
	if logTarget := strings.TrimSpace(cfg.LogFileCLI); logTarget != "" {
		rot, err := logging.NewRotatingWriter(logTarget, 50*1024*1024)
		if err != nil {
			log.Fatalf("init rotating log: %v", err)
		}
		defer rot.Close()
		logger.SetOutput(rot)
	}

	store, err := bootstrap.OpenStore(cfg)
	if err != nil {
		log.Fatalf("open conversation store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	rec, err := session.NewReconciler(ctx, session.ReconcilerConfig{Store: store, Logger: logger})
	if err != nil {
		log.Fatalf("load conversations: %v", err)
	}

	client, err := transport.NewClient(cfg.ServerURL, nil)
	if err != nil {
		log.Fatalf("init transport: %v", err)
	}

	orch, err := session.NewOrchestrator(session.OrchestratorConfig{
		Reconciler: rec,
		Opener:     client,
		Logger:     logger,
		OnChunk:    func(delta string) { fmt.Print(delta) },
	})
	if err != nil {
		log.Fatalf("init orchestrator: %v", err)
	}

	ui := &repl{cfg: cfg, rec: rec, orch: orch}
	ui.run()
}

type repl struct {
	cfg  config.Config
	rec  *session.Reconciler
	orch *session.Orchestrator

	current string // active conversation id
	listing []chat.Conversation

	mu        sync.Mutex
	cancelCur context.CancelFunc
}

func (r *repl) run() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	go func() {
		for range sigs {
			r.mu.Lock()
			cancel := r.cancelCur
			r.mu.Unlock()
			if cancel != nil {
				// Stop the in-flight answer, keep the REPL alive.
				cancel()
				continue
			}
			fmt.Println()
			os.Exit(0)
		}
	}()

	fmt.Printf("streamline %s (server %s)\n%s\n", version.Info(), r.cfg.ServerURL, helpText)
	r.openMostRecent()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if !r.command(line) {
				return
			}
			continue
		}
		r.send(line)
	}
}

// openMostRecent resumes the latest conversation or starts a fresh one.
func (r *repl) openMostRecent() {
	convs := r.rec.Conversations()
	if len(convs) > 0 {
		r.current = convs[0].ID
		fmt.Printf("resumed: %s\n", convs[0].Title)
		return
	}
	conv := r.rec.Create()
	r.current = conv.ID
	fmt.Println(chat.Greeting)
}

// command handles a slash command; returns false to exit.
func (r *repl) command(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return false
	case "/help":
		fmt.Println(helpText)
	case "/new":
		conv := r.rec.Create()
		r.current = conv.ID
		fmt.Println(chat.Greeting)
	case "/list":
		r.listing = r.rec.Conversations()
		for i, c := range r.listing {
			marker := " "
			if c.ID == r.current {
				marker = "*"
			}
			fmt.Printf("%s %2d. %s (%s)\n", marker, i+1, c.Title, c.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		if len(r.listing) == 0 {
			fmt.Println("no conversations yet")
		}
	case "/open":
		if c, ok := r.pick(fields); ok {
			r.current = c.ID
			for _, m := range c.Messages {
				prefix := "you"
				if m.Role == chat.RoleModel {
					prefix = "bot"
				}
				fmt.Printf("%s: %s\n", prefix, m.Content)
			}
		}
	case "/delete":
		if c, ok := r.pick(fields); ok {
			if err := r.rec.Delete(context.Background(), c.ID); err != nil {
				fmt.Printf("delete failed: %v\n", err)
				break
			}
			if r.current == c.ID {
				r.openMostRecent()
			}
			fmt.Println("deleted")
		}
	default:
		fmt.Printf("unknown command %s\n", fields[0])
	}
	return true
}

// pick resolves a /list index argument against the last listing.
func (r *repl) pick(fields []string) (chat.Conversation, bool) {
	if len(fields) < 2 {
		fmt.Println("usage: " + fields[0] + " <n> (run /list first)")
		return chat.Conversation{}, false
	}
	if len(r.listing) == 0 {
		r.listing = r.rec.Conversations()
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > len(r.listing) {
		fmt.Printf("no conversation %s\n", fields[1])
		return chat.Conversation{}, false
	}
	return r.listing[n-1], true
}

func (r *repl) send(text string) {
	conv, err := r.rec.Get(r.current)
	if err != nil {
		fmt.Printf("no active conversation: %v\n", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.cancelCur = cancel
	r.mu.Unlock()
	defer func() {
		cancel()
		r.mu.Lock()
		r.cancelCur = nil
		r.mu.Unlock()
	}()

	out := r.orch.Send(ctx, conv.ID, text, conv.History())
	switch out.Kind {
	case session.OutcomeFinalized:
		fmt.Println()
	case session.OutcomeCancelled:
		if out.Text != "" {
			fmt.Println()
		}
		fmt.Println("(중단됨)")
	case session.OutcomeFailed:
		if out.Text != "" {
			fmt.Println()
		}
		fmt.Println(out.Message)
	}
}
