package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sangwoolab/townsync/internal/client/cache"
	"github.com/sangwoolab/townsync/internal/client/models"
	"github.com/sangwoolab/townsync/internal/client/syncer"
)

func (a *App) repl(ctx context.Context) error {
	fmt.Println("TownSync (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("townsync %s > ", a.prompt())
		if !scanner.Scan() {
			return scanner.Err()
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			fmt.Println("Available commands: status, login, register, logout, posts, rates, drafts, post, like, sync, pending, exit")

		case "status":
			a.printStatus(ctx)

		case "login":
			a.login(ctx)

		case "register":
			a.register(ctx)

		case "logout":
			a.logout(ctx)

		case "posts":
			a.listPosts(ctx)

		case "rates":
			a.listRates(ctx)

		case "drafts":
			a.listDrafts(ctx)

		case "post":
			if len(args) == 0 {
				fmt.Println("Usage: post <title>")
				continue
			}
			a.createPost(ctx, strings.Join(args, " "))

		case "like":
			if len(args) == 0 {
				fmt.Println("Usage: like <post-id>")
				continue
			}
			a.toggleLike(ctx, args[0])

		case "sync":
			a.orch.TriggerSync(ctx)
			fmt.Println("Sync started")

		case "pending":
			n, err := a.composer.PendingCount(ctx)
			if err != nil {
				fmt.Println("Error:", err)
				continue
			}
			fmt.Printf("%d pending action(s)\n", n)

		case "exit", "quit":
			fmt.Println("Bye!")
			return nil

		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}

func (a *App) prompt() string {
	mode := "online"
	if !a.monitor.IsConnected() {
		mode = "offline"
	}
	if a.isLoggedIn() {
		return fmt.Sprintf("[%s %s]", a.session.UserID, mode)
	}
	return fmt.Sprintf("[%s]", mode)
}

func (a *App) printStatus(ctx context.Context) {
	st := a.orch.Status()
	switch st.State {
	case syncer.StateSyncing:
		fmt.Printf("Sync: %s (%.0f%%)\n", st.State, st.Progress*100)
	case syncer.StateFailed:
		fmt.Printf("Sync: %s (%s)\n", st.State, st.Reason)
	default:
		fmt.Printf("Sync: %s\n", st.State)
	}

	n, err := a.composer.PendingCount(ctx)
	if err == nil {
		fmt.Printf("Pending actions: %d\n", n)
	}

	size, err := a.cacheStore.SizeBytes(ctx)
	if err == nil {
		fmt.Printf("Cache size: %d bytes\n", size)
	}
}

func (a *App) readLine(prompt string) string {
	fmt.Print(prompt)
	line, _ := a.reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func (a *App) login(ctx context.Context) {
	email := a.readLine("Email: ")
	password := a.readLine("Password: ")

	s, err := a.auth.Login(ctx, email, password)
	if err != nil {
		fmt.Println("Login failed:", err)
		return
	}
	a.session = s
	fmt.Println("Logged in")
}

func (a *App) register(ctx context.Context) {
	email := a.readLine("Email: ")
	password := a.readLine("Password: ")
	nickname := a.readLine("Nickname: ")

	if err := a.auth.Register(ctx, email, password, nickname); err != nil {
		fmt.Println("Registration failed:", err)
		return
	}
	fmt.Println("Registered, now log in")
}

func (a *App) logout(ctx context.Context) {
	if a.session != nil {
		a.push.Disable(ctx, a.session.UserID)
	}
	if err := a.auth.Logout(ctx); err != nil {
		fmt.Println("Logout failed:", err)
		return
	}
	a.session = nil
	fmt.Println("Logged out")
}

func (a *App) listPosts(ctx context.Context) {
	posts, fromCache, err := a.feed.Posts(ctx, "", "")
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if fromCache && a.feed.Stale(ctx, cache.KeyPosts) {
		fmt.Println("(showing cached data)")
	}
	for _, p := range posts {
		fmt.Printf("%s  %s (%s) likes=%d comments=%d\n", p.ID, p.Title, p.AuthorName, p.LikeCount, p.CommentCount)
	}
}

func (a *App) listRates(ctx context.Context) {
	rates, fromCache, err := a.feed.ExchangeRates(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if fromCache {
		fmt.Println("(showing cached data)")
	}
	for _, r := range rates {
		fmt.Printf("%s/%s  %.2f\n", r.Base, r.Quote, r.Rate)
	}
}

func (a *App) listDrafts(ctx context.Context) {
	list, err := a.composer.ListDrafts(ctx, "")
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(list) == 0 {
		fmt.Println("No drafts")
		return
	}
	for _, d := range list {
		fmt.Printf("%s  [%s] %s\n", d.ID, d.Type, d.Title)
	}
}

func (a *App) createPost(ctx context.Context, title string) {
	if !a.isLoggedIn() {
		fmt.Println("Log in first")
		return
	}
	content := a.readLine("Content: ")

	err := a.composer.CreatePost(ctx, models.CreatePostPayload{
		Title:    title,
		Content:  content,
		AuthorID: a.session.UserID,
	})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if a.monitor.IsConnected() {
		fmt.Println("Post queued for delivery")
	} else {
		fmt.Println("Offline: post queued, will send when back online")
	}
}

func (a *App) toggleLike(ctx context.Context, postID string) {
	if !a.isLoggedIn() {
		fmt.Println("Log in first")
		return
	}
	err := a.composer.ToggleLike(ctx, models.ToggleLikePayload{
		PostID: postID,
		UserID: a.session.UserID,
	})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Like queued")
}
