package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pair-relay/client"
	"pair-relay/domain"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/pflag"
)

// peek logs in, joins the room and prints the current ledger.
// Joining counts as presence, so the other participant sees a user-joined then user-left.
func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "peek: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()
	config, err := client.LoadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	flagSet := pflag.NewFlagSet("peek", pflag.ContinueOnError)
	flagSet.StringVar(&config.URL, "url", config.URL, "relay websocket endpoint")
	flagSet.StringVar(&config.Secret, "secret", config.Secret, "shared secret (defaults to RELAY_SECRET)")
	flagSet.DurationVar(&config.Timeout, "timeout", config.Timeout, "per-frame read timeout")
	flagSet.BoolVar(&config.Colours, "colours", config.Colours, "colorize output")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if config.Secret == "" {
		return fmt.Errorf("a secret is required (--secret or RELAY_SECRET)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(ctx, config.URL, config.Timeout)
	if err != nil {
		return err
	}
	defer c.Close()

	success, err := c.Login(config.Secret)
	if err != nil {
		return err
	}
	history, online, err := c.Join()
	if err != nil {
		return err
	}

	header := fmt.Sprintf("  ====== %s @ %s | online: %s ======", success.Identity, config.URL,
		strings.Join(lo.Map(online, func(id domain.Identity, _ int) string { return id.String() }), ", "))
	if config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Println(header)
	printHistory(history)
	return nil
}

func printHistory(history []domain.Message) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "ID", "Sender", "Kind", "Flags", "Content", "Reactions"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, m := range history {
		table.Append([]string{
			m.CreatedAt.Format("15:04:05"),
			shorten(string(m.ID), 8),
			m.Sender.String(),
			string(m.Kind),
			flags(m),
			preview(m),
			strings.Join(lo.Map(m.Reactions, func(r domain.Reaction, _ int) string {
				return r.Emoji + " " + r.By.String()
			}), ", "),
		})
	}
	table.Render()
}

func flags(m domain.Message) string {
	var out []string
	if m.SeenOnce {
		out = append(out, "seen-once")
	}
	if m.DisappearingPhoto {
		out = append(out, "disappearing")
	}
	if m.ViewedAt != nil {
		out = append(out, "viewed")
	}
	if m.ReplyTo != nil {
		out = append(out, "reply:"+shorten(string(*m.ReplyTo), 8))
	}
	return strings.Join(out, " ")
}

// Media content is a data URL, only its size is shown.
func preview(m domain.Message) string {
	if m.Kind.IsMedia() {
		return fmt.Sprintf("<%d bytes>", len(m.Content))
	}
	return shorten(m.Content, 60)
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
