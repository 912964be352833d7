// Command inspect prints the shared registry state and mints development tokens.
//
//	inspect sockets            users, their connection handles and owner TTLs
//	inspect token <userId>     a signed credential for manual WebSocket testing
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"folio-chat/auth"
	"folio-chat/domain"
	"folio-chat/registry"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	RedisURL      string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	JWTSecret     string        `envconfig:"JWT_SECRET"`
	TokenDuration time.Duration `envconfig:"AUTH_TOKEN_DURATION" default:"24h"`
	Colours       bool          `envconfig:"INSPECT_COLOURS" default:"true"`
}

func main() {
	flag.Parse()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		fail(err)
	}
	color.Enable = cfg.Colours

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch flag.Arg(0) {
	case "", "sockets":
		if err := printSockets(ctx, cfg); err != nil {
			fail(err)
		}
	case "token":
		if err := printToken(cfg, flag.Arg(1)); err != nil {
			fail(err)
		}
	default:
		fail(fmt.Errorf("unknown command %q (want sockets or token)", flag.Arg(0)))
	}
}

func printSockets(ctx context.Context, cfg Config) error {
	client, err := registry.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer client.Close()

	rows, err := registry.NewRedisRegistry(client).Snapshot(ctx)
	if err != nil {
		return err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"User", "Connection", "Owner", "TTL"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("\t")

	stale := 0
	for _, row := range rows {
		for _, socket := range row.Sockets {
			ttl := socket.TTL.Round(time.Second).String()
			if socket.Owner != row.UserID {
				stale++
				ttl = color.FgRed.Render("stale")
			}
			table.Append([]string{row.UserID, socket.ConnID, socket.Owner, ttl})
		}
	}
	table.Render()

	summary := fmt.Sprintf("%d users online, %d stale handles", len(rows), stale)
	if stale > 0 {
		color.Warn.Println(summary)
		return nil
	}
	color.Info.Println(summary)
	return nil
}

func printToken(cfg Config, userID string) error {
	if userID == "" {
		return fmt.Errorf("usage: inspect token <userId> [hours]")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set to mint a token")
	}
	duration := cfg.TokenDuration
	if raw := flag.Arg(2); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid hours %q: %w", raw, err)
		}
		duration = time.Duration(hours) * time.Hour
	}
	token, err := auth.NewTokenResolver(cfg.JWTSecret).GenerateToken(domain.UserID(userID), duration)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, color.FgRed.Render(err.Error()))
	os.Exit(1)
}
