package main

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/simonsays/game/config"
	"github.com/wricardo/simonsays/simulator"
)

var boardColors = map[string]pterm.Color{
	"green":  pterm.FgGreen,
	"red":    pterm.FgRed,
	"yellow": pterm.FgYellow,
	"blue":   pterm.FgBlue,
}

// colorize renders a board id in its board color.
func colorize(color, id string) string {
	c, ok := boardColors[color]
	if !ok {
		return id
	}
	return c.Sprint(id)
}

// runBoard connects simulated boards to a server and either presses one
// board or plays along with the observer stream.
func runBoard(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	setupLogging(settings.Debug)

	table, err := config.LoadBoards(settings.BoardsFile)
	if err != nil {
		return fmt.Errorf("load boards: %w", err)
	}

	baseURL := cmd.String("server")
	if baseURL == "" {
		baseURL, err = discoverServer(ctx, settings, cmd)
		if err != nil {
			return err
		}
	}
	client := simulator.NewClient(baseURL)

	if id := cmd.String("press"); id != "" {
		hit, err := client.Press(ctx, id, 0)
		if err != nil {
			return err
		}
		if hit.Ignored() {
			pterm.Warning.Printfln("Server ignored board %s", id)
			return nil
		}
		pterm.Success.Printfln("Pressed %s", colorize(table[id], id))
		return nil
	}

	spinner, _ := pterm.DefaultSpinner.Start("Connecting boards...")
	if err := client.Connect(ctx, boardIDs(table)); err != nil {
		spinner.Fail(err.Error())
		return err
	}
	spinner.Success(fmt.Sprintf("Connected %d boards to %s", len(table), baseURL))

	result, err := client.Autoplay(ctx, simulator.AutoplayOptions{
		Start:      cmd.Bool("start"),
		PressDelay: cmd.Duration("press-delay"),
		MaxLevel:   int(cmd.Int("max-level")),
		OnEvent: func(ev simulator.Event) {
			printEvent(table, ev)
		},
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}

	pterm.DefaultBox.
		WithTitle("Game over").
		WithHorizontalPadding(4).
		WithTopPadding(1).
		WithBottomPadding(1).
		Println(pterm.Sprintfln("Level: %d\nReason: %s", result.Level, result.Reason))
	return nil
}

func discoverServer(ctx context.Context, settings *config.Settings, cmd *cli.Command) (string, error) {
	_, port, err := net.SplitHostPort(settings.Addr)
	if err != nil {
		return "", fmt.Errorf("parse addr %q: %w", settings.Addr, err)
	}

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("discover-timeout"))
	defer cancel()

	spinner, _ := pterm.DefaultSpinner.Start("Looking for the game server...")
	baseURL, err := simulator.Discover(ctx, settings.Discovery.Group, settings.Discovery.Message, port)
	if err != nil {
		spinner.Fail("No server beacon received, use --server")
		return "", err
	}
	spinner.Success("Found server at " + baseURL)
	return baseURL, nil
}

func printEvent(table map[string]string, ev simulator.Event) {
	switch ev.Name {
	case "show_flash":
		pterm.Info.Printfln("Flash %s", colorize(table[ev.ChipID], ev.ChipID))
	case "game_update":
		switch ev.Status {
		case "SHOWING":
			pterm.DefaultSection.Printfln("Level %d", ev.Level)
		case "PLAYER_TURN":
			pterm.Info.Println("Your turn")
		case "LEVEL_COMPLETE":
			pterm.Success.Printfln("Level %d complete", ev.Level)
		case "GAME_OVER":
			pterm.Error.Printfln("Game over on level %d: %s", ev.Level, ev.Reason)
		}
	}
}
