package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mcdev12/pomoroom/go/internal/models"
	"github.com/mcdev12/pomoroom/go/internal/room"
)

var errQuit = errors.New("quit")

const helpText = `commands:
  nick <name>        set or change your nickname
  color <#hex|1-6>   pick your color
  start | stop       start or stop your timer
  preset 25|50|custom
  minutes <n>        length of the custom preset
  msg <text>         set your status message
  title <text>       rename the room
  remove <name>      remove a participant
  leave              remove yourself and forget your nickname
  quit               exit, your record stays in the room`

// parseCommand splits a line into the command word and the rest.
func parseCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	name, arg, _ := strings.Cut(line, " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

// commandRunner applies typed commands to a room session.
type commandRunner struct {
	sess *room.Session
	out  io.Writer
}

// run executes one line. It returns errQuit when the client should exit.
func (c *commandRunner) run(ctx context.Context, line string) error {
	name, arg := parseCommand(line)
	ctrl := c.sess.Controller()

	switch name {
	case "":
		return nil
	case "help", "?":
		fmt.Fprintln(c.out, helpText)
	case "nick":
		return ctrl.Rename(arg)
	case "color":
		color, err := parseColor(arg)
		if err != nil {
			return err
		}
		return ctrl.SetColor(color)
	case "start":
		ctrl.Start()
	case "stop":
		ctrl.Stop()
	case "preset":
		preset, err := models.ParsePreset(arg)
		if err != nil {
			return err
		}
		return ctrl.SetPreset(preset)
	case "minutes":
		minutes, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("%w: %q", models.ErrInvalidMinutes, arg)
		}
		return ctrl.SetCustomMinutes(minutes)
	case "msg":
		ctrl.SetMessage(arg)
	case "title":
		return c.sess.SetTitle(ctx, arg)
	case "remove":
		self := arg != "" && arg == ctrl.Draft().UserID
		if err := c.sess.Remove(ctx, arg); err != nil {
			return err
		}
		if self {
			return errQuit
		}
	case "leave":
		ctrl.Leave()
		return errQuit
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q, type help", name)
	}
	return nil
}

// parseColor accepts a palette position (1-based) or a #hex color.
func parseColor(arg string) (string, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(models.Palette) {
			return "", fmt.Errorf("palette has colors 1 to %d", len(models.Palette))
		}
		return models.Palette[n-1], nil
	}
	if !strings.HasPrefix(arg, "#") || (len(arg) != 4 && len(arg) != 7) {
		return "", fmt.Errorf("invalid color %q", arg)
	}
	if _, err := strconv.ParseUint(arg[1:], 16, 32); err != nil {
		return "", fmt.Errorf("invalid color %q", arg)
	}
	return strings.ToLower(arg), nil
}
