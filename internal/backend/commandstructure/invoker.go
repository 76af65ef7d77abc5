package commandstructure

import (
	"fmt"
	"image"
	"log/slog"
	"time"
)

// CommandInvoker executes a sequence of commands on an image
type CommandInvoker struct {
	commands []Command
}

// NewCommandInvoker creates a new command invoker
func NewCommandInvoker(commands []Command) *CommandInvoker {
	return &CommandInvoker{
		commands: commands,
	}
}

// Execute applies all commands in sequence to the image
func (i *CommandInvoker) Execute(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("no image to process")
	}
	start := time.Now()
	bounds := img.Bounds()

	slog.Debug("starting image processing pipeline",
		"command_count", len(i.commands),
		"input_width", bounds.Dx(),
		"input_height", bounds.Dy())

	if len(i.commands) == 0 {
		slog.Debug("no commands to execute, returning original image")
		return img, nil
	}

	current := img
	for idx, command := range i.commands {
		commandStart := time.Now()

		processed, err := command.Execute(current)
		if err != nil {
			slog.Error("command execution failed",
				"index", idx,
				"command_name", command.Name(),
				"error", err)
			return nil, fmt.Errorf("command %s (index %d) failed: %w", command.Name(), idx, err)
		}

		out := processed.Bounds()
		slog.Debug("command completed",
			"index", idx,
			"command_name", command.Name(),
			"duration_ms", time.Since(commandStart).Milliseconds(),
			"output_width", out.Dx(),
			"output_height", out.Dy())

		current = processed
	}

	final := current.Bounds()
	slog.Debug("image processing pipeline completed",
		"total_duration_ms", time.Since(start).Milliseconds(),
		"command_count", len(i.commands),
		"final_width", final.Dx(),
		"final_height", final.Dy())

	return current, nil
}

// ExecuteCommands creates the configured commands from DefaultRegistry and applies them in order
func ExecuteCommands(img image.Image, commandConfigs []CommandConfig) (image.Image, error) {
	commands := make([]Command, 0, len(commandConfigs))
	for i, config := range commandConfigs {
		slog.Debug("creating command",
			"index", i,
			"command_name", config.Name,
			"params", config.Params)

		command, err := DefaultRegistry.Create(config.Name, config.Params)
		if err != nil {
			slog.Error("failed to create command",
				"index", i,
				"command_name", config.Name,
				"error", err)
			return nil, fmt.Errorf("failed to create command at index %d (%s): %w", i, config.Name, err)
		}
		commands = append(commands, command)
	}

	return NewCommandInvoker(commands).Execute(img)
}
