package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/hay-kot/huddle/internal/printer"
)

type ConfigCmd struct {
	flags  *Flags
	format string
}

// NewConfigCmd creates a new config command.
func NewConfigCmd(flags *Flags) *ConfigCmd {
	return &ConfigCmd{flags: flags}
}

// Register adds the config command to the application.
func (cmd *ConfigCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "huddle config validate [options]",
				Description: "Validates the configuration file, checking the relay endpoints and sync settings.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.runValidate,
			},
			{
				Name:        "show",
				Usage:       "Print the effective configuration",
				UsageText:   "huddle config show",
				Description: "Prints the configuration after defaults are applied, as YAML.",
				Action:      cmd.runShow,
			},
		},
	})

	return app
}

func (cmd *ConfigCmd) runValidate(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	if cmd.flags.Config == nil {
		return fmt.Errorf("configuration not loaded")
	}

	err := cmd.flags.Config.Validate()

	if cmd.format == "json" {
		return cmd.outputJSON(c, err)
	}

	return cmd.outputText(p, err)
}

func (cmd *ConfigCmd) runShow(_ context.Context, c *cli.Command) error {
	if cmd.flags.Config == nil {
		return fmt.Errorf("configuration not loaded")
	}

	enc := yaml.NewEncoder(c.Root().Writer)
	enc.SetIndent(2)
	if err := enc.Encode(cmd.flags.Config); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func (cmd *ConfigCmd) outputJSON(c *cli.Command, validationErr error) error {
	type fieldError struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}

	out := struct {
		Valid  bool         `json:"valid"`
		Errors []fieldError `json:"errors,omitempty"`
	}{
		Valid: validationErr == nil,
	}

	for _, fe := range extractFieldErrors(validationErr) {
		out.Errors = append(out.Errors, fieldError{Field: fe.Field, Message: fe.Err.Error()})
	}

	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// extractFieldErrors extracts field errors from a validation error.
func extractFieldErrors(err error) criterio.FieldErrors {
	if err == nil {
		return nil
	}
	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		return fieldErrs
	}
	return criterio.FieldErrors{{Err: err}}
}

func (cmd *ConfigCmd) outputText(p *printer.Printer, validationErr error) error {
	if validationErr == nil {
		p.Successf("Configuration is valid")
		return nil
	}

	fieldErrs := extractFieldErrors(validationErr)

	p.Printf("Errors")
	for _, fe := range fieldErrs {
		if fe.Field != "" {
			p.Printf("  %s %s: %s", printer.Cross, fe.Field, fe.Err.Error())
		} else {
			p.Printf("  %s %s", printer.Cross, fe.Err.Error())
		}
	}

	p.Printf("")
	p.Errorf("%d error(s)", len(fieldErrs))
	return cli.Exit("", 1)
}
