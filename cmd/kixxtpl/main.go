// Command kixxtpl renders and checks kixx templates from the command line.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-yaml"

	"github.com/kixxauth/kixx-templating/pkg/templating"
)

// CLI is the top-level command-line interface for kixxtpl.
type CLI struct {
	LogLevel  string `help:"Log level (debug, info, warn, error)." enum:"debug,info,warn,error" default:"info"`
	LogPretty bool   `help:"Colorize log output."`

	Render RenderCmd `cmd:"" help:"Render a template with data"`
	Check  CheckCmd  `cmd:"" help:"Check templates for syntax errors"`
}

// partialExtensions are the file extensions registered from partial
// directories, keyed by base name without extension.
var partialExtensions = map[string]bool{
	".html": true,
	".tmpl": true,
	".txt":  true,
}

// RenderCmd renders a single template to stdout or a file.
type RenderCmd struct {
	Template string   `arg:"" help:"Template file to render." type:"existingfile"`
	Data     []string `help:"YAML or JSON data file(s), merged in order." short:"d" type:"existingfile"`
	Partials []string `help:"Directories of partial templates." short:"p" type:"existingdir"`
	Output   string   `help:"Output file (default stdout)." short:"o"`
}

func (c *RenderCmd) Run() error {
	engine := templating.New()

	if err := registerPartials(engine, c.Partials); err != nil {
		return err
	}

	context, err := loadData(c.Data)
	if err != nil {
		return err
	}

	render, err := engine.CompileFile(c.Template)
	if err != nil {
		return err
	}

	out, err := render(context)
	if err != nil {
		return err
	}

	if c.Output == "" {
		_, err = os.Stdout.WriteString(out)
		return err
	}
	return os.WriteFile(c.Output, []byte(out), 0o644)
}

// CheckCmd lints templates and prints caret diagnostics.
type CheckCmd struct {
	Templates []string `arg:"" help:"Template file(s) to check." type:"existingfile"`
	Partials  []string `help:"Directories of partial templates." short:"p" type:"existingdir"`
	Strict    bool     `help:"Treat unknown helper/partial references as errors."`
}

func (c *CheckCmd) Run() error {
	config := templating.GetGlobalConfig()
	config.StrictMode = c.Strict

	engine := templating.NewWithOptions(templating.WithConfig(config))
	if err := registerPartials(engine, c.Partials); err != nil {
		return err
	}

	var (
		errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
		warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
		whereStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	)

	errorCount := 0
	for _, path := range c.Templates {
		source, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		for _, issue := range engine.Validate(path, string(source)) {
			style := warningStyle
			if issue.Severity == templating.IssueSeverityError {
				style = errorStyle
				errorCount++
			}
			fmt.Printf("%s %s %s\n",
				whereStyle.Render(fmt.Sprintf("%s:%d:%d:", issue.SourceName, issue.Line, issue.Column)),
				style.Render(string(issue.Severity)),
				issue.Message,
			)
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("%d error(s) found", errorCount)
	}
	return nil
}

// registerPartials registers every recognized template file under the given
// directories as a partial, keyed by base name without extension.
func registerPartials(engine *templating.Engine, dirs []string) error {
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to read partial directory %q: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := filepath.Ext(entry.Name())
			if !partialExtensions[ext] {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			source, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read partial %q: %w", path, err)
			}

			name := strings.TrimSuffix(entry.Name(), ext)
			if err := engine.RegisterPartial(name, string(source)); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadData reads YAML or JSON data files and merges them, later files
// overriding earlier ones key by key.
func loadData(paths []string) (map[string]interface{}, error) {
	context := make(map[string]interface{})
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read data file %q: %w", path, err)
		}

		var data map[string]interface{}
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("failed to parse data file %q: %w", path, err)
		}
		for k, v := range data {
			context[k] = v
		}
	}
	return context, nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("kixxtpl"),
		kong.Description("Compile, render, and check kixx templates."),
		kong.UsageOnError(),
	)

	level := parseLevel(cli.LogLevel)
	var handler slog.Handler
	if cli.LogPretty {
		handler = newPrettyHandler(os.Stderr, level)
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	templating.SetLogger(slog.New(handler))

	if err := ctx.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
