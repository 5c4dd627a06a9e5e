package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"dialer/internal/assets"
	"dialer/internal/config"
	"dialer/internal/logging"
	"dialer/internal/metrics"
	"dialer/internal/session"
)

type commandContext struct {
	configFlag  *string
	baseURLFlag *string
	verbose     *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, baseURLFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		baseURLFlag: baseURLFlag,
		verbose:     verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.baseURLFlag != nil {
			if override := strings.TrimSpace(*c.baseURLFlag); override != "" {
				cfg.Backend.BaseURL = strings.TrimRight(override, "/")
			}
		}
		if c.isVerbose() {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) isVerbose() bool {
	return c.verbose != nil && *c.verbose
}

// logger writes to the log file and, when verbose or when the command is
// long running, to stderr as well.
func (c *commandContext) logger(cfg *config.Config, toStderr bool) (*slog.Logger, error) {
	return logging.NewFromConfig(cfg, toStderr || c.isVerbose())
}

type sessionConfig struct {
	opts     session.Options
	yes      bool
	toStderr bool
}

// withSession builds a session for cmd, runs fn and closes it afterwards.
func (c *commandContext) withSession(cmd *cobra.Command, sc sessionConfig, fn func(*session.Session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.logger(cfg, sc.toStderr)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	opts := sc.opts
	opts.Logger = logger
	if opts.Metrics == nil {
		opts.Metrics = metrics.Default()
	}
	if opts.Confirmer == nil {
		opts.Confirmer = newPromptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout(), sc.yes)
	}
	sess, err := session.New(commandCtx(cmd), cfg, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Debug("session close failed", logging.Error(err))
		}
	}()
	return fn(sess)
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// promptConfirmer asks on the command's stdin. Anything but y or yes
// declines, including end of input.
type promptConfirmer struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

func newPromptConfirmer(in io.Reader, out io.Writer, assumeYes bool) assets.Confirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out, assumeYes: assumeYes}
}

func (p *promptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if p.assumeYes {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	if err == io.EOF && line == "" {
		fmt.Fprintln(p.out)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
