package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/fumiya-kume/repaircoord/pkg/errors"
	"github.com/fumiya-kume/repaircoord/pkg/logger"
)

// Semaphore implements a counting semaphore
type Semaphore chan struct{}

// NewSemaphore creates a new semaphore with the given capacity
func NewSemaphore(capacity int) Semaphore {
	if capacity <= 0 {
		capacity = 1
	}
	return make(chan struct{}, capacity)
}

// Acquire takes one slot or fails when ctx is done
func (s Semaphore) Acquire(ctx context.Context) error {
	select {
	case s <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns one slot
func (s Semaphore) Release() {
	<-s
}

// CommandConfig configures a CommandClient
type CommandConfig struct {
	Command       string
	Args          []string
	Timeout       time.Duration
	MaxConcurrent int
	WorkingDir    string
}

// Default command client values
const (
	DefaultCommandTimeout = 45 * time.Second
	DefaultMaxConcurrent  = 2
)

// CommandClient runs a local model CLI non-interactively, passing the rendered
// prompt with -p and reading the completion from stdout.
type CommandClient struct {
	command    string
	args       []string
	timeout    time.Duration
	workingDir string
	slots      Semaphore
	logger     *logger.Logger
}

// NewCommandClient creates a client for the configured command
func NewCommandClient(config CommandConfig) (*CommandClient, error) {
	if strings.TrimSpace(config.Command) == "" {
		return nil, errors.ConfigurationError("llm command must not be empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultCommandTimeout
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultMaxConcurrent
	}

	return &CommandClient{
		command:    config.Command,
		args:       append([]string(nil), config.Args...),
		timeout:    config.Timeout,
		workingDir: config.WorkingDir,
		slots:      NewSemaphore(config.MaxConcurrent),
		logger:     logger.GetLogger().WithPrefix("llm"),
	}, nil
}

// MakeRequest executes the command once
func (c *CommandClient) MakeRequest(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	if len(messages) == 0 {
		return nil, errors.ValidationError("llm request needs at least one message")
	}

	if err := c.slots.Acquire(ctx); err != nil {
		return nil, errors.LLMError("acquire", err)
	}
	defer c.slots.Release()

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := RenderPrompt(messages)
	args := append(append([]string(nil), c.args...), "-p", prompt)

	// #nosec G204 - command comes from validated configuration; prompt is a separate argument
	cmd := exec.CommandContext(timeoutCtx, c.command, args...)
	if c.workingDir != "" {
		cmd.Dir = c.workingDir
	}
	cmd.Env = os.Environ()
	if opts.MaxTokens > 0 {
		cmd.Env = append(cmd.Env, "LLM_MAX_TOKENS="+strconv.Itoa(opts.MaxTokens))
	}
	if opts.Model != "" {
		cmd.Env = append(cmd.Env, "LLM_MODEL="+opts.Model)
	}

	c.logger.Debug("Executing llm command (command: %s, prompt_chars: %d)", c.command, len(prompt))

	output, err := cmd.Output()
	if err != nil {
		if stderrors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return nil, errors.TimeoutError("llm completion", c.timeout)
		}
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return nil, errors.LLMError("completion",
				fmt.Errorf("command exited with code %d: %s", exitErr.ExitCode(), strings.TrimSpace(string(exitErr.Stderr))))
		}
		return nil, errors.LLMError("completion", err)
	}

	content := strings.TrimSpace(string(output))
	if content == "" {
		return nil, errors.LLMError("completion", fmt.Errorf("empty response"))
	}

	c.logger.Debug("LLM command completed (chars: %d)", len(content))
	return &Response{Content: content, FinishReason: "stop"}, nil
}
