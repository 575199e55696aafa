// Package deployform implements the deploy-pipeline form: field state,
// submission-time validation, the deploy request itself, and the post-success
// reset. One controller instance backs one user's form session.
package deployform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/raglabs/pipeline-dashboard/internal/models"
)

// Validation failures, in the order they are checked. Submission reports the
// first one that applies and sends nothing upstream.
var (
	ErrNameRequired         = errors.New("pipeline name is required")
	ErrRepoURLRequired      = errors.New("repository URL is required")
	ErrSecretPairIncomplete = errors.New("secret pairs must have both key and value")
	ErrNoCredential         = errors.New("not authenticated")
	ErrSubmitInFlight       = errors.New("a deployment is already in flight")
)

// Deployer sends a validated deploy request to the cloud API.
type Deployer interface {
	Deploy(ctx context.Context, token string, req models.DeployRequest) error
}

// TokenSource yields the caller's bearer token for authenticated requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// State is the current form contents plus submission status.
type State struct {
	PipelineName string              `json:"pipeline_name"`
	RepoURL      string              `json:"repo_url"`
	SecretPairs  []models.SecretPair `json:"secret_pairs"`
	InFlight     bool                `json:"in_flight"`
}

// Validate checks the form fields in a fixed order and returns the first
// failure: name, then repository URL, then secret-pair completeness. A form
// with no secret pairs is valid.
func Validate(s State) error {
	if strings.TrimSpace(s.PipelineName) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(s.RepoURL) == "" {
		return ErrRepoURLRequired
	}
	for _, pair := range s.SecretPairs {
		if strings.TrimSpace(pair.Key) == "" || strings.TrimSpace(pair.Value) == "" {
			return ErrSecretPairIncomplete
		}
	}
	return nil
}

// Controller owns one form's lifecycle. After a successful deploy it clears
// the fields and fires the navigation callback on a randomized delay, which
// gives the upstream list a moment to include the new pipeline before the
// user lands on it.
type Controller struct {
	deployer Deployer
	tokens   TokenSource
	logger   *slog.Logger

	// navigate runs after the post-success reset, typically redirecting the
	// user to the pipelines view.
	navigate func()
	// delay picks the reset delay; overridable in tests.
	delay func() time.Duration

	mu    sync.Mutex
	state State
	timer *time.Timer
}

// Option customizes a Controller.
type Option func(*Controller)

// WithNavigate sets the callback invoked after the post-success reset.
func WithNavigate(fn func()) Option {
	return func(c *Controller) { c.navigate = fn }
}

// WithResetDelay overrides the post-success delay function.
func WithResetDelay(fn func() time.Duration) Option {
	return func(c *Controller) { c.delay = fn }
}

// NewController creates a form controller.
func NewController(deployer Deployer, tokens TokenSource, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		deployer: deployer,
		tokens:   tokens,
		logger:   logger,
		delay:    successDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// successDelay returns a duration in [1s, 2s).
func successDelay() time.Duration {
	return time.Second + time.Duration(rand.Int63n(int64(time.Second)))
}

// State returns a copy of the current form state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.SecretPairs = append([]models.SecretPair(nil), c.state.SecretPairs...)
	return s
}

// SetFields replaces the editable fields. Ignored while a submission is in
// flight.
func (c *Controller) SetFields(name, repoURL string, pairs []models.SecretPair) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.InFlight {
		return
	}
	c.state.PipelineName = name
	c.state.RepoURL = repoURL
	c.state.SecretPairs = append([]models.SecretPair(nil), pairs...)
}

// Submit validates the form and, if valid, sends the deploy request. On
// failure of any kind the entered fields are preserved so the user can
// correct and resubmit; nothing is retried automatically. On success the
// in-flight flag stays set until the delayed reset fires.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.state.InFlight {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	s := c.snapshotLocked()
	c.mu.Unlock()

	if err := Validate(s); err != nil {
		return err
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoCredential, err)
	}
	if token == "" {
		return ErrNoCredential
	}

	c.mu.Lock()
	c.state.InFlight = true
	c.mu.Unlock()

	req := models.DeployRequest{
		PipelineName: s.PipelineName,
		RepoURL:      s.RepoURL,
		SecretPairs:  s.SecretPairs,
	}
	if err := c.deployer.Deploy(ctx, token, req); err != nil {
		c.mu.Lock()
		c.state.InFlight = false
		c.mu.Unlock()
		c.logger.Warn("pipeline deploy failed", "pipeline", s.PipelineName, "error", err)
		return err
	}

	c.logger.Info("pipeline deploy accepted", "pipeline", s.PipelineName)
	c.scheduleReset()
	return nil
}

// scheduleReset arms the post-success timer. The delay is randomized per
// submission.
func (c *Controller) scheduleReset() {
	d := c.delay()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer = time.AfterFunc(d, func() {
		c.mu.Lock()
		c.state = State{}
		c.timer = nil
		c.mu.Unlock()
		if c.navigate != nil {
			c.navigate()
		}
	})
}

// Close stops any pending reset timer. The form state is left as-is.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
