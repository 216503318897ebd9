package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/samsterpiece/nostalgiasite/workers/page/dom"
	"github.com/samsterpiece/nostalgiasite/workers/page/domain"
)

type SubmissionAPI interface {
	SubmitFact(ctx context.Context, action string, fields []dom.Field) (*domain.SubmissionResult, error)
}

// SubmissionOutcome is what the visitor was told after a submission.
type SubmissionOutcome struct {
	Success bool
	Message string
	Err     error
}

// SubmissionView holds the elements of the fact form.
type SubmissionView struct {
	Form               *dom.Element
	NotifyYes          *dom.Element
	NotificationFields *dom.Element
}

// FactSubmissionController owns the fact form: the notification field group and the
// submission round trip. All methods must run on the page's event loop.
type FactSubmissionController struct {
	view     SubmissionView
	pageURL  string
	api      SubmissionAPI
	loop     *EventLoop
	notifier Notifier
	parent   context.Context
	timeout  time.Duration
	logger   *zap.Logger
	observer func(SubmissionOutcome)
}

type SubmissionOption func(*FactSubmissionController)

func WithSubmitTimeout(d time.Duration) SubmissionOption {
	return func(c *FactSubmissionController) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithSubmitContext bounds every submission; cancelling ctx aborts an in-flight post.
func WithSubmitContext(ctx context.Context) SubmissionOption {
	return func(c *FactSubmissionController) {
		if ctx != nil {
			c.parent = ctx
		}
	}
}

func WithSubmitLogger(l *zap.Logger) SubmissionOption {
	return func(c *FactSubmissionController) { c.logger = l }
}

// WithSubmissionObserver is called on the loop after every completed submission.
func WithSubmissionObserver(fn func(SubmissionOutcome)) SubmissionOption {
	return func(c *FactSubmissionController) { c.observer = fn }
}

func NewFactSubmissionController(view SubmissionView, pageURL string, api SubmissionAPI, loop *EventLoop, notifier Notifier, opts ...SubmissionOption) *FactSubmissionController {
	c := &FactSubmissionController{
		view:     view,
		pageURL:  pageURL,
		api:      api,
		loop:     loop,
		notifier: notifier,
		parent:   context.Background(),
		timeout:  DefaultRequestTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init brings the notification fields in line with the form's initial, possibly pre-filled, state.
func (c *FactSubmissionController) Init() {
	c.ToggleNotificationFields()
}

// ToggleNotificationFields shows the notification fields iff the "yes" option is checked.
func (c *FactSubmissionController) ToggleNotificationFields() {
	show := c.view.NotifyYes != nil && c.view.NotifyYes.Checked()
	c.view.NotificationFields.SetDisplay(show)
	c.logger.Debug("notification fields toggled", zap.Bool("visible", show))
}

// NotificationFieldsVisible reports the current state of the notification field group.
func (c *FactSubmissionController) NotificationFieldsVisible() bool {
	return c.view.NotificationFields.Visible()
}

// ChooseNotification checks the want_notification radio with the given value, then reacts
// to the change.
func (c *FactSubmissionController) ChooseNotification(value string) error {
	for _, radio := range c.radios() {
		if radio.Value() == value {
			radio.SetChecked(true)
			c.ToggleNotificationFields()
			return nil
		}
	}
	return fmt.Errorf("no %s option with value %q", domain.RadioWantNotification, value)
}

// SetField fills the control named name. Checkboxes and radios are checked by value.
func (c *FactSubmissionController) SetField(name, value string) error {
	if name == domain.RadioWantNotification {
		return c.ChooseNotification(value)
	}
	found, checked := false, false
	for _, ctl := range c.view.Form.Controls() {
		if ctl.Name() != name {
			continue
		}
		found = true
		switch ctl.InputType() {
		case "checkbox", "radio":
			if ctl.Value() == value {
				ctl.SetChecked(true)
				checked = true
			}
		default:
			return ctl.SetValue(value)
		}
	}
	if !found {
		return fmt.Errorf("form has no field %q", name)
	}
	if !checked {
		return fmt.Errorf("no %s option with value %q", name, value)
	}
	return nil
}

// Submit serializes the form and posts it. The outcome is reported to the visitor once the
// response arrives; the form is only reset on success.
func (c *FactSubmissionController) Submit() {
	fields := c.view.Form.FormData()
	action, _ := c.view.Form.Attr("action")
	if action == "" {
		action = c.pageURL
	}
	c.logger.Info("submitting fact", zap.String("action", action), zap.Int("fields", len(fields)))

	ctx, cancel := context.WithTimeout(c.parent, c.timeout)
	c.loop.Spawn(func() func() {
		result, err := c.api.SubmitFact(ctx, action, fields)
		return func() {
			cancel()
			c.complete(result, err)
		}
	})
}

func (c *FactSubmissionController) complete(result *domain.SubmissionResult, err error) {
	if err != nil {
		err = &domain.SubmissionTransportError{Cause: err}
		c.logger.Error("error in submission", zap.Error(err))
		c.report(SubmissionOutcome{Message: domain.MsgSubmitFailed, Err: err})
		return
	}

	if !result.Success && len(result.Error) == 0 {
		err := &domain.SubmissionTransportError{Cause: errors.New("submission rejected without field errors")}
		c.logger.Error("error in submission", zap.Error(err))
		c.report(SubmissionOutcome{Message: domain.MsgSubmitFailed, Err: err})
		return
	}
	if !result.Success {
		verr := &domain.ValidationError{Fields: result.Error}
		c.logger.Warn("submission rejected", zap.String("errors", verr.Error()))
		c.report(SubmissionOutcome{Message: verr.Error(), Err: verr})
		return
	}

	c.logger.Info("submission successful, resetting form")
	c.view.Form.Reset()
	c.ToggleNotificationFields()
	c.report(SubmissionOutcome{Success: true, Message: domain.MsgSubmitSuccess})
}

func (c *FactSubmissionController) report(o SubmissionOutcome) {
	c.notifier.Notify(o.Message)
	if c.observer != nil {
		c.observer(o)
	}
}

func (c *FactSubmissionController) radios() []*dom.Element {
	var out []*dom.Element
	for _, ctl := range c.view.Form.Controls() {
		if ctl.Name() == domain.RadioWantNotification && ctl.InputType() == "radio" {
			out = append(out, ctl)
		}
	}
	return out
}

// IsValidationError reports whether err carries per-field submission errors.
func IsValidationError(err error) bool {
	var verr *domain.ValidationError
	return errors.As(err, &verr)
}
