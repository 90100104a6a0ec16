package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-api/internal/identity"
	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/repository"
	"github.com/noah-isme/gema-eval-api/internal/service"
	"github.com/noah-isme/gema-eval-api/pkg/ai"
)

// State is the screen the session is on.
type State string

const (
	StateNoRole                 State = "no_role"
	StateTeacherUnauthenticated State = "teacher_unauthenticated"
	StateTeacherAuthenticated   State = "teacher_authenticated"
	StateStudent                State = "student"
)

// Role is the actor picked on the landing screen.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

var (
	// ErrInvalidTransition indicates the requested state change is not allowed from the current state.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrNotPermitted indicates the operation is not available in the current state.
	ErrNotPermitted = errors.New("operation not permitted in current session state")
	// ErrSessionNotFound indicates the session id is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")
)

// Deps are the collaborators shared by every session.
type Deps struct {
	Store      repository.RecordStore
	Sink       service.ReportSink
	Evaluator  ai.Evaluator
	Identities identity.Provider
	Results    service.StudentResultService
	Logger     zerolog.Logger
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	ID         string             `json:"session_id"`
	State      State              `json:"state"`
	Identity   *identity.Identity `json:"identity,omitempty"`
	SelectedID string             `json:"selected_id,omitempty"`
	Query      string             `json:"query"`
	HasDraft   bool               `json:"has_draft"`
	Evaluating bool               `json:"evaluating"`
	Records    int                `json:"records"`
}

// Controller holds the state of one session and routes teacher and student intents.
type Controller struct {
	id         string
	reconciler *service.RecordReconciler
	identities identity.Provider
	results    service.StudentResultService
	logger     zerolog.Logger

	mu         sync.Mutex
	saving     bool
	state      State
	identity   *identity.Identity
	workspace  service.Workspace
	selectedID string
	query      string
	generation uint64
	lastSeen   time.Time
}

// NewController builds a controller in the NoRole state with its own reconciler.
func NewController(id string, deps Deps) *Controller {
	var invalidator service.ResultInvalidator
	if deps.Results != nil {
		invalidator = deps.Results
	}
	logger := deps.Logger.With().Str("component", "session").Str("session_id", id).Logger()
	return &Controller{
		id:         id,
		reconciler: service.NewRecordReconciler(deps.Store, deps.Sink, deps.Evaluator, invalidator, logger),
		identities: deps.Identities,
		results:    deps.Results,
		logger:     logger,
		state:      StateNoRole,
		lastSeen:   time.Now(),
	}
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the current session view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		ID:         c.id,
		State:      c.state,
		SelectedID: c.selectedID,
		Query:      c.query,
		HasDraft:   c.workspace.HasDraft(),
		Evaluating: c.reconciler.Busy(),
		Records:    len(c.workspace.Records),
	}
	if c.identity != nil {
		id := *c.identity
		snap.Identity = &id
	}
	return snap
}

// SelectRole leaves the landing screen.
func (c *Controller) SelectRole(role Role) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateNoRole {
		return ErrInvalidTransition
	}
	switch role {
	case RoleTeacher:
		c.state = StateTeacherUnauthenticated
	case RoleStudent:
		c.state = StateStudent
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidTransition, role)
	}
	c.logger.Debug().Str("state", string(c.state)).Msg("role selected")
	return nil
}

// SignIn authenticates the teacher and loads the record set from the store. Provider failures
// are returned as *identity.AuthError and leave the session unauthenticated.
func (c *Controller) SignIn(ctx context.Context, email, password string) (identity.Identity, error) {
	c.mu.Lock()
	if c.state != StateTeacherUnauthenticated {
		c.mu.Unlock()
		return identity.Identity{}, ErrInvalidTransition
	}
	generation := c.generation
	c.mu.Unlock()

	if c.identities == nil {
		return identity.Identity{}, &identity.AuthError{Kind: identity.KindOther, Err: errors.New("identity provider unavailable")}
	}

	who, err := c.identities.SignIn(ctx, email, password)
	if err != nil {
		c.logger.Info().Str("kind", string(identity.KindOf(err))).Msg("sign-in rejected")
		return identity.Identity{}, err
	}

	ws, err := c.reconciler.Load(ctx)
	if err != nil {
		return identity.Identity{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation || c.state != StateTeacherUnauthenticated {
		return identity.Identity{}, ErrInvalidTransition
	}
	c.state = StateTeacherAuthenticated
	c.identity = &who
	c.workspace = ws
	return who, nil
}

// SignOut returns to the landing screen and forgets the identity, records, selection, search
// query and draft. A pending evaluation result is dropped when it arrives.
func (c *Controller) SignOut() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateNoRole
	c.identity = nil
	c.workspace = service.Workspace{}
	c.selectedID = ""
	c.query = ""
	c.generation++
	c.logger.Debug().Msg("signed out")
}

func (c *Controller) requireTeacher() error {
	if c.state != StateTeacherAuthenticated {
		return ErrNotPermitted
	}
	return nil
}

// Submit sends a new submission to the evaluator and keeps the result as the draft. The session
// lock is released while the evaluator runs.
func (c *Controller) Submit(ctx context.Context, fields service.SubmissionFields) (models.EvaluationResult, error) {
	c.mu.Lock()
	if err := c.requireTeacher(); err != nil {
		c.mu.Unlock()
		return models.EvaluationResult{}, err
	}
	ws := c.workspace
	generation := c.generation
	c.mu.Unlock()

	next, err := c.reconciler.SubmitEvaluation(ctx, ws, fields)
	if err != nil {
		return models.EvaluationResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation || c.state != StateTeacherAuthenticated {
		return models.EvaluationResult{}, ErrNotPermitted
	}
	// The id may have been saved while the evaluator was running.
	if c.workspace.Records.Has(next.Draft.SubmissionID) {
		return models.EvaluationResult{}, service.ErrDuplicateSubmission
	}
	c.workspace.Draft = next.Draft
	return next.Draft.Clone(), nil
}

// Draft returns the pending evaluation.
func (c *Controller) Draft() (models.EvaluationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireTeacher(); err != nil {
		return models.EvaluationResult{}, err
	}
	if !c.workspace.HasDraft() {
		return models.EvaluationResult{}, service.ErrNoDraft
	}
	return c.workspace.Draft.Clone(), nil
}

// ConfirmSave commits the draft, with edits applied when given. The submission id and date of
// the draft cannot be changed by edits. The session lock is released while the report is
// published; the draft is cleared once the publish succeeds.
func (c *Controller) ConfirmSave(ctx context.Context, edits *models.EvaluationResult) (models.EvaluationResult, error) {
	c.mu.Lock()
	if err := c.requireTeacher(); err != nil {
		c.mu.Unlock()
		return models.EvaluationResult{}, err
	}
	if !c.workspace.HasDraft() {
		c.mu.Unlock()
		return models.EvaluationResult{}, service.ErrNoDraft
	}
	if c.saving {
		c.mu.Unlock()
		return models.EvaluationResult{}, service.ErrSaveInFlight
	}

	draft := c.workspace.Draft.Clone()
	if edits != nil {
		edited := edits.Clone()
		edited.SubmissionID = draft.SubmissionID
		edited.SubmissionDate = draft.SubmissionDate
		draft = edited
	}

	next, record, err := c.reconciler.CommitDraft(ctx, c.workspace, draft)
	if err != nil {
		c.mu.Unlock()
		return models.EvaluationResult{}, err
	}
	c.workspace = next
	c.selectedID = record.SubmissionID
	c.saving = true
	generation := c.generation
	c.mu.Unlock()

	publishErr := c.reconciler.PublishReport(ctx, record)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.saving = false
	if publishErr != nil {
		return models.EvaluationResult{}, publishErr
	}
	if c.generation == generation && c.workspace.Draft != nil && c.workspace.Draft.SubmissionID == record.SubmissionID {
		c.workspace.Draft = nil
	}
	return record, nil
}

// Discard drops the pending draft.
func (c *Controller) Discard() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireTeacher(); err != nil {
		return err
	}
	c.workspace = c.reconciler.DiscardDraft(c.workspace)
	return nil
}

// View returns a saved record and marks it as selected.
func (c *Controller) View(id string) (models.EvaluationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireTeacher(); err != nil {
		return models.EvaluationResult{}, err
	}
	record, err := c.reconciler.ViewRecord(c.workspace, id)
	if err != nil {
		return models.EvaluationResult{}, err
	}
	c.selectedID = id
	return record, nil
}

// Update writes an edited saved record through to the store.
func (c *Controller) Update(ctx context.Context, record models.EvaluationResult) (models.EvaluationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireTeacher(); err != nil {
		return models.EvaluationResult{}, err
	}
	next, err := c.reconciler.UpdateRecord(ctx, c.workspace, record)
	if err != nil {
		return models.EvaluationResult{}, err
	}
	c.workspace = next
	c.selectedID = record.SubmissionID
	return c.reconciler.ViewRecord(next, record.SubmissionID)
}

// Search remembers query and returns the matching records ordered by submission id.
func (c *Controller) Search(query string) ([]models.EvaluationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireTeacher(); err != nil {
		return nil, err
	}
	c.query = query
	return c.filtered(), nil
}

// Records returns the records matching the remembered search query.
func (c *Controller) Records() ([]models.EvaluationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireTeacher(); err != nil {
		return nil, err
	}
	return c.filtered(), nil
}

func (c *Controller) filtered() []models.EvaluationResult {
	matched := service.SearchRecords(c.query, c.workspace.Records)
	out := make([]models.EvaluationResult, 0, len(matched))
	for _, id := range service.SortedIDs(matched) {
		out = append(out, matched[id].Clone())
	}
	return out
}

// LookupResult serves a saved result to a student who knows its submission id and roll number.
func (c *Controller) LookupResult(ctx context.Context, submissionID, rollNo string) (models.EvaluationResult, error) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	if state != StateStudent {
		return models.EvaluationResult{}, ErrNotPermitted
	}
	if c.results == nil {
		return models.EvaluationResult{}, service.ErrRecordNotFound
	}
	return c.results.Lookup(ctx, submissionID, rollNo)
}

func (c *Controller) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *Controller) idleSince(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastSeen)
}
