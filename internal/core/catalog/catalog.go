// Package catalog stores named JSON rule documents in the SQL catalog.
//
// Documents are compiled before they are written, so every stored rule set is
// known to parse. The canonical form produced by rules.MarshalTree is what gets
// stored; Get recompiles it with the catalog's engine.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/solatis/condmatch/internal/rules"
	"github.com/solatis/condmatch/internal/types"
)

// MaxRuleSetNameLength bounds rule-set names.
const MaxRuleSetNameLength = 128

var (
	// ErrRuleSetNotFound is returned when no rule set has the requested name.
	ErrRuleSetNotFound = errors.New("rule set not found")

	// ErrInvalidName is returned for empty, oversized or non [A-Za-z0-9._-] names.
	ErrInvalidName = errors.New("invalid rule set name")
)

// Queries is the subset of *db.Queries the catalog needs.
type Queries interface {
	Exec(ctx context.Context, name string, args ...any) (sql.Result, error)
	Get(ctx context.Context, name string, dest any, args ...any) error
	Select(ctx context.Context, name string, dest any, args ...any) error
}

// RuleSet is one stored rule document.
type RuleSet struct {
	ID          types.RuleSetID `db:"rule_set_id"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Document    string          `db:"document"`
	Complexity  int             `db:"complexity"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// Catalog reads and writes rule sets.
type Catalog struct {
	queries Queries
	engine  *rules.Engine
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithEngine sets the engine compiled matchers evaluate with.
func WithEngine(e *rules.Engine) Option {
	return func(c *Catalog) { c.engine = e }
}

// WithLogger sets the logger for catalog writes.
func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a catalog over the given queries.
func New(queries Queries, opts ...Option) *Catalog {
	c := &Catalog{
		queries: queries,
		engine:  rules.DefaultEngine(),
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ValidateName checks a rule-set name.
func ValidateName(name string) error {
	if name == "" || len(name) > MaxRuleSetNameLength {
		return fmt.Errorf("%w: length must be 1..%d", ErrInvalidName, MaxRuleSetNameLength)
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.' || c == '_' || c == '-':
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, c)
		}
	}
	return nil
}

// Save compiles document and stores it under name, replacing any rule set
// with the same name. The returned RuleSet carries the canonical document.
func (c *Catalog) Save(ctx context.Context, name, description string, document []byte) (*RuleSet, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	tree, err := rules.Compile(document)
	if err != nil {
		return nil, err
	}
	canonical, err := rules.MarshalTree(tree)
	if err != nil {
		return nil, err
	}

	now := c.now()
	rs := &RuleSet{
		ID:          types.NewRuleSetID(),
		Name:        name,
		Description: description,
		Document:    string(canonical),
		Complexity:  rules.Complexity(tree),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// On conflict the existing id and created_at are kept
	if _, err := c.queries.Exec(ctx, "upsert-rule-set",
		rs.ID, rs.Name, rs.Description, rs.Document, rs.Complexity, rs.CreatedAt, rs.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to save rule set %q: %w", name, err)
	}

	stored, err := c.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	c.logger.Info("saved rule set",
		zap.String("name", name),
		zap.String("rule_set_id", string(stored.ID)),
		zap.Int("complexity", stored.Complexity))
	return stored, nil
}

// Get returns the rule set stored under name.
func (c *Catalog) Get(ctx context.Context, name string) (*RuleSet, error) {
	var rs RuleSet
	err := c.queries.Get(ctx, "get-rule-set", &rs, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrRuleSetNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rule set %q: %w", name, err)
	}
	return &rs, nil
}

// Matcher compiles the rule set stored under name.
func (c *Catalog) Matcher(ctx context.Context, name string) (*rules.JSONMatcher, error) {
	rs, err := c.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	m, err := rules.FromJSON([]byte(rs.Document), rules.WithEngine(c.engine))
	if err != nil {
		return nil, fmt.Errorf("stored rule set %q no longer compiles: %w", name, err)
	}
	return m, nil
}

// List returns every rule set ordered by name.
func (c *Catalog) List(ctx context.Context) ([]RuleSet, error) {
	var out []RuleSet
	if err := c.queries.Select(ctx, "list-rule-sets", &out); err != nil {
		return nil, fmt.Errorf("failed to list rule sets: %w", err)
	}
	return out, nil
}

// Delete removes the rule set stored under name.
func (c *Catalog) Delete(ctx context.Context, name string) error {
	res, err := c.queries.Exec(ctx, "delete-rule-set", name)
	if err != nil {
		return fmt.Errorf("failed to delete rule set %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %q", ErrRuleSetNotFound, name)
	}
	c.logger.Info("deleted rule set", zap.String("name", name))
	return nil
}
