package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JayJeyaruban/arrpc/internal/ir"
)

// ErrNotFound is returned when an interface has never been published.
var ErrNotFound = errors.New("interface not published")

// Published is one frozen version of an interface.
type Published struct {
	Interface   string    `json:"interface"`
	Version     string    `json:"version"`
	Seq         int       `json:"seq"`
	Fingerprint string    `json:"fingerprint"`
	PublishedAt time.Time `json:"published_at"`
}

// ViolationCode categorizes a release that rewrites published history.
type ViolationCode string

const (
	// ViolationDropped: a published version is missing from the description.
	ViolationDropped ViolationCode = "E401"

	// ViolationChanged: a published version's shape differs from what was published.
	ViolationChanged ViolationCode = "E402"

	// ViolationInserted: a new version sorts before an already published one.
	ViolationInserted ViolationCode = "E403"
)

// Violation describes one conflict with published history.
type Violation struct {
	Code    ViolationCode `json:"code"`
	Version string        `json:"version"`
	Message string        `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s: %s", v.Code, v.Version, v.Message)
}

// ConflictError refuses a publish that would violate published history.
type ConflictError struct {
	Interface  string
	Violations []Violation
}

func (e *ConflictError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "interface %s: %d published version conflict(s)", e.Interface, len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n  ")
		b.WriteString(v.String())
	}
	return b.String()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Published lists the published versions of an interface in release order.
// An unknown interface has no versions.
func (r *Registry) Published(ctx context.Context, name string) ([]Published, error) {
	return published(ctx, r.db, name)
}

func published(ctx context.Context, q querier, name string) ([]Published, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT version, seq, fingerprint, published_at
		FROM shapes
		WHERE interface = ?
		ORDER BY seq
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query published versions: %w", err)
	}
	defer rows.Close()

	var out []Published
	for rows.Next() {
		p := Published{Interface: name}
		var at int64
		if err := rows.Scan(&p.Version, &p.Seq, &p.Fingerprint, &at); err != nil {
			return nil, fmt.Errorf("scan published version: %w", err)
		}
		p.PublishedAt = time.Unix(0, at).UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate published versions: %w", err)
	}
	return out, nil
}

// Check compares c with the published history of its interface and returns
// every violation. An empty result means Publish would succeed.
func (r *Registry) Check(ctx context.Context, c *ir.Compiled) ([]Violation, error) {
	pub, err := r.Published(ctx, c.Interface.Name)
	if err != nil {
		return nil, err
	}
	return diff(c, pub)
}

func diff(c *ir.Compiled, pub []Published) ([]Violation, error) {
	index := make(map[string]int, len(c.Shapes))
	for i, s := range c.Shapes {
		index[s.Version] = i
	}

	var violations []Violation
	newestPublished := -1
	isPublished := make(map[string]bool, len(pub))
	for _, p := range pub {
		isPublished[p.Version] = true
		i, ok := index[p.Version]
		if !ok {
			violations = append(violations, Violation{
				Code:    ViolationDropped,
				Version: p.Version,
				Message: "version was published and cannot be removed",
			})
			continue
		}
		newestPublished = max(newestPublished, i)

		fp, err := ir.ShapeFingerprint(c.Interface.Name, c.Shapes[i])
		if err != nil {
			return nil, err
		}
		if fp != p.Fingerprint {
			violations = append(violations, Violation{
				Code:    ViolationChanged,
				Version: p.Version,
				Message: fmt.Sprintf("shape changed since publication (published %s, now %s)", short(p.Fingerprint), short(fp)),
			})
		}
	}

	for i, s := range c.Shapes {
		if !isPublished[s.Version] && i < newestPublished {
			violations = append(violations, Violation{
				Code:    ViolationInserted,
				Version: s.Version,
				Message: fmt.Sprintf("new version sorts before published version %s", c.Shapes[newestPublished].Version),
			})
		}
	}
	return violations, nil
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

// Publish freezes every version of c not yet published and stores c as the
// interface's current artifact. It returns the newly published versions.
// A release that conflicts with published history is refused with a
// *ConflictError and nothing is written.
func (r *Registry) Publish(ctx context.Context, c *ir.Compiled) ([]Published, error) {
	compiled, err := ir.MarshalCanonical(c)
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", c.Interface.Name, err)
	}
	now := r.now().UTC()

	var added []Published
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		pub, err := published(ctx, tx, c.Interface.Name)
		if err != nil {
			return err
		}
		violations, err := diff(c, pub)
		if err != nil {
			return err
		}
		if len(violations) > 0 {
			return &ConflictError{Interface: c.Interface.Name, Violations: violations}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO interfaces (name, fingerprint, compiled, tool_version, published_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				fingerprint = excluded.fingerprint,
				compiled = excluded.compiled,
				tool_version = excluded.tool_version,
				published_at = excluded.published_at
		`, c.Interface.Name, c.Fingerprint, string(compiled), ir.ToolVersion, now.UnixNano())
		if err != nil {
			return fmt.Errorf("write interface: %w", err)
		}

		done := make(map[string]bool, len(pub))
		for _, p := range pub {
			done[p.Version] = true
		}
		for i, s := range c.Shapes {
			if done[s.Version] {
				continue
			}
			fp, err := ir.ShapeFingerprint(c.Interface.Name, s)
			if err != nil {
				return err
			}
			shape, err := ir.MarshalCanonical(s)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO shapes (interface, version, seq, fingerprint, shape, published_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, c.Interface.Name, s.Version, i, fp, string(shape), now.UnixNano())
			if err != nil {
				return fmt.Errorf("write version %s: %w", s.Version, err)
			}
			added = append(added, Published{
				Interface:   c.Interface.Name,
				Version:     s.Version,
				Seq:         i,
				Fingerprint: fp,
				PublishedAt: now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// Load returns the most recently published artifact of an interface.
func (r *Registry) Load(ctx context.Context, name string) (*ir.Compiled, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT compiled FROM interfaces WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	var c ir.Compiled
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("load %s: decode artifact: %w", name, err)
	}
	return &c, nil
}

// Interfaces lists every published interface name in order.
func (r *Registry) Interfaces(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM interfaces ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query interfaces: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan interface: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
