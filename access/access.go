// Package access decides which store operations a role may perform and enforces that decision
// before the store is called.
package access

import (
	"fmt"

	"github.com/thoas/go-funk"

	"github.com/mplewis/notekv"
	"github.com/mplewis/notekv/session"
)

// Op is a store operation subject to policy.
type Op string

const (
	Create   Op = "create"
	Write    Op = "write"
	Read     Op = "read"
	Delete   Op = "delete"
	List     Op = "list"
	Compress Op = "compress"
)

// ForbiddenError is returned when a role may not perform an operation.
type ForbiddenError struct {
	Role session.Role
	Op   Op
	Name string
}

// Error converts a ForbiddenError into a human-readable string.
func (e ForbiddenError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("role %s may not %s %q", e.Role, e.Op, e.Name)
	}
	return fmt.Sprintf("role %s may not %s", e.Role, e.Op)
}

// Policy lists the operations each role may perform.
type Policy struct {
	Allowed map[session.Role][]Op
	// NormalCompressedOnly limits the normal role to reading entries stored compressed.
	NormalCompressedOnly bool
}

// DefaultPolicy lets admin do everything and normal only read and list.
func DefaultPolicy() Policy {
	return Policy{
		Allowed: map[session.Role][]Op{
			session.Admin:  {Create, Write, Read, Delete, List, Compress},
			session.Normal: {Read, List},
		},
	}
}

// Allows reports whether role may perform op.
func (p Policy) Allows(role session.Role, op Op) bool {
	ops, ok := p.Allowed[role]
	return ok && funk.Contains(ops, op)
}

// Gate exposes a Store to a single role.
type Gate struct {
	store  *notekv.Store
	policy Policy
	role   session.Role
}

// NewGate builds a Gate for role over store.
func NewGate(store *notekv.Store, policy Policy, role session.Role) *Gate {
	return &Gate{store: store, policy: policy, role: role}
}

// Role returns the role the gate acts as.
func (g *Gate) Role() session.Role {
	return g.role
}

// Can reports whether the gate's role may perform op.
func (g *Gate) Can(op Op) bool {
	return g.policy.Allows(g.role, op)
}

func (g *Gate) check(op Op) error {
	if !g.Can(op) {
		return ForbiddenError{Role: g.role, Op: op}
	}
	return nil
}

// Create calls Store.Create if allowed.
func (g *Gate) Create(name string) error {
	if err := g.check(Create); err != nil {
		return err
	}
	return g.store.Create(name)
}

// Write calls Store.Write if allowed.
func (g *Gate) Write(name, content string, compressed bool) error {
	if err := g.check(Write); err != nil {
		return err
	}
	return g.store.Write(name, content, compressed)
}

// Read calls Store.Read if allowed. Under NormalCompressedOnly, a plain entry read by the normal
// role is forbidden rather than returned.
func (g *Gate) Read(name string) (notekv.Entry, bool, error) {
	if err := g.check(Read); err != nil {
		return notekv.Entry{}, false, err
	}
	entry, found, err := g.store.Read(name)
	if err != nil || !found {
		return entry, found, err
	}
	if g.policy.NormalCompressedOnly && g.role == session.Normal && !entry.Compressed {
		return notekv.Entry{}, false, ForbiddenError{Role: g.role, Op: Read, Name: name}
	}
	return entry, true, nil
}

// Delete calls Store.Delete if allowed.
func (g *Gate) Delete(name string) error {
	if err := g.check(Delete); err != nil {
		return err
	}
	return g.store.Delete(name)
}

// Entries calls Store.Entries if allowed.
func (g *Gate) Entries() ([]notekv.EntryInfo, error) {
	if err := g.check(List); err != nil {
		return nil, err
	}
	return g.store.Entries()
}

// SetCompression calls Store.SetCompression if allowed.
func (g *Gate) SetCompression(name string, compressed bool) error {
	if err := g.check(Compress); err != nil {
		return err
	}
	return g.store.SetCompression(name, compressed)
}
