package ports

import "github.com/aalvaropc/procblock/internal/domain"

// Drawing is an open, editable drawing database. It is the host engine
// contract the normalizer needs; every mutation happens inside a Tx.
type Drawing interface {
	Name() string
	Begin() (Tx, error)
	Snapshot() domain.DrawingSnapshot
}

// Tx is one unit of work against a Drawing. Transactions on the same drawing
// are independent: committing or rolling back one never undoes another.
type Tx interface {
	// Block looks a block definition up by name (case-insensitive).
	Block(name string) (domain.BlockDefinition, bool)
	// Placements lists every placement of the named block: the ones in model
	// space and the ones nested inside other block definitions.
	Placements(block string) ([]domain.PlacementRef, error)
	// Explode returns the placement's constituent entities transformed into the
	// placement's container. The placement itself is left untouched.
	Explode(ref domain.PlacementRef) ([]domain.Entity, error)
	// Erase removes a placement from its container.
	Erase(ref domain.PlacementRef) error
	// Append adds an entity to the container (model space when owner is empty).
	Append(owner string, e domain.Entity) (domain.Handle, error)
	// PurgeBlock removes an unreferenced block definition.
	PurgeBlock(name string) error
	// DefineBlock adds or replaces a block definition.
	DefineBlock(def domain.BlockDefinition) (domain.Handle, error)

	Layer(name string) (domain.Layer, bool)
	AddLayer(l domain.Layer) (domain.Handle, error)
	Linetype(name string) (domain.Linetype, bool)
	AddLinetype(lt domain.Linetype) (domain.Handle, error)

	Commit() error
	Rollback() error
}
