// Package domain contains the core domain model for procblock.
//
// The domain is persistence-agnostic: it does not depend on DXF or YAML parsing,
// the filesystem, or the drawing engine. Infra/adapters map into/from these types.
package domain
