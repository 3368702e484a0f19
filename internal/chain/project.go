package chain

import "github.com/verist/sitechain/internal/canonical"

// Project is a registry row that scopes a progress chain. It carries no
// hashes itself; its lifecycle events (creation, purges) are recorded on
// the audit chain instead.
type Project struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	CreatedAt canonical.Time `json:"created_at"`
}
