package repository

import "github.com/mailio/go-vault-server/types"

const (
	// database names
	User      = "vault_users"
	VaultFile = "vault_files"
)

type DBSelector interface {
	ChooseDB(dbName string) (Repository, error)
}

type RepositorySelector struct {
	dbs []Repository
}

func NewRepositorySelector() *RepositorySelector {
	return &RepositorySelector{}
}

// adds a database to the databse selector
func (c *RepositorySelector) AddDB(db Repository) {
	c.dbs = append(c.dbs, db)
}

// returns the required database
func (c *RepositorySelector) ChooseDB(dbName string) (Repository, error) {
	for i, r := range c.dbs {
		if r.GetDBName() == dbName {
			return c.dbs[i], nil
		}
	}
	return nil, types.ErrNotFound
}
