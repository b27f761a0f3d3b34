package internal

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

const CatalogVersion = 1

// DBRecord describes one named database.
type DBRecord struct {
	DBI       uint32 `msgpack:"dbi"`
	Name      string `msgpack:"name"`
	Flags     uint   `msgpack:"flags"`
	FixedSize int    `msgpack:"fixed,omitempty"`
}

// Catalog is persisted under MetaKey and rewritten by every write
// transaction that commits.
type Catalog struct {
	Version   int        `msgpack:"version"`
	LastTxnID uint64     `msgpack:"last_txn"`
	NextDBI   uint32     `msgpack:"next_dbi"`
	DBs       []DBRecord `msgpack:"dbs"`
}

// FirstNamedDBI is the id given to the first named database; lower ids are
// reserved.
const FirstNamedDBI = 2

func NewCatalog() *Catalog {
	return &Catalog{Version: CatalogVersion, NextDBI: FirstNamedDBI}
}

// LookupDBI returns the record for dbi, or nil.
func (c *Catalog) LookupDBI(dbi uint32) *DBRecord {
	for i := range c.DBs {
		if c.DBs[i].DBI == dbi {
			return &c.DBs[i]
		}
	}
	return nil
}

// Remove drops the record for dbi. Ids are never handed out twice.
func (c *Catalog) Remove(dbi uint32) {
	for i := range c.DBs {
		if c.DBs[i].DBI == dbi {
			c.DBs = append(c.DBs[:i], c.DBs[i+1:]...)
			return
		}
	}
}

// Lookup returns the record named name, or nil.
func (c *Catalog) Lookup(name string) *DBRecord {
	for i := range c.DBs {
		if c.DBs[i].Name == name {
			return &c.DBs[i]
		}
	}
	return nil
}

func (c *Catalog) Clone() *Catalog {
	clone := *c
	clone.DBs = append([]DBRecord(nil), c.DBs...)
	return &clone
}

func EncodeCatalog(c *Catalog) ([]byte, error) {
	return msgpack.Marshal(c)
}

func DecodeCatalog(data []byte) (*Catalog, error) {
	c := &Catalog{}
	if err := msgpack.Unmarshal(data, c); err != nil {
		return nil, err
	}
	if c.Version != CatalogVersion {
		return nil, fmt.Errorf("internal: catalog version %d, want %d", c.Version, CatalogVersion)
	}
	return c, nil
}
