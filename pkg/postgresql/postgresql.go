package postgresql

import (
	"database/sql"
	"sync"

	_ "github.com/lib/pq"

	"github.com/KendrickOdei/fastTix-sub000/config"
)

var (
	once sync.Once
	db   *sql.DB
)

// GetDatabase returns the shared database handle, opened once from config.
func GetDatabase() *sql.DB {
	once.Do(func() {
		c := config.Get()

		var err error
		db, err = sql.Open("postgres", c.PostgreSQL.DSN)
		if err != nil {
			panic(err)
		}

		db.SetMaxOpenConns(c.PostgreSQL.MaxOpenConns)
		db.SetMaxIdleConns(c.PostgreSQL.MaxIdleConns)
		db.SetConnMaxLifetime(c.PostgreSQL.ConnMaxLifetime)
	})

	return db
}
